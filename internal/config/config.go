package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
	"unicode"

	"github.com/mr-tron/base58"
	"github.com/spf13/viper"
)

// Config is the process-wide configuration loaded once at startup from
// RELAYER_-prefixed environment variables.
type Config struct {
	Datadir  string
	HTTPPort uint32
	LogLevel uint32

	MasterKey []byte // 32 bytes, decoded from hex

	SolanaRPCURL    string
	SolanaCommitment string
	Network         string

	TreasurySecretKey []byte // optional, decoded from base58; nil if unconfigured
	FeeWalletPubkey   string // optional

	PollInterval  uint32 // seconds
	AdmissionCap  int
	SentryDSN     string
}

var (
	Datadir          = "DATADIR"
	HTTPPort         = "HTTP_PORT"
	LogLevel         = "LOG_LEVEL"
	MasterKeyHex     = "MASTER_KEY"
	SolanaRPCURL     = "SOLANA_RPC_URL"
	SolanaCommitment = "SOLANA_COMMITMENT"
	Network          = "NETWORK"
	TreasuryKey      = "TREASURY_SECRET_KEY"
	FeeWalletPubkey  = "FEE_WALLET_PUBKEY"
	PollInterval     = "POLL_INTERVAL_SECONDS"
	AdmissionCap     = "ADMISSION_CAP"
	SentryDSN        = "SENTRY_DSN"

	defaultDatadir          = appDatadir("sol-relayer", false)
	defaultHTTPPort         = 8080
	defaultLogLevel         = 4
	defaultSolanaRPCURL     = "https://api.mainnet-beta.solana.com"
	defaultSolanaCommitment = "confirmed"
	defaultNetwork          = "mainnet-beta"
	defaultPollInterval     = 10
	defaultAdmissionCap     = 10
)

// LoadConfig reads RELAYER_-prefixed environment variables, validates the
// required ones, and decodes the master key and optional treasury key.
func LoadConfig() (*Config, error) {
	viper.SetEnvPrefix("RELAYER")
	viper.AutomaticEnv()

	viper.SetDefault(Datadir, defaultDatadir)
	viper.SetDefault(HTTPPort, defaultHTTPPort)
	viper.SetDefault(LogLevel, defaultLogLevel)
	viper.SetDefault(SolanaRPCURL, defaultSolanaRPCURL)
	viper.SetDefault(SolanaCommitment, defaultSolanaCommitment)
	viper.SetDefault(Network, defaultNetwork)
	viper.SetDefault(PollInterval, defaultPollInterval)
	viper.SetDefault(AdmissionCap, defaultAdmissionCap)

	if err := initDatadir(viper.GetString(Datadir)); err != nil {
		return nil, fmt.Errorf("error while creating datadir: %w", err)
	}

	masterKeyHex := viper.GetString(MasterKeyHex)
	if masterKeyHex == "" {
		return nil, fmt.Errorf("%s_%s is required", "RELAYER", MasterKeyHex)
	}
	masterKey, err := hex.DecodeString(masterKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid master key hex: %w", err)
	}
	if len(masterKey) != 32 {
		return nil, fmt.Errorf("master key must be 32 bytes (64 hex chars), got %d bytes", len(masterKey))
	}

	cfg := &Config{
		Datadir:          viper.GetString(Datadir),
		HTTPPort:         viper.GetUint32(HTTPPort),
		LogLevel:         viper.GetUint32(LogLevel),
		MasterKey:        masterKey,
		SolanaRPCURL:     viper.GetString(SolanaRPCURL),
		SolanaCommitment: viper.GetString(SolanaCommitment),
		Network:          viper.GetString(Network),
		FeeWalletPubkey:  viper.GetString(FeeWalletPubkey),
		PollInterval:     viper.GetUint32(PollInterval),
		AdmissionCap:     viper.GetInt(AdmissionCap),
		SentryDSN:        viper.GetString(SentryDSN),
	}

	if treasuryKeyStr := viper.GetString(TreasuryKey); treasuryKeyStr != "" {
		treasuryKey, err := base58.Decode(treasuryKeyStr)
		if err != nil {
			return nil, fmt.Errorf("invalid treasury secret key: %w", err)
		}
		if len(treasuryKey) != 32 && len(treasuryKey) != 64 {
			return nil, fmt.Errorf("treasury secret key must be 32 or 64 bytes, got %d", len(treasuryKey))
		}
		cfg.TreasurySecretKey = treasuryKey
	}

	return cfg, nil
}

func initDatadir(datadir string) error {
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

// appDatadir returns an operating system specific directory to be used for
// storing application data for an application. This unexported version
// takes an appName argument primarily to enable testing.
func appDatadir(appName string, roaming bool) string {
	if appName == "" || appName == "." {
		return "."
	}

	appName = strings.TrimPrefix(appName, ".")
	appNameUpper := string(unicode.ToUpper(rune(appName[0]))) + appName[1:]
	appNameLower := string(unicode.ToLower(rune(appName[0]))) + appName[1:]

	var homeDir string
	usr, err := user.Current()
	if err == nil {
		homeDir = usr.HomeDir
	}
	if err != nil || homeDir == "" {
		homeDir = os.Getenv("HOME")
	}

	goos := runtime.GOOS
	switch goos {
	case "windows":
		appData := os.Getenv("LOCALAPPDATA")
		if roaming || appData == "" {
			appData = os.Getenv("APPDATA")
		}
		if appData != "" {
			return filepath.Join(appData, appNameUpper)
		}
	case "darwin":
		if homeDir != "" {
			return filepath.Join(homeDir, "Library", "Application Support", appNameUpper)
		}
	case "plan9":
		if homeDir != "" {
			return filepath.Join(homeDir, appNameLower)
		}
	default:
		if homeDir != "" {
			return filepath.Join(homeDir, "."+appNameLower)
		}
	}

	return "."
}
