package main

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ArkLabsHQ/sol-relayer/internal/config"
	"github.com/ArkLabsHQ/sol-relayer/internal/core/application"
	"github.com/ArkLabsHQ/sol-relayer/internal/core/domain"
	"github.com/ArkLabsHQ/sol-relayer/internal/core/ports"
	badgerdb "github.com/ArkLabsHQ/sol-relayer/internal/infrastructure/db"
	"github.com/ArkLabsHQ/sol-relayer/internal/infrastructure/clock"
	"github.com/ArkLabsHQ/sol-relayer/internal/infrastructure/random"
	"github.com/ArkLabsHQ/sol-relayer/internal/infrastructure/rpc"
	scheduler "github.com/ArkLabsHQ/sol-relayer/internal/infrastructure/scheduler/gocron"
	"github.com/ArkLabsHQ/sol-relayer/internal/infrastructure/vaultcrypto"
	"github.com/ArkLabsHQ/sol-relayer/internal/interface/web"
	"github.com/ArkLabsHQ/sol-relayer/pkg/solanaaddr"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

//nolint:all
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("invalid config")
	}
	log.SetLevel(log.Level(cfg.LogLevel))

	sentryEnabled := cfg.SentryDSN != ""
	if sentryEnabled {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			log.WithError(err).Warn("sentry init failed, continuing without error reporting")
			sentryEnabled = false
		}
	}

	repos, err := badgerdb.NewService(badgerdb.ServiceConfig{
		DbType:   "badger",
		DbConfig: []interface{}{cfg.Datadir, nil},
	})
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}

	envelope, err := vaultcrypto.NewEnvelope(cfg.MasterKey)
	if err != nil {
		log.WithError(err).Fatal("invalid master key")
	}

	rpcClient := rpc.NewClient(cfg.SolanaRPCURL, rpc.WithCommitment(cfg.SolanaCommitment))

	var treasury application.Treasury
	if len(cfg.TreasurySecretKey) > 0 {
		treasury, err = loadTreasury(context.Background(), repos, envelope, cfg.TreasurySecretKey)
		if err != nil {
			log.WithError(err).Fatal("failed to load treasury wallet")
		}
	}

	svc := application.NewService(
		application.BuildInfo{Version: version, Commit: commit, Date: date},
		cfg.Network,
		repos,
		rpcClient,
		envelope,
		treasury,
		clock.New(),
		random.New(),
		scheduler.NewScheduler(),
	)

	ctx := context.Background()
	pollInterval := time.Duration(cfg.PollInterval) * time.Second
	if err := svc.Start(ctx, pollInterval); err != nil {
		log.WithError(err).Fatal("failed to start service")
	}

	webSvc := web.NewService(svc, clock.New(), sentryEnabled)

	go func() {
		if err := webSvc.Start(":" + strconv.Itoa(int(cfg.HTTPPort))); err != nil {
			log.WithError(err).Fatal("web server stopped unexpectedly")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := webSvc.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("web server shutdown error")
	}
	svc.Stop()
	log.Exit(0)
}

// loadTreasury seals the operator-supplied treasury secret key under the
// process master key and registers it as an ordinary IntermediateWallet row
// so the Vault can sign from it exactly like any other wallet; its Active
// flag is never flipped by MarkUsed since the Coordinator never marks the
// treasury wallet used, only the wallets it primes.
func loadTreasury(ctx context.Context, repos ports.RepoManager, envelope *vaultcrypto.Envelope, secretKey []byte) (application.Treasury, error) {
	var priv ed25519.PrivateKey
	switch len(secretKey) {
	case ed25519.SeedSize:
		priv = ed25519.NewKeyFromSeed(secretKey)
	case ed25519.PrivateKeySize:
		priv = ed25519.PrivateKey(secretKey)
	default:
		return nil, fmt.Errorf("treasury secret key must be %d or %d bytes, got %d", ed25519.SeedSize, ed25519.PrivateKeySize, len(secretKey))
	}
	seed := priv.Seed()
	defer vaultcrypto.Zero(seed)

	sealed, err := envelope.Seal(seed)
	if err != nil {
		return nil, fmt.Errorf("seal treasury secret: %w", err)
	}

	pub := priv.Public().(ed25519.PublicKey)
	walletId := uuid.NewString()
	wallet := domain.IntermediateWallet{
		WalletId:        walletId,
		PublicKey:       solanaaddr.Encode(pub),
		EncryptedSecret: sealed,
		CreatedAt:       time.Now(),
		Active:          true,
	}
	if err := repos.Wallets().Add(ctx, wallet); err != nil {
		return nil, fmt.Errorf("persist treasury wallet: %w", err)
	}
	return application.NewStaticTreasury(walletId), nil
}
