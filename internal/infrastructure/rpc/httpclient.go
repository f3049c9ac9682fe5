package rpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ArkLabsHQ/sol-relayer/internal/core/ports"
)

// Client is a minimal Solana JSON-RPC 2.0 client implementing
// ports.RPCClient, built the same way the teacher's esplora.service wraps a
// block-explorer HTTP API: a bare net/http.Client, context-scoped requests,
// no retry/backoff policy baked in since that is left to the Coordinator's
// own failure handling per spec §4.4.
type Client struct {
	endpoint   string
	httpClient *http.Client
	commitment string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-request HTTP timeout (default 15s).
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithCommitment overrides the commitment level used for balance and
// transaction lookups (default "confirmed").
func WithCommitment(commitment string) Option {
	return func(c *Client) { c.commitment = commitment }
}

// NewClient returns an RPCClient talking JSON-RPC 2.0 to endpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		commitment: "confirmed",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	reqBody, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("rpc: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("rpc: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rpc: %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("rpc: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rpc: %s: unexpected status %d: %s", method, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("rpc: %s: decode response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("rpc: %s: %s (code %d)", method, rpcResp.Error.Message, rpcResp.Error.Code)
	}
	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("rpc: %s: decode result: %w", method, err)
		}
	}
	return nil
}

type balanceResult struct {
	Value uint64 `json:"value"`
}

func (c *Client) GetBalance(ctx context.Context, pubkey string) (uint64, error) {
	var result balanceResult
	params := []interface{}{pubkey, map[string]string{"commitment": c.commitment}}
	if err := c.call(ctx, "getBalance", params, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}

type blockhashResult struct {
	Value struct {
		Blockhash string `json:"blockhash"`
	} `json:"value"`
}

func (c *Client) GetRecentBlockhash(ctx context.Context) (string, error) {
	var result blockhashResult
	params := []interface{}{map[string]string{"commitment": c.commitment}}
	if err := c.call(ctx, "getLatestBlockhash", params, &result); err != nil {
		return "", err
	}
	return result.Value.Blockhash, nil
}

func (c *Client) GetTransaction(ctx context.Context, signature string) (bool, error) {
	var result json.RawMessage
	params := []interface{}{signature, map[string]string{"commitment": c.commitment, "encoding": "json"}}
	if err := c.call(ctx, "getTransaction", params, &result); err != nil {
		return false, err
	}
	return string(result) != "null" && len(result) > 0, nil
}

type sendResult = string

func (c *Client) SubmitAndConfirm(ctx context.Context, signed ports.SignedTransaction) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(signed.Raw)

	var sig sendResult
	sendParams := []interface{}{encoded, map[string]interface{}{"encoding": "base64", "preflightCommitment": c.commitment}}
	if err := c.call(ctx, "sendTransaction", sendParams, &sig); err != nil {
		return "", fmt.Errorf("rpc: submit: %w", err)
	}

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		found, err := c.GetTransaction(ctx, sig)
		if err == nil && found {
			return sig, nil
		}
		select {
		case <-ctx.Done():
			return sig, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return sig, fmt.Errorf("rpc: confirm %s: timed out waiting for confirmation", sig)
}
