package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/patronlabs/patron-gateway/pkg/logger"
	"github.com/valyala/fasthttp"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found on chain")
	ErrNodeUnavailable     = errors.New("fullnode unavailable")
)

const withdrawEventType = "0x1::coin::WithdrawEvent"

// AptosTransaction is the settlement view the bridge needs: did the
// transaction commit, who signed it, and how many octas moved.
type AptosTransaction struct {
	Hash    string
	Sender  string
	Success bool
	Amount  int64 // octas
}

type AptosConfig struct {
	NodeURL        string
	RequestTimeout time.Duration
	MaxRetries     int
}

// AptosClient reads settled transactions from an Aptos fullnode REST API.
type AptosClient struct {
	config AptosConfig
	client *fasthttp.Client
}

func NewAptosClient(config AptosConfig) *AptosClient {
	if config.RequestTimeout == 0 {
		config.RequestTimeout = 5 * time.Second
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	return &AptosClient{
		config: config,
		client: &fasthttp.Client{
			MaxConnsPerHost:     64,
			ReadTimeout:         config.RequestTimeout,
			WriteTimeout:        config.RequestTimeout,
			MaxIdleConnDuration: time.Minute,
		},
	}
}

type aptosTxResponse struct {
	Hash    string `json:"hash"`
	Sender  string `json:"sender"`
	Success bool   `json:"success"`
	Events  []struct {
		Type string `json:"type"`
		Data struct {
			Amount string `json:"amount"`
		} `json:"data"`
	} `json:"events"`
}

// GetTransactionByHash fetches one committed transaction. Transient node
// failures are retried with backoff; a 404 is terminal.
func (c *AptosClient) GetTransactionByHash(ctx context.Context, hash string) (*AptosTransaction, error) {
	url := fmt.Sprintf("%s/transactions/by_hash/%s", c.config.NodeURL, hash)

	var lastErr error
	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(1<<attempt) * 100 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		tx, err := c.fetch(url)
		if err == nil {
			return tx, nil
		}
		if errors.Is(err, ErrTransactionNotFound) {
			return nil, err
		}
		lastErr = err
		logger.Warn("fullnode request failed", "hash", hash, "attempt", attempt+1, "error", err)
	}

	return nil, fmt.Errorf("%w: %v", ErrNodeUnavailable, lastErr)
}

func (c *AptosClient) fetch(url string) (*AptosTransaction, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	if err := c.client.DoTimeout(req, resp, c.config.RequestTimeout); err != nil {
		return nil, err
	}

	switch resp.StatusCode() {
	case fasthttp.StatusOK:
	case fasthttp.StatusNotFound:
		return nil, ErrTransactionNotFound
	default:
		return nil, fmt.Errorf("fullnode returned status %d", resp.StatusCode())
	}

	var body aptosTxResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("decode fullnode response: %w", err)
	}

	tx := &AptosTransaction{
		Hash:    body.Hash,
		Sender:  body.Sender,
		Success: body.Success,
	}
	for _, ev := range body.Events {
		if ev.Type != withdrawEventType {
			continue
		}
		amount, err := strconv.ParseInt(ev.Data.Amount, 10, 64)
		if err != nil {
			continue
		}
		tx.Amount += amount
	}

	return tx, nil
}
