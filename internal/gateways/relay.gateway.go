package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

var (
	ErrRelayUnavailable = errors.New("relay service unavailable")
	ErrRelayRejected    = errors.New("relay rejected the distribution")
)

// DistributeRequest asks the external relay to release ERC-20 tokens for a
// verified APT transfer. The relay owns keys and chain interaction; this
// process never signs anything.
type DistributeRequest struct {
	SwapID      string `json:"swap_id"`
	AptosTxHash string `json:"aptos_tx_hash"`
	UserAddress string `json:"user_address"`
	Amount      int64  `json:"amount"` // octas
}

type DistributeResponse struct {
	SwapID      string    `json:"swap_id"`
	TxHash      string    `json:"tx_hash"`
	Status      string    `json:"status"`
	ProcessedAt time.Time `json:"processed_at"`
}

type RelayConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

type RelayClient struct {
	config RelayConfig
	client *fasthttp.Client
}

func NewRelayClient(config RelayConfig) *RelayClient {
	if config.RequestTimeout == 0 {
		config.RequestTimeout = 10 * time.Second
	}
	return &RelayClient{
		config: config,
		client: &fasthttp.Client{
			MaxConnsPerHost: 32,
			ReadTimeout:     config.RequestTimeout,
			WriteTimeout:    config.RequestTimeout,
		},
	}
}

func (c *RelayClient) Distribute(ctx context.Context, p *DistributeRequest) (*DistributeResponse, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.BaseURL + "/api/v1/distribute")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := c.client.DoTimeout(req, resp, c.config.RequestTimeout); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRelayUnavailable, err)
	}

	if resp.StatusCode() >= 500 {
		return nil, fmt.Errorf("%w: status %d", ErrRelayUnavailable, resp.StatusCode())
	}
	if resp.StatusCode() >= 400 {
		return nil, fmt.Errorf("%w: status %d", ErrRelayRejected, resp.StatusCode())
	}

	var out DistributeResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decode relay response: %w", err)
	}
	return &out, nil
}
