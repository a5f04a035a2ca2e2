package services

import (
	"context"
	"testing"
	"time"

	gateway "github.com/patronlabs/patron-gateway/internal/gateways"
	"github.com/patronlabs/patron-gateway/internal/model"
	"github.com/patronlabs/patron-gateway/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLedgerClient struct {
	mock.Mock
}

func (m *MockLedgerClient) GetTransactionByHash(ctx context.Context, hash string) (*gateway.AptosTransaction, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.AptosTransaction), args.Error(1)
}

type MockRelayClient struct {
	mock.Mock
}

func (m *MockRelayClient) Distribute(ctx context.Context, p *gateway.DistributeRequest) (*gateway.DistributeResponse, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.DistributeResponse), args.Error(1)
}

type MockProcessedMarker struct {
	mock.Mock
}

func (m *MockProcessedMarker) SetNX(key string, value []byte, ttl time.Duration) (bool, error) {
	args := m.Called(key, value, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockProcessedMarker) Del(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func TestSwapService_Process(t *testing.T) {
	ctx := context.Background()
	user := svcAddress("a")
	hash := "0xswap1"
	markerKey := "swap:processed:" + hash

	t.Run("verified transfer reaches the relay", func(t *testing.T) {
		ledger := new(MockLedgerClient)
		relay := new(MockRelayClient)
		marker := new(MockProcessedMarker)
		service := NewSwapService(ledger, relay, marker)

		marker.On("SetNX", markerKey, []byte(user), time.Duration(0)).Return(true, nil)
		ledger.On("GetTransactionByHash", ctx, hash).
			Return(&gateway.AptosTransaction{Hash: hash, Sender: user, Success: true, Amount: 150_000_000}, nil)
		relay.On("Distribute", ctx, mock.MatchedBy(func(p *gateway.DistributeRequest) bool {
			return p.AptosTxHash == hash && p.UserAddress == user && p.Amount == 150_000_000
		})).Return(&gateway.DistributeResponse{TxHash: "0xrelay1"}, nil)

		result, err := service.Process(ctx, model.SwapProcessRequest{AptosTxHash: hash, UserAddress: user})
		require.NoError(t, err)
		assert.Equal(t, model.SwapStatusCompleted, result.Status)
		assert.Equal(t, "0xrelay1", result.RelayTxHash)
		assert.Equal(t, int64(150_000_000), result.Amount)
		assert.NotEmpty(t, result.ID)

		marker.AssertNotCalled(t, "Del", mock.Anything)
		relay.AssertExpectations(t)
	})

	t.Run("replayed hash is a conflict", func(t *testing.T) {
		ledger := new(MockLedgerClient)
		marker := new(MockProcessedMarker)
		service := NewSwapService(ledger, new(MockRelayClient), marker)

		marker.On("SetNX", markerKey, []byte(user), time.Duration(0)).Return(false, nil)

		_, err := service.Process(ctx, model.SwapProcessRequest{AptosTxHash: hash, UserAddress: user})
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
		ledger.AssertNotCalled(t, "GetTransactionByHash", mock.Anything, mock.Anything)
	})

	t.Run("unknown transaction releases the marker", func(t *testing.T) {
		ledger := new(MockLedgerClient)
		marker := new(MockProcessedMarker)
		service := NewSwapService(ledger, new(MockRelayClient), marker)

		marker.On("SetNX", markerKey, []byte(user), time.Duration(0)).Return(true, nil)
		marker.On("Del", markerKey).Return(nil)
		ledger.On("GetTransactionByHash", ctx, hash).Return(nil, gateway.ErrTransactionNotFound)

		_, err := service.Process(ctx, model.SwapProcessRequest{AptosTxHash: hash, UserAddress: user})
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
		marker.AssertExpectations(t)
	})

	t.Run("sender mismatch is forbidden", func(t *testing.T) {
		ledger := new(MockLedgerClient)
		relay := new(MockRelayClient)
		marker := new(MockProcessedMarker)
		service := NewSwapService(ledger, relay, marker)

		marker.On("SetNX", markerKey, []byte(user), time.Duration(0)).Return(true, nil)
		marker.On("Del", markerKey).Return(nil)
		ledger.On("GetTransactionByHash", ctx, hash).
			Return(&gateway.AptosTransaction{Hash: hash, Sender: svcAddress("b"), Success: true, Amount: 100}, nil)

		_, err := service.Process(ctx, model.SwapProcessRequest{AptosTxHash: hash, UserAddress: user})
		assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))
		relay.AssertNotCalled(t, "Distribute", mock.Anything, mock.Anything)
	})

	t.Run("failed on-chain transaction is rejected", func(t *testing.T) {
		ledger := new(MockLedgerClient)
		marker := new(MockProcessedMarker)
		service := NewSwapService(ledger, new(MockRelayClient), marker)

		marker.On("SetNX", markerKey, []byte(user), time.Duration(0)).Return(true, nil)
		marker.On("Del", markerKey).Return(nil)
		ledger.On("GetTransactionByHash", ctx, hash).
			Return(&gateway.AptosTransaction{Hash: hash, Sender: user, Success: false, Amount: 100}, nil)

		_, err := service.Process(ctx, model.SwapProcessRequest{AptosTxHash: hash, UserAddress: user})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("relay failure keeps the marker", func(t *testing.T) {
		// The distribution may have gone through on the relay side; a blind
		// retry could double pay, so the hash stays claimed.
		ledger := new(MockLedgerClient)
		relay := new(MockRelayClient)
		marker := new(MockProcessedMarker)
		service := NewSwapService(ledger, relay, marker)

		marker.On("SetNX", markerKey, []byte(user), time.Duration(0)).Return(true, nil)
		ledger.On("GetTransactionByHash", ctx, hash).
			Return(&gateway.AptosTransaction{Hash: hash, Sender: user, Success: true, Amount: 100}, nil)
		relay.On("Distribute", ctx, mock.AnythingOfType("*gateway.DistributeRequest")).
			Return(nil, gateway.ErrRelayUnavailable)

		_, err := service.Process(ctx, model.SwapProcessRequest{AptosTxHash: hash, UserAddress: user})
		assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
		marker.AssertNotCalled(t, "Del", mock.Anything)
	})

	t.Run("missing hash rejected before the marker", func(t *testing.T) {
		marker := new(MockProcessedMarker)
		service := NewSwapService(new(MockLedgerClient), new(MockRelayClient), marker)

		_, err := service.Process(ctx, model.SwapProcessRequest{UserAddress: user})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		marker.AssertNotCalled(t, "SetNX", mock.Anything, mock.Anything, mock.Anything)
	})
}
