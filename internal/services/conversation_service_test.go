package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/patronlabs/patron-gateway/internal/model"
	"github.com/patronlabs/patron-gateway/internal/repository"
	"github.com/patronlabs/patron-gateway/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) FindOrCreate(ctx context.Context, lo, hi string, campaignID *int64) (*model.Conversation, error) {
	args := m.Called(ctx, lo, hi, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversation), args.Error(1)
}

func (m *MockConversationRepository) GetByKey(ctx context.Context, lo, hi string, campaignID *int64) (*model.Conversation, error) {
	args := m.Called(ctx, lo, hi, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversation), args.Error(1)
}

func (m *MockConversationRepository) ListByParticipant(ctx context.Context, address string) ([]*model.Conversation, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Conversation), args.Error(1)
}

func (m *MockConversationRepository) AppendMessage(ctx context.Context, msg *model.ChatMessage) (*model.ChatMessage, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ChatMessage), args.Error(1)
}

func (m *MockConversationRepository) MarkRead(ctx context.Context, conversationID int64, senderAddress string) error {
	args := m.Called(ctx, conversationID, senderAddress)
	return args.Error(0)
}

func (m *MockConversationRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) GetByAddress(ctx context.Context, address string) (*model.User, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

type MockCampaignDirectory struct {
	mock.Mock
}

func (m *MockCampaignDirectory) GetByID(ctx context.Context, id int64) (*model.Campaign, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Campaign), args.Error(1)
}

func svcAddress(seed string) string {
	return "0x" + strings.Repeat(seed, 64/len(seed))
}

func TestConversationService_Send(t *testing.T) {
	ctx := context.Background()
	alice := svcAddress("a")
	bob := svcAddress("b")

	t.Run("delivers through canonical key regardless of direction", func(t *testing.T) {
		// bob -> alice: the stored pair must still be (alice, bob).
		convRepo := new(MockConversationRepository)
		users := new(MockUserDirectory)
		campaigns := new(MockCampaignDirectory)
		service := NewConversationService(convRepo, users, campaigns)

		users.On("GetByAddress", ctx, bob).Return(&model.User{ID: 2, Address: bob}, nil)
		users.On("GetByAddress", ctx, alice).Return(&model.User{ID: 1, Address: alice}, nil)

		convRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
		convRepo.On("FindOrCreate", ctx, alice, bob, (*int64)(nil)).
			Return(&model.Conversation{ID: 7, ParticipantLo: alice, ParticipantHi: bob}, nil)
		convRepo.On("AppendMessage", ctx, mock.AnythingOfType("*model.ChatMessage")).
			Return(&model.ChatMessage{ID: 1, ConversationID: 7, SenderAddress: bob, ReceiverAddress: alice, Body: "hi"}, nil)

		msg, err := service.Send(ctx, model.MessageSendRequest{
			SenderAddress:   bob,
			ReceiverAddress: alice,
			Message:         "hi",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(7), msg.ConversationID)

		convRepo.AssertExpectations(t)
		users.AssertExpectations(t)
	})

	t.Run("rejects self messaging", func(t *testing.T) {
		service := NewConversationService(new(MockConversationRepository), new(MockUserDirectory), new(MockCampaignDirectory))

		_, err := service.Send(ctx, model.MessageSendRequest{
			SenderAddress:   alice,
			ReceiverAddress: alice,
			Message:         "hi",
		})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("rejects oversized body before any lookup", func(t *testing.T) {
		service := NewConversationService(new(MockConversationRepository), new(MockUserDirectory), new(MockCampaignDirectory))

		_, err := service.Send(ctx, model.MessageSendRequest{
			SenderAddress:   alice,
			ReceiverAddress: bob,
			Message:         strings.Repeat("x", model.MaxMessageLength+1),
		})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("unknown receiver is not found", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		users := new(MockUserDirectory)
		service := NewConversationService(convRepo, users, new(MockCampaignDirectory))

		users.On("GetByAddress", ctx, alice).Return(&model.User{ID: 1, Address: alice}, nil)
		users.On("GetByAddress", ctx, bob).Return(nil, repository.ErrUserNotFound)

		_, err := service.Send(ctx, model.MessageSendRequest{
			SenderAddress:   alice,
			ReceiverAddress: bob,
			Message:         "hi",
		})
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})

	t.Run("campaign scope must resolve", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		users := new(MockUserDirectory)
		campaigns := new(MockCampaignDirectory)
		service := NewConversationService(convRepo, users, campaigns)

		users.On("GetByAddress", ctx, alice).Return(&model.User{ID: 1, Address: alice}, nil)
		users.On("GetByAddress", ctx, bob).Return(&model.User{ID: 2, Address: bob}, nil)
		campaigns.On("GetByID", ctx, int64(42)).Return(nil, repository.ErrCampaignNotFound)

		campaignID := int64(42)
		_, err := service.Send(ctx, model.MessageSendRequest{
			SenderAddress:   alice,
			ReceiverAddress: bob,
			CampaignID:      &campaignID,
			Message:         "hi",
		})
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})
}

func TestConversationService_ListUserMessages(t *testing.T) {
	ctx := context.Background()
	alice := svcAddress("a")
	bob := svcAddress("b")
	carol := svcAddress("c")

	t.Run("flattens threads newest first", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		service := NewConversationService(convRepo, new(MockUserDirectory), new(MockCampaignDirectory))

		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		convRepo.On("ListByParticipant", ctx, alice).Return([]*model.Conversation{
			{ID: 1, Messages: []*model.ChatMessage{
				{ID: 1, SenderAddress: alice, ReceiverAddress: bob, Body: "first", CreatedAt: base},
				{ID: 3, SenderAddress: bob, ReceiverAddress: alice, Body: "third", CreatedAt: base.Add(2 * time.Minute)},
			}},
			{ID: 2, Messages: []*model.ChatMessage{
				{ID: 2, SenderAddress: carol, ReceiverAddress: alice, Body: "second", CreatedAt: base.Add(time.Minute)},
			}},
		}, nil)

		msgs, pagination, err := service.ListUserMessages(ctx, alice, model.PageRequest{Page: 1, PageSize: 10})
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.Equal(t, "third", msgs[0].Body)
		assert.Equal(t, "second", msgs[1].Body)
		assert.Equal(t, "first", msgs[2].Body)
		assert.Equal(t, int64(3), pagination.TotalItems)
		assert.False(t, pagination.HasNext)
	})

	t.Run("pages across thread boundaries", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		service := NewConversationService(convRepo, new(MockUserDirectory), new(MockCampaignDirectory))

		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		var msgs []*model.ChatMessage
		for i := 0; i < 5; i++ {
			msgs = append(msgs, &model.ChatMessage{
				ID:        int64(i + 1),
				Body:      "m",
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
			})
		}
		convRepo.On("ListByParticipant", ctx, alice).Return([]*model.Conversation{{ID: 1, Messages: msgs}}, nil)

		page2, pagination, err := service.ListUserMessages(ctx, alice, model.PageRequest{Page: 2, PageSize: 2})
		require.NoError(t, err)
		require.Len(t, page2, 2)
		// Newest first: page 1 holds ids 5,4 so page 2 holds 3,2.
		assert.Equal(t, int64(3), page2[0].ID)
		assert.Equal(t, int64(2), page2[1].ID)
		assert.Equal(t, 3, pagination.TotalPages)
		assert.True(t, pagination.HasNext)
		assert.True(t, pagination.HasPrev)
	})

	t.Run("invalid page never touches the store", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		service := NewConversationService(convRepo, new(MockUserDirectory), new(MockCampaignDirectory))

		_, _, err := service.ListUserMessages(ctx, alice, model.PageRequest{Page: 0, PageSize: 10})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		convRepo.AssertNotCalled(t, "ListByParticipant", mock.Anything, mock.Anything)
	})
}

func TestConversationService_GetThread(t *testing.T) {
	ctx := context.Background()
	alice := svcAddress("a")
	bob := svcAddress("b")

	t.Run("returns oldest first and acknowledges counterpart messages", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		service := NewConversationService(convRepo, new(MockUserDirectory), new(MockCampaignDirectory))

		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		convRepo.On("GetByKey", ctx, alice, bob, (*int64)(nil)).Return(&model.Conversation{
			ID:            9,
			ParticipantLo: alice,
			ParticipantHi: bob,
			Messages: []*model.ChatMessage{
				{ID: 1, SenderAddress: bob, Body: "hey", CreatedAt: base},
				{ID: 2, SenderAddress: alice, Body: "hello", CreatedAt: base.Add(time.Minute)},
			},
		}, nil)
		convRepo.On("MarkRead", ctx, int64(9), bob).Return(nil)

		msgs, pagination, err := service.GetThread(ctx, alice, bob, nil, model.PageRequest{Page: 1, PageSize: 10})
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "hey", msgs[0].Body)
		assert.Equal(t, "hello", msgs[1].Body)
		assert.Equal(t, int64(2), pagination.TotalItems)

		convRepo.AssertExpectations(t)
	})

	t.Run("missing thread is an empty page", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		service := NewConversationService(convRepo, new(MockUserDirectory), new(MockCampaignDirectory))

		convRepo.On("GetByKey", ctx, alice, bob, (*int64)(nil)).Return(nil, repository.ErrConversationNotFound)

		msgs, pagination, err := service.GetThread(ctx, alice, bob, nil, model.PageRequest{Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Empty(t, msgs)
		assert.Equal(t, int64(0), pagination.TotalItems)
		assert.False(t, pagination.HasNext)
		convRepo.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("campaign scoped thread is distinct from unscoped", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		service := NewConversationService(convRepo, new(MockUserDirectory), new(MockCampaignDirectory))

		campaignID := int64(3)
		convRepo.On("GetByKey", ctx, alice, bob, &campaignID).Return(nil, repository.ErrConversationNotFound)

		msgs, _, err := service.GetThread(ctx, alice, bob, &campaignID, model.PageRequest{Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})
}
