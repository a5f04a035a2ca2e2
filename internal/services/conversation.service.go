package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/patronlabs/patron-gateway/internal/model"
	"github.com/patronlabs/patron-gateway/internal/repository"
	"github.com/patronlabs/patron-gateway/pkg/apperr"
)

type ConversationRepository interface {
	FindOrCreate(ctx context.Context, lo, hi string, campaignID *int64) (*model.Conversation, error)
	GetByKey(ctx context.Context, lo, hi string, campaignID *int64) (*model.Conversation, error)
	ListByParticipant(ctx context.Context, address string) ([]*model.Conversation, error)
	AppendMessage(ctx context.Context, msg *model.ChatMessage) (*model.ChatMessage, error)
	MarkRead(ctx context.Context, conversationID int64, senderAddress string) error
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserDirectory interface {
	GetByAddress(ctx context.Context, address string) (*model.User, error)
}

type CampaignDirectory interface {
	GetByID(ctx context.Context, id int64) (*model.Campaign, error)
}

// ConversationService owns per-pair, per-campaign message threads. Send is
// the only mutator of message history anywhere in the process.
type ConversationService struct {
	conversationRepo ConversationRepository
	users            UserDirectory
	campaigns        CampaignDirectory
}

func NewConversationService(conversationRepo ConversationRepository, users UserDirectory, campaigns CampaignDirectory) *ConversationService {
	return &ConversationService{
		conversationRepo: conversationRepo,
		users:            users,
		campaigns:        campaigns,
	}
}

func (s *ConversationService) Send(ctx context.Context, p model.MessageSendRequest) (*model.ChatMessage, error) {
	if err := p.Validate(); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	if _, err := s.users.GetByAddress(ctx, p.SenderAddress); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperr.NotFound("sender not found")
		}
		return nil, apperr.Internal("failed to resolve sender", err)
	}
	if _, err := s.users.GetByAddress(ctx, p.ReceiverAddress); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperr.NotFound("receiver not found")
		}
		return nil, apperr.Internal("failed to resolve receiver", err)
	}
	if p.CampaignID != nil {
		if _, err := s.campaigns.GetByID(ctx, *p.CampaignID); err != nil {
			if errors.Is(err, repository.ErrCampaignNotFound) {
				return nil, apperr.NotFound("campaign not found")
			}
			return nil, apperr.Internal("failed to resolve campaign", err)
		}
	}

	lo, hi := model.CanonicalParticipants(p.SenderAddress, p.ReceiverAddress)

	var created *model.ChatMessage
	err := s.conversationRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		conv, err := s.conversationRepo.FindOrCreate(ctx, lo, hi, p.CampaignID)
		if err != nil {
			return err
		}

		msg := &model.ChatMessage{
			ConversationID:  conv.ID,
			SenderAddress:   p.SenderAddress,
			ReceiverAddress: p.ReceiverAddress,
			Subject:         p.Subject,
			Body:            p.Message,
			CampaignID:      p.CampaignID,
			IsRead:          false,
			CreatedAt:       time.Now().UTC(),
		}
		created, err = s.conversationRepo.AppendMessage(ctx, msg)
		return err
	})
	if err != nil {
		return nil, apperr.Internal("failed to send message", err)
	}

	return created, nil
}

// ListUserMessages flattens every thread the address takes part in into one
// recency-ordered sequence. Thread order alone does not order the flattened
// messages, hence the re-sort before slicing.
func (s *ConversationService) ListUserMessages(ctx context.Context, address string, page model.PageRequest) ([]*model.ChatMessage, model.Pagination, error) {
	if err := page.Validate(); err != nil {
		return nil, model.Pagination{}, apperr.Validation(err.Error())
	}

	convs, err := s.conversationRepo.ListByParticipant(ctx, address)
	if err != nil {
		return nil, model.Pagination{}, apperr.Internal("failed to load conversations", err)
	}

	var flat []*model.ChatMessage
	for _, conv := range convs {
		flat = append(flat, conv.Messages...)
	}
	sort.SliceStable(flat, func(i, j int) bool {
		if flat[i].CreatedAt.Equal(flat[j].CreatedAt) {
			return flat[i].ID > flat[j].ID
		}
		return flat[i].CreatedAt.After(flat[j].CreatedAt)
	})

	total := int64(len(flat))
	items := slicePage(flat, page)
	return items, model.NewPagination(page, total), nil
}

// GetThread returns one page of the thread between two addresses, oldest
// first. Reading the thread acknowledges every unread message the other
// party has written into it, beyond the page being returned. A missing
// thread is an empty page, not an error.
func (s *ConversationService) GetThread(ctx context.Context, userAddress, otherAddress string, campaignID *int64, page model.PageRequest) ([]*model.ChatMessage, model.Pagination, error) {
	if err := page.Validate(); err != nil {
		return nil, model.Pagination{}, apperr.Validation(err.Error())
	}
	if userAddress == "" || otherAddress == "" {
		return nil, model.Pagination{}, apperr.Validation("both addresses are required")
	}

	lo, hi := model.CanonicalParticipants(userAddress, otherAddress)
	conv, err := s.conversationRepo.GetByKey(ctx, lo, hi, campaignID)
	if err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			return []*model.ChatMessage{}, model.NewPagination(page, 0), nil
		}
		return nil, model.Pagination{}, apperr.Internal("failed to load conversation", err)
	}

	items := slicePage(conv.Messages, page)

	if err := s.conversationRepo.MarkRead(ctx, conv.ID, otherAddress); err != nil {
		return nil, model.Pagination{}, apperr.Internal("failed to update read state", err)
	}

	return items, model.NewPagination(page, int64(len(conv.Messages))), nil
}

func slicePage(msgs []*model.ChatMessage, page model.PageRequest) []*model.ChatMessage {
	start := page.Offset()
	if start >= len(msgs) {
		return []*model.ChatMessage{}
	}
	end := start + page.PageSize
	if end > len(msgs) {
		end = len(msgs)
	}
	return msgs[start:end]
}
