package repository

import (
	"context"
	"errors"
	"time"

	"github.com/patronlabs/patron-gateway/internal/model"
	"github.com/patronlabs/patron-gateway/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
)

type ConversationRepository struct {
	*pg.DB
}

func NewConversationRepository(db *pg.DB) *ConversationRepository {
	return &ConversationRepository{
		db,
	}
}

// FindOrCreate resolves the thread for a canonical key, creating it when
// absent. The insert goes through ON CONFLICT DO NOTHING on the compound
// unique index, so two concurrent first sends for the same key converge on
// one row instead of racing into duplicates.
func (r *ConversationRepository) FindOrCreate(ctx context.Context, lo, hi string, campaignID *int64) (*model.Conversation, error) {
	entity := &ConversationEntity{
		ParticipantLo: lo,
		ParticipantHi: hi,
		CampaignID:    scopeToColumn(campaignID),
		LastMessageAt: time.Now().UTC(),
	}

	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "participant_lo"},
				{Name: "participant_hi"},
				{Name: "campaign_id"},
			},
			DoNothing: true,
		}).
		Create(entity).
		Error
	if err != nil {
		return nil, err
	}

	// Refetch: on conflict the insert assigns no id.
	var found ConversationEntity
	err = r.Write(ctx).WithContext(ctx).
		Where("participant_lo = ? AND participant_hi = ? AND campaign_id = ?",
			lo, hi, scopeToColumn(campaignID)).
		First(&found).
		Error
	if err != nil {
		return nil, err
	}

	return toConversationModel(&found), nil
}

// GetByKey looks up a thread by its canonical key with the full message
// history preloaded in chronological order.
func (r *ConversationRepository) GetByKey(ctx context.Context, lo, hi string, campaignID *int64) (*model.Conversation, error) {
	var entity ConversationEntity
	err := r.Read(ctx).WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Where("participant_lo = ? AND participant_hi = ? AND campaign_id = ?",
			lo, hi, scopeToColumn(campaignID)).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}

	return toConversationModel(&entity), nil
}

// ListByParticipant returns every thread the address takes part in, most
// recently active first, histories preloaded.
func (r *ConversationRepository) ListByParticipant(ctx context.Context, address string) ([]*model.Conversation, error) {
	var entities []*ConversationEntity
	err := r.Read(ctx).WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Where("participant_lo = ? OR participant_hi = ?", address, address).
		Order("last_message_at DESC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}

	return toConversationModels(entities), nil
}

// AppendMessage adds one message to the end of a thread and bumps
// last_message_at. Callers run it inside WithinTransaction together with
// FindOrCreate.
func (r *ConversationRepository) AppendMessage(ctx context.Context, msg *model.ChatMessage) (*model.ChatMessage, error) {
	entity := toChatMessageEntity(msg)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	err := r.Write(ctx).WithContext(ctx).
		Model(&ConversationEntity{}).
		Where("id = ?", entity.ConversationID).
		Update("last_message_at", entity.CreatedAt).
		Error
	if err != nil {
		return nil, err
	}

	return toChatMessageModel(entity), nil
}

// MarkRead flips every unread message a sender wrote into a thread. Reading
// a thread acknowledges the counterpart's whole backlog, not just the
// current page.
func (r *ConversationRepository) MarkRead(ctx context.Context, conversationID int64, senderAddress string) error {
	return r.Write(ctx).WithContext(ctx).
		Model(&ChatMessageEntity{}).
		Where("conversation_id = ? AND sender_address = ? AND is_read = ?",
			conversationID, senderAddress, false).
		Update("is_read", true).
		Error
}
