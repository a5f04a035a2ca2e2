package repository

import (
	"time"

	"github.com/patronlabs/patron-gateway/internal/model"
)

// campaign_id is stored as 0 for threads outside any campaign scope so the
// compound unique index stays total (NULLs would compare distinct and allow
// duplicate thread rows for the same pair).
type ConversationEntity struct {
	ID            int64     `db:"id"              gorm:"primaryKey;autoIncrement;column:id"`
	ParticipantLo string    `db:"participant_lo"  gorm:"column:participant_lo;not null;uniqueIndex:idx_conversation_key"`
	ParticipantHi string    `db:"participant_hi"  gorm:"column:participant_hi;not null;uniqueIndex:idx_conversation_key"`
	CampaignID    int64     `db:"campaign_id"     gorm:"column:campaign_id;not null;default:0;uniqueIndex:idx_conversation_key"`
	LastMessageAt time.Time `db:"last_message_at" gorm:"column:last_message_at;index"`
	CreatedAt     time.Time `db:"created_at"      gorm:"column:created_at;autoCreateTime"`

	Messages []*ChatMessageEntity `gorm:"foreignKey:ConversationID"`
}

func (ConversationEntity) TableName() string {
	return "conversations"
}

type ChatMessageEntity struct {
	ID              int64     `db:"id"               gorm:"primaryKey;autoIncrement;column:id"`
	ConversationID  int64     `db:"conversation_id"  gorm:"column:conversation_id;not null;index"`
	SenderAddress   string    `db:"sender_address"   gorm:"column:sender_address;not null;index"`
	ReceiverAddress string    `db:"receiver_address" gorm:"column:receiver_address;not null;index"`
	Subject         string    `db:"subject"          gorm:"column:subject;not null;default:''"`
	Body            string    `db:"body"             gorm:"column:body;not null"`
	CampaignID      *int64    `db:"campaign_id"      gorm:"column:campaign_id"`
	IsRead          bool      `db:"is_read"          gorm:"column:is_read;not null;default:false"`
	CreatedAt       time.Time `db:"created_at"       gorm:"column:created_at;autoCreateTime"`
}

func (ChatMessageEntity) TableName() string {
	return "chat_messages"
}

func scopeToColumn(campaignID *int64) int64 {
	if campaignID == nil {
		return 0
	}
	return *campaignID
}

func columnToScope(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}

func toConversationModel(e *ConversationEntity) *model.Conversation {
	if e == nil {
		return nil
	}
	return &model.Conversation{
		ID:            e.ID,
		ParticipantLo: e.ParticipantLo,
		ParticipantHi: e.ParticipantHi,
		CampaignID:    columnToScope(e.CampaignID),
		LastMessageAt: e.LastMessageAt,
		Messages:      toChatMessageModels(e.Messages),
		CreatedAt:     e.CreatedAt,
	}
}

func toConversationModels(entities []*ConversationEntity) []*model.Conversation {
	if entities == nil {
		return nil
	}
	models := make([]*model.Conversation, len(entities))
	for i, e := range entities {
		models[i] = toConversationModel(e)
	}
	return models
}

func toChatMessageEntity(m *model.ChatMessage) *ChatMessageEntity {
	if m == nil {
		return nil
	}
	return &ChatMessageEntity{
		ID:              m.ID,
		ConversationID:  m.ConversationID,
		SenderAddress:   m.SenderAddress,
		ReceiverAddress: m.ReceiverAddress,
		Subject:         m.Subject,
		Body:            m.Body,
		CampaignID:      m.CampaignID,
		IsRead:          m.IsRead,
		CreatedAt:       m.CreatedAt,
	}
}

func toChatMessageModel(e *ChatMessageEntity) *model.ChatMessage {
	if e == nil {
		return nil
	}
	return &model.ChatMessage{
		ID:              e.ID,
		ConversationID:  e.ConversationID,
		SenderAddress:   e.SenderAddress,
		ReceiverAddress: e.ReceiverAddress,
		Subject:         e.Subject,
		Body:            e.Body,
		CampaignID:      e.CampaignID,
		IsRead:          e.IsRead,
		CreatedAt:       e.CreatedAt,
	}
}

func toChatMessageModels(entities []*ChatMessageEntity) []*model.ChatMessage {
	if entities == nil {
		return nil
	}
	models := make([]*model.ChatMessage, len(entities))
	for i, e := range entities {
		models[i] = toChatMessageModel(e)
	}
	return models
}
