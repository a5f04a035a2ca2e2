package model

import (
	"errors"
	"time"
	"unicode/utf8"
)

const MaxMessageLength = 1000

// Conversation is one thread between an unordered pair of addresses,
// optionally scoped to a campaign. ParticipantLo < ParticipantHi always
// holds; the sorted pair plus the campaign scope is the canonical key, so
// both sides of a pair resolve to the same thread no matter who writes
// first.
type Conversation struct {
	ID            int64          `json:"id"`
	ParticipantLo string         `json:"participant_lo"`
	ParticipantHi string         `json:"participant_hi"`
	CampaignID    *int64         `json:"campaign_id,omitempty"`
	LastMessageAt time.Time      `json:"last_message_at"`
	Messages      []*ChatMessage `json:"messages,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

func (Conversation) TableName() string { return "conversations" }

// ChatMessage is one append-only entry in a conversation. IsRead flips
// false->true when the counterpart reads the thread and is never reset.
type ChatMessage struct {
	ID              int64     `json:"id"`
	ConversationID  int64     `json:"conversation_id"`
	SenderAddress   string    `json:"sender_address"`
	ReceiverAddress string    `json:"receiver_address"`
	Subject         string    `json:"subject,omitempty"`
	Body            string    `json:"message"`
	// CampaignID tags the message with the scope it was sent under. The
	// conversation already carries the scope; the per-message tag is kept
	// for compatibility and never used for thread routing.
	CampaignID *int64    `json:"campaign_id,omitempty"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

func (ChatMessage) TableName() string { return "chat_messages" }

// CanonicalParticipants returns the pair sorted ascending, the order stored
// on the conversation row.
func CanonicalParticipants(a, b string) (lo, hi string) {
	if a < b {
		return a, b
	}
	return b, a
}

type MessageSendRequest struct {
	SenderAddress   string `json:"sender_address"`
	ReceiverAddress string `json:"receiver_address"`
	CampaignID      *int64 `json:"campaign_id,omitempty"`
	Message         string `json:"message"`
	Subject         string `json:"subject,omitempty"`
}

func (p MessageSendRequest) Validate() error {
	if p.SenderAddress == "" || p.ReceiverAddress == "" {
		return errors.New("sender and receiver addresses are required")
	}
	if p.SenderAddress == p.ReceiverAddress {
		return errors.New("cannot message yourself")
	}
	if p.Message == "" {
		return errors.New("message is required")
	}
	if utf8.RuneCountInString(p.Message) > MaxMessageLength {
		return errors.New("message exceeds maximum length")
	}
	return nil
}
