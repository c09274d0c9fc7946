package models

import (
	"time"

	"github.com/google/uuid"
)

// Thread представляет чат между сторонами переговоров
type Thread struct {
	ID              int64      `json:"id"`
	NegotiationID   *int64     `json:"negotiation_id,omitempty"`
	OwnerID         uuid.UUID  `json:"owner_id"`
	CounterpartyID  uuid.UUID  `json:"counterparty_id"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastMessageText string     `json:"last_message_text,omitempty"`
	LastMessageTime *time.Time `json:"last_message_time,omitempty"`
	IsActive        bool       `json:"is_active"`

	// Дополнительные поля для API
	Owner        *User `json:"owner,omitempty"`
	Counterparty *User `json:"counterparty,omitempty"`
	UnreadCount  int   `json:"unread_count,omitempty"`
}

// ThreadMessage представляет сообщение в чате переговоров
type ThreadMessage struct {
	ID        int64     `json:"id"`
	ThreadID  int64     `json:"thread_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Text      string    `json:"text"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Дополнительные поля для API
	Sender *User `json:"sender,omitempty"`
}
