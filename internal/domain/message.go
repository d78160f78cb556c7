package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrMessageEmpty = errors.New("message text empty")

type MessageID string

type Message struct {
	ID        MessageID `json:"id"`
	Sender    UserID    `json:"sender"`
	Recipient UserID    `json:"recipient"`
	Text      string    `json:"text"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewMessage(sender, recipient UserID, text string) (*Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrMessageEmpty
	}
	return &Message{
		ID:        MessageID(uuid.NewString()),
		Sender:    sender,
		Recipient: recipient,
		Text:      text,
		CreatedAt: time.Now(),
	}, nil
}
