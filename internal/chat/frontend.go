// Package chat defines the frontend boundary: platform-neutral incoming
// messages and rendered summary cards going back out.
package chat

import (
	"context"
	"strings"

	"tunecard/pkg/fields"
)

// Message represents a normalized chat message from any frontend
type Message struct {
	ID         string
	ChatID     string
	SenderID   string
	SenderName string
	Text       string
	IsGroup    bool
	Raw        any // underlying library message struct
}

// Field is one labeled line of a Card. Values are pre-formatted
// markdown strings.
type Field struct {
	Label string
	Value string
}

// Card is a rendered link summary, ready for delivery.
type Card struct {
	Title        string
	URL          string
	Description  string
	ThumbnailURL string
	Colour       string
	Platform     fields.Platform
	Fields       []Field
}

// CardFromFields flattens an extractor field map into a Card pointing
// back at the original link. Reserved keys fill the card header; the
// remaining labels keep their order.
func CardFromFields(m *fields.Map, url string) *Card {
	card := &Card{
		URL:      url,
		Platform: m.Platform(),
		Colour:   fields.Colour(m.Platform()),
	}
	card.Title, _ = m.Get(fields.KeyTitle)
	card.Description, _ = m.Get(fields.KeyDescription)
	card.ThumbnailURL, _ = m.Get(fields.KeyThumbnailURL)

	for _, label := range m.Labels() {
		value, _ := m.Get(label)
		card.Fields = append(card.Fields, Field{Label: label, Value: value})
	}
	return card
}

// Text renders the card as a single markdown message for frontends
// without native embed support.
func (c *Card) Text() string {
	var b strings.Builder
	if c.URL != "" && c.Title != "" {
		b.WriteString(fields.Link(c.Title, c.URL))
	} else {
		b.WriteString(c.Title)
	}
	if c.Description != "" {
		b.WriteString("\n")
		b.WriteString(c.Description)
	}
	for _, f := range c.Fields {
		b.WriteString("\n")
		b.WriteString(f.Label)
		b.WriteString(": ")
		b.WriteString(f.Value)
	}
	return b.String()
}

// Frontend defines the unified interface for all chat integrations
type Frontend interface {
	// Start initializes the chat frontend and verifies its configuration
	Start(ctx context.Context) error

	// Listen starts listening for messages and calls the handler for each message
	Listen(ctx context.Context, handler func(*Message)) error

	// SendCard delivers a summary card to the specified chat, optionally as a reply
	SendCard(ctx context.Context, chatID string, replyToID string, card *Card) (string, error)
}
