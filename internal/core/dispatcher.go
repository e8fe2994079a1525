package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tunecard/internal/chat"
	"tunecard/pkg/fields"
	"tunecard/pkg/links"
)

// extractTimeout bounds the platform calls behind a single link.
const extractTimeout = 10 * time.Second

// Extractor resolves a music link to an ordered field map.
type Extractor interface {
	// Extract fetches and normalizes the metadata behind url.
	Extract(ctx context.Context, url string) (*fields.Map, error)
	// CanExtract checks if any platform extractor handles the given URL.
	CanExtract(url string) bool
}

// MetricsRecorder receives dispatch outcomes. internal/http implements it.
type MetricsRecorder interface {
	RecordMessage(status string)
	RecordExtraction(platform string, outcome string, elapsed time.Duration)
	RecordCard(platform string)
}

// Dispatcher turns incoming chat messages into summary cards.
type Dispatcher struct {
	config    *Config
	frontend  chat.Frontend
	extractor Extractor
	metrics   MetricsRecorder
	logger    *zap.Logger
}

// NewDispatcher creates a dispatcher for the provided chat frontend.
// metrics may be nil.
func NewDispatcher(
	config *Config,
	frontend chat.Frontend,
	extractor Extractor,
	metrics MetricsRecorder,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		config:    config,
		frontend:  frontend,
		extractor: extractor,
		metrics:   metrics,
		logger:    logger,
	}
}

// Start brings up the frontend and begins processing messages. It
// blocks until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.logger.Info("Starting message dispatcher")

	if err := d.frontend.Start(ctx); err != nil {
		return fmt.Errorf("failed to start chat frontend: %w", err)
	}

	return d.frontend.Listen(ctx, func(msg *chat.Message) {
		d.HandleMessage(ctx, msg)
	})
}

// HandleMessage cards every music link in the message, in order of
// appearance. Links that fail extraction are skipped, never rendered
// half-filled.
func (d *Dispatcher) HandleMessage(ctx context.Context, msg *chat.Message) {
	cards := d.cardsFor(ctx, msg.Text)
	if len(cards) == 0 {
		d.recordMessage("no_links")
		return
	}
	d.recordMessage("carded")

	for _, card := range cards {
		if _, err := d.frontend.SendCard(ctx, msg.ChatID, msg.ID, card); err != nil {
			d.logger.Error("Failed to send card",
				zap.String("chat_id", msg.ChatID),
				zap.String("url", card.URL),
				zap.Error(err))
			continue
		}
		if d.metrics != nil {
			d.metrics.RecordCard(string(card.Platform))
		}
	}
}

// cardsFor extracts a card per recognized music link in text.
func (d *Dispatcher) cardsFor(ctx context.Context, text string) []*chat.Card {
	found := links.Categorize(text, d.config.App.IncludeHiddenLinks)

	var cards []*chat.Card
	for _, link := range found {
		if !d.extractor.CanExtract(link.URL) {
			continue
		}

		start := time.Now()
		m, err := d.extractOne(ctx, link.URL)
		elapsed := time.Since(start)

		if err != nil {
			d.recordExtraction(string(link.Platform), "error", elapsed)
			d.logger.Warn("Link extraction failed",
				zap.String("url", link.URL),
				zap.String("platform", string(link.Platform)),
				zap.Error(err))
			continue
		}
		d.recordExtraction(string(m.Platform()), "ok", elapsed)

		cards = append(cards, chat.CardFromFields(m, link.URL))
	}
	return cards
}

func (d *Dispatcher) extractOne(ctx context.Context, url string) (*fields.Map, error) {
	extractCtx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()
	return d.extractor.Extract(extractCtx, url)
}

func (d *Dispatcher) recordMessage(status string) {
	if d.metrics != nil {
		d.metrics.RecordMessage(status)
	}
}

func (d *Dispatcher) recordExtraction(platform, outcome string, elapsed time.Duration) {
	if d.metrics != nil {
		d.metrics.RecordExtraction(platform, outcome, elapsed)
	}
}
