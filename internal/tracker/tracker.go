package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Rayane1997/app-price-tracker/helpers"
	"github.com/Rayane1997/app-price-tracker/internal/parser"
	"github.com/Rayane1997/app-price-tracker/internal/store"
	"github.com/Rayane1997/app-price-tracker/logger"
	"github.com/Rayane1997/app-price-tracker/services/publisher"
)

const errorMessageLimit = 1000

// Store is the persistence surface the tracker needs. *store.Store
// satisfies it.
type Store interface {
	GetProduct(ctx context.Context, id uint) (*store.Product, error)
	UpdateProduct(ctx context.Context, p *store.Product) error
	AppendHistory(ctx context.Context, entry *store.PriceHistory) error
}

// AlertChecker runs the alert rules after a successful attempt.
type AlertChecker interface {
	CheckAndCreate(ctx context.Context, product *store.Product, current *store.PriceHistory) ([]*store.Alert, error)
}

// ParserLookup resolves the parser for a product URL.
type ParserLookup interface {
	ForURL(url string) (parser.Parser, error)
}

// ConfigStore receives usage and error bookkeeping for stored parser
// configurations.
type ConfigStore interface {
	MarkParserConfigUsed(ctx context.Context, domain string) error
	RecordParserConfigError(ctx context.Context, domain string, message string) error
}

// Result summarizes one tracking attempt.
type Result struct {
	Status            string   `json:"status"`
	ProductID         uint     `json:"product_id"`
	Reason            string   `json:"reason,omitempty"`
	Price             *float64 `json:"price,omitempty"`
	Currency          string   `json:"currency,omitempty"`
	DurationMs        int64    `json:"duration_ms"`
	AlertsCreated     int      `json:"alerts_created"`
	ConsecutiveErrors int      `json:"consecutive_errors,omitempty"`
}

// Tracker runs the sequential fetch-parse-persist-alert pipeline for one
// product at a time.
type Tracker struct {
	store     Store
	registry  ParserLookup
	engine    AlertChecker
	publisher publisher.Publisher
	configs   ConfigStore
	maxErrors int
	now       func() time.Time
	log       *logger.Logger
}

// New creates a tracker. publisher may be nil to disable alert publishing.
// maxErrors is the consecutive-failure count that flips a product to the
// error status.
func New(s Store, registry ParserLookup, engine AlertChecker, pub publisher.Publisher, maxErrors int) *Tracker {
	return &Tracker{
		store:     s,
		registry:  registry,
		engine:    engine,
		publisher: pub,
		maxErrors: maxErrors,
		now:       time.Now,
		log:       logger.ForTracker(),
	}
}

// Track runs one tracking attempt for a product. Fetch and parse failures
// are absorbed into the product's error counters and a null-price history
// row; they are not returned as errors. Only persistence failures for the
// attempt itself surface to the caller.
func (t *Tracker) Track(ctx context.Context, productID uint) (*Result, error) {
	start := t.now()

	product, err := t.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("load product %d: %w", productID, err)
	}

	switch product.Status {
	case store.ProductStatusError, store.ProductStatusNotTrackable, store.ProductStatusPaused:
		t.log.Info().Uint("product_id", productID).Str("status", string(product.Status)).Msg("Skipping product")
		return &Result{Status: "skipped", ProductID: productID, Reason: "product status is " + string(product.Status)}, nil
	}

	p, err := t.registry.ForURL(product.URL)
	if err != nil {
		return t.recordFailure(ctx, product, start, err)
	}

	snapshot, err := p.Parse(ctx, product.URL)
	if err != nil {
		t.noteConfigError(ctx, p, err)
		return t.recordFailure(ctx, product, start, err)
	}
	t.noteConfigUsed(ctx, p)

	return t.recordSuccess(ctx, product, snapshot, start)
}

// SetConfigStore enables bookkeeping on stored parser configurations for
// attempts that went through a config-driven parser.
func (t *Tracker) SetConfigStore(cs ConfigStore) {
	t.configs = cs
}

func (t *Tracker) noteConfigUsed(ctx context.Context, p parser.Parser) {
	cp, ok := p.(parser.Configured)
	if !ok || t.configs == nil {
		return
	}
	if err := t.configs.MarkParserConfigUsed(ctx, cp.ConfigDomain()); err != nil {
		t.log.Warn().Err(err).Str("domain", cp.ConfigDomain()).Msg("Failed to stamp parser config usage")
	}
}

func (t *Tracker) noteConfigError(ctx context.Context, p parser.Parser, cause error) {
	cp, ok := p.(parser.Configured)
	if !ok || t.configs == nil {
		return
	}
	message := helpers.Truncate(cause.Error(), errorMessageLimit)
	if err := t.configs.RecordParserConfigError(ctx, cp.ConfigDomain(), message); err != nil {
		t.log.Warn().Err(err).Str("domain", cp.ConfigDomain()).Msg("Failed to record parser config error")
	}
}

func (t *Tracker) recordSuccess(ctx context.Context, product *store.Product, snapshot *parser.Snapshot, start time.Time) (*Result, error) {
	now := t.now()
	durationMs := now.Sub(start).Milliseconds()

	currency := snapshot.Currency
	if currency == "" {
		currency = "EUR"
	}

	entry := &store.PriceHistory{
		ProductID:        product.ID,
		Price:            snapshot.Price,
		Currency:         currency,
		IsPromo:          snapshot.IsPromo,
		PromoPercentage:  snapshot.PromoPercentage,
		IsAvailable:      snapshot.IsAvailable,
		Source:           store.HistorySourceScraper,
		ScrapeDurationMs: &durationMs,
		RecordedAt:       now,
	}
	if err := t.store.AppendHistory(ctx, entry); err != nil {
		return nil, fmt.Errorf("append history for product %d: %w", product.ID, err)
	}

	product.CurrentPrice = snapshot.Price
	product.Currency = currency
	product.LastCheckedAt = &now
	product.LastSuccessAt = &now
	product.ConsecutiveErrors = 0
	product.LastErrorMessage = nil
	if snapshot.Name != nil && (product.Name == nil || *snapshot.Name != *product.Name) {
		product.Name = snapshot.Name
	}
	if snapshot.ImageURL != nil && (product.ImageURL == nil || *snapshot.ImageURL != *product.ImageURL) {
		product.ImageURL = snapshot.ImageURL
	}
	product.Status = store.ProductStatusActive

	if err := t.store.UpdateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("update product %d: %w", product.ID, err)
	}

	// Alerting is best effort once the attempt itself is committed.
	var alerts []*store.Alert
	if t.engine != nil {
		var alertErr error
		alerts, alertErr = t.engine.CheckAndCreate(ctx, product, entry)
		if alertErr != nil {
			t.log.Error().Err(alertErr).Uint("product_id", product.ID).Msg("Alert generation failed")
		}
	}
	t.publishAlerts(alerts)

	t.log.Info().
		Uint("product_id", product.ID).
		Interface("price", snapshot.Price).
		Str("currency", currency).
		Int64("duration_ms", durationMs).
		Int("alerts_created", len(alerts)).
		Msg("Tracked product")

	return &Result{
		Status:        "success",
		ProductID:     product.ID,
		Price:         snapshot.Price,
		Currency:      currency,
		DurationMs:    durationMs,
		AlertsCreated: len(alerts),
	}, nil
}

// recordFailure writes a null-price history row and bumps the error
// counter; the underlying parse error is absorbed here, not re-raised.
func (t *Tracker) recordFailure(ctx context.Context, product *store.Product, start time.Time, cause error) (*Result, error) {
	now := t.now()
	durationMs := now.Sub(start).Milliseconds()

	t.log.Error().Err(cause).Uint("product_id", product.ID).Msg("Tracking attempt failed")

	entry := &store.PriceHistory{
		ProductID:        product.ID,
		Price:            nil,
		Currency:         product.Currency,
		IsAvailable:      false,
		Source:           store.HistorySourceScraper,
		ScrapeDurationMs: &durationMs,
		RecordedAt:       now,
	}
	if err := t.store.AppendHistory(ctx, entry); err != nil {
		return nil, fmt.Errorf("append failure history for product %d: %w", product.ID, err)
	}

	message := helpers.Truncate(cause.Error(), errorMessageLimit)
	product.LastCheckedAt = &now
	product.LastErrorMessage = &message
	product.ConsecutiveErrors++
	if product.ConsecutiveErrors >= t.maxErrors {
		t.log.Warn().
			Uint("product_id", product.ID).
			Int("consecutive_errors", product.ConsecutiveErrors).
			Msg("Product flipped to error status")
		product.Status = store.ProductStatusError
	}

	if err := t.store.UpdateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("update product %d after failure: %w", product.ID, err)
	}

	return &Result{
		Status:            "error",
		ProductID:         product.ID,
		Reason:            message,
		DurationMs:        durationMs,
		ConsecutiveErrors: product.ConsecutiveErrors,
	}, nil
}

// publishAlerts pushes created alerts to the stream. Failures are logged
// and dropped.
func (t *Tracker) publishAlerts(alerts []*store.Alert) {
	if t.publisher == nil {
		return
	}
	for _, a := range alerts {
		payload, err := json.Marshal(a)
		if err != nil {
			t.log.Error().Err(err).Uint("alert_id", a.ID).Msg("Failed to encode alert")
			continue
		}
		if err := t.publisher.Publish(string(a.Kind), payload); err != nil {
			t.log.Error().Err(err).Uint("alert_id", a.ID).Msg("Failed to publish alert")
		}
	}
}
