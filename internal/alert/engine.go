package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/Rayane1997/app-price-tracker/internal/parser"
	"github.com/Rayane1997/app-price-tracker/internal/store"
	"github.com/Rayane1997/app-price-tracker/logger"
)

// Store is the persistence surface the engine needs. *store.Store
// satisfies it.
type Store interface {
	CreateAlert(ctx context.Context, alert *store.Alert) error
	HasRecentAlert(ctx context.Context, productID uint, kind store.AlertKind, since time.Time) (bool, error)
	LastPricedEntryBefore(ctx context.Context, productID uint, beforeID uint) (*store.PriceHistory, error)
	RecentHistoryBefore(ctx context.Context, productID uint, beforeID uint, limit int) ([]store.PriceHistory, error)
}

// Engine evaluates the alert rules after each successful tracking attempt.
//
// CheckAndCreate must be called only after the current attempt's history
// row has been persisted; all "previous" lookups exclude that row by id.
type Engine struct {
	store         Store
	dedupWindow   time.Duration
	dropThreshold float64
	now           func() time.Time
	log           *logger.Logger
}

// NewEngine creates an alert engine. dropThreshold is the minimum drop
// percentage for a PRICE_DROP alert, dedupWindow the per-kind suppression
// lookback.
func NewEngine(s Store, dropThreshold float64, dedupWindow time.Duration) *Engine {
	return &Engine{
		store:         s,
		dedupWindow:   dedupWindow,
		dropThreshold: dropThreshold,
		now:           time.Now,
		log:           logger.ForAlerts(),
	}
}

// CheckAndCreate runs the three alert rules against the just-recorded
// history entry and persists every alert that fires. Returned alerts are
// ordered target, drop, promo. A nil-price entry never produces alerts.
func (e *Engine) CheckAndCreate(ctx context.Context, product *store.Product, current *store.PriceHistory) ([]*store.Alert, error) {
	if current.Price == nil {
		e.log.Debug().Uint("product_id", product.ID).Msg("Skipping alert check, no price on current entry")
		return nil, nil
	}
	newPrice := *current.Price

	previous, err := e.store.LastPricedEntryBefore(ctx, product.ID, current.ID)
	if err != nil {
		return nil, err
	}
	var previousPrice *float64
	if previous != nil {
		previousPrice = previous.Price
	}

	var created []*store.Alert

	fired, err := e.checkTargetReached(ctx, product, newPrice, previousPrice)
	if err != nil {
		return created, err
	}
	if fired != nil {
		created = append(created, fired)
	}

	fired, err = e.checkPriceDrop(ctx, product, newPrice, previousPrice)
	if err != nil {
		return created, err
	}
	if fired != nil {
		created = append(created, fired)
	}

	fired, err = e.checkPromoDetected(ctx, product, current, newPrice, previousPrice)
	if err != nil {
		return created, err
	}
	if fired != nil {
		created = append(created, fired)
	}

	return created, nil
}

func (e *Engine) checkTargetReached(ctx context.Context, product *store.Product, newPrice float64, previousPrice *float64) (*store.Alert, error) {
	if product.TargetPrice == nil || newPrice > *product.TargetPrice {
		return nil, nil
	}

	blocked, err := e.hasRecent(ctx, product.ID, store.AlertKindTargetReached)
	if err != nil || blocked {
		return nil, err
	}

	message := fmt.Sprintf(
		"Price target reached! %s is now %.2f %s, at or below your target of %.2f %s.",
		displayName(product), newPrice, product.Currency, *product.TargetPrice, product.Currency)

	return e.create(ctx, &store.Alert{
		ProductID: product.ID,
		Kind:      store.AlertKindTargetReached,
		Status:    store.AlertStatusUnread,
		Message:   message,
		OldPrice:  previousPrice,
		NewPrice:  newPrice,
	})
}

func (e *Engine) checkPriceDrop(ctx context.Context, product *store.Product, newPrice float64, previousPrice *float64) (*store.Alert, error) {
	if previousPrice == nil || *previousPrice <= 0 {
		return nil, nil
	}
	drop, ok := parser.DropPercentage(previousPrice, &newPrice)
	if !ok || drop < e.dropThreshold {
		return nil, nil
	}

	blocked, err := e.hasRecent(ctx, product.ID, store.AlertKindPriceDrop)
	if err != nil || blocked {
		return nil, err
	}

	message := fmt.Sprintf(
		"Price drop detected! %s dropped by %.1f%% from %.2f to %.2f %s.",
		displayName(product), drop, *previousPrice, newPrice, product.Currency)

	return e.create(ctx, &store.Alert{
		ProductID:      product.ID,
		Kind:           store.AlertKindPriceDrop,
		Status:         store.AlertStatusUnread,
		Message:        message,
		OldPrice:       previousPrice,
		NewPrice:       newPrice,
		DropPercentage: &drop,
	})
}

func (e *Engine) checkPromoDetected(ctx context.Context, product *store.Product, current *store.PriceHistory, newPrice float64, previousPrice *float64) (*store.Alert, error) {
	if !current.IsPromo {
		return nil, nil
	}

	// The rising edge is judged against the entry immediately before the
	// current one, whether or not that check got a price.
	preceding, err := e.store.RecentHistoryBefore(ctx, product.ID, current.ID, 1)
	if err != nil {
		return nil, err
	}
	if len(preceding) > 0 && preceding[0].IsPromo {
		return nil, nil
	}

	blocked, err := e.hasRecent(ctx, product.ID, store.AlertKindPromoDetected)
	if err != nil || blocked {
		return nil, err
	}

	promoInfo := ""
	if current.PromoPercentage != nil {
		promoInfo = fmt.Sprintf(" (save %.0f%%)", *current.PromoPercentage)
	}
	message := fmt.Sprintf(
		"Promotion detected! %s is now on sale%s at %.2f %s.",
		displayName(product), promoInfo, newPrice, product.Currency)

	return e.create(ctx, &store.Alert{
		ProductID: product.ID,
		Kind:      store.AlertKindPromoDetected,
		Status:    store.AlertStatusUnread,
		Message:   message,
		OldPrice:  previousPrice,
		NewPrice:  newPrice,
	})
}

// hasRecent applies the dedup window. The boundary is exclusive: an alert
// created exactly dedupWindow ago no longer blocks.
func (e *Engine) hasRecent(ctx context.Context, productID uint, kind store.AlertKind) (bool, error) {
	since := e.now().Add(-e.dedupWindow)
	return e.store.HasRecentAlert(ctx, productID, kind, since)
}

func (e *Engine) create(ctx context.Context, alert *store.Alert) (*store.Alert, error) {
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = e.now()
	}
	if err := e.store.CreateAlert(ctx, alert); err != nil {
		return nil, err
	}
	e.log.Info().
		Uint("product_id", alert.ProductID).
		Str("kind", string(alert.Kind)).
		Msg("Alert created")
	return alert, nil
}

func displayName(p *store.Product) string {
	if p.Name != nil && *p.Name != "" {
		return *p.Name
	}
	return p.URL
}
