package alert

import (
	"context"
	"math"
	"time"

	"github.com/Rayane1997/app-price-tracker/internal/store"
)

// PromoStatus is a product's promotional state as of its latest check.
type PromoStatus struct {
	IsPromo         bool       `json:"is_promo"`
	PromoPercentage *float64   `json:"promo_percentage"`
	CurrentPrice    *float64   `json:"current_price"`
	Currency        string     `json:"currency"`
	LastChecked     *time.Time `json:"last_checked"`
}

// PromoPeriod is a run of consecutive promo checks grouped into one
// promotional window. EndDate is nil while the promo is still ongoing on a
// single observed entry.
type PromoPeriod struct {
	StartDate       time.Time  `json:"start_date"`
	EndDate         *time.Time `json:"end_date"`
	PromoPercentage *float64   `json:"promo_percentage"`
	AveragePrice    float64    `json:"average_price"`
	MinPrice        float64    `json:"min_price"`
	MaxPrice        float64    `json:"max_price"`
	DurationDays    int        `json:"duration_days"`
}

// promoHistoryStore is the read surface the promo utilities need.
type promoHistoryStore interface {
	GetProduct(ctx context.Context, id uint) (*store.Product, error)
	RecentHistory(ctx context.Context, productID uint, limit int) ([]store.PriceHistory, error)
	HistoryWindow(ctx context.Context, productID uint, from, to time.Time) ([]store.PriceHistory, error)
}

// CurrentPromoStatus returns the promo state from the product's most
// recent history entry, or nil when no history exists.
func CurrentPromoStatus(ctx context.Context, s promoHistoryStore, productID uint) (*PromoStatus, error) {
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	entries, err := s.RecentHistory(ctx, productID, 1)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	latest := entries[0]
	recorded := latest.RecordedAt
	return &PromoStatus{
		IsPromo:         latest.IsPromo,
		PromoPercentage: latest.PromoPercentage,
		CurrentPrice:    latest.Price,
		Currency:        product.Currency,
		LastChecked:     &recorded,
	}, nil
}

// PromoHistory groups the product's promo entries over the last days days
// into distinct promotional periods, oldest first. Entries without a price
// break a period the same way non-promo entries do.
func PromoHistory(ctx context.Context, s promoHistoryStore, productID uint, days int) ([]PromoPeriod, error) {
	now := time.Now().UTC()
	entries, err := s.HistoryWindow(ctx, productID, now.AddDate(0, 0, -days), now)
	if err != nil {
		return nil, err
	}

	var periods []PromoPeriod
	var current *promoRun

	for i := range entries {
		entry := &entries[i]
		if entry.IsPromo && entry.Price != nil {
			if current == nil {
				current = &promoRun{start: entry.RecordedAt, pct: entry.PromoPercentage}
			} else {
				end := entry.RecordedAt
				current.end = &end
				if entry.PromoPercentage != nil {
					current.pct = entry.PromoPercentage
				}
			}
			current.prices = append(current.prices, *entry.Price)
			continue
		}
		if current != nil {
			periods = append(periods, current.finalize(true))
			current = nil
		}
	}
	if current != nil {
		periods = append(periods, current.finalize(false))
	}

	return periods, nil
}

type promoRun struct {
	start  time.Time
	end    *time.Time
	pct    *float64
	prices []float64
}

// finalize turns a run into a period. closed indicates a later non-promo
// entry ended the run; an open single-entry run keeps a nil end date.
func (r *promoRun) finalize(closed bool) PromoPeriod {
	end := r.end
	if closed && end == nil {
		start := r.start
		end = &start
	}

	duration := 1
	if end != nil {
		duration = int(end.Sub(r.start).Hours() / 24)
		if duration == 0 {
			duration = 1
		}
	}

	sum, minPrice, maxPrice := 0.0, r.prices[0], r.prices[0]
	for _, p := range r.prices {
		sum += p
		minPrice = math.Min(minPrice, p)
		maxPrice = math.Max(maxPrice, p)
	}

	return PromoPeriod{
		StartDate:       r.start,
		EndDate:         end,
		PromoPercentage: r.pct,
		AveragePrice:    math.Round(sum/float64(len(r.prices))*100) / 100,
		MinPrice:        minPrice,
		MaxPrice:        maxPrice,
		DurationDays:    duration,
	}
}
