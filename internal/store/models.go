package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Rayane1997/app-price-tracker/internal/parser"
)

// ProductStatus describes whether a product should still be scheduled.
type ProductStatus string

const (
	// ProductStatusActive means the product is checked on its schedule.
	ProductStatusActive ProductStatus = "active"
	// ProductStatusPaused means the user suspended checking.
	ProductStatusPaused ProductStatus = "paused"
	// ProductStatusNotTrackable means no parser handles the product's domain.
	ProductStatusNotTrackable ProductStatus = "not_trackable"
	// ProductStatusError means checking failed too many times in a row.
	ProductStatusError ProductStatus = "error"
)

// Product is a tracked product page.
type Product struct {
	ID                  uint          `gorm:"primaryKey" json:"id"`
	URL                 string        `gorm:"size:2048;not null;uniqueIndex" json:"url"`
	Domain              string        `gorm:"size:255;not null;index" json:"domain"`
	Name                *string       `gorm:"size:512" json:"name"`
	ImageURL            *string       `gorm:"size:2048" json:"image_url"`
	CurrentPrice        *float64      `json:"current_price"`
	Currency            string        `gorm:"size:3;default:EUR" json:"currency"`
	TargetPrice         *float64      `json:"target_price"`
	Status              ProductStatus `gorm:"size:20;not null;default:active;index" json:"status"`
	CheckFrequencyHours int           `gorm:"not null;default:6" json:"check_frequency_hours"`
	ConsecutiveErrors   int           `gorm:"not null;default:0" json:"consecutive_errors"`
	LastErrorMessage    *string       `gorm:"size:1024" json:"last_error_message"`
	LastCheckedAt       *time.Time    `json:"last_checked_at"`
	LastSuccessAt       *time.Time    `json:"last_success_at"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`

	History []PriceHistory `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Alerts  []Alert        `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Sources a price-history entry can come from.
const (
	HistorySourceScraper = "scraper"
	HistorySourceManual  = "manual"
	HistorySourceAPI     = "api"
)

// PriceHistory is one tracking attempt. A null Price records a failed
// check; rows are append-only.
type PriceHistory struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ProductID        uint      `gorm:"not null;index:idx_history_product_time" json:"product_id"`
	Price            *float64  `json:"price"`
	Currency         string    `gorm:"size:3;default:EUR" json:"currency"`
	IsPromo          bool      `gorm:"not null;default:false" json:"is_promo"`
	PromoPercentage  *float64  `json:"promo_percentage"`
	IsAvailable      bool      `gorm:"not null;default:true" json:"is_available"`
	Source           string    `gorm:"size:50;default:scraper" json:"source"`
	ScrapeDurationMs *int64    `json:"scrape_duration_ms"`
	RecordedAt       time.Time `gorm:"not null;index:idx_history_product_time" json:"recorded_at"`
}

// AlertKind identifies which rule produced an alert.
type AlertKind string

const (
	AlertKindPriceDrop     AlertKind = "price_drop"
	AlertKindTargetReached AlertKind = "target_reached"
	AlertKindPromoDetected AlertKind = "promo_detected"
)

// AlertStatus is the read/dismissed lifecycle of an alert.
type AlertStatus string

const (
	AlertStatusUnread    AlertStatus = "unread"
	AlertStatusRead      AlertStatus = "read"
	AlertStatusDismissed AlertStatus = "dismissed"
)

// Alert is a notification produced by the alert engine. The engine only
// ever creates alerts; status transitions happen through MarkRead and
// Dismiss.
type Alert struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	ProductID      uint        `gorm:"not null;index:idx_alerts_product_kind_time" json:"product_id"`
	Kind           AlertKind   `gorm:"size:20;not null;index:idx_alerts_product_kind_time" json:"kind"`
	Status         AlertStatus `gorm:"size:20;not null;default:unread" json:"status"`
	Message        string      `gorm:"size:1024;not null" json:"message"`
	OldPrice       *float64    `json:"old_price"`
	NewPrice       float64     `gorm:"not null" json:"new_price"`
	DropPercentage *float64    `json:"drop_percentage"`
	CreatedAt      time.Time   `gorm:"index:idx_alerts_product_kind_time" json:"created_at"`
	ReadAt         *time.Time  `json:"read_at"`
}

// MarkRead moves the alert to READ. The read timestamp is set only on the
// first transition into READ; re-marking is a no-op on the timestamp.
func (a *Alert) MarkRead(now time.Time) {
	a.Status = AlertStatusRead
	if a.ReadAt == nil {
		a.ReadAt = &now
	}
}

// Dismiss moves the alert to DISMISSED. Idempotent.
func (a *Alert) Dismiss() {
	a.Status = AlertStatusDismissed
}

// Selectors stores a set of selector chains as a jsonb column.
type Selectors struct {
	Price parser.SelectorChain `json:"price"`
	Name  parser.SelectorChain `json:"name"`
	Image parser.SelectorChain `json:"image"`
}

// Value implements driver.Valuer.
func (s Selectors) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *Selectors) Scan(value interface{}) error {
	if value == nil {
		*s = Selectors{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	}
	return fmt.Errorf("unsupported selectors column type %T", value)
}

// ParserConfig is a stored selector configuration for a domain without a
// dedicated parser. RateLimitSeconds overrides the global domain spacing;
// the error and last-used columns are bookkeeping updated as the config
// gets exercised.
type ParserConfig struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Domain           string     `gorm:"size:255;not null;uniqueIndex" json:"domain"`
	RequiresJS       bool       `gorm:"not null;default:false" json:"requires_js"`
	Selectors        Selectors  `gorm:"type:jsonb" json:"selectors"`
	RateLimitSeconds int        `gorm:"not null;default:5" json:"rate_limit_seconds"`
	MaxRetries       int        `gorm:"not null;default:3" json:"max_retries"`
	IsActive         bool       `gorm:"not null;default:true;index" json:"is_active"`
	ErrorCount       int        `gorm:"not null;default:0" json:"error_count"`
	LastErrorMessage *string    `gorm:"size:1024" json:"last_error_message"`
	LastUsedAt       *time.Time `json:"last_used_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// NormalizedDomain returns the stored domain lowercased with any leading
// "www." removed, matching the keys the parser registry is looked up by.
func (c *ParserConfig) NormalizedDomain() string {
	return strings.TrimPrefix(strings.ToLower(c.Domain), "www.")
}

// RateLimit is the config's spacing window as a duration.
func (c *ParserConfig) RateLimit() time.Duration {
	return time.Duration(c.RateLimitSeconds) * time.Second
}

// GenericConfig converts the stored row into a parser configuration.
func (c *ParserConfig) GenericConfig() parser.GenericConfig {
	return parser.GenericConfig{
		Domain:     c.NormalizedDomain(),
		RequiresJS: c.RequiresJS,
		Price:      c.Selectors.Price,
		Name:       c.Selectors.Name,
		Image:      c.Selectors.Image,
	}
}
