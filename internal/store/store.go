package store

import (
	"context"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Rayane1997/app-price-tracker/logger"
)

// Store wraps the database handle with the queries the tracker and alert
// engine need.
type Store struct {
	db  *gorm.DB
	log *logger.Logger
}

// Open connects to Postgres and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Product{}, &PriceHistory{}, &Alert{}, &ParserConfig{}); err != nil {
		return nil, err
	}

	return &Store{db: db, log: logger.ForStore()}, nil
}

// NewWithDB wraps an existing database handle, for tests.
func NewWithDB(db *gorm.DB) *Store {
	return &Store{db: db, log: logger.ForStore()}
}

// GetProduct loads a product by id.
func (s *Store) GetProduct(ctx context.Context, id uint) (*Product, error) {
	var p Product
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProduct persists changed product fields.
func (s *Store) UpdateProduct(ctx context.Context, p *Product) error {
	return s.db.WithContext(ctx).Save(p).Error
}

// ListActiveProducts returns every product in active status.
func (s *Store) ListActiveProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	err := s.db.WithContext(ctx).
		Where("status = ?", ProductStatusActive).
		Order("id").
		Find(&products).Error
	return products, err
}

// AppendHistory inserts a price-history row.
func (s *Store) AppendHistory(ctx context.Context, entry *PriceHistory) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

// RecentHistory returns the newest limit entries for a product, most
// recent first. Ties on recorded_at break by insertion order.
func (s *Store) RecentHistory(ctx context.Context, productID uint, limit int) ([]PriceHistory, error) {
	var entries []PriceHistory
	err := s.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("recorded_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// RecentHistoryBefore returns the newest limit entries recorded strictly
// before the given row id, most recent first. The alert engine uses this to
// look at the timeline as it stood before the current attempt's row.
func (s *Store) RecentHistoryBefore(ctx context.Context, productID uint, beforeID uint, limit int) ([]PriceHistory, error) {
	var entries []PriceHistory
	err := s.db.WithContext(ctx).
		Where("product_id = ? AND id < ?", productID, beforeID).
		Order("recorded_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// LastPricedEntryBefore returns the newest entry with a non-null price
// recorded strictly before the given row id, or nil when none exists.
func (s *Store) LastPricedEntryBefore(ctx context.Context, productID uint, beforeID uint) (*PriceHistory, error) {
	var entry PriceHistory
	err := s.db.WithContext(ctx).
		Where("product_id = ? AND id < ? AND price IS NOT NULL", productID, beforeID).
		Order("recorded_at DESC, id DESC").
		First(&entry).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// HistoryWindow returns every entry recorded in [from, to], oldest first.
func (s *Store) HistoryWindow(ctx context.Context, productID uint, from, to time.Time) ([]PriceHistory, error) {
	var entries []PriceHistory
	err := s.db.WithContext(ctx).
		Where("product_id = ? AND recorded_at >= ? AND recorded_at <= ?", productID, from, to).
		Order("recorded_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

// CreateAlert inserts an alert row.
func (s *Store) CreateAlert(ctx context.Context, alert *Alert) error {
	return s.db.WithContext(ctx).Create(alert).Error
}

// HasRecentAlert reports whether an alert of the given kind exists for the
// product with created_at strictly after since.
func (s *Store) HasRecentAlert(ctx context.Context, productID uint, kind AlertKind, since time.Time) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Alert{}).
		Where("product_id = ? AND kind = ? AND created_at > ?", productID, kind, since).
		Count(&count).Error
	return count > 0, err
}

// UpdateAlert persists alert status changes.
func (s *Store) UpdateAlert(ctx context.Context, alert *Alert) error {
	return s.db.WithContext(ctx).Save(alert).Error
}

// ActiveParserConfigs returns every enabled selector configuration.
func (s *Store) ActiveParserConfigs(ctx context.Context) ([]ParserConfig, error) {
	var configs []ParserConfig
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Find(&configs).Error
	return configs, err
}

// ParserConfigByDomain returns the enabled configuration for a domain, or
// nil when none exists. Lookup is case-insensitive on the stored domain.
func (s *Store) ParserConfigByDomain(ctx context.Context, domain string) (*ParserConfig, error) {
	var cfg ParserConfig
	err := s.db.WithContext(ctx).
		Where("LOWER(domain) = ? AND is_active = ?", strings.ToLower(domain), true).
		First(&cfg).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MarkParserConfigUsed stamps last_used_at on the config for a domain.
func (s *Store) MarkParserConfigUsed(ctx context.Context, domain string) error {
	return s.db.WithContext(ctx).
		Model(&ParserConfig{}).
		Where("LOWER(domain) = ?", strings.ToLower(domain)).
		Update("last_used_at", time.Now().UTC()).Error
}

// RecordParserConfigError bumps the config's error counter and stores the
// latest failure message.
func (s *Store) RecordParserConfigError(ctx context.Context, domain string, message string) error {
	return s.db.WithContext(ctx).
		Model(&ParserConfig{}).
		Where("LOWER(domain) = ?", strings.ToLower(domain)).
		Updates(map[string]interface{}{
			"error_count":        gorm.Expr("error_count + 1"),
			"last_error_message": message,
		}).Error
}
