package parser

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"

	apperrors "github.com/Rayane1997/app-price-tracker/pkg/errors"
)

// GenericConfig describes a selector-driven parser for a domain that has no
// dedicated implementation. Configs are stored in the database and loaded
// at startup.
type GenericConfig struct {
	Domain     string
	RequiresJS bool
	Price      SelectorChain
	Name       SelectorChain
	Image      SelectorChain
}

// GenericParser extracts snapshots purely from configured selector chains.
type GenericParser struct {
	SiteParser
	cfg GenericConfig
}

// NewGenericParser creates a parser from a stored selector configuration.
// A config without a price selector cannot produce usable snapshots and is
// rejected.
func NewGenericParser(cfg GenericConfig, fetcher Fetcher, timeout time.Duration) (*GenericParser, error) {
	if cfg.Domain == "" {
		return nil, apperrors.NewConfiguration("generic parser config is missing a domain", nil)
	}
	if cfg.Price.IsEmpty() {
		return nil, apperrors.NewConfiguration("generic parser config for "+cfg.Domain+" has no price selector", nil)
	}

	base := NewSiteParser("generic:"+cfg.Domain, []string{cfg.Domain}, cfg.RequiresJS, fetcher, timeout,
		cfg.Price.All(), cfg.Name.All(), cfg.Image.All())
	// Configured name selectors are trusted as-is; the minimum-length
	// heuristic only exists to guard the hand-picked site tables.
	base.minNameLen = 0

	return &GenericParser{SiteParser: *base, cfg: cfg}, nil
}

// ConfigDomain returns the domain of the stored configuration.
func (p *GenericParser) ConfigDomain() string {
	return p.cfg.Domain
}

// Parse re-dispatches through the generic overrides.
func (p *GenericParser) Parse(ctx context.Context, url string) (*Snapshot, error) {
	return runParse(ctx, p, p.fetcher, url, p.timeout)
}

// ExtractImage also accepts lazy-loading attributes, which configured
// selectors frequently point at.
func (p *GenericParser) ExtractImage(doc *goquery.Document) *string {
	return extractImageBySelectors(doc, p.imageSelectors, []string{"src", "data-src", "data-lazy-src"})
}
