package parser

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Snapshot is the result of one parse attempt on a product page. It is not
// persisted itself; the tracker derives a price-history row from it.
// A nil Price means the extraction failed, not a zero-cost item.
type Snapshot struct {
	Name            *string   `json:"name,omitempty"`
	Price           *float64  `json:"price,omitempty"`
	Currency        string    `json:"currency"`
	ImageURL        *string   `json:"image_url,omitempty"`
	IsAvailable     bool      `json:"is_available"`
	IsPromo         bool      `json:"is_promo"`
	PromoPercentage *float64  `json:"promo_percentage,omitempty"`
	RawExcerpt      string    `json:"-"`
	ParsedAt        time.Time `json:"parsed_at"`
}

// Parser is the contract every site parsing strategy implements
type Parser interface {
	// Name returns the parser's name for logging and identification
	Name() string

	// Domains returns the normalized domains this parser supports
	Domains() []string

	// RequiresJS reports whether the site needs JavaScript rendering
	RequiresJS() bool

	// ValidateURL reports whether the URL's normalized domain is supported
	ValidateURL(url string) bool

	// Parse fetches and extracts a product page into a Snapshot
	Parse(ctx context.Context, url string) (*Snapshot, error)

	// ExtractPrice extracts the price from a parsed document
	ExtractPrice(doc *goquery.Document) *float64

	// ExtractName extracts the product name from a parsed document
	ExtractName(doc *goquery.Document) *string

	// ExtractImage extracts the product image URL from a parsed document
	ExtractImage(doc *goquery.Document) *string

	// DetectPromo reports whether the product is on promotion and the
	// promotion percentage when the page states one
	DetectPromo(doc *goquery.Document) (bool, *float64)
}

// Configured is implemented by parsers built from stored selector
// configurations; ConfigDomain returns the normalized domain the stored
// row is keyed by.
type Configured interface {
	ConfigDomain() string
}

// availabilityChecker is implemented by parsers that can tell in-stock state
// from page content. Other variants report available whenever a price was
// extracted.
type availabilityChecker interface {
	CheckAvailability(doc *goquery.Document) bool
}

// Fetcher retrieves the raw HTML of a product page
type Fetcher interface {
	Fetch(ctx context.Context, url string, renderJS bool, timeout time.Duration) (string, error)
}

// SelectorChain is a primary CSS selector with ordered fallbacks
type SelectorChain struct {
	Primary  string   `json:"primary"`
	Fallback []string `json:"fallback,omitempty"`
}

// All returns the selectors in application order
func (c SelectorChain) All() []string {
	selectors := make([]string, 0, 1+len(c.Fallback))
	if c.Primary != "" {
		selectors = append(selectors, c.Primary)
	}
	selectors = append(selectors, c.Fallback...)
	return selectors
}

// IsEmpty reports whether the chain holds no selectors
func (c SelectorChain) IsEmpty() bool {
	return c.Primary == "" && len(c.Fallback) == 0
}
