package parser

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/Rayane1997/app-price-tracker/helpers"
	"github.com/Rayane1997/app-price-tracker/logger"
	apperrors "github.com/Rayane1997/app-price-tracker/pkg/errors"
)

const rawExcerptLimit = 1000

// siteMinNameLength filters out breadcrumb fragments and icon labels that
// site heading selectors occasionally match.
const siteMinNameLength = 6

// SiteParser is the shared implementation behind the per-site parsers. Each
// site provides its selector lists and, when needed, overrides individual
// extraction methods.
type SiteParser struct {
	name           string
	domains        []string
	requiresJS     bool
	fetcher        Fetcher
	timeout        time.Duration
	priceSelectors []string
	nameSelectors  []string
	imageSelectors []string
	minNameLen     int
	log            *logger.Logger
}

// NewSiteParser creates a site parser with the given selector tables.
func NewSiteParser(name string, domains []string, requiresJS bool, fetcher Fetcher, timeout time.Duration, priceSel, nameSel, imageSel []string) *SiteParser {
	return &SiteParser{
		name:           name,
		domains:        domains,
		requiresJS:     requiresJS,
		fetcher:        fetcher,
		timeout:        timeout,
		priceSelectors: priceSel,
		nameSelectors:  nameSel,
		imageSelectors: imageSel,
		minNameLen:     siteMinNameLength,
		log:            logger.ForParser(name),
	}
}

func (p *SiteParser) Name() string      { return p.name }
func (p *SiteParser) Domains() []string { return p.domains }
func (p *SiteParser) RequiresJS() bool  { return p.requiresJS }

// ValidateURL reports whether url belongs to one of the parser's domains.
func (p *SiteParser) ValidateURL(url string) bool {
	domain := NormalizeDomain(url)
	for _, d := range p.domains {
		if domain == d {
			return true
		}
	}
	return false
}

// Parse fetches the page and extracts a product snapshot.
func (p *SiteParser) Parse(ctx context.Context, url string) (*Snapshot, error) {
	return runParse(ctx, p, p.fetcher, url, p.timeout)
}

// ExtractPrice scans the price selectors in order and returns the first
// plausible value found.
func (p *SiteParser) ExtractPrice(doc *goquery.Document) *float64 {
	return extractPriceBySelectors(doc, p.priceSelectors)
}

// ExtractName returns the product name matched by the name selectors.
func (p *SiteParser) ExtractName(doc *goquery.Document) *string {
	return extractTextBySelectors(doc, p.nameSelectors, p.minNameLen)
}

// ExtractImage returns the main product image URL.
func (p *SiteParser) ExtractImage(doc *goquery.Document) *string {
	return extractImageBySelectors(doc, p.imageSelectors, []string{"src", "data-src"})
}

// DetectPromo is a no-op for plain site parsers; sites with reliable promo
// markup override it.
func (p *SiteParser) DetectPromo(doc *goquery.Document) (bool, *float64) {
	return false, nil
}

// runParse drives the common fetch-parse-extract sequence for a parser,
// dispatching back through p so method overrides take effect.
func runParse(ctx context.Context, p Parser, fetcher Fetcher, url string, timeout time.Duration) (*Snapshot, error) {
	if !p.ValidateURL(url) {
		return nil, apperrors.NewValidation(NormalizeDomain(url), "URL does not belong to parser "+p.Name())
	}

	html, err := fetcher.Fetch(ctx, url, p.RequiresJS(), timeout)
	if err != nil {
		return nil, err
	}

	doc, err := ParseDocument(html)
	if err != nil {
		return nil, apperrors.NewParsing(NormalizeDomain(url), "failed to parse page", err)
	}

	price := p.ExtractPrice(doc)
	name := p.ExtractName(doc)
	image := p.ExtractImage(doc)
	isPromo, promoPct := p.DetectPromo(doc)

	available := price != nil
	if checker, ok := p.(availabilityChecker); ok {
		available = checker.CheckAvailability(doc)
	}

	return &Snapshot{
		Name:            name,
		Price:           price,
		Currency:        DetectCurrency(html),
		ImageURL:        image,
		IsAvailable:     available,
		IsPromo:         isPromo,
		PromoPercentage: promoPct,
		RawExcerpt:      helpers.Truncate(html, rawExcerptLimit),
		ParsedAt:        time.Now().UTC(),
	}, nil
}

// extractPriceBySelectors walks the selector list in order. Within a
// selector every matched element is considered, since price blocks often
// contain struck-through or unit prices before the live one.
func extractPriceBySelectors(doc *goquery.Document, selectors []string) *float64 {
	for _, sel := range selectors {
		var found *float64
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if v, ok := ExtractPrice(s.Text()); ok && IsValidPrice(&v) {
				found = &v
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}
	return nil
}

// extractTextBySelectors returns the trimmed text of the first element
// matching a selector, skipping matches shorter than minLen runes.
func extractTextBySelectors(doc *goquery.Document, selectors []string, minLen int) *string {
	for _, sel := range selectors {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		text = strings.Join(strings.Fields(text), " ")
		if text != "" && utf8.RuneCountInString(text) >= minLen {
			return &text
		}
	}
	return nil
}

// extractImageBySelectors returns the first non-empty attribute among attrs
// on the first element matching each selector.
func extractImageBySelectors(doc *goquery.Document, selectors, attrs []string) *string {
	for _, sel := range selectors {
		el := doc.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		for _, attr := range attrs {
			if v, ok := el.Attr(attr); ok {
				v = strings.TrimSpace(v)
				if v != "" {
					return &v
				}
			}
		}
	}
	return nil
}
