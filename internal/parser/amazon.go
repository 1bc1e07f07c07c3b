package parser

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var amazonPriceSelectors = []string{
	".a-price.a-price-range .a-offscreen",
	".a-price .a-offscreen",
	"span.a-price-whole",
	"#priceblock_dealprice",
	"#priceblock_ourprice",
	"#priceblock_saleprice",
	"#price_inside_buybox",
	".a-color-price",
	"#kindle-price",
	"#digital-list-price",
}

var amazonNameSelectors = []string{
	"#productTitle",
	"#title",
	"h1.a-size-large",
	"h1 span#productTitle",
}

var amazonImageSelectors = []string{
	"#landingImage",
	"#imgBlkFront",
	"#main-image",
	"img#imgTagWrapperId",
	"img.a-dynamic-image",
}

var amazonPromoBadgeSelectors = []string{
	".dealBadge",
	".savingsPercentage",
	"span.a-color-price",
}

var percentPattern = regexp.MustCompile(`(\d+)\s*%`)

// Amazon product pages render prices client-side, so this parser requires
// the JS rendering path.
type AmazonParser struct {
	SiteParser
}

// NewAmazonParser creates a parser for amazon.fr and amazon.be.
func NewAmazonParser(fetcher Fetcher, timeout time.Duration) *AmazonParser {
	base := NewSiteParser("amazon", []string{"amazon.fr", "amazon.be"}, true, fetcher, timeout,
		amazonPriceSelectors, amazonNameSelectors, amazonImageSelectors)
	return &AmazonParser{SiteParser: *base}
}

// Parse re-dispatches through the Amazon overrides.
func (p *AmazonParser) Parse(ctx context.Context, url string) (*Snapshot, error) {
	return runParse(ctx, p, p.fetcher, url, p.timeout)
}

// ExtractPrice tries the CSS selectors first and falls back to any JSON-LD
// product blocks embedded in the page.
func (p *AmazonParser) ExtractPrice(doc *goquery.Document) *float64 {
	if price := p.SiteParser.ExtractPrice(doc); price != nil {
		return price
	}
	return extractJSONLDPrice(doc)
}

// ExtractImage prefers the high-resolution image attribute Amazon sets on
// the landing image, then falls back to the dynamic-image JSON map.
func (p *AmazonParser) ExtractImage(doc *goquery.Document) *string {
	for _, sel := range amazonImageSelectors {
		el := doc.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		for _, attr := range []string{"data-old-hires", "src"} {
			if v, ok := el.Attr(attr); ok {
				v = strings.TrimSpace(v)
				if v != "" {
					return &v
				}
			}
		}
		if raw, ok := el.Attr("data-a-dynamic-image"); ok {
			var urls map[string]interface{}
			if err := json.Unmarshal([]byte(raw), &urls); err == nil {
				for u := range urls {
					u := u
					return &u
				}
			}
		}
	}
	return nil
}

// DetectPromo looks for Amazon's savings badges. A strikethrough list price
// without a badge still counts as a promotion, just with an unknown
// percentage.
func (p *AmazonParser) DetectPromo(doc *goquery.Document) (bool, *float64) {
	for _, sel := range amazonPromoBadgeSelectors {
		var pct *float64
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if m := percentPattern.FindStringSubmatch(s.Text()); m != nil {
				if v, err := strconv.ParseFloat(m[1], 64); err == nil {
					pct = &v
					return false
				}
			}
			return true
		})
		if pct != nil {
			return true, pct
		}
	}
	if doc.Find(".a-text-strike").Length() > 0 {
		return true, nil
	}
	return false, nil
}

var unavailablePhrases = []string{
	"currently unavailable",
	"out of stock",
	"actuellement indisponible",
	"en rupture de stock",
	"niet op voorraad",
}

// CheckAvailability scans the page text and the availability badge for
// Amazon's out-of-stock phrasing in the languages of the supported
// marketplaces. Absence of any phrase means available.
func (p *AmazonParser) CheckAvailability(doc *goquery.Document) bool {
	pageText := strings.ToLower(doc.Text())
	for _, phrase := range unavailablePhrases {
		if strings.Contains(pageText, phrase) {
			return false
		}
	}

	badge := strings.ToLower(doc.Find("#availability, #availability-brief").Text())
	for _, phrase := range unavailablePhrases {
		if strings.Contains(badge, phrase) {
			return false
		}
	}

	return true
}

// extractJSONLDPrice pulls a price out of schema.org Product blocks. Amazon
// pages routinely ship malformed JSON in secondary script tags, so decode
// errors are skipped rather than treated as fatal.
func extractJSONLDPrice(doc *goquery.Document) *float64 {
	var found *float64
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data map[string]interface{}
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		if t, _ := data["@type"].(string); t != "Product" {
			return true
		}
		if price := jsonLDOffersPrice(data["offers"]); price != nil && IsValidPrice(price) {
			found = price
			return false
		}
		return true
	})
	return found
}

// jsonLDOffersPrice handles the offers field being a single object or an
// array, with the price as a string or a number.
func jsonLDOffersPrice(offers interface{}) *float64 {
	switch v := offers.(type) {
	case map[string]interface{}:
		return jsonLDPriceValue(v["price"])
	case []interface{}:
		for _, item := range v {
			if offer, ok := item.(map[string]interface{}); ok {
				if price := jsonLDPriceValue(offer["price"]); price != nil {
					return price
				}
			}
		}
	}
	return nil
}

func jsonLDPriceValue(raw interface{}) *float64 {
	switch v := raw.(type) {
	case float64:
		return &v
	case string:
		if f, err := strconv.ParseFloat(strings.Replace(v, ",", ".", 1), 64); err == nil {
			return &f
		}
	}
	return nil
}
