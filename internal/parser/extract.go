package parser

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// maxReasonablePrice is the exclusive upper sanity bound for extracted prices
const maxReasonablePrice = 1_000_000

// pricePatterns are tried in order, most specific first. The first family
// that matches anywhere in the text wins, and within the text the first
// positional match of that family is used. A "was X now Y" string therefore
// yields the first price encountered.
var pricePatterns = []*regexp.Regexp{
	// European format: 1.234,56 or 1234,56
	regexp.MustCompile(`\d{1,3}(?:\.\d{3})*,\d{2}`),
	// US format: 1,234.56 or 1234.56
	regexp.MustCompile(`\d{1,3}(?:,\d{3})*\.\d{2}`),
	// Simple formats: 1234.56 or 1234,56
	regexp.MustCompile(`\d+[.,]\d{2}`),
	// Integer prices: 1234
	regexp.MustCompile(`\d+`),
}

// ExtractPrice locates the first price-like substring in text and converts
// it to a float. Comma-containing matches are read as European format (dot
// thousands separator, comma decimal); otherwise commas are stripped as
// thousands separators. Returns false on empty input or no match, never an
// error: malformed input degrades to a miss.
func ExtractPrice(text string) (float64, bool) {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return 0, false
	}

	for _, pattern := range pricePatterns {
		match := pattern.FindString(text)
		if match == "" {
			continue
		}

		if strings.Contains(match, ",") {
			// European format (1.234,56 -> 1234.56)
			match = strings.ReplaceAll(match, ".", "")
			match = strings.ReplaceAll(match, ",", ".")
		} else {
			// US format (1,234.56 -> 1234.56)
			match = strings.ReplaceAll(match, ",", "")
		}

		price, err := strconv.ParseFloat(match, 64)
		if err != nil {
			continue
		}
		return price, true
	}

	return 0, false
}

// currencySymbols are stripped from price text before number extraction
var currencySymbols = []string{"€", "$", "£", "EUR", "USD", "GBP"}

// CleanPriceText strips known currency symbols/codes and collapses
// internal whitespace. Empty input yields an empty string.
func CleanPriceText(text string) string {
	if text == "" {
		return ""
	}

	for _, symbol := range currencySymbols {
		text = strings.ReplaceAll(text, symbol, "")
	}

	return strings.Join(strings.Fields(text), " ")
}

// DetectCurrency scans text case-insensitively for a currency symbol or
// 3-letter code, in priority order EUR, USD, GBP. Defaults to EUR when
// nothing is recognized: the tracked sites are FR/BE.
func DetectCurrency(text string) string {
	if text == "" {
		return "EUR"
	}

	text = strings.ToUpper(text)

	switch {
	case strings.Contains(text, "€") || strings.Contains(text, "EUR"):
		return "EUR"
	case strings.Contains(text, "$") || strings.Contains(text, "USD"):
		return "USD"
	case strings.Contains(text, "£") || strings.Contains(text, "GBP"):
		return "GBP"
	}

	return "EUR"
}

// NormalizeDomain extracts the host from a URL, lowercases it and strips a
// leading "www." segment. Path and query are ignored entirely.
func NormalizeDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	domain := strings.ToLower(parsed.Host)
	return strings.TrimPrefix(domain, "www.")
}

// IsValidPrice reports whether price is present and within the sanity
// bounds, both ends exclusive: zero and the upper bound itself are invalid.
func IsValidPrice(price *float64) bool {
	if price == nil {
		return false
	}
	return *price > 0 && *price < maxReasonablePrice
}
