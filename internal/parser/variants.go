package parser

import "time"

// The static retailers share the SiteParser behavior wholesale; each
// constructor only contributes its domain and selector tables.

// NewCdiscountParser creates a parser for cdiscount.com.
func NewCdiscountParser(fetcher Fetcher, timeout time.Duration) *SiteParser {
	return NewSiteParser("cdiscount", []string{"cdiscount.com"}, false, fetcher, timeout,
		[]string{
			".fpPrice",
			"span.price",
			".hideFromPro",
			".product-price",
			`span[itemprop="price"]`,
		},
		[]string{
			`h1[itemprop="name"]`,
			".fpDesCol h1",
			"h1.product-title",
			"h1",
		},
		[]string{
			"img.ProductMainImage",
			`img[itemprop="image"]`,
			"img.main-image",
			"img.product-image",
		})
}

// NewFnacParser creates a parser for fnac.com.
func NewFnacParser(fetcher Fetcher, timeout time.Duration) *SiteParser {
	return NewSiteParser("fnac", []string{"fnac.com"}, false, fetcher, timeout,
		[]string{
			".f-buyBox-price-value",
			".Price--current",
			".ProductOffers-price",
			`span[itemprop="price"]`,
			".product-price",
		},
		[]string{
			"h1.f-productHeader-Title",
			`h1[itemprop="name"]`,
			"h1.product-title",
			"h1",
		},
		[]string{
			"img.Picture-img",
			`img[itemprop="image"]`,
			"img.main-image",
			"img.product-image",
		})
}

// NewBoulangerParser creates a parser for boulanger.com.
func NewBoulangerParser(fetcher Fetcher, timeout time.Duration) *SiteParser {
	return NewSiteParser("boulanger", []string{"boulanger.com"}, false, fetcher, timeout,
		[]string{
			".price-sales",
			".product-price",
			`span[itemprop="price"]`,
			".current-price",
			".sale-price",
		},
		[]string{
			"h1.title",
			`h1[itemprop="name"]`,
			"h1.product-title",
			"h1",
		},
		[]string{
			"img.main-image",
			`img[itemprop="image"]`,
			"img.product-image",
			"img.primary-image",
		})
}

// NewBolParser creates a parser for bol.com.
func NewBolParser(fetcher Fetcher, timeout time.Duration) *SiteParser {
	return NewSiteParser("bol", []string{"bol.com"}, false, fetcher, timeout,
		[]string{
			".promo-price",
			".price-block__highlight",
			`span[data-test="price"]`,
			".product-price",
			"span.price",
		},
		[]string{
			`h1[data-test="title"]`,
			"h1.page-heading",
			`h1[itemprop="name"]`,
			"h1.product-title",
			"h1",
		},
		[]string{
			"img.js_selected_image",
			`img[data-test="image"]`,
			`img[itemprop="image"]`,
			"img.main-image",
			"img.product-image",
		})
}

// NewCoolblueParser creates a parser for coolblue.be.
func NewCoolblueParser(fetcher Fetcher, timeout time.Duration) *SiteParser {
	return NewSiteParser("coolblue", []string{"coolblue.be"}, false, fetcher, timeout,
		[]string{
			".sales-price__current",
			".product-price",
			`[data-test="price"]`,
			`span[itemprop="price"]`,
			".price",
		},
		[]string{
			"h1.product-name",
			`h1[data-test="title"]`,
			`h1[itemprop="name"]`,
			"h1.product-title",
			"h1",
		},
		[]string{
			"img.main-image",
			`img[itemprop="image"]`,
			`img[data-test="image"]`,
			"img.product-image",
			"img.primary-image",
		})
}
