package parser

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/Rayane1997/app-price-tracker/helpers"
	"github.com/Rayane1997/app-price-tracker/logger"
	apperrors "github.com/Rayane1997/app-price-tracker/pkg/errors"
	"github.com/Rayane1997/app-price-tracker/services/ratelimit"
)

// renderScript is executed by the headless-browser service to obtain the
// page content after JavaScript has run.
const renderScript = `module.exports = async ({ page, context }) => {
	await page.setViewport({ width: 1280, height: 800 });
	await page.setUserAgent('Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36');
	await page.goto(context.url, { waitUntil: 'networkidle2' });
	return await page.content();
};`

// PageFetcher fetches product pages, serializing requests per domain
// through the shared rate limiter. JavaScript-dependent pages go through a
// browserless-style rendering service; everything else is a plain GET.
type PageFetcher struct {
	limiter    *ratelimit.DomainLimiter
	render     *resty.Client
	renderAddr string
	log        *logger.Logger
}

// NewPageFetcher creates a page fetcher. renderAddr may be empty, in which
// case JS-dependent pages fall back to a static fetch.
func NewPageFetcher(limiter *ratelimit.DomainLimiter, renderAddr string) *PageFetcher {
	return &PageFetcher{
		limiter:    limiter,
		render:     resty.New(),
		renderAddr: strings.TrimSuffix(renderAddr, "/"),
		log:        logger.ForParser("fetch"),
	}
}

// Fetch retrieves the raw HTML for url, honoring the per-domain spacing
// window before the request goes out.
func (f *PageFetcher) Fetch(ctx context.Context, url string, renderJS bool, timeout time.Duration) (string, error) {
	domain := NormalizeDomain(url)

	if f.limiter != nil {
		if err := f.limiter.Acquire(ctx, domain); err != nil {
			return "", apperrors.NewNetwork(domain, "rate limit wait aborted", err)
		}
	}

	if renderJS && f.renderAddr != "" {
		html, err := f.fetchRendered(ctx, url, timeout)
		if err == nil {
			return html, nil
		}
		f.log.Warn().Err(err).Str("url", url).Msg("Rendered fetch failed, falling back to static fetch")
	}

	html, err := helpers.FetchPage(ctx, url, timeout)
	if err != nil {
		return "", apperrors.NewNetwork(domain, "failed to fetch page", err)
	}
	return html, nil
}

// fetchRendered posts a rendering function to the browser service and
// returns the rendered document.
func (f *PageFetcher) fetchRendered(ctx context.Context, url string, timeout time.Duration) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := f.render.R().
		SetContext(reqCtx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"code":    renderScript,
			"context": map[string]string{"url": url},
		}).
		Post(f.renderAddr + "/function")
	if err != nil {
		return "", apperrors.NewNetwork(NormalizeDomain(url), "render service request failed", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", apperrors.NewNetwork(NormalizeDomain(url), "render service returned status "+resp.Status(), nil)
	}

	return resp.String(), nil
}

// ParseDocument parses raw HTML into a selector-queryable document
func ParseDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, apperrors.NewParsing("", "failed to parse HTML document", err)
	}
	return doc, nil
}
