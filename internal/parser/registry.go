package parser

import (
	"sync"

	"github.com/Rayane1997/app-price-tracker/logger"
	apperrors "github.com/Rayane1997/app-price-tracker/pkg/errors"
)

// Registry maps normalized domains to their parsers. Dedicated site parsers
// always win over generic configured ones for the same domain.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]Parser
	log     *logger.Logger
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{
		parsers: make(map[string]Parser),
		log:     logger.ForParser("registry"),
	}
}

// Register adds a parser for every domain it declares, replacing any
// previous registration for those domains.
func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, domain := range p.Domains() {
		r.parsers[domain] = p
		r.log.Debug().Str("domain", domain).Str("parser", p.Name()).Msg("Registered parser")
	}
}

// RegisterGeneric adds a configured parser unless a dedicated parser
// already claims its domain.
func (r *Registry) RegisterGeneric(p *GenericParser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	domain := p.Domains()[0]
	if _, exists := r.parsers[domain]; exists {
		r.log.Debug().Str("domain", domain).Msg("Dedicated parser present, skipping generic config")
		return
	}
	r.parsers[domain] = p
	r.log.Debug().Str("domain", domain).Msg("Registered generic parser")
}

// ForDomain returns the parser registered for a normalized domain.
func (r *Registry) ForDomain(domain string) (Parser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parsers[domain]
	if !ok {
		return nil, apperrors.NewParserNotFound(domain)
	}
	return p, nil
}

// ForURL resolves the parser responsible for a product URL.
func (r *Registry) ForURL(url string) (Parser, error) {
	domain := NormalizeDomain(url)
	if domain == "" {
		return nil, apperrors.NewValidation("", "cannot determine domain for URL "+url)
	}
	return r.ForDomain(domain)
}

// Domains lists every domain with a registered parser.
func (r *Registry) Domains() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	domains := make([]string, 0, len(r.parsers))
	for d := range r.parsers {
		domains = append(domains, d)
	}
	return domains
}
