package parser

import "time"

// DefaultRegistry builds a registry with every dedicated site parser
// registered. JS-rendering parsers get the longer render timeout. Generic
// configured parsers are layered on afterwards by the caller.
func DefaultRegistry(fetcher Fetcher, staticTimeout, renderTimeout time.Duration) *Registry {
	r := NewRegistry()
	r.Register(NewAmazonParser(fetcher, renderTimeout))
	r.Register(NewCdiscountParser(fetcher, staticTimeout))
	r.Register(NewFnacParser(fetcher, staticTimeout))
	r.Register(NewBoulangerParser(fetcher, staticTimeout))
	r.Register(NewBolParser(fetcher, staticTimeout))
	r.Register(NewCoolblueParser(fetcher, staticTimeout))
	return r
}
