package exchange

import (
	"github.com/ecoppen/freqdash/internal/models"
)

// Registry holds one shared adapter per supported exchange. The set is
// fixed at construction; handlers and the scraper resolve adapters by name
// and never construct their own.
type Registry struct {
	adapters map[models.ExchangeName]Adapter
}

// NewRegistry builds adapters for every supported exchange.
func NewRegistry() *Registry {
	return &Registry{adapters: map[models.ExchangeName]Adapter{
		models.ExchangeBinance: NewBinance(),
		models.ExchangeBybit:   NewBybit(),
		models.ExchangeGateio:  NewGateio(),
		models.ExchangeKucoin:  NewKucoin(),
		models.ExchangeOkx:     NewOkx(),
	}}
}

// Get resolves an adapter by exchange name.
func (r *Registry) Get(name models.ExchangeName) (Adapter, bool) {
	adapter, ok := r.adapters[name]
	return adapter, ok
}

// All returns every adapter in the stable enumeration order.
func (r *Registry) All() []Adapter {
	names := models.SupportedExchanges()
	out := make([]Adapter, 0, len(names))
	for _, name := range names {
		out = append(out, r.adapters[name])
	}
	return out
}

// NewsSources returns the adapters whose exchange publishes an announcement
// feed, in enumeration order.
func (r *Registry) NewsSources() []NewsSource {
	var out []NewsSource
	for _, adapter := range r.All() {
		if src, ok := adapter.(NewsSource); ok {
			out = append(out, src)
		}
	}
	return out
}
