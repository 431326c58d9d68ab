package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoppen/freqdash/internal/models"
)

func TestRegistryResolvesEverySupportedExchange(t *testing.T) {
	registry := NewRegistry()
	for _, name := range models.SupportedExchanges() {
		adapter, ok := registry.Get(name)
		require.True(t, ok, "no adapter for %s", name)
		assert.Equal(t, name, adapter.Name())
	}

	_, ok := registry.Get("coinbase")
	assert.False(t, ok)
}

func TestRegistryAllIsStable(t *testing.T) {
	registry := NewRegistry()
	adapters := registry.All()
	require.Len(t, adapters, len(models.SupportedExchanges()))
	for i, name := range models.SupportedExchanges() {
		assert.Equal(t, name, adapters[i].Name())
	}
}

func TestRegistryNewsSources(t *testing.T) {
	registry := NewRegistry()
	sources := registry.NewsSources()
	require.Len(t, sources, 3)

	names := make([]models.ExchangeName, 0, len(sources))
	for _, src := range sources {
		names = append(names, src.(Adapter).Name())
	}
	assert.Equal(t, []models.ExchangeName{
		models.ExchangeBinance,
		models.ExchangeBybit,
		models.ExchangeOkx,
	}, names)
}
