// Package connector resolves venue names to exchange connector factories.
// Concrete venue adapters register themselves at startup; the engine only
// ever sees domain.ExchangeConnector.
package connector

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/arbiterx/arbiter/internal/domain"
)

// Factory builds an authenticated connector for one venue.
type Factory func(apiKey, apiSecret string) (domain.ExchangeConnector, error)

// aliases maps operator-facing venue names to canonical registry keys.
var aliases = map[string]string{
	"coinbase pro": "coinbasepro",
	"coinbase":     "coinbasepro",
	"gate.io":      "gateio",
	"gate":         "gateio",
	"huobi global": "huobi",
	"okex":         "okx",
}

// Registry maps canonical venue names to factories. Safe for concurrent
// use, though registration normally happens once at startup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds a factory to a canonical venue name. A second registration
// under the same name replaces the first.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[Normalize(name)] = factory
}

// New resolves name through the alias table and builds a connector.
func (r *Registry) New(name, apiKey, apiSecret string) (domain.ExchangeConnector, error) {
	key := Normalize(name)

	r.mu.RLock()
	factory, ok := r.factories[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("connector: %q: %w", name, domain.ErrExchangeNotFound)
	}

	conn, err := factory(apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("connector: init %q: %w", key, err)
	}
	return conn, nil
}

// Names returns the registered canonical venue names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Normalize lowercases a venue name and resolves known aliases so operator
// input like "Coinbase Pro" and "gate.io" land on the canonical key.
func Normalize(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := aliases[key]; ok {
		return canonical
	}
	return key
}
