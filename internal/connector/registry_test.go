package connector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiterx/arbiter/internal/domain"
)

type namedConn struct {
	domain.ExchangeConnector
	name string
}

func (c namedConn) Name() string { return c.name }
func (c namedConn) Close() error { return nil }

func stubFactory(name string) Factory {
	return func(apiKey, apiSecret string) (domain.ExchangeConnector, error) {
		return namedConn{name: name}, nil
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Binance":      "binance",
		"  kraken  ":   "kraken",
		"Coinbase Pro": "coinbasepro",
		"coinbase":     "coinbasepro",
		"gate.io":      "gateio",
		"OKEx":         "okx",
		"Huobi Global": "huobi",
	}
	for input, want := range cases {
		assert.Equal(t, want, Normalize(input), "input %q", input)
	}
}

func TestRegistry_ResolvesAliases(t *testing.T) {
	r := NewRegistry()
	r.Register("coinbasepro", stubFactory("coinbasepro"))

	conn, err := r.New("Coinbase Pro", "key", "secret")
	require.NoError(t, err)
	assert.Equal(t, "coinbasepro", conn.Name())
}

func TestRegistry_UnknownVenue(t *testing.T) {
	r := NewRegistry()

	_, err := r.New("bitfinex", "key", "secret")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExchangeNotFound)
}

func TestRegistry_FactoryErrorWrapped(t *testing.T) {
	r := NewRegistry()
	initErr := errors.New("bad credentials")
	r.Register("binance", func(string, string) (domain.ExchangeConnector, error) {
		return nil, initErr
	})

	_, err := r.New("binance", "key", "secret")
	assert.ErrorIs(t, err, initErr)
}

func TestRegistry_NamesSorted(t *testing.T) {
	r := NewRegistry()
	r.Register("kraken", stubFactory("kraken"))
	r.Register("Binance", stubFactory("binance"))
	r.Register("okx", stubFactory("okx"))

	assert.Equal(t, []string{"binance", "kraken", "okx"}, r.Names())
}
