package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiterx/arbiter/internal/domain"
)

func TestTelegramSender_Send(t *testing.T) {
	var gotPath string
	var gotPayload map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	s := NewTelegramSender("bot-token", "chat-1")
	s.client = srv.Client()
	// Point the Bot API at the test server.
	s.token = "x"
	s.client.Transport = rewriteHost(srv.URL)

	err := s.Send(context.Background(), "Arbitrage opportunity", "Pair: BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, "/botx/sendMessage", gotPath)
	assert.Equal(t, "chat-1", gotPayload["chat_id"])
	assert.Equal(t, "*Arbitrage opportunity*\nPair: BTC/USDT", gotPayload["text"])
	assert.Equal(t, "Markdown", gotPayload["parse_mode"])
}

// rewriteHost redirects every request to the test server regardless of the
// URL the sender built.
func rewriteHost(target string) http.RoundTripper {
	return roundTripFunc(func(req *http.Request) (*http.Response, error) {
		redirected := *req
		u := *req.URL
		u.Scheme = "http"
		u.Host = target[len("http://"):]
		redirected.URL = &u
		return http.DefaultTransport.RoundTrip(&redirected)
	})
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func TestDiscordSender_Send(t *testing.T) {
	var gotPayload map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewDiscordSender(srv.URL)
	err := s.Send(context.Background(), "Trade executed", "Profit: $26.00")

	require.NoError(t, err)
	assert.Equal(t, "**Trade executed**\nProfit: $26.00", gotPayload["content"])
}

func TestDiscordSender_ErrorCarriesChannel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"invalid webhook"}`))
	}))
	defer srv.Close()

	s := NewDiscordSender(srv.URL)
	err := s.Send(context.Background(), "t", "m")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "discord:")
	assert.Contains(t, err.Error(), "400")
}

type flakySender struct {
	name string
	err  error
	sent int
}

func (s *flakySender) Send(context.Context, string, string) error {
	s.sent++
	return s.err
}
func (s *flakySender) Name() string { return s.name }

func TestNotifier_OneChannelFailingDoesNotStopOthers(t *testing.T) {
	bad := &flakySender{name: "telegram", err: errors.New("chat not found")}
	good := &flakySender{name: "discord"}
	n := NewNotifier([]Sender{bad, good}, slog.Default())

	err := n.SendOpportunityAlert(context.Background(), domain.CrossOpportunity{
		TradingPair: "BTC/USDT", BuyExchange: "binance", SellExchange: "kraken",
		BuyPrice: 100, SellPrice: 103, ProfitPct: 1.58, ProfitUSD: 15.8,
		DetectedAt: time.Now(),
	}, "opp-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram")
	assert.Equal(t, 1, good.sent, "remaining channels still receive the alert")
}

func TestFormatOpportunity(t *testing.T) {
	title, message := formatOpportunity(domain.TriangularOpportunity{
		Exchange:    "binance",
		TradingPath: []string{"BTC/USDT", "ETH/BTC", "ETH/USDT"},
		ProfitPct:   3.69,
	}, "opp-2")

	assert.Equal(t, "Triangular opportunity", title)
	assert.Contains(t, message, "BTC/USDT -> ETH/BTC -> ETH/USDT")
	assert.Contains(t, message, "3.69%")
	assert.Contains(t, message, "opp-2")
}
