package domain

import (
	"fmt"
	"strings"
	"time"
)

// Persistence entity names for the two opportunity variants.
const (
	EntityCrossOpportunity      = "ArbitrageOpportunity"
	EntityTriangularOpportunity = "TriangularOpportunity"
)

// Opportunity is implemented by both arbitrage opportunity variants. An
// opportunity is immutable once created; the engine hands it to the dedup
// gate and the external store but never keeps it.
type Opportunity interface {
	// Entity returns the persistence entity name for this variant.
	Entity() string
	// Signature returns the dedup key: identical opportunities within the
	// TTL window share a signature.
	Signature() string
	// Profit returns the net profit percentage.
	Profit() float64
	// Detected returns the detection time, used for the staleness guard.
	Detected() time.Time
}

// CrossOpportunity is a two-venue price spread on a single trading pair.
type CrossOpportunity struct {
	ID           string    `json:"id,omitempty"`
	TradingPair  string    `json:"trading_pair"`
	BuyExchange  string    `json:"buy_exchange"`
	SellExchange string    `json:"sell_exchange"`
	BuyPrice     float64   `json:"buy_price"`
	SellPrice    float64   `json:"sell_price"`
	ProfitPct    float64   `json:"profit_percentage"`
	ProfitUSD    float64   `json:"profit_usd"`
	Volume       float64   `json:"volume"`
	DetectedAt   time.Time `json:"detected_at"`
}

func (o CrossOpportunity) Entity() string { return EntityCrossOpportunity }

func (o CrossOpportunity) Signature() string {
	return fmt.Sprintf("%s-%s-%s-%.2f", o.TradingPair, o.BuyExchange, o.SellExchange, o.ProfitPct)
}

func (o CrossOpportunity) Profit() float64     { return o.ProfitPct }
func (o CrossOpportunity) Detected() time.Time { return o.DetectedAt }

// TriangularOpportunity is a closed 3-asset cycle on a single venue.
type TriangularOpportunity struct {
	ID            string    `json:"id,omitempty"`
	Exchange      string    `json:"exchange"`
	TradingPath   []string  `json:"trading_path"` // 3 symbols, leg order
	Assets        []string  `json:"assets"`       // 3 assets, cycle order
	ProfitPct     float64   `json:"profit_percentage"`
	InitialAmount float64   `json:"initial_amount"`
	FinalAmount   float64   `json:"final_amount"`
	DetectedAt    time.Time `json:"detected_at"`
}

func (o TriangularOpportunity) Entity() string { return EntityTriangularOpportunity }

func (o TriangularOpportunity) Signature() string {
	return fmt.Sprintf("%s-%s-%.2f", o.Exchange, strings.Join(o.TradingPath, "->"), o.ProfitPct)
}

func (o TriangularOpportunity) Profit() float64     { return o.ProfitPct }
func (o TriangularOpportunity) Detected() time.Time { return o.DetectedAt }
