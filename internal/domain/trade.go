package domain

// TradeStatus is the terminal state of an execution attempt. There is no
// partial-success status: a partially executed trade surfaces as an error.
type TradeStatus string

const (
	TradeSuccess TradeStatus = "success"
	TradeError   TradeStatus = "error"
)

// TradeResult is the synchronous outcome of one execution attempt. It is
// created once per attempt and never mutated.
type TradeResult struct {
	Status    TradeStatus `json:"status"`
	Message   string      `json:"message"`
	TradeID   string      `json:"trade_id,omitempty"`
	ProfitUSD float64     `json:"profit_usd,omitempty"`
}

// ErrorResult builds an error TradeResult with the given human-readable
// reason.
func ErrorResult(message string) TradeResult {
	return TradeResult{Status: TradeError, Message: message}
}

// SuccessResult builds a success TradeResult carrying the persisted trade
// identifier and the realized profit in quote-currency units.
func SuccessResult(message, tradeID string, profitUSD float64) TradeResult {
	return TradeResult{Status: TradeSuccess, Message: message, TradeID: tradeID, ProfitUSD: profitUSD}
}

// Trade request types and cross-exchange strategies.
const (
	TradeTypeCross      = "cross"
	TradeTypeTriangular = "triangular"

	StrategyInstant    = "instant"
	StrategyTransfer   = "transfer"
	StrategyTriangular = "triangular"
)

// TradeRequest is the external trade entrypoint payload.
type TradeRequest struct {
	Type          string  `json:"type"` // "cross" or "triangular"
	OpportunityID string  `json:"opportunity_id"`
	Strategy      string  `json:"strategy,omitempty"` // cross only: "instant" or "transfer"
	Amount        float64 `json:"amount,omitempty"`   // notional override, quote units
}

// TradeLog is the trade record persisted to the external entity store.
type TradeLog struct {
	OpportunityID string  `json:"opportunity_id"`
	TradingPair   string  `json:"trading_pair"`
	BuyExchange   string  `json:"buy_exchange"`
	SellExchange  string  `json:"sell_exchange"`
	BuyPrice      float64 `json:"buy_price,omitempty"`
	SellPrice     float64 `json:"sell_price,omitempty"`
	Quantity      float64 `json:"quantity"`
	ProfitUSD     float64 `json:"profit_usd"`
	Status        string  `json:"status"`
	Strategy      string  `json:"strategy"`
}
