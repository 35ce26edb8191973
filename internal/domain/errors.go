package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrStaleOpportunity    = errors.New("opportunity is stale")
	ErrInvalidQuote        = errors.New("invalid quote")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNotEnoughLiquidity  = errors.New("not enough liquidity")
	ErrZeroPrice           = errors.New("zero price")
	ErrSlippageTooHigh     = errors.New("slippage above tolerance")
	ErrNoCommonNetwork     = errors.New("no common transfer network")
	ErrPartialExecution    = errors.New("partial execution")
	ErrExchangeNotFound    = errors.New("exchange not initialized")
)
