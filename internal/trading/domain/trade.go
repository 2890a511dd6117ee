// Package domain 交易流水与交易状态的领域模型。
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Side 买卖方向。
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ValidationError 表示交易记录不满足持久化前置条件。
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("trade: invalid %s: %s", e.Field, e.Reason)
}

// Trade 一笔已成交的订单。纸面交易模式下为模拟成交。
type Trade struct {
	ID             string
	Symbol         string
	Side           Side
	Quantity       decimal.Decimal
	Price          decimal.Decimal
	Paper          bool
	SentimentScore float64
	StopLoss       decimal.Decimal
	TakeProfit     decimal.Decimal
	ExecutedAt     time.Time
}

// Notional 成交金额。
func (t *Trade) Notional() decimal.Decimal {
	return t.Quantity.Mul(t.Price)
}

// Validate 持久化前置校验。
func (t *Trade) Validate() error {
	if t.Symbol == "" {
		return &ValidationError{Field: "symbol", Reason: "must not be empty"}
	}
	if t.Side != SideBuy && t.Side != SideSell {
		return &ValidationError{Field: "side", Reason: fmt.Sprintf("must be %s or %s", SideBuy, SideSell)}
	}
	if !t.Quantity.IsPositive() {
		return &ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	if !t.Price.IsPositive() {
		return &ValidationError{Field: "price", Reason: "must be positive"}
	}
	return nil
}
