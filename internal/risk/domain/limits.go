// Package domain 交易前风控规则。
package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// 风控规则标识。
const (
	RuleMaxPositionSize     = "max_position_size"
	RuleMaxDailyTrades      = "max_daily_trades"
	RuleInsufficientCapital = "insufficient_capital"
)

// LimitError 表示订单被某条风控规则拒绝。
type LimitError struct {
	Rule    string
	Message string
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("risk: %s: %s", e.Rule, e.Message)
}

// Limits 配置化的风控阈值。
// MaxPositionSize、StopLoss、TakeProfit 均为比例值（占资金或价格的分数）。
type Limits struct {
	MaxPositionSize decimal.Decimal
	StopLoss        decimal.Decimal
	TakeProfit      decimal.Decimal
	MaxDailyTrades  int
}

// CheckOrder 交易前检查。
// notional 为本单金额，positionNotional 为该交易对现有持仓金额，
// capital 为当前可用资金，dailyTrades 为当日已成交笔数。
// 卖出方向不受仓位与资金约束，只受当日笔数约束。
func (l Limits) CheckOrder(side string, notional, positionNotional, capital decimal.Decimal, dailyTrades int) *LimitError {
	if l.MaxDailyTrades > 0 && dailyTrades >= l.MaxDailyTrades {
		return &LimitError{
			Rule:    RuleMaxDailyTrades,
			Message: fmt.Sprintf("daily trade count %d reached limit %d", dailyTrades, l.MaxDailyTrades),
		}
	}

	if side != "BUY" {
		return nil
	}

	if notional.GreaterThan(capital) {
		return &LimitError{
			Rule:    RuleInsufficientCapital,
			Message: fmt.Sprintf("order notional %s exceeds available capital %s", notional, capital),
		}
	}

	if l.MaxPositionSize.IsPositive() {
		maxNotional := capital.Mul(l.MaxPositionSize)
		if positionNotional.Add(notional).GreaterThan(maxNotional) {
			return &LimitError{
				Rule:    RuleMaxPositionSize,
				Message: fmt.Sprintf("position notional %s would exceed limit %s", positionNotional.Add(notional), maxNotional),
			}
		}
	}

	return nil
}

// StopLossPrice 按方向推导止损价。
func (l Limits) StopLossPrice(side string, price decimal.Decimal) decimal.Decimal {
	if l.StopLoss.IsZero() {
		return decimal.Zero
	}
	if side == "BUY" {
		return price.Mul(decimal.NewFromInt(1).Sub(l.StopLoss))
	}
	return price.Mul(decimal.NewFromInt(1).Add(l.StopLoss))
}

// TakeProfitPrice 按方向推导止盈价。
func (l Limits) TakeProfitPrice(side string, price decimal.Decimal) decimal.Decimal {
	if l.TakeProfit.IsZero() {
		return decimal.Zero
	}
	if side == "BUY" {
		return price.Mul(decimal.NewFromInt(1).Add(l.TakeProfit))
	}
	return price.Mul(decimal.NewFromInt(1).Sub(l.TakeProfit))
}
