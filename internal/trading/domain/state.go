package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const tradingDayLayout = "2006-01-02"

// Position 某交易对的持仓。
type Position struct {
	Symbol     string          `json:"symbol"`
	Quantity   decimal.Decimal `json:"quantity"`
	EntryPrice decimal.Decimal `json:"entry_price"`
}

// State 交易状态快照：可用资金、当日成交计数与持仓。
// 在文档库中以单个固定文档保存，进程重启后据此恢复。
type State struct {
	Capital     decimal.Decimal     `json:"capital"`
	DailyTrades int                 `json:"daily_trades"`
	TradingDay  string              `json:"trading_day"`
	Positions   map[string]Position `json:"positions"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// NewState 以初始资金创建空状态。
func NewState(initialCapital decimal.Decimal) *State {
	return &State{
		Capital:   initialCapital,
		Positions: map[string]Position{},
	}
}

// RollDay 跨交易日时重置当日成交计数。
func (s *State) RollDay(now time.Time) {
	day := now.Format(tradingDayLayout)
	if s.TradingDay != day {
		s.TradingDay = day
		s.DailyTrades = 0
	}
}

// ValidateSell 卖出数量不得超过当前持仓。
// 超卖会在不持有仓位的情况下把成交金额记入资金，凭空放大可用资金。
func (s *State) ValidateSell(t *Trade) error {
	if t.Side != SideSell {
		return nil
	}
	held := s.Positions[t.Symbol].Quantity
	if t.Quantity.GreaterThan(held) {
		return &ValidationError{
			Field:  "quantity",
			Reason: fmt.Sprintf("sell quantity %s exceeds held quantity %s for %s", t.Quantity, held, t.Symbol),
		}
	}
	return nil
}

// ApplyTrade 将一笔成交记入状态：更新持仓、资金与当日计数。
// 买入按成交金额占用资金，卖出释放资金；持仓清零后移除。
// 卖出须先通过 ValidateSell。
func (s *State) ApplyTrade(t *Trade) {
	if s.Positions == nil {
		s.Positions = map[string]Position{}
	}

	notional := t.Notional()
	pos := s.Positions[t.Symbol]
	pos.Symbol = t.Symbol

	switch t.Side {
	case SideBuy:
		// 加权平均入场价
		oldNotional := pos.Quantity.Mul(pos.EntryPrice)
		pos.Quantity = pos.Quantity.Add(t.Quantity)
		if pos.Quantity.IsPositive() {
			pos.EntryPrice = oldNotional.Add(notional).Div(pos.Quantity)
		}
		s.Capital = s.Capital.Sub(notional)
	case SideSell:
		pos.Quantity = pos.Quantity.Sub(t.Quantity)
		s.Capital = s.Capital.Add(notional)
	}

	if pos.Quantity.IsPositive() {
		s.Positions[t.Symbol] = pos
	} else {
		delete(s.Positions, t.Symbol)
	}

	s.DailyTrades++
	s.UpdatedAt = t.ExecutedAt
}

// PositionNotional 某交易对当前持仓的名义价值。
func (s *State) PositionNotional(symbol string) decimal.Decimal {
	pos, ok := s.Positions[symbol]
	if !ok {
		return decimal.Zero
	}
	return pos.Quantity.Mul(pos.EntryPrice)
}
