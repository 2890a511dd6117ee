// Package application 风控应用服务。
package application

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/sentimenttrading/internal/risk/domain"
)

// RiskService 在成交记录入库前执行风控检查。
type RiskService struct {
	limits domain.Limits
	logger *slog.Logger
}

// NewRiskService 创建风控服务。
func NewRiskService(limits domain.Limits, logger *slog.Logger) *RiskService {
	return &RiskService{limits: limits, logger: logger}
}

// PreTradeCheck 交易前检查，拒绝时返回 *domain.LimitError。
func (s *RiskService) PreTradeCheck(ctx context.Context, side string, notional, positionNotional, capital decimal.Decimal, dailyTrades int) error {
	if err := s.limits.CheckOrder(side, notional, positionNotional, capital, dailyTrades); err != nil {
		s.logger.WarnContext(ctx, "trade rejected by risk limits",
			"rule", err.Rule,
			"side", side,
			"notional", notional.String(),
			"daily_trades", dailyTrades)
		return err
	}
	return nil
}

// Brackets 按配置推导止损与止盈价。
func (s *RiskService) Brackets(side string, price decimal.Decimal) (stopLoss, takeProfit decimal.Decimal) {
	return s.limits.StopLossPrice(side, price), s.limits.TakeProfitPrice(side, price)
}

// Limits 返回当前生效的阈值。
func (s *RiskService) Limits() domain.Limits {
	return s.limits
}
