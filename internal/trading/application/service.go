// Package application 交易流水与交易状态的用例逻辑。
package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/idgen"
	riskapp "github.com/wyfcoding/sentimenttrading/internal/risk/application"
	"github.com/wyfcoding/sentimenttrading/internal/trading/domain"
)

// RecordTradeCommand 记录一笔成交的命令。数量与价格用字符串承载十进制值。
type RecordTradeCommand struct {
	Symbol         string
	Side           string
	Quantity       string
	Price          string
	SentimentScore float64
}

// TradeDTO 成交记录 DTO
type TradeDTO struct {
	TradeID        string  `json:"trade_id"`
	DocumentID     string  `json:"document_id"`
	Symbol         string  `json:"symbol"`
	Side           string  `json:"side"`
	Quantity       string  `json:"quantity"`
	Price          string  `json:"price"`
	Notional       string  `json:"notional"`
	Paper          bool    `json:"paper"`
	SentimentScore float64 `json:"sentiment_score"`
	StopLoss       string  `json:"stop_loss"`
	TakeProfit     string  `json:"take_profit"`
	ExecutedAt     int64   `json:"executed_at"`
}

// PositionDTO 持仓 DTO
type PositionDTO struct {
	Symbol     string `json:"symbol"`
	Quantity   string `json:"quantity"`
	EntryPrice string `json:"entry_price"`
}

// StateDTO 交易状态 DTO
type StateDTO struct {
	Capital     string        `json:"capital"`
	DailyTrades int           `json:"daily_trades"`
	TradingDay  string        `json:"trading_day"`
	Positions   []PositionDTO `json:"positions"`
	UpdatedAt   int64         `json:"updated_at"`
}

// TradingService 交易应用服务。
// 状态的读-改-写由互斥锁串行化：进程内只有一个写者作用于共享状态文档。
type TradingService struct {
	trades         domain.TradeRepository
	stateRepo      domain.StateRepository
	journal        domain.JournalRepository
	risk           *riskapp.RiskService
	publisher      domain.EventPublisher
	tradeTopic     string
	paper          bool
	initialCapital decimal.Decimal
	logger         *slog.Logger

	mu sync.Mutex
}

// NewTradingService 创建交易应用服务。
// tradeTopic 为空时使用默认的 trade.executed 主题。
func NewTradingService(
	trades domain.TradeRepository,
	stateRepo domain.StateRepository,
	journal domain.JournalRepository,
	risk *riskapp.RiskService,
	publisher domain.EventPublisher,
	tradeTopic string,
	paper bool,
	initialCapital decimal.Decimal,
	logger *slog.Logger,
) *TradingService {
	if tradeTopic == "" {
		tradeTopic = domain.TradeExecutedEventType
	}
	return &TradingService{
		trades:         trades,
		stateRepo:      stateRepo,
		journal:        journal,
		risk:           risk,
		publisher:      publisher,
		tradeTopic:     tradeTopic,
		paper:          paper,
		initialCapital: initialCapital,
		logger:         logger,
	}
}

// RecordTrade 记录一笔成交。
// 用例流程：
// 1. 解析并校验命令
// 2. 加载交易状态（不存在时按初始资金建立）并滚动交易日
// 3. 风控检查，拒绝时返回 *risk.LimitError
// 4. 推导止损止盈价并持久化成交记录
// 5. 更新并保存交易状态
// 6. 发布 trade.executed 事件驱动流水投影
func (s *TradingService) RecordTrade(ctx context.Context, cmd *RecordTradeCommand) (*TradeDTO, error) {
	quantity, err := decimal.NewFromString(cmd.Quantity)
	if err != nil {
		return nil, fmt.Errorf("invalid quantity: %w", err)
	}
	price, err := decimal.NewFromString(cmd.Price)
	if err != nil {
		return nil, fmt.Errorf("invalid price: %w", err)
	}

	trade := &domain.Trade{
		ID:             fmt.Sprintf("TRD-%d", idgen.GenID()),
		Symbol:         cmd.Symbol,
		Side:           domain.Side(cmd.Side),
		Quantity:       quantity,
		Price:          price,
		Paper:          s.paper,
		SentimentScore: cmd.SentimentScore,
		ExecutedAt:     time.Now(),
	}
	if err := trade.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.stateRepo.Load(ctx)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = domain.NewState(s.initialCapital)
	}
	state.RollDay(trade.ExecutedAt)

	// 超卖会凭空放大可用资金，在任何持久化之前拒绝。
	if err := state.ValidateSell(trade); err != nil {
		return nil, err
	}

	if err := s.risk.PreTradeCheck(ctx, string(trade.Side), trade.Notional(),
		state.PositionNotional(trade.Symbol), state.Capital, state.DailyTrades); err != nil {
		return nil, err
	}

	trade.StopLoss, trade.TakeProfit = s.risk.Brackets(string(trade.Side), trade.Price)

	docID, err := s.trades.Save(ctx, trade)
	if err != nil {
		return nil, err
	}

	state.ApplyTrade(trade)
	if err := s.stateRepo.Save(ctx, state); err != nil {
		// 成交已入库但状态落后，重启后状态文档以最后一次成功写入为准。
		s.logger.ErrorContext(ctx, "failed to persist trading state after trade",
			"trade_id", trade.ID, "document_id", docID, "error", err)
		return nil, fmt.Errorf("persist trading state: %w", err)
	}

	event := domain.TradeExecutedEvent{
		TradeID:        trade.ID,
		DocumentID:     docID,
		Symbol:         trade.Symbol,
		Side:           string(trade.Side),
		Quantity:       trade.Quantity.String(),
		Price:          trade.Price.String(),
		Notional:       trade.Notional().String(),
		Paper:          trade.Paper,
		SentimentScore: trade.SentimentScore,
		ExecutedAt:     trade.ExecutedAt,
	}
	if err := s.publisher.Publish(ctx, s.tradeTopic, trade.Symbol, event); err != nil {
		s.logger.Warn("failed to publish trade.executed event", "trade_id", trade.ID, "error", err)
	}

	return tradeDTO(trade, docID), nil
}

// State 返回当前交易状态，尚无任何成交时返回初始状态。
func (s *TradingService) State(ctx context.Context) (*StateDTO, error) {
	state, err := s.stateRepo.Load(ctx)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = domain.NewState(s.initialCapital)
	}
	state.RollDay(time.Now())

	dto := &StateDTO{
		Capital:     state.Capital.String(),
		DailyTrades: state.DailyTrades,
		TradingDay:  state.TradingDay,
		Positions:   []PositionDTO{},
		UpdatedAt:   state.UpdatedAt.Unix(),
	}
	for _, pos := range state.Positions {
		dto.Positions = append(dto.Positions, PositionDTO{
			Symbol:     pos.Symbol,
			Quantity:   pos.Quantity.String(),
			EntryPrice: pos.EntryPrice.String(),
		})
	}
	return dto, nil
}

// History 从文档库返回成交历史。
func (s *TradingService) History(ctx context.Context, symbol string, limit int) ([]*TradeDTO, error) {
	trades, err := s.trades.List(ctx, symbol, limit)
	if err != nil {
		return nil, err
	}
	dtos := make([]*TradeDTO, 0, len(trades))
	for _, t := range trades {
		dtos = append(dtos, tradeDTO(t, ""))
	}
	return dtos, nil
}

// Journal 从 MySQL 读模型返回成交流水。
func (s *TradingService) Journal(ctx context.Context, symbol string, limit int) ([]*domain.JournalEntry, error) {
	return s.journal.List(ctx, symbol, limit)
}

func tradeDTO(t *domain.Trade, docID string) *TradeDTO {
	return &TradeDTO{
		TradeID:        t.ID,
		DocumentID:     docID,
		Symbol:         t.Symbol,
		Side:           string(t.Side),
		Quantity:       t.Quantity.String(),
		Price:          t.Price.String(),
		Notional:       t.Notional().String(),
		Paper:          t.Paper,
		SentimentScore: t.SentimentScore,
		StopLoss:       t.StopLoss.String(),
		TakeProfit:     t.TakeProfit.String(),
		ExecutedAt:     t.ExecutedAt.Unix(),
	}
}
