package application

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	riskapp "github.com/wyfcoding/sentimenttrading/internal/risk/application"
	riskdomain "github.com/wyfcoding/sentimenttrading/internal/risk/domain"
	"github.com/wyfcoding/sentimenttrading/internal/trading/domain"
)

type mockTradeRepo struct {
	saveErr error
	saved   []*domain.Trade
}

func (m *mockTradeRepo) Save(_ context.Context, trade *domain.Trade) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	m.saved = append(m.saved, trade)
	return "doc-trade-1", nil
}

func (m *mockTradeRepo) List(_ context.Context, _ string, _ int) ([]*domain.Trade, error) {
	return m.saved, nil
}

type mockStateRepo struct {
	state   *domain.State
	loadErr error
	saveErr error
	saves   int
}

func (m *mockStateRepo) Load(_ context.Context) (*domain.State, error) {
	return m.state, m.loadErr
}

func (m *mockStateRepo) Save(_ context.Context, state *domain.State) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.state = state
	m.saves++
	return nil
}

type mockJournalRepo struct {
	entries []*domain.JournalEntry
}

func (m *mockJournalRepo) Insert(_ context.Context, entry *domain.JournalEntry) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockJournalRepo) List(_ context.Context, _ string, _ int) ([]*domain.JournalEntry, error) {
	return m.entries, nil
}

type mockPublisher struct {
	topics []string
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, topic, _ string, _ any) error {
	if m.err != nil {
		return m.err
	}
	m.topics = append(m.topics, topic)
	return nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newService(trades *mockTradeRepo, states *mockStateRepo, pub *mockPublisher) *TradingService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	risk := riskapp.NewRiskService(riskdomain.Limits{
		MaxPositionSize: dec("0.1"),
		StopLoss:        dec("0.02"),
		TakeProfit:      dec("0.05"),
		MaxDailyTrades:  2,
	}, logger)
	return NewTradingService(trades, states, &mockJournalRepo{}, risk, pub, "", true, dec("10000"), logger)
}

func TestRecordTradePersistsAndUpdatesState(t *testing.T) {
	trades := &mockTradeRepo{}
	states := &mockStateRepo{}
	pub := &mockPublisher{}
	svc := newService(trades, states, pub)

	dto, err := svc.RecordTrade(context.Background(), &RecordTradeCommand{
		Symbol:         "BTC/USDT",
		Side:           "BUY",
		Quantity:       "0.02",
		Price:          "40000",
		SentimentScore: 0.6,
	})

	require.NoError(t, err)
	assert.Equal(t, "doc-trade-1", dto.DocumentID)
	assert.Equal(t, "800", dto.Notional)
	assert.True(t, dto.Paper)
	assert.Equal(t, "39200", dto.StopLoss)
	assert.Equal(t, "42000", dto.TakeProfit)

	require.Len(t, trades.saved, 1)
	require.NotNil(t, states.state)
	assert.True(t, states.state.Capital.Equal(dec("9200")), "capital: %s", states.state.Capital)
	assert.Equal(t, 1, states.state.DailyTrades)

	require.Len(t, pub.topics, 1)
	assert.Equal(t, domain.TradeExecutedEventType, pub.topics[0])
}

func TestRecordTradeRejectedByRiskLimits(t *testing.T) {
	trades := &mockTradeRepo{}
	states := &mockStateRepo{}
	svc := newService(trades, states, &mockPublisher{})

	// 10000 * 0.1 = 1000 仓位上限，1200 的买单必须被拒
	_, err := svc.RecordTrade(context.Background(), &RecordTradeCommand{
		Symbol:   "BTC/USDT",
		Side:     "BUY",
		Quantity: "0.03",
		Price:    "40000",
	})

	var limitErr *riskdomain.LimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, riskdomain.RuleMaxPositionSize, limitErr.Rule)
	assert.Empty(t, trades.saved, "rejected trade must not reach the store")
	assert.Equal(t, 0, states.saves)
}

func TestRecordTradeRejectsNakedSell(t *testing.T) {
	trades := &mockTradeRepo{}
	states := &mockStateRepo{}
	svc := newService(trades, states, &mockPublisher{})

	// 无持仓直接卖出：若被接受，成交金额会被记入资金，凭空产生 40000
	_, err := svc.RecordTrade(context.Background(), &RecordTradeCommand{
		Symbol:   "BTC/USDT",
		Side:     "SELL",
		Quantity: "1",
		Price:    "40000",
	})

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "quantity", vErr.Field)
	assert.Empty(t, trades.saved)
	assert.Equal(t, 0, states.saves)
}

func TestRecordTradeRejectsSellExceedingPosition(t *testing.T) {
	trades := &mockTradeRepo{}
	states := &mockStateRepo{}
	svc := newService(trades, states, &mockPublisher{})

	_, err := svc.RecordTrade(context.Background(), &RecordTradeCommand{
		Symbol:   "BTC/USDT",
		Side:     "BUY",
		Quantity: "0.02",
		Price:    "40000",
	})
	require.NoError(t, err)

	_, err = svc.RecordTrade(context.Background(), &RecordTradeCommand{
		Symbol:   "BTC/USDT",
		Side:     "SELL",
		Quantity: "0.03",
		Price:    "40000",
	})
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.True(t, states.state.Capital.Equal(dec("9200")), "capital must be untouched by the rejected sell: %s", states.state.Capital)

	// 卖出全部持仓仍然允许
	_, err = svc.RecordTrade(context.Background(), &RecordTradeCommand{
		Symbol:   "BTC/USDT",
		Side:     "SELL",
		Quantity: "0.02",
		Price:    "41000",
	})
	require.NoError(t, err)
	assert.Empty(t, states.state.Positions)
}

func TestRecordTradePublishesToConfiguredTopic(t *testing.T) {
	trades := &mockTradeRepo{}
	states := &mockStateRepo{}
	pub := &mockPublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	risk := riskapp.NewRiskService(riskdomain.Limits{MaxDailyTrades: 10}, logger)
	svc := NewTradingService(trades, states, &mockJournalRepo{}, risk, pub, "journal.trades", true, dec("10000"), logger)

	_, err := svc.RecordTrade(context.Background(), &RecordTradeCommand{
		Symbol:   "BTC/USDT",
		Side:     "BUY",
		Quantity: "0.01",
		Price:    "40000",
	})

	require.NoError(t, err)
	require.Len(t, pub.topics, 1)
	assert.Equal(t, "journal.trades", pub.topics[0])
}

func TestRecordTradeDailyCap(t *testing.T) {
	trades := &mockTradeRepo{}
	states := &mockStateRepo{}
	svc := newService(trades, states, &mockPublisher{})

	cmd := &RecordTradeCommand{Symbol: "BTC/USDT", Side: "BUY", Quantity: "0.001", Price: "40000"}
	for i := 0; i < 2; i++ {
		_, err := svc.RecordTrade(context.Background(), cmd)
		require.NoError(t, err)
	}

	_, err := svc.RecordTrade(context.Background(), cmd)

	var limitErr *riskdomain.LimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, riskdomain.RuleMaxDailyTrades, limitErr.Rule)
}

func TestRecordTradeValidation(t *testing.T) {
	svc := newService(&mockTradeRepo{}, &mockStateRepo{}, &mockPublisher{})

	_, err := svc.RecordTrade(context.Background(), &RecordTradeCommand{
		Symbol:   "",
		Side:     "BUY",
		Quantity: "1",
		Price:    "100",
	})
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)

	_, err = svc.RecordTrade(context.Background(), &RecordTradeCommand{
		Symbol:   "BTC/USDT",
		Side:     "BUY",
		Quantity: "not-a-number",
		Price:    "100",
	})
	assert.Error(t, err)
}

func TestRecordTradeSucceedsWhenPublishFails(t *testing.T) {
	trades := &mockTradeRepo{}
	states := &mockStateRepo{}
	svc := newService(trades, states, &mockPublisher{err: assert.AnError})

	dto, err := svc.RecordTrade(context.Background(), &RecordTradeCommand{
		Symbol:   "ETH/USDT",
		Side:     "BUY",
		Quantity: "0.1",
		Price:    "2000",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, dto.TradeID)
}

func TestStateReturnsInitialWhenAbsent(t *testing.T) {
	svc := newService(&mockTradeRepo{}, &mockStateRepo{}, &mockPublisher{})

	dto, err := svc.State(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "10000", dto.Capital)
	assert.Equal(t, 0, dto.DailyTrades)
	assert.Empty(t, dto.Positions)
}
