package firestore

import (
	"context"
	"fmt"
	"time"

	fs "cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/sentimenttrading/internal/trading/domain"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// stateDocID 交易状态在集合内的固定文档 ID，整个系统只有一份状态。
const stateDocID = "current"

type positionDoc struct {
	Symbol     string `firestore:"symbol"`
	Quantity   string `firestore:"quantity"`
	EntryPrice string `firestore:"entry_price"`
}

type stateDoc struct {
	Capital     string                 `firestore:"capital"`
	DailyTrades int                    `firestore:"daily_trades"`
	TradingDay  string                 `firestore:"trading_day"`
	Positions   map[string]positionDoc `firestore:"positions"`
	UpdatedAt   time.Time              `firestore:"updated_at"`
}

func toStateDoc(s *domain.State) *stateDoc {
	doc := &stateDoc{
		Capital:     s.Capital.String(),
		DailyTrades: s.DailyTrades,
		TradingDay:  s.TradingDay,
		Positions:   map[string]positionDoc{},
		UpdatedAt:   s.UpdatedAt,
	}
	for symbol, pos := range s.Positions {
		doc.Positions[symbol] = positionDoc{
			Symbol:     pos.Symbol,
			Quantity:   pos.Quantity.String(),
			EntryPrice: pos.EntryPrice.String(),
		}
	}
	return doc
}

func (d *stateDoc) toDomain() (*domain.State, error) {
	capital, err := decimal.NewFromString(d.Capital)
	if err != nil {
		return nil, fmt.Errorf("decode capital %q: %w", d.Capital, err)
	}
	state := &domain.State{
		Capital:     capital,
		DailyTrades: d.DailyTrades,
		TradingDay:  d.TradingDay,
		Positions:   map[string]domain.Position{},
		UpdatedAt:   d.UpdatedAt,
	}
	for symbol, pos := range d.Positions {
		quantity, err := decimal.NewFromString(pos.Quantity)
		if err != nil {
			return nil, fmt.Errorf("decode position %s quantity %q: %w", symbol, pos.Quantity, err)
		}
		entryPrice, err := decimal.NewFromString(pos.EntryPrice)
		if err != nil {
			return nil, fmt.Errorf("decode position %s entry_price %q: %w", symbol, pos.EntryPrice, err)
		}
		state.Positions[symbol] = domain.Position{
			Symbol:     pos.Symbol,
			Quantity:   quantity,
			EntryPrice: entryPrice,
		}
	}
	return state, nil
}

// StateRepository 将交易状态保存为 trading_state 集合中的单个固定文档。
type StateRepository struct {
	client     *fs.Client
	collection string
}

// NewStateRepository 创建仓储。
func NewStateRepository(client *fs.Client, collection string) *StateRepository {
	return &StateRepository{client: client, collection: collection}
}

// Load 读取交易状态，文档尚不存在时返回 (nil, nil)。
func (r *StateRepository) Load(ctx context.Context) (*domain.State, error) {
	snap, err := r.client.Collection(r.collection).Doc(stateDocID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		logging.Error(ctx, "state_repository.Load failed", "error", err)
		return nil, fmt.Errorf("load trading state: %w", err)
	}

	var doc stateDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode trading state: %w", err)
	}
	return doc.toDomain()
}

// Save 整体覆盖写入状态文档。
func (r *StateRepository) Save(ctx context.Context, state *domain.State) error {
	if _, err := r.client.Collection(r.collection).Doc(stateDocID).Set(ctx, toStateDoc(state)); err != nil {
		logging.Error(ctx, "state_repository.Save failed", "error", err)
		return fmt.Errorf("save trading state: %w", err)
	}
	return nil
}
