package application

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/sentimenttrading/internal/sentiment/domain"
)

type mockRepo struct {
	saveID      string
	saveErr     error
	saved       []*domain.SentimentRecord
	latest      *domain.SentimentRecord
	latestCalls int
}

func (m *mockRepo) Save(_ context.Context, record *domain.SentimentRecord) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	m.saved = append(m.saved, record)
	return m.saveID, nil
}

func (m *mockRepo) Latest(_ context.Context, _ string) (*domain.SentimentRecord, error) {
	m.latestCalls++
	return m.latest, nil
}

func (m *mockRepo) ListBySymbol(_ context.Context, _ string, _ int) ([]*domain.SentimentRecord, error) {
	return nil, nil
}

type publishedEvent struct {
	topic string
	key   string
	event any
}

type mockPublisher struct {
	err    error
	events []publishedEvent
}

func (m *mockPublisher) Publish(_ context.Context, topic, key string, event any) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, publishedEvent{topic: topic, key: key, event: event})
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCache(t *testing.T) *bigcache.BigCache {
	t.Helper()
	c, err := bigcache.New(context.Background(), bigcache.DefaultConfig(LatestCacheTTL))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestIngestPersistsAndPublishes(t *testing.T) {
	repo := &mockRepo{saveID: "doc-123"}
	pub := &mockPublisher{}
	svc := NewSentimentService(repo, pub, nil, "", testLogger())

	id, err := svc.Ingest(context.Background(), &domain.SentimentRecord{
		Symbol: "BTC/USDT",
		Score:  0.42,
	})

	require.NoError(t, err)
	assert.Equal(t, "doc-123", id)

	require.Len(t, repo.saved, 1)
	saved := repo.saved[0]
	assert.Equal(t, "unknown", saved.Source)
	assert.False(t, saved.Timestamp.IsZero())

	require.Len(t, pub.events, 1)
	assert.Equal(t, domain.SentimentScoredEventType, pub.events[0].topic)
	assert.Equal(t, "BTC/USDT", pub.events[0].key)
	event, ok := pub.events[0].event.(domain.SentimentScoredEvent)
	require.True(t, ok)
	assert.Equal(t, "doc-123", event.DocumentID)
}

func TestIngestPublishesToConfiguredTopic(t *testing.T) {
	repo := &mockRepo{saveID: "doc-321"}
	pub := &mockPublisher{}
	svc := NewSentimentService(repo, pub, nil, "sentiment.scored.v2", testLogger())

	_, err := svc.Ingest(context.Background(), &domain.SentimentRecord{
		Symbol: "BTC/USDT",
		Score:  0.1,
	})

	require.NoError(t, err)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "sentiment.scored.v2", pub.events[0].topic)
}

func TestIngestRejectsInvalidRecordBeforePersisting(t *testing.T) {
	repo := &mockRepo{saveID: "doc-123"}
	pub := &mockPublisher{}
	svc := NewSentimentService(repo, pub, nil, "", testLogger())

	_, err := svc.Ingest(context.Background(), &domain.SentimentRecord{
		Symbol: "",
		Score:  0.9,
	})

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Empty(t, repo.saved)
	assert.Empty(t, pub.events)
}

func TestIngestSucceedsWhenPublishFails(t *testing.T) {
	repo := &mockRepo{saveID: "doc-456"}
	pub := &mockPublisher{err: assert.AnError}
	svc := NewSentimentService(repo, pub, nil, "", testLogger())

	id, err := svc.Ingest(context.Background(), &domain.SentimentRecord{
		Symbol: "ETH/USDT",
		Score:  -0.3,
	})

	require.NoError(t, err)
	assert.Equal(t, "doc-456", id)
	require.Len(t, repo.saved, 1)
}

func TestLatestServedFromCacheAfterFirstRead(t *testing.T) {
	repo := &mockRepo{latest: &domain.SentimentRecord{
		ID:        "doc-789",
		Symbol:    "BTC/USDT",
		Source:    "news",
		Score:     0.7,
		Timestamp: time.Now(),
	}}
	svc := NewSentimentService(repo, &mockPublisher{}, testCache(t), "", testLogger())

	first, err := svc.Latest(context.Background(), "BTC/USDT")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := svc.Latest(context.Background(), "BTC/USDT")
	require.NoError(t, err)
	require.NotNil(t, second)

	assert.Equal(t, 1, repo.latestCalls)
	assert.Equal(t, first.ID, second.ID)
}

func TestLatestUnknownSymbol(t *testing.T) {
	repo := &mockRepo{}
	svc := NewSentimentService(repo, &mockPublisher{}, testCache(t), "", testLogger())

	record, err := svc.Latest(context.Background(), "XRP/USDT")

	require.NoError(t, err)
	assert.Nil(t, record)
}
