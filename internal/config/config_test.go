package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfig = `
exchange:
  name: binance
  symbols:
    - BTC/USDT
    - ETH/USDT
  timeframe: 1h
trading:
  paper: true
  initial_capital: "10000"
sentiment_sources:
  news:
    enabled: true
    rate_limit: 60
  twitter:
    enabled: false
    rate_limit: 30
risk:
  max_position_size: "0.1"
  stop_loss: "0.02"
  take_profit: "0.05"
  max_daily_trades: 10
firestore:
  collections:
    sentiment: market_sentiment
    trades: executed_trades
    state: trading_state
  health_check: true
  op_timeout: 10s
database:
  source: "user:pass@tcp(127.0.0.1:3306)/journal?parseTime=True"
kafka:
  brokers:
    - 127.0.0.1:9092
  raw_topic: sentiment.raw
  scored_topic: sentiment.scored
  trade_topic: trade.executed
  group_id: sentimentd
server:
  http_port: "8086"
log:
  level: info
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))

	require.NoError(t, err)
	assert.Equal(t, "binance", cfg.Exchange.Name)
	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT"}, cfg.Exchange.Symbols)
	assert.True(t, cfg.Trading.Paper)
	assert.Equal(t, "10000", cfg.InitialCapital().String())
	assert.True(t, cfg.Firestore.HealthCheck)
	assert.Equal(t, 10*time.Second, cfg.Firestore.OpTimeout)
	assert.Equal(t, "market_sentiment", cfg.Firestore.Collections.Sentiment)
	assert.Equal(t, "sentiment.raw", cfg.Kafka.RawTopic)
	assert.True(t, cfg.SentimentSources["news"].Enabled)
	assert.Equal(t, 60, cfg.SentimentSources["news"].RateLimit)

	maxPos, stopLoss, takeProfit := cfg.RiskDecimals()
	assert.Equal(t, "0.1", maxPos.String())
	assert.Equal(t, "0.02", stopLoss.String())
	assert.Equal(t, "0.05", takeProfit.String())
}

func TestLoadAppliesDefaults(t *testing.T) {
	minimal := `
exchange:
  symbols: [BTC/USDT]
trading:
  initial_capital: "5000"
risk:
  max_position_size: "0.1"
  stop_loss: "0.02"
  take_profit: "0.05"
database:
  source: "user:pass@tcp(127.0.0.1:3306)/journal"
kafka:
  brokers: [127.0.0.1:9092]
`
	cfg, err := Load(writeConfig(t, minimal))

	require.NoError(t, err)
	assert.Equal(t, "8086", cfg.Server.HTTPPort)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 10*time.Second, cfg.Firestore.OpTimeout)
	assert.Equal(t, "executed_trades", cfg.Firestore.Collections.Trades)
	assert.Equal(t, "trading_state", cfg.Firestore.Collections.State)
	assert.Equal(t, "sentiment.raw", cfg.Kafka.RawTopic)
	assert.Equal(t, "sentiment.scored", cfg.Kafka.ScoredTopic)
	assert.Equal(t, "trade.executed", cfg.Kafka.TradeTopic)
	assert.Equal(t, "sentimentd", cfg.Kafka.GroupID)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name     string
		mutation string
	}{
		{"missing symbols", "exchange:\n  symbols: []\ntrading:\n  initial_capital: \"10000\"\nrisk:\n  max_position_size: \"0.1\"\n  stop_loss: \"0.02\"\n  take_profit: \"0.05\"\ndatabase:\n  source: dsn\nkafka:\n  brokers: [b]\n"},
		{"bad capital", "exchange:\n  symbols: [BTC/USDT]\ntrading:\n  initial_capital: \"lots\"\nrisk:\n  max_position_size: \"0.1\"\n  stop_loss: \"0.02\"\n  take_profit: \"0.05\"\ndatabase:\n  source: dsn\nkafka:\n  brokers: [b]\n"},
		{"negative risk", "exchange:\n  symbols: [BTC/USDT]\ntrading:\n  initial_capital: \"10000\"\nrisk:\n  max_position_size: \"-0.1\"\n  stop_loss: \"0.02\"\n  take_profit: \"0.05\"\ndatabase:\n  source: dsn\nkafka:\n  brokers: [b]\n"},
		{"no brokers", "exchange:\n  symbols: [BTC/USDT]\ntrading:\n  initial_capital: \"10000\"\nrisk:\n  max_position_size: \"0.1\"\n  stop_loss: \"0.02\"\n  take_profit: \"0.05\"\ndatabase:\n  source: dsn\nkafka:\n  brokers: []\n"},
		{"enabled source without rate limit", "exchange:\n  symbols: [BTC/USDT]\ntrading:\n  initial_capital: \"10000\"\nsentiment_sources:\n  news:\n    enabled: true\n    rate_limit: 0\nrisk:\n  max_position_size: \"0.1\"\n  stop_loss: \"0.02\"\n  take_profit: \"0.05\"\ndatabase:\n  source: dsn\nkafka:\n  brokers: [b]\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.mutation))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
