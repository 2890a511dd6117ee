// Package config 服务配置的加载与校验。
package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// ExchangeConfig 交易所与标的配置。
type ExchangeConfig struct {
	Name      string   `mapstructure:"name"`
	Symbols   []string `mapstructure:"symbols"`
	Timeframe string   `mapstructure:"timeframe"`
}

// TradingConfig 交易模式配置。initial_capital 以字符串承载十进制值。
type TradingConfig struct {
	Paper          bool   `mapstructure:"paper"`
	InitialCapital string `mapstructure:"initial_capital"`
}

// SentimentSourceConfig 单个舆情源的开关与限速。
type SentimentSourceConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	RateLimit int  `mapstructure:"rate_limit"`
}

// RiskConfig 风控阈值，小数值以字符串承载。
type RiskConfig struct {
	MaxPositionSize string `mapstructure:"max_position_size"`
	StopLoss        string `mapstructure:"stop_loss"`
	TakeProfit      string `mapstructure:"take_profit"`
	MaxDailyTrades  int    `mapstructure:"max_daily_trades"`
}

// FirestoreCollections 三个集合名。
type FirestoreCollections struct {
	Sentiment string `mapstructure:"sentiment"`
	Trades    string `mapstructure:"trades"`
	State     string `mapstructure:"state"`
}

// FirestoreConfig Firestore 连接配置。凭证路径不在配置文件中，
// 由 FIREBASE_SERVICE_ACCOUNT 环境变量提供。
type FirestoreConfig struct {
	Collections FirestoreCollections `mapstructure:"collections"`
	HealthCheck bool                 `mapstructure:"health_check"`
	OpTimeout   time.Duration        `mapstructure:"op_timeout"`
}

// DatabaseConfig MySQL 读模型连接配置。
type DatabaseConfig struct {
	Source string `mapstructure:"source"`
}

// KafkaConfig 消息主题配置。
type KafkaConfig struct {
	Brokers     []string `mapstructure:"brokers"`
	RawTopic    string   `mapstructure:"raw_topic"`
	ScoredTopic string   `mapstructure:"scored_topic"`
	TradeTopic  string   `mapstructure:"trade_topic"`
	GroupID     string   `mapstructure:"group_id"`
}

// ServerConfig HTTP 服务配置。
type ServerConfig struct {
	HTTPPort string `mapstructure:"http_port"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// MetricsConfig 指标暴露配置。
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Config 服务完整配置。
type Config struct {
	Exchange         ExchangeConfig                   `mapstructure:"exchange"`
	Trading          TradingConfig                    `mapstructure:"trading"`
	SentimentSources map[string]SentimentSourceConfig `mapstructure:"sentiment_sources"`
	Risk             RiskConfig                       `mapstructure:"risk"`
	Firestore        FirestoreConfig                  `mapstructure:"firestore"`
	Database         DatabaseConfig                   `mapstructure:"database"`
	Kafka            KafkaConfig                      `mapstructure:"kafka"`
	Server           ServerConfig                     `mapstructure:"server"`
	Log              LogConfig                        `mapstructure:"log"`
	Metrics          MetricsConfig                    `mapstructure:"metrics"`
}

// Load 读取并校验配置文件。环境变量覆盖同名配置项。
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPPort == "" {
		c.Server.HTTPPort = "8086"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Firestore.OpTimeout <= 0 {
		c.Firestore.OpTimeout = 10 * time.Second
	}
	if c.Firestore.Collections.Sentiment == "" {
		c.Firestore.Collections.Sentiment = "market_sentiment"
	}
	if c.Firestore.Collections.Trades == "" {
		c.Firestore.Collections.Trades = "executed_trades"
	}
	if c.Firestore.Collections.State == "" {
		c.Firestore.Collections.State = "trading_state"
	}
	if c.Kafka.RawTopic == "" {
		c.Kafka.RawTopic = "sentiment.raw"
	}
	if c.Kafka.ScoredTopic == "" {
		c.Kafka.ScoredTopic = "sentiment.scored"
	}
	if c.Kafka.TradeTopic == "" {
		c.Kafka.TradeTopic = "trade.executed"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "sentimentd"
	}
}

// Validate 校验配置的内部一致性。
func (c *Config) Validate() error {
	if len(c.Exchange.Symbols) == 0 {
		return fmt.Errorf("config: exchange.symbols must not be empty")
	}
	if _, err := decimal.NewFromString(c.Trading.InitialCapital); err != nil {
		return fmt.Errorf("config: trading.initial_capital %q: %w", c.Trading.InitialCapital, err)
	}
	for _, field := range []struct{ name, value string }{
		{"risk.max_position_size", c.Risk.MaxPositionSize},
		{"risk.stop_loss", c.Risk.StopLoss},
		{"risk.take_profit", c.Risk.TakeProfit},
	} {
		d, err := decimal.NewFromString(field.value)
		if err != nil {
			return fmt.Errorf("config: %s %q: %w", field.name, field.value, err)
		}
		if d.IsNegative() {
			return fmt.Errorf("config: %s must not be negative", field.name)
		}
	}
	if c.Risk.MaxDailyTrades < 0 {
		return fmt.Errorf("config: risk.max_daily_trades must not be negative")
	}
	for name, src := range c.SentimentSources {
		if src.Enabled && src.RateLimit <= 0 {
			return fmt.Errorf("config: sentiment_sources.%s.rate_limit must be positive when enabled", name)
		}
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers must not be empty")
	}
	if c.Database.Source == "" {
		return fmt.Errorf("config: database.source must not be empty")
	}
	return nil
}

// InitialCapital 解析后的初始资金。调用前需通过 Validate。
func (c *Config) InitialCapital() decimal.Decimal {
	d, _ := decimal.NewFromString(c.Trading.InitialCapital)
	return d
}

// RiskDecimals 解析后的风控阈值。调用前需通过 Validate。
func (c *Config) RiskDecimals() (maxPositionSize, stopLoss, takeProfit decimal.Decimal) {
	maxPositionSize, _ = decimal.NewFromString(c.Risk.MaxPositionSize)
	stopLoss, _ = decimal.NewFromString(c.Risk.StopLoss)
	takeProfit, _ = decimal.NewFromString(c.Risk.TakeProfit)
	return maxPositionSize, stopLoss, takeProfit
}
