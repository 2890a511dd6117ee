// Package domain 市场舆情领域模型。
package domain

import (
	"fmt"
	"time"
)

// 舆情分值与置信度的取值范围。
const (
	ScoreMin      = -1.0
	ScoreMax      = 1.0
	ConfidenceMin = 0.0
	ConfidenceMax = 1.0
)

// ValidationError 表示记录不满足持久化前置条件。
// 校验失败发生在任何网络调用之前。
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("sentiment: invalid %s: %s", e.Field, e.Reason)
}

// SentimentRecord 一条针对某交易对的舆情观测。
// 由上游打分管道产出，本服务负责校验与持久化。
type SentimentRecord struct {
	ID         string         `firestore:"-" json:"id"`
	Symbol     string         `firestore:"symbol" json:"symbol"`
	Source     string         `firestore:"source" json:"source"`
	Score      float64        `firestore:"sentiment_score" json:"sentiment_score"`
	Confidence float64        `firestore:"confidence" json:"confidence"`
	RawText    string         `firestore:"raw_text" json:"raw_text"`
	Timestamp  time.Time      `firestore:"timestamp" json:"timestamp"`
	Metadata   map[string]any `firestore:"metadata,omitempty" json:"metadata,omitempty"`
}

// Normalize 填充缺省值：时间戳为零值时取当前时间，来源为空时标记为 unknown。
func (r *SentimentRecord) Normalize() {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	if r.Source == "" {
		r.Source = "unknown"
	}
}

// Validate 持久化前置校验：
// symbol 非空，分值在 [-1, 1]，置信度在 [0, 1]。
func (r *SentimentRecord) Validate() error {
	if r.Symbol == "" {
		return &ValidationError{Field: "symbol", Reason: "must not be empty"}
	}
	if r.Score < ScoreMin || r.Score > ScoreMax {
		return &ValidationError{Field: "sentiment_score", Reason: fmt.Sprintf("%v out of range [%v, %v]", r.Score, ScoreMin, ScoreMax)}
	}
	if r.Confidence < ConfidenceMin || r.Confidence > ConfidenceMax {
		return &ValidationError{Field: "confidence", Reason: fmt.Sprintf("%v out of range [%v, %v]", r.Confidence, ConfidenceMin, ConfidenceMax)}
	}
	return nil
}
