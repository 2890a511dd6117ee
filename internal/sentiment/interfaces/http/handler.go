package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/response"
	"github.com/wyfcoding/sentimenttrading/internal/sentiment/application"
	"github.com/wyfcoding/sentimenttrading/internal/sentiment/domain"
)

// SentimentHandler 负责处理舆情相关的 HTTP 请求
type SentimentHandler struct {
	app *application.SentimentService
}

// NewSentimentHandler 创建 HTTP 处理器
func NewSentimentHandler(app *application.SentimentService) *SentimentHandler {
	return &SentimentHandler{app: app}
}

// RegisterRoutes 注册路由
func (h *SentimentHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/sentiment")
	{
		api.POST("", h.Ingest)
		api.GET("/latest", h.Latest)
		api.GET("/history", h.History)
	}
}

// IngestSentimentRequest 舆情入库请求。
// sentiment_score 用指针以区分“未提供”与 0 值。
type IngestSentimentRequest struct {
	Symbol     string         `json:"symbol"`
	Source     string         `json:"source"`
	Score      *float64       `json:"sentiment_score" binding:"required"`
	Confidence float64        `json:"confidence"`
	RawText    string         `json:"raw_text"`
	Timestamp  time.Time      `json:"timestamp"`
	Metadata   map[string]any `json:"metadata"`
}

// Ingest 接收一条已打分的舆情记录
func (h *SentimentHandler) Ingest(c *gin.Context) {
	var req IngestSentimentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	record := &domain.SentimentRecord{
		Symbol:     req.Symbol,
		Source:     req.Source,
		Score:      *req.Score,
		Confidence: req.Confidence,
		RawText:    req.RawText,
		Timestamp:  req.Timestamp,
		Metadata:   req.Metadata,
	}

	id, err := h.app.Ingest(c.Request.Context(), record)
	if err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			response.ErrorWithStatus(c, http.StatusBadRequest, vErr.Error(), "")
			return
		}
		logging.Error(c.Request.Context(), "Failed to ingest sentiment", "symbol", req.Symbol, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}

	response.Success(c, gin.H{"document_id": id})
}

// Latest 获取某交易对最新舆情
func (h *SentimentHandler) Latest(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "symbol is required", "")
		return
	}

	record, err := h.app.Latest(c.Request.Context(), symbol)
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to get latest sentiment", "symbol", symbol, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	if record == nil {
		response.ErrorWithStatus(c, http.StatusNotFound, "no sentiment for symbol", "")
		return
	}

	response.Success(c, record)
}

// History 获取舆情历史
func (h *SentimentHandler) History(c *gin.Context) {
	symbol := c.Query("symbol")

	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid limit", "")
		return
	}

	records, err := h.app.History(c.Request.Context(), symbol, limit)
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to get sentiment history", "symbol", symbol, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}

	response.Success(c, records)
}
