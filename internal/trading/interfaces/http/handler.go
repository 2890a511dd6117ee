package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/response"
	riskdomain "github.com/wyfcoding/sentimenttrading/internal/risk/domain"
	"github.com/wyfcoding/sentimenttrading/internal/trading/application"
	"github.com/wyfcoding/sentimenttrading/internal/trading/domain"
)

// TradingHandler 负责处理交易相关的 HTTP 请求
type TradingHandler struct {
	app *application.TradingService
}

// NewTradingHandler 创建 HTTP 处理器
func NewTradingHandler(app *application.TradingService) *TradingHandler {
	return &TradingHandler{app: app}
}

// RegisterRoutes 注册路由
func (h *TradingHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1")
	{
		api.POST("/trades", h.Record)
		api.GET("/trades", h.History)
		api.GET("/trades/journal", h.Journal)
		api.GET("/trading/state", h.State)
	}
}

// RecordTradeRequest 记录成交请求。数量与价格以字符串承载十进制值。
type RecordTradeRequest struct {
	Symbol         string  `json:"symbol" binding:"required"`
	Side           string  `json:"side" binding:"required"`
	Quantity       string  `json:"quantity" binding:"required"`
	Price          string  `json:"price" binding:"required"`
	SentimentScore float64 `json:"sentiment_score"`
}

// Record 记录一笔成交
func (h *TradingHandler) Record(c *gin.Context) {
	var req RecordTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	dto, err := h.app.RecordTrade(c.Request.Context(), &application.RecordTradeCommand{
		Symbol:         req.Symbol,
		Side:           req.Side,
		Quantity:       req.Quantity,
		Price:          req.Price,
		SentimentScore: req.SentimentScore,
	})
	if err != nil {
		var limitErr *riskdomain.LimitError
		if errors.As(err, &limitErr) {
			// 风控拒绝是业务结果而非服务故障
			response.ErrorWithStatus(c, http.StatusUnprocessableEntity, limitErr.Error(), "")
			return
		}
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			response.ErrorWithStatus(c, http.StatusBadRequest, vErr.Error(), "")
			return
		}
		logging.Error(c.Request.Context(), "Failed to record trade", "symbol", req.Symbol, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}

	response.Success(c, dto)
}

// History 获取成交历史
func (h *TradingHandler) History(c *gin.Context) {
	symbol := c.Query("symbol")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid limit", "")
		return
	}

	trades, err := h.app.History(c.Request.Context(), symbol, limit)
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to get trade history", "symbol", symbol, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}

	response.Success(c, trades)
}

// Journal 从 MySQL 读模型获取成交流水
func (h *TradingHandler) Journal(c *gin.Context) {
	symbol := c.Query("symbol")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid limit", "")
		return
	}

	entries, err := h.app.Journal(c.Request.Context(), symbol, limit)
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to get trade journal", "symbol", symbol, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}

	response.Success(c, entries)
}

// State 获取当前交易状态
func (h *TradingHandler) State(c *gin.Context) {
	dto, err := h.app.State(c.Request.Context())
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to get trading state", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}

	response.Success(c, dto)
}
