package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/gin-gonic/gin"
	pkgconfig "github.com/wyfcoding/pkg/config"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/messagequeue/kafka"
	"github.com/wyfcoding/pkg/metrics"
	"github.com/wyfcoding/sentimenttrading/internal/config"
	"github.com/wyfcoding/sentimenttrading/internal/platform/firebase"
	"github.com/wyfcoding/sentimenttrading/internal/platform/messaging"
	riskapp "github.com/wyfcoding/sentimenttrading/internal/risk/application"
	riskdomain "github.com/wyfcoding/sentimenttrading/internal/risk/domain"
	sentapp "github.com/wyfcoding/sentimenttrading/internal/sentiment/application"
	sentfs "github.com/wyfcoding/sentimenttrading/internal/sentiment/infrastructure/persistence/firestore"
	sentevents "github.com/wyfcoding/sentimenttrading/internal/sentiment/interfaces/events"
	senthttp "github.com/wyfcoding/sentimenttrading/internal/sentiment/interfaces/http"
	tradeapp "github.com/wyfcoding/sentimenttrading/internal/trading/application"
	tradefs "github.com/wyfcoding/sentimenttrading/internal/trading/infrastructure/persistence/firestore"
	trademysql "github.com/wyfcoding/sentimenttrading/internal/trading/infrastructure/persistence/mysql"
	tradeconsumer "github.com/wyfcoding/sentimenttrading/internal/trading/interfaces/consumer"
	tradehttp "github.com/wyfcoding/sentimenttrading/internal/trading/interfaces/http"
	"golang.org/x/sync/errgroup"
	gorm_mysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "path to config file")
	flag.Parse()

	// 1. Config
	cfg, err := config.Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("load config failed: %v", err))
	}
	var infraCfg pkgconfig.Config
	if err := pkgconfig.Load(configPath, &infraCfg); err != nil {
		panic(fmt.Sprintf("load infra config failed: %v", err))
	}

	// 2. Logger
	logger := logging.NewLogger("sentimentd", "main", cfg.Log.Level)
	slog.SetDefault(logger.Logger)

	// 3. Metrics
	metricsImpl := metrics.NewMetrics("sentimentd")
	if cfg.Metrics.Enabled {
		go metricsImpl.ExposeHttp(strconv.Itoa(cfg.Metrics.Port))
	}

	// 4. Firestore
	// 凭证路径来自 FIREBASE_SERVICE_ACCOUNT，探测失败视为启动失败。
	fbManager := firebase.NewManager(firebase.Config{
		HealthCheck: cfg.Firestore.HealthCheck,
		OpTimeout:   cfg.Firestore.OpTimeout,
	})
	ctx := context.Background()
	if err := fbManager.Connect(ctx); err != nil {
		slog.Error("failed to connect firestore", "error", err)
		os.Exit(1)
	}
	defer fbManager.Close()
	fsClient, err := fbManager.Client()
	if err != nil {
		slog.Error("firestore client unavailable", "error", err)
		os.Exit(1)
	}

	// 5. MySQL 读模型
	db, err := gorm.Open(gorm_mysql.Open(cfg.Database.Source), &gorm.Config{})
	if err != nil {
		slog.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	journalRepo, err := trademysql.NewJournalRepository(db)
	if err != nil {
		slog.Error("failed to migrate journal table", "error", err)
		os.Exit(1)
	}

	// 6. Kafka
	producer := kafka.NewProducer(infraCfg.MessageQueue.Kafka, logger, metricsImpl)
	publisher := messaging.NewKafkaEventPublisher(producer)

	// 7. 本地缓存
	localCache, err := bigcache.New(ctx, bigcache.DefaultConfig(sentapp.LatestCacheTTL))
	if err != nil {
		slog.Error("failed to create local cache", "error", err)
		os.Exit(1)
	}

	// 8. Repositories & Application
	sentimentRepo := sentfs.NewSentimentRepository(fsClient, cfg.Firestore.Collections.Sentiment)
	sentimentSvc := sentapp.NewSentimentService(sentimentRepo, publisher, localCache, cfg.Kafka.ScoredTopic, logger.Logger)

	maxPos, stopLoss, takeProfit := cfg.RiskDecimals()
	riskSvc := riskapp.NewRiskService(riskdomain.Limits{
		MaxPositionSize: maxPos,
		StopLoss:        stopLoss,
		TakeProfit:      takeProfit,
		MaxDailyTrades:  cfg.Risk.MaxDailyTrades,
	}, logger.Logger)

	tradeRepo := tradefs.NewTradeRepository(fsClient, cfg.Firestore.Collections.Trades)
	stateRepo := tradefs.NewStateRepository(fsClient, cfg.Firestore.Collections.State)
	tradingSvc := tradeapp.NewTradingService(
		tradeRepo, stateRepo, journalRepo, riskSvc, publisher,
		cfg.Kafka.TradeTopic, cfg.Trading.Paper, cfg.InitialCapital(), logger.Logger)

	// 9. Kafka consumers
	rawCfg := infraCfg.MessageQueue.Kafka
	rawCfg.Topic = cfg.Kafka.RawTopic
	if rawCfg.GroupID == "" {
		rawCfg.GroupID = cfg.Kafka.GroupID
	}
	rawConsumer := kafka.NewConsumer(rawCfg, logger, metricsImpl)
	sentevents.NewSentimentEventHandler(sentimentSvc).Subscribe(ctx, rawConsumer)

	projCfg := infraCfg.MessageQueue.Kafka
	projCfg.Topic = cfg.Kafka.TradeTopic
	if projCfg.GroupID == "" {
		projCfg.GroupID = cfg.Kafka.GroupID
	}
	projConsumer := kafka.NewConsumer(projCfg, logger, metricsImpl)
	projection := tradeapp.NewJournalProjection(journalRepo, logger.Logger)
	tradeconsumer.NewProjectionHandler(projection).Subscribe(ctx, projConsumer)

	// 10. HTTP
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	sys := r.Group("/sys")
	{
		sys.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "UP"}) })
		sys.GET("/ready", func(c *gin.Context) {
			if _, err := fbManager.Client(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "NOT_READY"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "READY"})
		})
	}
	pp := r.Group("/debug/pprof")
	{
		pp.GET("/", gin.WrapF(pprof.Index))
		pp.GET("/cmdline", gin.WrapF(pprof.Cmdline))
		pp.GET("/profile", gin.WrapF(pprof.Profile))
		pp.GET("/symbol", gin.WrapF(pprof.Symbol))
		pp.GET("/trace", gin.WrapF(pprof.Trace))
	}

	senthttp.NewSentimentHandler(sentimentSvc).RegisterRoutes(&r.RouterGroup)
	tradehttp.NewTradingHandler(tradingSvc).RegisterRoutes(&r.RouterGroup)

	// 11. Start & graceful shutdown
	g, gctx := errgroup.WithContext(ctx)

	server := &http.Server{Addr: ":" + cfg.Server.HTTPPort, Handler: r}
	g.Go(func() error {
		slog.Info("HTTP server starting", "addr", server.Addr, "project_id", fbManager.ProjectID())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			slog.Info("shutting down server...")
		case <-gctx.Done():
			slog.Info("context cancelled, shutting down...")
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited with error", "error", err)
	}
}
