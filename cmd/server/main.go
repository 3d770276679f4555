package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hedgeback/internal/config"
	cronrunner "hedgeback/internal/cron"
	"hedgeback/internal/db"
	"hedgeback/internal/handler"
	"hedgeback/internal/logger"
	"hedgeback/internal/marketdata"
	gormrepository "hedgeback/internal/repository/gorm"
	"hedgeback/internal/service"
)

func main() {
	cfgPath := os.Getenv("HB_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("HB_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer dbConn.Close()

	if err := dbConn.SetTimezone(cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)

	priceLookup := &service.PriceLookupService{Repo: store}
	orderSvc := &service.OrderService{Repo: store, Logger: logger}
	contractSvc := &service.ContractService{Repo: store, Logger: logger}
	linkageSvc := &service.LinkageService{Repo: store, Logger: logger}
	exposureSvc := &service.ExposureService{Repo: store, Logger: logger}
	rfqSvc := &service.RFQService{Repo: store, Logger: logger}
	mtmSvc := &service.MTMService{
		Repo:   store,
		Prices: priceLookup,
		Symbol: cfg.Pricing.Symbol,
		Logger: logger,
	}
	cashflowSvc := &service.CashflowService{
		Repo:   store,
		Prices: priceLookup,
		Symbol: cfg.Pricing.Symbol,
		Logger: logger,
	}
	plSvc := &service.PLService{Repo: store, MTM: mtmSvc, Logger: logger}
	scenarioSvc := &service.ScenarioService{
		Repo:   store,
		Prices: priceLookup,
		Symbol: cfg.Pricing.Symbol,
		Logger: logger,
	}
	auditSvc := &service.AuditService{Repo: store, Logger: logger}
	ingestSvc := &service.MarketDataIngestService{
		Repo:    store,
		Fetcher: marketdata.NewHTTPFetcher(cfg.Westmetall.URL, cfg.Westmetall.Timeout),
		Symbol:  cfg.Pricing.Symbol,
		Source:  cfg.Pricing.Source,
		Logger:  logger,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	recorder := handler.NewAuditRecorder(auditSvc, logger)

	health := &handler.HealthHandler{DB: dbConn}
	health.Register(engine)
	orders := &handler.OrderHandler{Orders: orderSvc, Audit: recorder}
	orders.Register(engine)
	contracts := &handler.ContractHandler{Contracts: contractSvc, Audit: recorder}
	contracts.Register(engine)
	linkages := &handler.LinkageHandler{Linkages: linkageSvc, Audit: recorder}
	linkages.Register(engine)
	exposures := &handler.ExposureHandler{Exposure: exposureSvc}
	exposures.Register(engine)
	rfqs := &handler.RFQHandler{RFQs: rfqSvc, Audit: recorder}
	rfqs.Register(engine)
	mtm := &handler.MTMHandler{MTM: mtmSvc, Audit: recorder}
	mtm.Register(engine)
	cashflow := &handler.CashflowHandler{Cashflow: cashflowSvc, Audit: recorder}
	cashflow.Register(engine)
	pl := &handler.PLHandler{PL: plSvc, Audit: recorder}
	pl.Register(engine)
	scenarios := &handler.ScenarioHandler{Scenario: scenarioSvc}
	scenarios.Register(engine)
	audit := &handler.AuditHandler{Audit: auditSvc, PageLimitDefault: cfg.Audit.PageLimitDefault}
	audit.Register(engine)
	marketData := &handler.MarketDataHandler{
		Ingest: ingestSvc,
		Repo:   store,
		Symbol: cfg.Pricing.Symbol,
		Audit:  recorder,
	}
	marketData.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		_, err = cronRunner.Add(cfg.Cron.SettlementIngest, func(ctx context.Context) {
			result, err := ingestSvc.RunOnce(ctx)
			if err != nil {
				logger.Warn("cron settlement ingest failed", zap.Error(err))
				return
			}
			logger.Info("cron settlement ingest ok",
				zap.Int("ingested", result.Ingested),
				zap.Int("skipped", result.Skipped),
			)
		})
		if err != nil {
			logger.Warn("cron register settlement ingest failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		h.Set("Access-Control-Max-Age", "3600")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
