package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"sme-escrow/internal/adapter/bankdir"
	"sme-escrow/internal/adapter/gateway"
	httpadp "sme-escrow/internal/adapter/http"
	appmw "sme-escrow/internal/adapter/middleware"
	"sme-escrow/internal/adapter/repository/mysql"
	"sme-escrow/internal/config"
	"sme-escrow/internal/domain/loan"
	"sme-escrow/internal/infrastructure/cache"
	"sme-escrow/internal/infrastructure/db"
	"sme-escrow/internal/infrastructure/logging"
	"sme-escrow/internal/usecase/escrow"
	loanuc "sme-escrow/internal/usecase/loan"
	"sme-escrow/internal/usecase/negotiation"
	"sme-escrow/internal/usecase/repayment"
	"sme-escrow/internal/usecase/webhook"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the overdue sweeper",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, config.Load())
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	gdb, err := db.OpenGorm(cfg.MySQLDSN(), log)
	if err != nil {
		return err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer rdb.Close()

	gw, err := gateway.New(gateway.Settings{
		Provider:    cfg.PaymentGateway,
		BaseURL:     cfg.PaystackBaseURL,
		SecretKey:   cfg.PaystackSecretKey,
		CallbackURL: cfg.PaystackCallbackURL,
		Timeout:     cfg.PaymentTimeout(),
	})
	if err != nil {
		return err
	}
	if cfg.PaymentGateway == gateway.ProviderMock {
		log.Warn("using the mock payment gateway; no money moves")
	}

	loans := mysql.NewLoanRepository(gdb)
	tx := mysql.NewGormUoW(gdb)

	freqs := make([]loan.Frequency, 0, len(cfg.ScheduleFrequencies))
	for _, f := range cfg.ScheduleFrequencies {
		freqs = append(freqs, loan.Frequency(f))
	}
	sched := repayment.NewScheduler(loans, mysql.NewRepaymentRepository(gdb), tx, repayment.Options{
		Frequencies: freqs,
		DueDates:    repayment.DueDates(cfg.ScheduleDueDates),
	}, log.Named("repayment"))

	engine := escrow.NewEngine(escrow.Deps{
		Loans:         loans,
		Accounts:      mysql.NewEscrowRepository(gdb),
		Transactions:  mysql.NewTransactionRepository(gdb),
		Disbursements: mysql.NewDisbursementRepository(gdb),
		UoW:           tx,
		Gateway:       gw,
		Banks:         bankdir.New(rdb),
		Payees:        mysql.NewProfileReader(gdb),
		Schedule:      sched,
	}, escrow.Options{GatewayTimeout: cfg.PaymentTimeout()}, log.Named("escrow"))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = httpadp.NewValidator()
	e.Use(middleware.Recover(), requestLogger(log), appmw.Logger(log.Named("http")))

	httpadp.Register(e, httpadp.Routes{
		Health: httpadp.NewHandler(map[string]httpadp.Pinger{
			"mysql": sqlDB.PingContext,
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}),
		Loans:       httpadp.NewLoanHandler(loanuc.NewUsecase(loans, tx, log.Named("loan")).WithCurrency(cfg.Currency)),
		Negotiation: httpadp.NewNegotiationHandler(negotiation.NewUsecase(loans, mysql.NewOfferRepository(gdb), tx, log.Named("negotiation"))),
		Escrow:      httpadp.NewEscrowHandler(engine),
		Repayments:  httpadp.NewRepaymentHandler(sched),
		Webhooks:    httpadp.NewWebhookHandler(webhook.NewUsecase(engine, log.Named("webhook")), cfg.PaystackWebhookSecret),
		Idempotency: appmw.Idempotency(rdb, cfg.IdempotencyTTL(), log.Named("idempotency")),
	})
	if cfg.PaystackWebhookSecret == "" {
		log.Warn("PAYSTACK_WEBHOOK_SECRET not set; webhook signatures are not checked")
	}

	sweeper, err := repayment.NewSweeper(sched, cfg.OverdueSweepSpec, time.Minute)
	if err != nil {
		return err
	}
	sweeper.Start()
	defer func() { <-sweeper.Stop().Done() }()

	addr := ":" + cfg.AppPort
	errc := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("gateway", cfg.PaymentGateway))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func requestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				log.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	})
}
