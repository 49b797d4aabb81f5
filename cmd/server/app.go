package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/stockfolio/internal/config"
	"github.com/and161185/stockfolio/internal/limiter"
	"github.com/and161185/stockfolio/internal/migrate"
	"github.com/and161185/stockfolio/internal/notify"
	"github.com/and161185/stockfolio/internal/quote"
	"github.com/and161185/stockfolio/internal/repository"
	"github.com/and161185/stockfolio/internal/repository/postgres"
	"github.com/and161185/stockfolio/internal/repository/sqlite"
	grpcserver "github.com/and161185/stockfolio/internal/server/grpc"
	httpserver "github.com/and161185/stockfolio/internal/server/http"
	"github.com/and161185/stockfolio/internal/service"
	"github.com/and161185/stockfolio/internal/token"
)

const shutdownGrace = 5 * time.Second

// store is the persistence selected by the DSN.
type store struct {
	accounts repository.AccountRepository
	holdings repository.HoldingRepository
	limiter  limiter.Limiter
	ping     func(context.Context) error
	close    func()
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (*store, error) {
	kind, target, err := cfg.Store()
	if err != nil {
		return nil, err
	}
	policy := limiter.Policy{Window: cfg.Limiter.Window, MaxFails: cfg.Limiter.MaxFails, BlockFor: cfg.Limiter.BlockFor}

	switch kind {
	case config.StorePostgres:
		n, err := migrate.UpPostgres(ctx, target)
		if err != nil {
			return nil, err
		}
		log.Info("migrations applied", zap.Int("count", n))
		db, err := postgres.New(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		return &store{
			accounts: postgres.NewAccountRepo(db),
			holdings: postgres.NewHoldingRepo(db),
			limiter:  limiter.NewPG(db.Pool, policy),
			ping:     db.Ping,
			close:    db.Close,
		}, nil
	default:
		db, err := sqlite.Open(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		return &store{
			accounts: sqlite.NewAccountRepo(db),
			holdings: sqlite.NewHoldingRepo(db),
			// a single-file store runs on a single node
			limiter: limiter.NewMemory(policy),
			ping:    db.Ping,
			close:   func() { _ = db.Close() },
		}, nil
	}
}

func newNotifier(cfg *config.Config, log *zap.Logger) notify.Notifier {
	c := notify.Composer{VerifyURL: cfg.Mail.VerifyURL}
	if cfg.Mail.SMTPAddr == "" {
		log.Warn("no smtp relay configured, verification links are logged")
		return notify.NewLog(c, log)
	}
	return notify.NewSMTP(notify.SMTPConfig{
		Addr:     cfg.Mail.SMTPAddr,
		Username: cfg.Mail.SMTPUser,
		Password: cfg.Mail.SMTPPassword,
		From:     cfg.Mail.From,
	}, c)
}

// app owns the listeners and everything they depend on.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	store *store

	http   *http.Server
	grpc   *grpc.Server
	health *health.Server
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	codec, err := token.NewCodec([]byte(cfg.Token.Key), token.WithLeeway(cfg.Token.Leeway))
	if err != nil {
		st.close()
		return nil, err
	}
	policy, err := service.ParseNotifyFailurePolicy(cfg.Mail.NotifyPolicy)
	if err != nil {
		st.close()
		return nil, err
	}

	authSvc := service.NewAuthService(st.accounts, codec, newNotifier(cfg, log),
		service.WithLimiter(st.limiter),
		service.WithTokenTTL(cfg.Token.AccessTTL, cfg.Token.RefreshTTL),
		service.WithNotifyFailurePolicy(policy),
		service.WithLogger(log.Named("auth")),
	)
	quotes := quote.New(quote.Config{
		BaseURL:   cfg.Quote.BaseURL,
		AppKey:    cfg.Quote.AppKey,
		AppSecret: cfg.Quote.AppSecret,
		Timeout:   cfg.Quote.Timeout,
		RPS:       cfg.Quote.RPS,
	}, log.Named("quote"))
	holdingsSvc := service.NewHoldingsService(st.accounts, st.holdings, quotes, quote.DefaultCatalog(), 0)

	// gRPC
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			grpcserver.RecoverUnary(log),
			grpcserver.LoggingUnary(log),
		),
	}
	if cfg.TLS.Enabled() {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		if err != nil {
			st.close()
			return nil, fmt.Errorf("load TLS cert/key: %w", err)
		}
		opts = append(opts, grpc.Creds(creds))
	}
	gs := grpc.NewServer(opts...)
	grpcserver.New(authSvc, holdingsSvc, log.Named("grpc")).Register(gs)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	if cfg.Dev {
		reflection.Register(gs)
	}

	// REST
	if !cfg.Dev {
		gin.SetMode(gin.ReleaseMode)
	}
	rest := httpserver.New(authSvc, holdingsSvc, log.Named("http"),
		httpserver.WithHealthCheck(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return st.ping(ctx)
		}))

	return &app{
		cfg:    cfg,
		log:    log,
		store:  st,
		grpc:   gs,
		health: hs,
		http: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           rest.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run serves both listeners until ctx is cancelled or one of them fails.
func (a *app) Run(ctx context.Context) error {
	glis, err := net.Listen("tcp", a.cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	hlis, err := net.Listen("tcp", a.cfg.HTTPAddr)
	if err != nil {
		_ = glis.Close()
		return fmt.Errorf("listen http: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("grpc listening", zap.String("addr", glis.Addr().String()), zap.Bool("tls", a.cfg.TLS.Enabled()))
		if err := a.grpc.Serve(glis); !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		a.log.Info("http listening", zap.String("addr", hlis.Addr().String()), zap.Bool("tls", a.cfg.TLS.Enabled()))
		var err error
		if a.cfg.TLS.Enabled() {
			err = a.http.ServeTLS(hlis, a.cfg.TLS.CertFile, a.cfg.TLS.KeyFile)
		} else {
			err = a.http.Serve(hlis)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		a.shutdown()
		return nil
	})
	return g.Wait()
}

func (a *app) shutdown() {
	a.health.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := a.http.Shutdown(ctx); err != nil {
		a.log.Warn("http shutdown", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		a.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.grpc.Stop()
	}
}

// Close releases the store.
func (a *app) Close() { a.store.close() }
