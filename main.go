package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	config "github.com/Keoroanthony/customer-gateway/configs"
	"github.com/Keoroanthony/customer-gateway/internal/auth"
	"github.com/Keoroanthony/customer-gateway/internal/customers"
	"github.com/Keoroanthony/customer-gateway/internal/db"
	"github.com/Keoroanthony/customer-gateway/internal/handlers"
	"github.com/Keoroanthony/customer-gateway/internal/health"
	"github.com/Keoroanthony/customer-gateway/internal/httputil"
	"github.com/Keoroanthony/customer-gateway/internal/images"
	"github.com/Keoroanthony/customer-gateway/internal/logger"
	"github.com/Keoroanthony/customer-gateway/internal/middleware"
	"github.com/Keoroanthony/customer-gateway/internal/notifier"
	"github.com/Keoroanthony/customer-gateway/internal/store"
)

const shutdownGrace = 10 * time.Second

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type serveOptions struct {
	addr string
}

func newRootCommand() *cobra.Command {
	opts := &serveOptions{}

	root := &cobra.Command{
		Use:           "customer-gateway",
		Short:         "Authenticated REST gateway for customer records",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.addr, "addr", "", "listen address (defaults to :$PORT)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts)
		},
	})

	return root
}

func serve(ctx context.Context, opts *serveOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(os.Stdout, cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	st, closeStore, err := openStore(ctx, cfg.Store, log)
	if err != nil {
		return err
	}
	defer closeStore()

	hc := httputil.NewClient(cfg.Services.Timeout)

	validator, err := newValidator(ctx, cfg.Services, hc, log)
	if err != nil {
		return err
	}
	gate := auth.NewGate(validator, log)
	imgs := images.NewClient(cfg.Services.ImageURL, hc, log)

	dispatcher := notifier.NewDispatcher(log, newSenders(ctx, cfg, hc, log)...)
	defer dispatcher.Wait()

	svc := customers.NewService(st, imgs, log,
		customers.WithNotifier(dispatcher),
		customers.WithMaxPageSize(cfg.MaxPageSize),
	)

	agg := health.NewAggregator(log,
		health.Check{Name: "document store", Run: st.Ping},
		health.Check{Name: "identity service", Run: gate.Live},
		health.Check{Name: "image service", Run: imgs.Live},
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	gin.SetMode(gin.ReleaseMode)
	router := handlers.NewRouter(handlers.RouterConfig{
		Customers: svc,
		Gate:      gate,
		Health:    agg,
		Metrics:   middleware.NewMetrics(reg),
		Gatherer:  reg,
		Log:       log,
	})

	addr := opts.addr
	if addr == "" {
		addr = net.JoinHostPort("", cfg.Port)
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("addr", addr), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
		return err
	}
	log.Info("Server stopped")
	return nil
}

// openStore connects the configured backend. The returned func releases it.
func openStore(ctx context.Context, cfg config.StoreConfig, log *zap.Logger) (store.CustomerStore, func(), error) {
	switch cfg.Driver {
	case "postgres":
		conn, err := db.OpenPostgres(cfg.PostgresDSN, log, &store.CustomerRecord{})
		if err != nil {
			return nil, nil, err
		}
		return store.NewGormStore(conn), func() {
			if err := db.ClosePostgres(conn); err != nil {
				log.Error("Failed to close database", zap.Error(err))
			}
		}, nil
	default:
		client, err := db.ConnectMongo(ctx, cfg.MongoURI, log)
		if err != nil {
			return nil, nil, err
		}
		return store.NewMongoStore(client, cfg.MongoDatabase), func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := client.Disconnect(disconnectCtx); err != nil {
				log.Error("Failed to disconnect from MongoDB", zap.Error(err))
			}
		}, nil
	}
}

func newValidator(ctx context.Context, cfg config.ServicesConfig, hc *http.Client, log *zap.Logger) (auth.Validator, error) {
	if cfg.OIDCIssuer == "" {
		return auth.NewIAMValidator(cfg.IAMURL, hc, log), nil
	}

	log.Info("Validating tokens against OIDC issuer", zap.String("issuer", cfg.OIDCIssuer))
	v, err := auth.NewOIDCValidator(ctx, cfg.OIDCIssuer, hc)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC issuer: %w", err)
	}
	return v, nil
}

func newSenders(ctx context.Context, cfg config.Config, hc *http.Client, log *zap.Logger) []notifier.Sender {
	var senders []notifier.Sender

	if cfg.SMS.Enabled() {
		senders = append(senders, notifier.NewSMSSender(cfg.SMS, hc))
	}

	if cfg.Email.Enabled() {
		email, err := notifier.NewEmailSender(ctx, cfg.Email)
		if err != nil {
			log.Warn("Email notifications disabled", zap.Error(err))
		} else {
			senders = append(senders, email)
		}
	}

	return senders
}
