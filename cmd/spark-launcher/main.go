package main

import (
	"context"
	"crypto/tls"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/go-logr/zapr"
	ctrl "sigs.k8s.io/controller-runtime"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"
	ctrlconfig "sigs.k8s.io/controller-runtime/pkg/client/config"

	"github.com/telekom/k8s-spark-launcher/pkg/api"
	"github.com/telekom/k8s-spark-launcher/pkg/audit"
	"github.com/telekom/k8s-spark-launcher/pkg/cli"
	"github.com/telekom/k8s-spark-launcher/pkg/config"
	"github.com/telekom/k8s-spark-launcher/pkg/submit"
	"github.com/telekom/k8s-spark-launcher/pkg/telemetry"
	"github.com/telekom/k8s-spark-launcher/pkg/utils"
	"github.com/telekom/k8s-spark-launcher/pkg/version"
)

func main() {
	cliConfig := cli.Parse()

	zl := setupLogger(cliConfig.Debug)
	// Ensure controller-runtime uses our zap logger to avoid its default stacktrace output
	ctrl.SetLogger(zapr.NewLogger(zl))

	log := zl.Sugar()
	log.With("version", version.Version).Info("Starting spark launcher api")

	cfg, err := config.Load(cliConfig.ConfigPath)
	if err != nil {
		log.Fatalf("Error loading config for spark launcher: %v", err)
	}

	if cliConfig.Debug {
		cliConfig.Print(log)
		log.Infof("%#v", cfg)
	}

	_, telemetryShutdown, err := telemetry.Init(context.Background(), cfg.Telemetry, version.Version, log)
	if err != nil {
		log.Fatalf("Error initializing tracing: %v", err)
	}

	auditService, err := audit.NewService(cfg.Audit, zl)
	if err != nil {
		log.Fatalf("Error creating audit service: %v", err)
	}

	var auth *api.AuthHandler
	if cfg.AuthorizationServer.Enabled {
		auth = api.NewAuth(log, cfg).WithAuditService(auditService)
	}

	var kube ctrlclient.Client
	if cliConfig.DisableKubernetes {
		log.Info("Kubernetes access disabled, submissions can be prepared but not submitted")
	} else {
		restConfig, err := ctrlconfig.GetConfigWithContext(cfg.Kubernetes.Context)
		if err != nil {
			log.Fatalf("Error loading kubernetes configuration: %v", err)
		}
		scheme, err := utils.CreateScheme()
		if err != nil {
			log.Fatalf("Error creating scheme: %v", err)
		}
		kube, err = ctrlclient.New(restConfig, ctrlclient.Options{Scheme: scheme})
		if err != nil {
			log.Fatalf("Error creating kubernetes client: %v", err)
		}
	}

	var middleware []gin.HandlerFunc
	if auth != nil {
		middleware = append(middleware, auth.Middleware())
	}
	submissions := api.NewSubmissionsController(log, cfg, kube, submit.NewStore(), auditService, nil, middleware...)

	server := api.NewServer(zl, cfg, cliConfig.Debug, auth)
	if err := server.RegisterAll([]api.APIController{submissions}); err != nil {
		log.Fatalf("Error registering launcher controllers: %v", err)
	}

	timeouts := cfg.Server.GetServerTimeouts()
	srv := &http.Server{
		Addr:              cfg.Server.ListenAddress,
		Handler:           server.Handler(),
		ReadTimeout:       timeouts.GetReadTimeout(),
		ReadHeaderTimeout: timeouts.GetReadHeaderTimeout(),
		WriteTimeout:      timeouts.GetWriteTimeout(),
		IdleTimeout:       timeouts.GetIdleTimeout(),
		MaxHeaderBytes:    timeouts.GetMaxHeaderBytes(),
	}

	useTLS := cfg.Server.TLSCertFile != "" && cfg.Server.TLSKeyFile != ""
	if useTLS {
		srv.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		if !cliConfig.EnableHTTP2 {
			cli.DisableHTTP2(srv.TLSConfig)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Infow("Listening", "address", cfg.Server.ListenAddress, "tls", useTLS)
		var err error
		if useTLS {
			err = srv.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		log.Fatalf("Server error: %v", err)
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GetShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Graceful shutdown failed", "error", err)
	}

	submissions.Close()
	server.Close()
	if err := telemetryShutdown(context.Background()); err != nil {
		log.Errorw("Shutting down tracing failed", "error", err)
	}
	if err := auditService.Close(); err != nil {
		log.Errorw("Closing audit service failed", "error", err)
	}
}

func setupLogger(debug bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	// Disable automatic stacktraces for non-fatal levels to avoid noisy traces in WARN/INFO logs
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.UTC().Format(time.RFC3339))
	}
	cfg.EncoderConfig.TimeKey = "ts"
	logger, err := cfg.Build()
	if err != nil {
		stdlog.Fatalf("failed to set up logger: %v", err)
	}
	return logger
}
