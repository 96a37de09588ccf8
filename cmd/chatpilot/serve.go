package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chatpilot-hq/console/internal/audit"
	"github.com/chatpilot-hq/console/internal/auth"
	"github.com/chatpilot-hq/console/internal/dashboard"
	"github.com/chatpilot-hq/console/internal/platform/server"
	"github.com/chatpilot-hq/console/internal/platform/telemetry"
	"github.com/chatpilot-hq/console/internal/rbac"
)

const devTenantID = "00000000-0000-0000-0000-0000000000d0"

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	logger := telemetry.NewLogger(cfg.Log.Level, cfg.Log.Format)
	telemetry.SetDefault(logger)

	tokenSvc := a.tokens()
	if !tokenSvc.Verifies() {
		slog.Warn("no signing key configured; bearer tokens are not signature-checked")
	}

	auditLogger := audit.NewAsyncLogger(audit.SlogSink{Logger: logger}, audit.LoggerConfig{
		BufferSize:    cfg.Audit.BufferSize,
		BatchSize:     cfg.Audit.BatchSize,
		FlushInterval: time.Duration(cfg.Audit.FlushIntervalMs) * time.Millisecond,
	})
	defer func() {
		if err := auditLogger.Close(); err != nil {
			slog.Error("closing audit logger", "error", err)
		}
	}()

	engine := rbac.NewEvaluator()
	client := a.client()

	deps := server.Dependencies{
		Auth:               tokenSvc,
		Dashboard:          dashboard.NewHandler(client, engine, dashboard.WithAuditLogger(auditLogger)),
		RBACAuditLogger:    audit.RBACAdapter{Logger: auditLogger},
		Backend:            client,
		Logger:             logger,
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
	}
	if cfg.Auth.DevMode {
		role := rbac.Role(cfg.Auth.DevRole)
		if !role.Valid() {
			return fmt.Errorf("auth.devrole: %w: %q", rbac.ErrUnknownRole, cfg.Auth.DevRole)
		}
		slog.Warn("dev mode enabled; \"Bearer dev\" is accepted", "role", role)
		deps.DevMode = true
		deps.DevIdentity = &auth.Identity{
			UserID:   "dev-user",
			TenantID: devTenantID,
			Name:     "Developer",
			Role:     string(role),
		}
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := server.New(addr, deps)

	slog.Info("chatpilot starting", "addr", addr, "backend", cfg.Backend.URL)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	slog.Info("chatpilot stopped")
	return nil
}
