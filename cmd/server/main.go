package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	"github.com/joho/godotenv"
	"go.nhat.io/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.7.0"

	"github.com/dvmchung/crm-backend/internal/config"
	"github.com/dvmchung/crm-backend/internal/customer"
	"github.com/dvmchung/crm-backend/internal/logging"
	"github.com/dvmchung/crm-backend/internal/media"
	"github.com/dvmchung/crm-backend/internal/storage"
	"github.com/dvmchung/crm-backend/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_open_conns", cfg.Database.MaxOpenConns,
		"import_max_file_size", cfg.Import.MaxFileSize,
	)

	dbName := databaseName(cfg.Database.URL)

	// Wrap the pgx driver so every query carries an OpenTelemetry span
	// and the pool stats are reported as metrics.
	driverName, err := otelsql.Register("pgx",
		otelsql.AllowRoot(),
		otelsql.TraceQueryWithoutArgs(),
		otelsql.WithDatabaseName(dbName),
		otelsql.WithSystem(semconv.DBSystemPostgreSQL),
	)
	if err != nil {
		slog.Error("failed to register otelsql driver", "error", err)
		os.Exit(1)
	}

	db, err := sql.Open(driverName, cfg.Database.URL)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to database", "name", dbName)

	if err := otelsql.RecordStats(db); err != nil {
		slog.Warn("failed to record db stats", "error", err)
	}

	repo, err := storage.NewCustomerRepository(db)
	if err != nil {
		slog.Error("failed to create customer repository", "error", err)
		os.Exit(1)
	}

	service := customer.NewService(repo, customer.Options{
		RequireAddress: cfg.Import.RequireAddress,
		RequireType:    cfg.Import.RequireType,
	})

	var uploader media.Uploader
	if cfg.Media.CloudName != "" {
		uploader = media.NewCloudinary(media.CloudinaryConfig{
			CloudName:    cfg.Media.CloudName,
			UploadPreset: cfg.Media.UploadPreset,
			Timeout:      cfg.Media.Timeout,
		})
		slog.Info("avatar uploads enabled", "cloud", cfg.Media.CloudName)
	} else {
		slog.Info("avatar uploads disabled")
	}

	server := web.NewServer(service, uploader, cfg.Server, cfg.Import)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}

// databaseName extracts the database name from a connection URL for
// logging and telemetry; "" when the URL is not parseable.
func databaseName(dbURL string) string {
	u, err := url.Parse(dbURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}
