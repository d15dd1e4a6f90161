package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/sharebox/internal/config"
	"github.com/xxxsen/sharebox/internal/db"
	"github.com/xxxsen/sharebox/internal/filestore"
	"github.com/xxxsen/sharebox/internal/handler"
	"github.com/xxxsen/sharebox/internal/job"
	"github.com/xxxsen/sharebox/internal/middleware"
	"github.com/xxxsen/sharebox/internal/pkg/jwt"
	"github.com/xxxsen/sharebox/internal/repo"
	"github.com/xxxsen/sharebox/internal/schedule"
	"github.com/xxxsen/sharebox/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "sharebox",
		Short: "sharebox file sharing server",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run sharebox server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			conn, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer conn.Close()
			return runServer(cfg, conn)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			conn, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer conn.Close()
			logutil.GetLogger(context.Background()).Info("migrations applied", zap.String("driver", cfg.Database.Driver))
			return nil
		},
	}

	var (
		tokenOwner string
		tokenTTL   time.Duration
	)
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "mint an owner bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if tokenOwner == "" {
				return fmt.Errorf("--user is required")
			}
			token, err := jwt.GenerateToken(tokenOwner, []byte(cfg.JWTSecret), tokenTTL)
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&tokenOwner, "user", "", "owner id to embed in the token")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")

	rootCmd.AddCommand(runCmd, migrateCmd, tokenCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", path))
	return cfg, nil
}

func openDB(cfg *config.Config) (*sqlx.DB, error) {
	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return conn, nil
}

func runServer(cfg *config.Config, conn *sqlx.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("file_store", cfg.FileStore.Type),
	)

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	fileRepo := repo.NewFileRepo(conn)
	shareRepo := repo.NewShareRepo(conn)

	fileCache := service.NewFileCache(fileRepo, cfg.Share.FileCacheSize, cfg.Share.FileCacheTTL())
	linkStore := service.NewShareLinkStore(shareRepo)
	issuer := service.NewTokenIssuer(fileRepo, linkStore, cfg.Share)
	gate := service.NewPasswordGate(linkStore, cfg.Share.VerifyConcurrency)
	counter := service.NewAccessCounter(linkStore)
	authorizer := service.NewDownloadAuthorizer(linkStore, fileCache, store, cfg.Share.DownloadURLTTL())

	fileService := service.NewFileService(fileRepo, store, fileCache)
	shareService := service.NewShareService(fileRepo, linkStore, issuer, gate, counter, authorizer)

	deps := handler.RouterDeps{
		Files:           handler.NewFileHandler(fileService, cfg.UploadMaxBytes),
		Shares:          handler.NewShareHandler(shareService),
		Blobs:           handler.NewBlobHandler(store),
		JWTSecret:       []byte(cfg.JWTSecret),
		AccessRateLimit: cfg.AccessRateLimit(),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if cfg.Cleanup.RetainDays > 0 {
		retention := job.NewShareRetentionJob(shareRepo, time.Duration(cfg.Cleanup.RetainDays)*24*time.Hour)
		if err := scheduler.AddJob(retention, cfg.Cleanup.Spec); err != nil {
			return fmt.Errorf("schedule retention job: %w", err)
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
