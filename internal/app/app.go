// Package app はサブコマンドの解析と依存関係のワイヤリングを行う。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/salonbook/internal/availability"
	"github.com/hitoshi/salonbook/internal/booking"
	"github.com/hitoshi/salonbook/internal/config"
	"github.com/hitoshi/salonbook/internal/database"
	"github.com/hitoshi/salonbook/internal/handler"
	"github.com/hitoshi/salonbook/internal/logger"
	"github.com/hitoshi/salonbook/internal/metrics"
	"github.com/hitoshi/salonbook/internal/middleware"
	"github.com/hitoshi/salonbook/internal/repository"
	"github.com/hitoshi/salonbook/internal/security"
	"github.com/hitoshi/salonbook/internal/seed"
	"github.com/hitoshi/salonbook/internal/worker/stats"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd, rest := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "5000"
		}
		opts, err := parseHealthcheckFlags(rest, port, os.Stderr)
		if err != nil {
			return err
		}
		return runHealthcheck(opts.Port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("store", cfg.StoreDriver),
		slog.String("port", cfg.ServerPort),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandMigrate:
		return runMigrate(ctx, cfg)
	case CommandSeed:
		opts, err := parseSeedFlags(rest, os.Stderr)
		if err != nil {
			return err
		}
		return runSeed(ctx, cfg, opts)
	default:
		return runServe(ctx, cfg)
	}
}

// openStore は設定に応じたRecord Storeを開き、疎通を確認する。
// 呼び出し側はClose()でストアを閉じること。
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	var store repository.Store

	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		store = repository.NewPostgresStore(db)
	default:
		pool, err := database.OpenSQLite(database.SQLiteConfig{
			Path:     cfg.SQLitePath,
			PoolSize: cfg.SQLitePoolSize,
			Logger:   slog.Default(),
		})
		if err != nil {
			return nil, err
		}
		store = repository.NewSQLiteStore(pool)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := store.PingContext(pingCtx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to connect to %s store: %w", cfg.StoreDriver, err)
	}

	slog.Info("store connection established", slog.String("store", cfg.StoreDriver))
	return store, nil
}

// services はserveで使うドメインサービスの組。
type services struct {
	availability *availability.Service
	writer       *booking.Writer
}

// newServices はストアとメトリクスからドメインサービスを組み立てる。
func newServices(cfg *config.Config, store repository.Store, collector metrics.MetricsCollector) *services {
	allowList := security.NewAllowList(cfg.AllowedRegistrants)
	if allowList.Len() == 0 {
		slog.Warn("ALLOWED_REGISTRANTS is empty; master registration is disabled")
	}

	return &services{
		availability: availability.NewService(store, store.Masters()),
		writer: booking.NewWriter(
			store.Masters(), store.Schedules(), store.Bookings(),
			allowList, security.NewTextSanitizer(), collector,
		),
	}
}

// newRouter はHTTPルーターを組み立てる。gathererがnilの場合は/metricsを公開しない。
func newRouter(cfg *config.Config, store repository.Store, svc *services, rl *middleware.RateLimiter, gatherer prometheus.Gatherer) http.Handler {
	return handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rl,
		BotToken:          cfg.BotToken,

		Masters:       store.Masters(),
		Slots:         svc.availability,
		OwnerBookings: store.Bookings(),
		HealthChecker: store,

		Writer: svc.writer,

		MetricsGatherer: gatherer,
	})
}

// newMetrics はメトリクスのレジストリとコレクターを生成する。
func newMetrics() (*prometheus.Registry, *metrics.Collector) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.NewCollector(reg)
}

// runServe はAPIサーバーモードで起動する。
// ストアを開き、全依存関係をワイヤリングし、HTTPサーバーと空き枠集計ジョブを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	// 1. ストア
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	// 2. メトリクス
	reg, collector := newMetrics()
	var gatherer prometheus.Gatherer
	if cfg.MetricsEnabled {
		gatherer = reg
	}

	// 3. ドメインサービス
	svc := newServices(cfg, store, collector)

	// 4. ルーター
	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig(cfg.RateLimitIngest))
	defer rl.Stop()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      newRouter(cfg, store, svc, rl, gatherer),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 5. 空き枠集計ジョブ
	jobCtx, cancelJob := context.WithCancel(ctx)
	defer cancelJob()
	jobDone := make(chan struct{})
	statsJob := stats.NewJob(svc.availability, collector, slog.Default())
	go func() {
		defer close(jobDone)
		if err := statsJob.Start(jobCtx, cfg.StatsSchedule); err != nil {
			slog.Error("stats job failed to start", slog.String("error", err.Error()))
		}
	}()

	// 6. HTTPサーバー
	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down API server...")
	case err := <-serverErr:
		if err != nil {
			cancelJob()
			<-jobDone
			return fmt.Errorf("server listen error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	cancelJob()
	<-jobDone

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はストアのスキーマを最新にする。
// PostgreSQLは埋め込みマイグレーションを適用し、SQLiteは接続時にスキーマを作成する。
func runMigrate(ctx context.Context, cfg *config.Config) error {
	if cfg.StoreDriver == config.StoreDriverPostgres {
		slog.Info("running database migrations",
			slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		)
		version, err := database.RunMigrations(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		slog.Info("database migrations completed successfully", slog.Uint64("version", uint64(version)))
		return nil
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	defer store.Close()

	slog.Info("sqlite schema is up to date", slog.String("path", cfg.SQLitePath))
	return nil
}

// runSeed はシードファイルのマスターとスケジュールを投入する。
func runSeed(ctx context.Context, cfg *config.Config, opts seedOptions) error {
	var (
		file *seed.File
		err  error
	)
	if opts.File == "" {
		file, err = seed.Default()
	} else {
		file, err = seed.Load(opts.File)
	}
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	seeder := seed.NewSeeder(store.Masters(), store.Schedules(), slog.Default())
	result, err := seeder.Apply(ctx, file)
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	slog.Info("seed completed",
		slog.Int("created", result.Created),
		slog.Int("existing", result.Existing),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
