package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/hitoshi/internhub/internal/api"
	"github.com/hitoshi/internhub/internal/auth"
	"github.com/hitoshi/internhub/internal/config"
	"github.com/hitoshi/internhub/internal/database"
	"github.com/hitoshi/internhub/internal/handler"
	"github.com/hitoshi/internhub/internal/lifecycle"
	"github.com/hitoshi/internhub/internal/logger"
	"github.com/hitoshi/internhub/internal/metrics"
	"github.com/hitoshi/internhub/internal/middleware"
	"github.com/hitoshi/internhub/internal/portal"
	"github.com/hitoshi/internhub/internal/repository"
	"github.com/hitoshi/internhub/internal/security"
	"github.com/hitoshi/internhub/internal/session"
	"github.com/hitoshi/internhub/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// .envを読み込み、JSON構造化ログをセットアップしてから環境変数のConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. .env（存在する場合のみ）
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	// 2. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	// 3. 環境変数から設定を読み込む
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
	cmd, known := lookupCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	if !known {
		slog.Warn("unknown command, falling back to serve", slog.String("arg", args[0]))
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("session_store", cfg.SessionStore),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// storage はセッションストアの実装と付随するリソースをまとめたもの。
type storage struct {
	repo   repository.BrowserStorageRepository
	health handler.HealthChecker
	memory *repository.MemoryBrowserStorageRepo // SESSION_STORE=memory の場合のみ
	close  func() error
}

// openStorage はSESSION_STOREに応じたブラウザストレージを開き、接続を確認する。
func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	switch cfg.SessionStore {
	case config.StoreRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		slog.Info("redis connection established")
		return &storage{
			repo:   repository.NewRedisBrowserStorageRepo(rdb),
			health: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			close:  rdb.Close,
		}, nil

	case config.StoreMemory:
		mem := repository.NewMemoryBrowserStorageRepo()
		slog.Warn("メモリストレージを使用します。再起動でセッションは失われます")
		return &storage{
			repo:   mem,
			health: func(context.Context) error { return nil },
			memory: mem,
			close:  func() error { return nil },
		}, nil

	default:
		db, err := connectDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &storage{
			repo:   repository.NewPostgresBrowserStorageRepo(db),
			health: db.PingContext,
			close:  db.Close,
		}, nil
	}
}

func connectDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	slog.Info("database connection established",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)
	return db, nil
}

// runServe はBFFサーバーモードで起動する。
// ストレージを開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. ブラウザストレージ
	st, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	// 2. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mc := metrics.NewCollector(reg)

	// 3. セッションと認証コンテキスト
	store := session.NewStore(st.repo, cfg.SessionMaxAge, slog.Default())
	provider := auth.NewProvider(store, auth.ProviderConfig{
		CacheSize:   cfg.ContextCacheSize,
		CacheTTL:    cfg.ContextCacheTTL,
		EmailDomain: cfg.ProfileEmailDomain,
	})

	// 4. バックエンドAPIクライアントとサービス層
	client := api.NewClient(cfg.APIBaseURL, &http.Client{Timeout: cfg.APITimeout}, mc, slog.Default())
	svc := portal.NewService(client, security.NewSanitizer(), mc, slog.Default(), portal.Config{
		Policy: lifecycle.SubmissionPolicy{
			AdvanceInternship: cfg.SubmissionAdvancesInternship,
			AdvanceProject:    cfg.SubmissionAdvancesProject,
		},
		BoardCacheSize: cfg.ContextCacheSize,
		BoardTTL:       cfg.ContextCacheTTL,
	})

	// 5. メモリストレージはワーカーと共有できないため、同じプロセスで掃除する
	if st.memory != nil {
		job := cleanup.NewMemoryCleanupJob(st.memory, mc, slog.Default())
		scheduler, err := cleanup.NewScheduler(job, cfg.CleanupSchedule, slog.Default())
		if err != nil {
			return err
		}
		go scheduler.Start(ctx)
	}

	// 6. ルーターの構築
	// configのレートはreq/min単位なのでreq/secに変換する
	rlCfg := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		rlCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		rlCfg.GeneralBurst = cfg.RateLimitGeneral
	}
	if cfg.RateLimitLogin > 0 {
		rlCfg.LoginRate = rate.Limit(float64(cfg.RateLimitLogin) / 60.0)
		rlCfg.LoginBurst = cfg.RateLimitLogin
	}

	router := handler.NewRouter(&handler.RouterDeps{
		Provider:          provider,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       middleware.NewRateLimiter(rlCfg),
		CookieConfig: middleware.BrowserCookieConfig{
			MaxAge:       cfg.SessionMaxAge,
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Logger:        slog.Default(),
		HealthChecker: st.health,
		Gatherer:      reg,
		Metrics:       mc,
		AuthClient:    client,
		Portal:        svc,
		Admin:         svc,
	})

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.APITimeout*2 + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("BFF server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen error: %w", err)
	case <-ctx.Done():
	}
	slog.Info("shutting down BFF server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("BFF server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// PostgreSQLの期限切れブラウザストレージをスケジュールに従って削除する。
// Redisはキーの有効期限で失効し、メモリストレージはserveプロセス内で掃除するため何もしない。
func runWorker(cfg *config.Config) error {
	if cfg.SessionStore != config.StorePostgres {
		slog.Info("worker has nothing to do for this session store",
			slog.String("session_store", cfg.SessionStore),
		)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := connectDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	job := cleanup.NewCleanupJob(db, metrics.NewCollector(reg), slog.Default())
	scheduler, err := cleanup.NewScheduler(job, cfg.CleanupSchedule, slog.Default())
	if err != nil {
		return err
	}

	slog.Info("worker starting", slog.String("schedule", cfg.CleanupSchedule))
	scheduler.Start(ctx)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.SessionStore != config.StorePostgres {
		slog.Info("migrations are only needed for the postgres session store",
			slog.String("session_store", cfg.SessionStore),
		)
		return nil
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
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
