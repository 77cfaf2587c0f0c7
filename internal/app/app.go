// Package app はコマンドライン引数の解析と依存関係の組み立てを行う。
package app

import (
	"context"
	"database/sql"
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

	"github.com/hitoshi/keyhole/internal/auth"
	"github.com/hitoshi/keyhole/internal/config"
	"github.com/hitoshi/keyhole/internal/database"
	"github.com/hitoshi/keyhole/internal/handler"
	"github.com/hitoshi/keyhole/internal/logger"
	"github.com/hitoshi/keyhole/internal/metrics"
	"github.com/hitoshi/keyhole/internal/middleware"
	"github.com/hitoshi/keyhole/internal/repository"
	"github.com/hitoshi/keyhole/internal/security"
	"github.com/hitoshi/keyhole/internal/session"
	"github.com/hitoshi/keyhole/internal/user"
	"github.com/hitoshi/keyhole/internal/view"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間。
const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// .envと環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. .envの読み込み（既存の環境変数は上書きしない）
	if err := config.LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
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
// argsにはos.Args[1:]を渡す。SIGINTまたはSIGTERMでコンテキストをキャンセルする。
func Run(w io.Writer, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd(w)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// openDatabase はDB接続プールを開き、疎通を確認する。
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")
	return db, nil
}

// newHasher は設定値からパスワードハッシャーを生成する。
func newHasher(cfg *config.Config, observer auth.HashObserver) *auth.Argon2idHasher {
	return auth.NewArgon2idHasher(auth.Params{
		Memory:      uint32(cfg.Argon2MemoryKiB),
		Iterations:  uint32(cfg.Argon2Iterations),
		Parallelism: uint8(cfg.Argon2Parallelism),
	}, int64(cfg.HashMaxConcurrent), observer)
}

// newSessionStore は設定値からセッションストアを生成する。
func newSessionStore(cfg *config.Config) *session.Store {
	var blockKey []byte
	if cfg.SessionEncryptionKey != "" {
		blockKey = []byte(cfg.SessionEncryptionKey)
	}
	return session.NewStore([]byte(cfg.SessionSecret), blockKey, session.Options{
		Name:   cfg.SessionCookieName,
		MaxAge: cfg.SessionMaxAge,
		Secure: cfg.CookieSecure,
		Domain: cfg.CookieDomain,
	})
}

// Server はHTTPサーバーとその付随リソース。
type Server struct {
	Handler     http.Handler
	rateLimiter *middleware.RateLimiter
}

// Close はバックグラウンドで動くリソースを停止する。
func (s *Server) Close() {
	s.rateLimiter.Stop()
}

// BuildServer は全依存関係をワイヤリングし、ルーターを構築する。
func BuildServer(cfg *config.Config, db *sql.DB, reg *prometheus.Registry) (*Server, error) {
	// 1. メトリクス
	collector := metrics.NewCollector(reg)

	// 2. リポジトリ・セキュリティ
	userRepo := repository.NewPostgresUserRepo(db)
	hasher := newHasher(cfg, collector)
	sanitizer := security.NewInputSanitizer()

	// 3. セッション・認証
	sessions := newSessionStore(cfg)
	identity := session.NewIdentity(userRepo)
	validator := auth.NewValidator(userRepo, hasher)
	authService := auth.NewService(validator, hasher, identity, userRepo, collector)
	userService := user.NewService(userRepo, validator, hasher, sanitizer)

	// 4. 画面
	renderer, err := view.NewRenderer(cfg.AppName)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	// 5. ルーター
	rateLimiter := middleware.NewRateLimiter(middleware.SignInRateLimiterConfig(cfg.SignInRateLimit))
	router := handler.NewRouter(&handler.RouterDeps{
		Logger:      slog.Default(),
		Sessions:    sessions,
		AuthGate:    middleware.NewAuthGate(identity, collector),
		RateLimiter: rateLimiter,
		CSRF: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Renderer:       renderer,
		PublicDir:      cfg.PublicDir,
		AuthService:    authService,
		ProfileService: userService,
		HealthChecker:  db,
		MetricsHandler: metrics.Handler(reg),
	})

	return &Server{Handler: router, rateLimiter: rateLimiter}, nil
}

// runServe はHTTPサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// 2. 依存関係の構築
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, "keyhole"),
	)

	srv, err := BuildServer(cfg, db, reg)
	if err != nil {
		return err
	}
	defer srv.Close()

	// 3. HTTPサーバーの起動
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           srv.Handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", server.Addr),
			slog.String("base_url", cfg.BaseURL),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("HTTP server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runRollback はstepsの数だけマイグレーションを戻す。0以下の場合はすべて戻す。
func runRollback(cfg *config.Config, steps int) error {
	slog.Info("rolling back database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		slog.Int("steps", steps),
	)

	if err := database.RollbackMigrations(cfg.DatabaseURL, steps); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}

	slog.Info("database rollback completed successfully")
	return nil
}

// printMigrationVersion は適用済みのマイグレーションバージョンを出力する。
func printMigrationVersion(w io.Writer, cfg *config.Config) error {
	version, dirty, err := database.MigrationVersion(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	fmt.Fprintf(w, "version: %d dirty: %t\n", version, dirty)
	return nil
}

// runSeed は初期ユーザーを投入する。既にユーザーがいる場合は何もしない。
func runSeed(ctx context.Context, cfg *config.Config) error {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	seeder := database.NewSeeder(repository.NewPostgresUserRepo(db), newHasher(cfg, nil))
	if _, err := seeder.Seed(ctx); err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(ctx context.Context, baseURL string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build health check request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
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
