package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nemonet1337/drumledger/internal/config"
	"github.com/nemonet1337/drumledger/pkg/inventory"
	"github.com/nemonet1337/drumledger/pkg/inventory/events"
	"github.com/nemonet1337/drumledger/pkg/inventory/sources"
	"github.com/nemonet1337/drumledger/pkg/inventory/storage"
)

func main() {
	configPath := flag.String("config", "", "設定ファイルのパス (YAML)")
	flag.Parse()

	// .envがあれば読み込む
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf(".envの読み込みに失敗しました: %v", err)
	}

	// 設定読み込み
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("設定読み込みに失敗しました:", err)
	}

	// ログ設定
	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatal("ログ初期化に失敗しました:", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// ファイルストア
	store, closeStore, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.Fatal("ストア初期化に失敗しました", zap.Error(err))
	}
	defer closeStore()

	managerConfig, err := cfg.ManagerConfig()
	if err != nil {
		logger.Fatal("マネージャー設定の作成に失敗しました", zap.Error(err))
	}

	opts := []inventory.Option{
		inventory.WithOrderSource(inventory.SourceInHouse,
			sources.NewProductionSource(store, cfg.Store.ProductionName, managerConfig.Rules, logger)),
		inventory.WithOrderSource(inventory.SourceConsigned,
			sources.NewReceiptSource(store, cfg.Store.ReceiptName, managerConfig.Rules, logger)),
		inventory.WithStockSource(sources.NewStockSheet(store, cfg.Store.StockName, logger)),
	}

	// 分散ロック
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("Redis接続に失敗しました", zap.Error(err))
		}
		defer rdb.Close()
		opts = append(opts, inventory.WithLocker(storage.NewRedisLocker(rdb)))
	}

	// イベント発行
	var publisher inventory.EventPublisher = events.NewLogPublisher(logger)
	if cfg.PubSub.Enabled {
		ps, err := events.NewPubSubPublisher(ctx, cfg.PubSub.ProjectID, cfg.PubSub.Topic, cfg.PubSub.CredentialsJSON, logger)
		if err != nil {
			logger.Fatal("Pub/Sub初期化に失敗しました", zap.Error(err))
		}
		defer ps.Close()
		publisher = ps
	}

	// メトリクス
	var metricsHandler http.Handler
	if cfg.API.EnableMetrics {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, inventory.WithMetrics(inventory.NewMetrics(registry)))
		metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}

	manager := inventory.NewManager(store, publisher, logger, managerConfig, opts...)

	// HTTPハンドラー設定
	handlers := NewHandlers(manager, manager, nil, logger)
	router := setupRouter(handlers, metricsHandler, cfg.API.EnableCORS)

	// HTTPサーバー設定
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.API.Port),
		Handler:      router,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		IdleTimeout:  cfg.API.IdleTimeout,
	}

	// グレースフルシャットダウン設定
	go func() {
		logger.Info("ドラム台帳APIサーバーを開始します",
			zap.Int("port", cfg.API.Port),
			zap.String("store", cfg.Store.Backend),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("サーバー開始に失敗しました", zap.Error(err))
		}
	}()

	// シャットダウンシグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています...")

	// グレースフルシャットダウン
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("サーバーシャットダウンに失敗しました", zap.Error(err))
	}

	logger.Info("サーバーが正常に停止しました")
}

// openStore creates the configured file store backend
// 設定されたファイルストアを作成
func openStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (inventory.FileStore, func(), error) {
	noop := func() {}
	switch cfg.Backend {
	case "local":
		s, err := storage.NewLocalStore(cfg.Dir, logger)
		return s, noop, err
	case "gcs":
		s, err := storage.NewGCSStore(ctx, cfg.Bucket, cfg.Prefix, cfg.CredentialsJSON, logger)
		if err != nil {
			return nil, noop, err
		}
		return s, func() { _ = s.Close() }, nil
	case "postgres":
		s, err := storage.NewPostgreSQLStorage(cfg.DSN, logger)
		if err != nil {
			return nil, noop, err
		}
		return s, func() { _ = s.Close() }, nil
	case "memory":
		return storage.NewMemoryStore(), noop, nil
	default:
		return nil, noop, fmt.Errorf("無効なストア種別: %s", cfg.Backend)
	}
}

// setupRouter sets up HTTP routes
// HTTPルートを設定
func setupRouter(handlers *Handlers, metricsHandler http.Handler, enableCORS bool) *mux.Router {
	router := mux.NewRouter()

	// ヘルスチェック
	router.HandleFunc("/health", handlers.HealthCheck).Methods("GET")
	if metricsHandler != nil {
		router.Handle("/metrics", metricsHandler).Methods("GET")
	}

	// API v1ルート
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(actorMiddleware)

	// 照合
	api.HandleFunc("/references/{kind}/{ref}/reconcile", handlers.Reconcile).Methods("POST")
	api.HandleFunc("/references/{kind}/scan", handlers.ScanReference).Methods("POST")

	// ロット・移動
	api.HandleFunc("/lots/{lot}", handlers.GetLot).Methods("GET")
	api.HandleFunc("/lots/{lot}/moves", handlers.MoveDrums).Methods("POST")

	// 照会
	api.HandleFunc("/drums", handlers.SearchDrums).Methods("GET")
	api.HandleFunc("/locations/summary", handlers.LocationSummary).Methods("GET")
	api.HandleFunc("/floors", handlers.ListFloors).Methods("GET")
	api.HandleFunc("/floors/{floor}/map", handlers.FloorMap).Methods("GET")
	api.HandleFunc("/floors/{floor}/zones/{zone}", handlers.ZoneDrums).Methods("GET")
	api.HandleFunc("/stock/{itemCode}/{lot}", handlers.StockSummary).Methods("GET")
	api.HandleFunc("/aging", handlers.Aging).Methods("GET")

	// 履歴管理
	api.HandleFunc("/moves", handlers.GetHistory).Methods("GET")
	api.HandleFunc("/moves/rollback", handlers.Rollback).Methods("POST")

	// 保守
	api.HandleFunc("/backups", handlers.Backup).Methods("POST")
	api.HandleFunc("/export.xlsx", handlers.Export).Methods("GET")

	if enableCORS {
		router.Use(corsMiddleware)
	}

	// ログ機能
	router.Use(loggingMiddleware(handlers.logger))

	return router
}

// actorMiddleware attaches the X-User-Name header to the request context
// X-User-Nameヘッダーを操作者としてコンテキストに設定
func actorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSpace(r.Header.Get("X-User-Name"))
		if name != "" && len(name) <= 50 && inventory.IsPrintable(name) {
			r = r.WithContext(inventory.WithActor(r.Context(), name))
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware allows browser clients from any origin
// CORS設定
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-Name")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs HTTP requests
// HTTPリクエストをログ出力するミドルウェア
func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			// リクエスト処理
			next.ServeHTTP(rec, r)

			// ログ出力
			logger.Info("HTTPリクエスト",
				zap.String("method", r.Method),
				zap.String("url", r.URL.Path),
				zap.Int("status", rec.status),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
