package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nemonet1337/hotelZaiGo/internal/config"
	"github.com/nemonet1337/hotelZaiGo/pkg/warehouse"
	"github.com/nemonet1337/hotelZaiGo/pkg/warehouse/storage"
)

func main() {
	// 設定読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("設定読み込みに失敗しました:", err)
	}

	// ログ設定
	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		log.Fatal("ログ初期化に失敗しました:", err)
	}
	defer logger.Sync()

	// 永続化コラボレータ接続（メモリのみの運用も可）
	var store warehouse.Storage
	if cfg.Stock.Persist {
		pg, err := storage.NewPostgreSQLStorage(cfg.DSN(), logger)
		if err != nil {
			logger.Fatal("データベース接続に失敗しました", zap.Error(err))
		}
		defer pg.Close()
		store = pg
	}

	// 在庫エンジン初期化
	engineConfig := &warehouse.Config{
		AllowNegativeStock: cfg.Stock.AllowNegativeStock,
		AuditEnabled:       cfg.Stock.AuditEnabled,
		AlertsEnabled:      cfg.Stock.AlertsEnabled,
	}
	registry := warehouse.NewRegistry(store, nil, logger, engineConfig)

	// セッション開始時に状態をメモリへ読み込む
	if err := registry.LoadState(context.Background()); err != nil {
		logger.Fatal("状態読み込みに失敗しました", zap.Error(err))
	}

	// HTTPハンドラー設定
	handlers := NewHandlers(registry, logger)
	router := setupRouter(handlers, cfg.API.EnableCORS)

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
		logger.Info("倉庫APIサーバーを開始します", zap.Int("port", cfg.API.Port))
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
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("サーバーシャットダウンに失敗しました", zap.Error(err))
	}

	logger.Info("サーバーが正常に停止しました")
}

// buildLogger builds a zap logger from the logging configuration
// ログ設定からzapロガーを構築
func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = level

	return zapCfg.Build()
}

// setupRouter sets up HTTP routes
// HTTPルートを設定
func setupRouter(handlers *Handlers, enableCORS bool) *mux.Router {
	router := mux.NewRouter()

	// ヘルスチェックとメトリクス
	router.HandleFunc("/health", handlers.HealthCheck).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// API v1ルート
	api := router.PathPrefix("/api/v1").Subrouter()

	// 倉庫と資材
	api.HandleFunc("/warehouses", handlers.AddWarehouse).Methods("POST")
	api.HandleFunc("/warehouses", handlers.ListWarehouses).Methods("GET")
	api.HandleFunc("/warehouses/{warehouseId}", handlers.GetWarehouse).Methods("GET")
	api.HandleFunc("/warehouses/{warehouseId}/materials", handlers.AddMaterial).Methods("POST")

	// 商品カタログ
	api.HandleFunc("/products", handlers.AddProduct).Methods("POST")
	api.HandleFunc("/products", handlers.ListProducts).Methods("GET")
	api.HandleFunc("/products/{productId}", handlers.GetProduct).Methods("GET")

	// 在庫操作
	api.HandleFunc("/consumption", handlers.Consume).Methods("POST")
	api.HandleFunc("/transfers", handlers.Transfer).Methods("POST")

	// 低在庫と監査ログ
	api.HandleFunc("/low-stock", handlers.LowStock).Methods("GET")
	api.HandleFunc("/logs", handlers.Logs).Methods("GET")
	api.HandleFunc("/reports/audit", handlers.AuditReport).Methods("GET")

	// 移動承認（予約済み拡張）
	api.HandleFunc("/transfer-requests", handlers.RequestTransfer).Methods("POST")
	api.HandleFunc("/transfer-requests", handlers.ListTransferRequests).Methods("GET")
	api.HandleFunc("/transfer-requests/{requestId}/approve", handlers.ApproveTransfer).Methods("POST")
	api.HandleFunc("/transfer-requests/{requestId}/reject", handlers.RejectTransfer).Methods("POST")

	// CORS設定（開発用）
	if enableCORS {
		router.Use(corsMiddleware)
	}

	// メトリクスとログ
	router.Use(metricsMiddleware)
	router.Use(loggingMiddleware(handlers.logger))

	return router
}

// corsMiddleware sets permissive CORS headers
// 許容的なCORSヘッダーを設定するミドルウェア
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
// HTTPリクエストをログ出力するミドルウェア
func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			logger.Info("HTTPリクエスト",
				zap.String("method", r.Method),
				zap.String("url", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
