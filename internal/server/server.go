package server

import (
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"wardboard/internal/api"
	"wardboard/internal/config"
	"wardboard/internal/importer"
	"wardboard/internal/session"
	"wardboard/internal/store"
)

// Server HTTPサーバー
type Server struct {
	router      *gin.Engine
	store       *store.Store
	session     *session.Session
	coordinator *importer.Coordinator
	api         *api.Handler
}

// NewServer サーバーを組み立てる
func NewServer(cfg *config.AppConfig) *Server {
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	if _, err := config.EnsureDataDir(cfg); err != nil {
		log.Printf("[server] データディレクトリの作成に失敗: %v", err)
	}

	sqliteStore, err := store.New(config.GetDataPath(cfg, "", "wardboard.db"))
	if err != nil {
		// スナップショットなしでも分析機能は動く
		log.Printf("[server] データベースの初期化に失敗（永続化なしで続行）: %v", err)
		sqliteStore = nil
	}

	sess := session.New()

	maxBackups := cfg.Data.MaxBackups
	if !cfg.Data.AutoBackup {
		maxBackups = 0
	}
	coordinator := importer.NewCoordinator(sess, sqliteStore, config.GetDataPath(cfg, "backups", ""), maxBackups)

	if restored, err := coordinator.Restore(); err != nil {
		log.Printf("[server] スナップショットの復元に失敗: %v", err)
	} else if restored {
		log.Printf("[server] 前回のデータを復元しました")
	}

	// 目標値CSVが設定されていれば起動時に読み込む
	if path := cfg.Hospital.TargetCSVPath; path != "" && sess.HasData() {
		if f, err := os.Open(path); err != nil {
			log.Printf("[server] 目標値CSVを開けませんでした: %v", err)
		} else {
			if n, err := coordinator.ImportTargets(f); err != nil {
				log.Printf("[server] 目標値CSVの取り込みに失敗: %v", err)
			} else {
				log.Printf("[server] 目標値を %d 件読み込みました", n)
			}
			f.Close()
		}
	}

	s := &Server{
		router:      gin.Default(),
		store:       sqliteStore,
		session:     sess,
		coordinator: coordinator,
		api:         api.NewHandler(cfg, sess, coordinator),
	}

	s.setupRoutes()

	return s
}

// setupRoutes ルートを設定する
func (s *Server) setupRoutes() {
	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	apiGroup := s.router.Group("/api")
	{
		s.api.RegisterRoutes(apiGroup)
	}

	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// Run サーバーを起動する
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Close 保持しているリソースを閉じる
func (s *Server) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// Router ルーターを取得する（テスト用）
func (s *Server) Router() *gin.Engine {
	return s.router
}
