package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "skuforge/internal/api/v1"
	"skuforge/internal/config"
	"skuforge/internal/exporter"
	"skuforge/internal/importer"
	"skuforge/internal/service/codegen"
	"skuforge/internal/store"
)

// Server HTTP服务器
type Server struct {
	router *gin.Engine
	store  *store.Store
	v1     *v1.Handler
	log    *zap.Logger
	http   *http.Server
}

// NewServer 创建服务器：准备数据目录、打开数据库并装配各组件
func NewServer(cfg *config.AppConfig, log *zap.Logger, version string) (*Server, error) {
	if log == nil {
		log = zap.L()
	}
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare data directory: %w", err)
	}

	sqliteStore, err := store.New(filepath.Join(dataDir, "skuforge.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	codes, err := codegen.NewGenerator(nil, cfg.Export.EANPrefix)
	if err != nil {
		sqliteStore.Close()
		return nil, fmt.Errorf("invalid export.ean_prefix: %w", err)
	}

	exportDir := ""
	if cfg.Export.KeepArtifacts {
		exportDir = filepath.Join(dataDir, "exports")
	}

	handler := v1.NewHandler(v1.Options{
		Store:          sqliteStore,
		Importer:       importer.NewCoordinator(sqliteStore, filepath.Join(dataDir, "uploads"), log.Named("importer")),
		Exporter:       exporter.NewExporter(sqliteStore, codes, exportDir, log.Named("exporter")),
		MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
		Version:        version,
	})

	s := &Server{
		router: gin.New(),
		store:  sqliteStore,
		v1:     handler,
		log:    log,
	}
	s.setupRoutes()

	log.Info("server initialized", zap.String("data_dir", dataDir), zap.String("ean_prefix", cfg.Export.EANPrefix))
	return s, nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())
	s.router.Use(v1.RequestLogger(s.log))

	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Operator-ID, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID, X-Export-Rows")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	api := s.router.Group("/api/v1")
	{
		s.v1.RegisterRoutes(api)
	}
}

// Handler 返回路由（用于测试）
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run 启动服务器，阻塞直到 ctx 取消后优雅关闭
func (s *Server) Run(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close 关闭数据库
func (s *Server) Close() error {
	return s.store.Close()
}

