package v1

import (
	"time"

	"github.com/gin-gonic/gin"

	"skuforge/internal/exporter"
	"skuforge/internal/importer"
	"skuforge/internal/store"
)

// Handler V1 API 处理器
type Handler struct {
	store     *store.Store
	importer  *importer.Coordinator
	exporter  *exporter.Exporter
	maxUpload int64
	version   string
	startedAt time.Time
}

// Options 处理器依赖
type Options struct {
	Store          *store.Store
	Importer       *importer.Coordinator
	Exporter       *exporter.Exporter
	MaxUploadBytes int64
	Version        string
}

// NewHandler 创建 V1 API 处理器
func NewHandler(opts Options) *Handler {
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 32 << 20
	}
	return &Handler{
		store:     opts.Store,
		importer:  opts.Importer,
		exporter:  opts.Exporter,
		maxUpload: maxUpload,
		version:   opts.Version,
		startedAt: time.Now(),
	}
}

// RegisterRoutes 注册 V1 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)

	// 模板
	router.POST("/templates", h.UploadTemplate)
	router.GET("/templates", h.ListTemplates)
	router.GET("/templates/:id", h.GetTemplate)
	router.DELETE("/templates/:id", h.DeleteTemplate)
	router.PUT("/templates/:id/file", h.ReuploadTemplate)
	router.PATCH("/templates/:id/mappings", h.UpdateMappings)
	router.GET("/templates/:id/inference", h.GetInference)
	router.GET("/import-logs", h.ListImportLogs)

	// 导出
	router.POST("/export", h.Export)

	// 定价
	router.GET("/price-adjustments", h.ListPriceAdjustments)
	router.PUT("/price-adjustments", h.SavePriceAdjustment)
	router.DELETE("/price-adjustments/:id", h.DeletePriceAdjustment)
	router.GET("/exchange-rates", h.ListExchangeRates)
	router.PUT("/exchange-rates/:marketplace", h.SetExchangeRate)

	// 类目与商品记录
	router.GET("/categories", h.ListCategories)
	router.PUT("/categories", h.PutCategories)
	router.GET("/listings", h.ListListings)
	router.PUT("/listings", h.PutListings)
}
