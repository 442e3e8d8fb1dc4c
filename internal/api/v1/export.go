package v1

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"skuforge/internal/exporter"
	"skuforge/internal/logging"
)

// ExportRequest 导出请求；templateId 为空时导出平铺 CSV
type ExportRequest struct {
	TemplateID  string   `json:"templateId"`
	Marketplace string   `json:"marketplace" binding:"required"`
	ListingIDs  []string `json:"listingIds"`
}

// Export 生成导出文件并直接下载
// POST /api/v1/export
func (h *Handler) Export(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "无效的导出参数: "+err.Error())
		return
	}

	log := logging.FromContext(c.Request.Context())
	art, err := h.exporter.Export(c.Request.Context(), exporter.Request{
		TemplateID:  req.TemplateID,
		Marketplace: req.Marketplace,
		ListingIDs:  req.ListingIDs,
		Progress: func(ev exporter.ProgressEvent) {
			log.Debug("export progress", zap.String("stage", ev.Stage), zap.Int("percent", ev.Percent))
		},
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Filename))
	c.Header("X-Export-Rows", fmt.Sprint(art.Rows))
	c.Data(http.StatusOK, art.ContentType, art.Data)
}
