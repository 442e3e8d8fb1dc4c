package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// StatusResponse 系统状态响应
type StatusResponse struct {
	Version   string `json:"version"`
	Database  string `json:"database"`
	Templates int    `json:"templates"`
	Uptime    string `json:"uptime"`
}

// GetStatus 获取系统状态
// GET /api/v1/status
func (h *Handler) GetStatus(c *gin.Context) {
	resp := StatusResponse{
		Version:  h.version,
		Database: "ok",
		Uptime:   time.Since(h.startedAt).Truncate(time.Second).String(),
	}
	ctx := c.Request.Context()
	if err := h.store.Ping(ctx); err != nil {
		resp.Database = err.Error()
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	if items, err := h.store.ListTemplates(ctx, ""); err == nil {
		resp.Templates = len(items)
	}
	c.JSON(http.StatusOK, resp)
}
