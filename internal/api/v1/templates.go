package v1

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"skuforge/internal/importer"
	"skuforge/internal/model"
)

// HeaderOperatorID 上传者身份头，缺省时由 importer 记为 AnonymousOwner
const HeaderOperatorID = "X-Operator-ID"

// UploadTemplate 上传模板并推断结构
// POST /api/v1/templates
func (h *Handler) UploadTemplate(c *gin.Context) {
	h.upload(c, "")
}

// ReuploadTemplate 重新上传，保留模板 id 并整体替换
// PUT /api/v1/templates/:id/file
func (h *Handler) ReuploadTemplate(c *gin.Context) {
	h.upload(c, c.Param("id"))
}

func (h *Handler) upload(c *gin.Context, replaceID string) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("文件超过 %d 字节上限", h.maxUpload)})
			return
		}
		badRequest(c, "未找到上传文件")
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, "读取上传文件失败")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		badRequest(c, "读取上传文件失败")
		return
	}

	res, err := h.importer.Upload(c.Request.Context(), importer.UploadOptions{
		Filename:    fh.Filename,
		Owner:       c.GetHeader(HeaderOperatorID),
		Marketplace: c.PostForm("marketplace"),
		CategoryID:  c.PostForm("categoryId"),
		Data:        data,
		ReplaceID:   replaceID,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusCreated
	if replaceID != "" {
		status = http.StatusOK
	}
	c.JSON(status, res)
}

// ListTemplates 模板列表
// GET /api/v1/templates?marketplace=DE
func (h *Handler) ListTemplates(c *gin.Context) {
	items, err := h.store.ListTemplates(c.Request.Context(), c.Query("marketplace"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

// GetTemplate 模板详情（不含二进制）
// GET /api/v1/templates/:id
func (h *Handler) GetTemplate(c *gin.Context) {
	t, err := h.store.GetTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"template":    t,
		"payloadSize": len(t.Payload),
		"complete":    len(t.Payload) > 0,
	})
}

// DeleteTemplate 删除模板
// DELETE /api/v1/templates/:id
func (h *Handler) DeleteTemplate(c *gin.Context) {
	if err := h.store.DeleteTemplate(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type updateMappingsRequest struct {
	Mappings map[int]model.FieldMapping `json:"mappings"`
}

// UpdateMappings 修正列映射
// PATCH /api/v1/templates/:id/mappings
func (h *Handler) UpdateMappings(c *gin.Context) {
	var req updateMappingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "无效的映射数据: "+err.Error())
		return
	}
	if len(req.Mappings) == 0 {
		badRequest(c, "mappings 不能为空")
		return
	}

	t, err := h.store.UpdateTemplateMappings(c.Request.Context(), c.Param("id"), req.Mappings)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"template": t})
}

// GetInference 对已保存的模板重新推断，返回置信度与有效值等诊断信息
// GET /api/v1/templates/:id/inference
func (h *Handler) GetInference(c *gin.Context) {
	inf, err := h.importer.Reinfer(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inf)
}

// ListImportLogs 最近的上传日志
// GET /api/v1/import-logs?limit=20
func (h *Handler) ListImportLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	logs, err := h.store.ListImportLogs(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": logs})
}
