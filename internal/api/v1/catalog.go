package v1

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"skuforge/internal/model"
)

// ListPriceAdjustments 价格调整规则列表
// GET /api/v1/price-adjustments
func (h *Handler) ListPriceAdjustments(c *gin.Context) {
	items, err := h.store.ListPriceAdjustments(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// SavePriceAdjustment 新建或更新一条规则（id 为空时新建）
// PUT /api/v1/price-adjustments
func (h *Handler) SavePriceAdjustment(c *gin.Context) {
	var a model.PriceAdjustment
	if err := c.ShouldBindJSON(&a); err != nil {
		badRequest(c, "无效的规则数据: "+err.Error())
		return
	}
	if err := h.store.SavePriceAdjustment(c.Request.Context(), &a); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// DeletePriceAdjustment 删除规则
// DELETE /api/v1/price-adjustments/:id
func (h *Handler) DeletePriceAdjustment(c *gin.Context) {
	if err := h.store.DeletePriceAdjustment(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListExchangeRates 汇率列表
// GET /api/v1/exchange-rates
func (h *Handler) ListExchangeRates(c *gin.Context) {
	items, err := h.store.ListExchangeRates(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type setRateRequest struct {
	Rate float64 `json:"rate"`
}

// SetExchangeRate 设置市场汇率，最后一次写入生效
// PUT /api/v1/exchange-rates/:marketplace
func (h *Handler) SetExchangeRate(c *gin.Context) {
	var req setRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "无效的汇率数据: "+err.Error())
		return
	}
	mkt := strings.ToUpper(strings.TrimSpace(c.Param("marketplace")))
	if err := h.store.SetExchangeRate(c.Request.Context(), mkt, req.Rate); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.ExchangeRate{Marketplace: mkt, Rate: req.Rate})
}

// ListCategories 类目列表
// GET /api/v1/categories
func (h *Handler) ListCategories(c *gin.Context) {
	items, err := h.store.ListCategories(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// PutCategories 批量写入类目
// PUT /api/v1/categories
func (h *Handler) PutCategories(c *gin.Context) {
	var items []model.Category
	if err := c.ShouldBindJSON(&items); err != nil {
		badRequest(c, "无效的类目数据: "+err.Error())
		return
	}
	if err := h.store.UpsertCategories(c.Request.Context(), items); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": len(items)})
}

// ListListings 商品记录；?ids=a,b 按给定顺序返回
// GET /api/v1/listings
func (h *Handler) ListListings(c *gin.Context) {
	var ids []string
	if raw := strings.TrimSpace(c.Query("ids")); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	items, err := h.store.GetListings(c.Request.Context(), ids)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

// PutListings 批量写入商品记录
// PUT /api/v1/listings
func (h *Handler) PutListings(c *gin.Context) {
	var items []model.Listing
	if err := c.ShouldBindJSON(&items); err != nil {
		badRequest(c, "无效的商品数据: "+err.Error())
		return
	}
	if err := h.store.UpsertListings(c.Request.Context(), items); err != nil {
		writeError(c, err)
		return
	}
	ids := make([]string, len(items))
	for i, l := range items {
		ids[i] = l.ID
	}
	c.JSON(http.StatusOK, gin.H{"saved": len(items), "ids": ids})
}
