package handlers

import (
	"github.com/gin-gonic/gin"

	"storeops/internal/domain/promotion"
	"storeops/internal/infrastructure/http/v1/dto"
)

// PromotionHandler handles promotion validation and administration.
type PromotionHandler struct {
	*BaseHandler
	engine *promotion.Engine
}

// NewPromotionHandler creates a new promotion handler.
func NewPromotionHandler(base *BaseHandler, engine *promotion.Engine) *PromotionHandler {
	return &PromotionHandler{BaseHandler: base, engine: engine}
}

// Validate handles POST /promotions/validate
func (h *PromotionHandler) Validate(c *gin.Context) {
	var req dto.ValidateCodeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	quote, err := h.engine.ValidateCode(c.Request.Context(), req.ToRequest())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, quote)
}

// CreatePromotion handles POST /promotions
func (h *PromotionHandler) CreatePromotion(c *gin.Context) {
	var req dto.PromotionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p := req.ToModel()
	if err := h.engine.CreatePromotion(c.Request.Context(), p); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, p)
}

// ListPromotions handles GET /promotions
func (h *PromotionHandler) ListPromotions(c *gin.Context) {
	var q dto.PromotionListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	items, err := h.engine.ListPromotions(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	if items == nil {
		items = []promotion.Promotion{}
	}
	h.OK(c, dto.ListResponse{Items: items, TotalCount: len(items)})
}

// SetPromotionActive handles PATCH /promotions/:id/active
func (h *PromotionHandler) SetPromotionActive(c *gin.Context) {
	promotionID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var req dto.SetActiveRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.engine.SetPromotionActive(c.Request.Context(), promotionID, *req.Active); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// CreateRule handles POST /promotion-rules
func (h *PromotionHandler) CreateRule(c *gin.Context) {
	var req dto.RuleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	r := req.ToModel()
	if err := h.engine.CreateRule(c.Request.Context(), r); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, r)
}

// ListRules handles GET /promotion-rules
func (h *PromotionHandler) ListRules(c *gin.Context) {
	var q dto.PromotionListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	items, err := h.engine.ListRules(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	if items == nil {
		items = []promotion.Rule{}
	}
	h.OK(c, dto.ListResponse{Items: items, TotalCount: len(items)})
}

// SetRuleActive handles PATCH /promotion-rules/:id/active
func (h *PromotionHandler) SetRuleActive(c *gin.Context) {
	ruleID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var req dto.SetActiveRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.engine.SetRuleActive(c.Request.Context(), ruleID, *req.Active); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}
