package handlers

import (
	"github.com/gin-gonic/gin"

	"storeops/internal/domain/registers/stock"
	"storeops/internal/infrastructure/http/v1/dto"
)

// StockHandler exposes the stock ledger.
type StockHandler struct {
	*BaseHandler
	service *stock.Service
}

// NewStockHandler creates a new stock ledger handler.
func NewStockHandler(base *BaseHandler, service *stock.Service) *StockHandler {
	return &StockHandler{BaseHandler: base, service: service}
}

// Ledger handles GET /stock/ledger
func (h *StockHandler) Ledger(c *gin.Context) {
	var q dto.LedgerQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	if result.Items == nil {
		result.Items = []stock.Entry{}
	}
	h.OK(c, result)
}

// Record handles POST /stock/movements
func (h *StockHandler) Record(c *gin.Context) {
	employeeID, ok := h.EmployeeID(c)
	if !ok {
		return
	}
	var req dto.StockMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}
	commit, err := req.ToCommit(employeeID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Commit(c.Request.Context(), commit); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.NewIDResponse(commit.ReferenceID))
}

// Drift handles GET /stock/drift?productIds=a,b
func (h *StockHandler) Drift(c *gin.Context) {
	productIDs, err := dto.ParseProductIDs(c.Query("productIds"))
	if err != nil {
		h.Error(c, err)
		return
	}

	balances, err := h.service.Drift(c.Request.Context(), productIDs)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewDriftResponse(balances))
}
