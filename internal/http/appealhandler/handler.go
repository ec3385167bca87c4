package appealhandler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fantasta/internal/domerr"
	"fantasta/internal/services/appeal"
)

type CreateAppealBody struct {
	ComplainantID int64  `json:"complainant_id" binding:"required"`
	Reason        string `json:"reason" binding:"required,min=10"`
}

type ResolveAppealBody struct {
	AdminID    int64  `json:"admin_id" binding:"required"`
	Accept     bool   `json:"accept"`
	Resolution string `json:"resolution" binding:"required"`
}

type ResolveResponse struct {
	Appeal      any    `json:"appeal"`
	ActionTaken string `json:"action_taken"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type Handler struct {
	svc appeal.IAppealService
}

func New(svc appeal.IAppealService) *Handler { return &Handler{svc: svc} }

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/auctions/:id/appeal", h.get)
	r.POST("/auctions/:id/appeal", h.create)
	r.POST("/auctions/:id/appeal/resolve", h.resolve)
}

func fail(c *gin.Context, err error) {
	c.JSON(domerr.HTTPStatus(err), ErrorResponse{Error: err.Error(), Code: domerr.CodeOf(err)})
}

func auctionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid auction id", Code: "INVALID_INPUT"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) get(c *gin.Context) {
	id, ok := auctionID(c)
	if !ok {
		return
	}
	ap, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ap)
}

func (h *Handler) create(c *gin.Context) {
	id, ok := auctionID(c)
	if !ok {
		return
	}
	var body CreateAppealBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_INPUT"})
		return
	}
	ap, err := h.svc.Create(c.Request.Context(), id, body.ComplainantID, body.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, ap)
}

func (h *Handler) resolve(c *gin.Context) {
	id, ok := auctionID(c)
	if !ok {
		return
	}
	var body ResolveAppealBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_INPUT"})
		return
	}
	res, err := h.svc.Resolve(c.Request.Context(), id, body.AdminID, body.Accept, body.Resolution)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ResolveResponse{Appeal: res.Appeal, ActionTaken: res.ActionTaken})
}
