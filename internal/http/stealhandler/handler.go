package stealhandler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fantasta/internal/domerr"
	"fantasta/internal/services/steal"
)

type CreateOfferBody struct {
	SessionID int64 `json:"session_id" binding:"required"`
	PlayerID  int64 `json:"player_id"  binding:"required"`
	OffererID int64 `json:"offerer_id" binding:"required"`
	Amount    int   `json:"amount"     binding:"required,gt=0"`
}

type ActOnOfferBody struct {
	RequesterID int64 `json:"requester_id" binding:"required"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type Handler struct {
	svc steal.IStealService
}

func New(svc steal.IStealService) *Handler { return &Handler{svc: svc} }

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/sessions/:sessionId/offers", h.list)
	r.POST("/offers", h.create)
	r.POST("/offers/:id/auction", h.startAuction)
	r.POST("/offers/:id/withdraw", h.withdraw)
}

func fail(c *gin.Context, err error) {
	c.JSON(domerr.HTTPStatus(err), ErrorResponse{Error: err.Error(), Code: domerr.CodeOf(err)})
}

func offerID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid offer id", Code: "INVALID_INPUT"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) list(c *gin.Context) {
	sessionID, err := strconv.ParseInt(c.Param("sessionId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid session id", Code: "INVALID_INPUT"})
		return
	}
	offers, err := h.svc.ListOffers(c.Request.Context(), sessionID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, offers)
}

func (h *Handler) create(c *gin.Context) {
	var body CreateOfferBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_INPUT"})
		return
	}
	o, err := h.svc.CreateOffer(c.Request.Context(), steal.OfferParams{
		SessionID: body.SessionID,
		PlayerID:  body.PlayerID,
		OffererID: body.OffererID,
		Amount:    body.Amount,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (h *Handler) startAuction(c *gin.Context) {
	id, ok := offerID(c)
	if !ok {
		return
	}
	var body ActOnOfferBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_INPUT"})
		return
	}
	a, err := h.svc.StartAuction(c.Request.Context(), id, body.RequesterID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *Handler) withdraw(c *gin.Context) {
	id, ok := offerID(c)
	if !ok {
		return
	}
	var body ActOnOfferBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_INPUT"})
		return
	}
	if err := h.svc.WithdrawOffer(c.Request.Context(), id, body.RequesterID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
