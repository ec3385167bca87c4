package auctionhandler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fantasta/internal/domerr"
	"fantasta/internal/services/auction"
	"fantasta/internal/store"
)

type Handler struct {
	svc auction.IAuctionService
}

func New(svc auction.IAuctionService) *Handler { return &Handler{svc: svc} }

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/auctions", h.list)
	r.GET("/auctions/:id", h.info)
	r.GET("/auctions/:id/bids", h.bids)
	r.POST("/auctions", h.create)
	r.POST("/auctions/:id/bid", h.bid)
	r.POST("/auctions/:id/close", h.close)
	r.POST("/auctions/:id/cancel", h.cancel)
}

// fail writes the taxonomy mapping: 400/403/404/409 for business
// failures, 500 for everything else.
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

func (h *Handler) create(c *gin.Context) {
	var body CreateAuctionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_INPUT"})
		return
	}
	a, err := h.svc.Create(c.Request.Context(), auction.CreateParams{
		SessionID:     body.SessionID,
		PlayerID:      body.PlayerID,
		CreatorID:     body.CreatorID,
		StartingPrice: body.StartingPrice,
		Type:          body.Type,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *Handler) info(c *gin.Context) {
	id, ok := auctionID(c)
	if !ok {
		return
	}
	a, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) list(c *gin.Context) {
	var q ListAuctionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_INPUT"})
		return
	}
	out, err := h.svc.List(c.Request.Context(), store.AuctionFilter{
		SessionID: q.SessionID,
		Status:    q.Status,
		Limit:     q.Limit,
		Offset:    q.Offset,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) bids(c *gin.Context) {
	id, ok := auctionID(c)
	if !ok {
		return
	}
	bids, err := h.svc.ListBids(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, bids)
}

func (h *Handler) bid(c *gin.Context) {
	id, ok := auctionID(c)
	if !ok {
		return
	}
	var body PlaceBidBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_INPUT"})
		return
	}
	res, err := h.svc.PlaceBid(c.Request.Context(), id, body.BidderID, body.Amount)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, BidResponse{
		Bid:              res.Bid,
		NewPrice:         res.NewPrice,
		Outbid:           res.Outbid,
		PreviousWinnerID: res.PreviousWinnerID,
	})
}

func (h *Handler) close(c *gin.Context) {
	id, ok := auctionID(c)
	if !ok {
		return
	}
	res, err := h.svc.Close(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, CloseResponse{
		Auction:     res.Auction,
		WinnerID:    res.WinnerID,
		FinalAmount: res.FinalAmount,
		WasAcquired: res.WasAcquired,
	})
}

func (h *Handler) cancel(c *gin.Context) {
	id, ok := auctionID(c)
	if !ok {
		return
	}
	var body CancelBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_INPUT"})
		return
	}
	a, err := h.svc.Cancel(c.Request.Context(), id, body.RequesterID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}
