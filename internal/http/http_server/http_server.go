package http_server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fantasta/internal/http/appealhandler"
	"fantasta/internal/http/auctionhandler"
	"fantasta/internal/http/stealhandler"
	"fantasta/internal/services/appeal"
	"fantasta/internal/services/auction"
	"fantasta/internal/services/steal"
	"fantasta/internal/ws"
)

type httpServer struct {
	listenPort uint16
	srv        http.Server
	ln         net.Listener
	auctions   auction.IAuctionService
	appeals    appeal.IAppealService
	steals     steal.IStealService
	wsSrv      *ws.WsServer
}

func NewHttpServer(listenPort uint16, wsSrv *ws.WsServer,
	auctions auction.IAuctionService, appeals appeal.IAppealService, steals steal.IStealService) *httpServer {
	return &httpServer{
		listenPort: listenPort,
		wsSrv:      wsSrv,
		auctions:   auctions,
		appeals:    appeals,
		steals:     steals,
	}
}

func (h *httpServer) Start() error {
	var err error
	listenAddr := fmt.Sprintf(":%d", h.listenPort)
	h.ln, err = net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	routerEngine := gin.New()
	routerEngine.Use(ginzap.Ginzap(zap.L(), time.RFC3339, true))
	routerEngine.Use(ginzap.RecoveryWithZap(zap.L(), true))

	// websocket endpoint
	routerEngine.GET("/ws", h.wsSrv.Handle)

	// REST API
	auctionhandler.New(h.auctions).Register(routerEngine)
	appealhandler.New(h.appeals).Register(routerEngine)
	stealhandler.New(h.steals).Register(routerEngine)

	h.srv = http.Server{
		Handler: routerEngine,
	}

	return h.srv.Serve(h.ln)
}

// Dispose gracefully shuts the HTTP server down.
// It waits up to 10 s for in-flight requests to finish.
func (h *httpServer) Dispose() error {
	// fresh context: the caller's signal context is already cancelled
	// when the shutdown path runs
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h.srv.Shutdown(ctx); err != nil {
		zap.L().Error("http_dispose", zap.Error(err))
		return err
	}

	if ctx.Err() == context.DeadlineExceeded {
		zap.L().Error("http_dispose", zap.Error(errors.New("shutdown timed out")))
	}

	return nil
}
