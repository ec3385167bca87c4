package ws

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"fantasta/internal/domain"
	"fantasta/internal/domerr"
	"fantasta/internal/services/auction"
	"fantasta/internal/store"
)

func listActiveFilter(sessionID int64) store.AuctionFilter {
	return store.AuctionFilter{SessionID: sessionID, Status: domain.AuctionActive, Limit: 1}
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 12 * time.Second
	pingPeriod = 3 * time.Second // must be < pongWait
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  512,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true }, // dev-only
}

type WsServer struct {
	hub        *Hub
	subMgr     *subscriptionManager
	router     *Router
	rdc        *redis.Client
	auctionSvc auction.IAuctionService
}

func NewWsServer(h *Hub, rdc *redis.Client, auctionSvc auction.IAuctionService) *WsServer {
	srv := &WsServer{
		hub:        h,
		subMgr:     newSubscriptionManager(rdc, h),
		router:     NewRouter(),
		rdc:        rdc,
		auctionSvc: auctionSvc,
	}
	srv.registerHandlers()
	return srv
}

// Handle is the gin entry point. Clients join the room of one session
// and receive every event published for it.
func (s *WsServer) Handle(ginCtx *gin.Context) {
	sessionID, err1 := strconv.ParseInt(ginCtx.Query("session_id"), 10, 64)
	memberID, err2 := strconv.ParseInt(ginCtx.Query("member_id"), 10, 64)
	if err1 != nil || err2 != nil {
		ginCtx.JSON(http.StatusBadRequest, gin.H{"error": "session_id and member_id are required"})
		return
	}

	rawConn, err := upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.upgrade", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(512)
	_ = rawConn.SetReadDeadline(time.Now().Add(pongWait))
	rawConn.SetPongHandler(func(string) error {
		return rawConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	room := strconv.FormatInt(sessionID, 10)
	wsConn := &clientConn{rawConn: rawConn}
	s.hub.Join(room, wsConn)
	s.subMgr.Subscribe(sessionID) // no-op when already subscribed

	if err := s.pushInitialSnapshot(ginCtx.Request.Context(), sessionID, wsConn); err != nil {
		zap.L().Warn("ws.snapshot", zap.Error(err))
	}

	go s.reader(room, sessionID, memberID, wsConn)
	go s.pinger(wsConn)
}

func (s *WsServer) registerHandlers() {
	Register(
		s.router,
		"auctions/bid",
		func(ctx context.Context, cc *ConnContext, req BidRequest) (BidAck, error) {
			auctionID, err := uuid.Parse(req.AuctionID)
			if err != nil {
				return BidAck{}, domerr.ErrInvalidInput
			}
			res, err := cc.Server.auctionSvc.PlaceBid(ctx, auctionID, cc.MemberID, req.Amount)
			if err != nil {
				return BidAck{}, err
			}
			return BidAck{NewPrice: res.NewPrice, Outbid: res.Outbid}, nil
		},
	)
}

// pushInitialSnapshot sends the session's active auction, if any, so
// a late joiner sees the current price before the next event.
func (s *WsServer) pushInitialSnapshot(ctx context.Context, sessionID int64, conn *clientConn) error {
	ctx, cancel := context.WithTimeout(ctx, 4*time.Second)
	defer cancel()

	list, err := s.auctionSvc.List(ctx, listActiveFilter(sessionID))
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return conn.writeJSON(gin.H{"event": "auctions/snapshot", "body": nil})
	}
	return conn.writeJSON(gin.H{"event": "auctions/snapshot", "body": list[0]})
}

func (s *WsServer) reader(room string, sessionID, memberID int64, conn *clientConn) {
	defer func() {
		s.hub.Leave(room, conn)
		s.subMgr.Unsubscribe(sessionID)
	}()

	cc := &ConnContext{SessionID: sessionID, MemberID: memberID, Server: s}

	for {
		var env Envelope
		if err := conn.rawConn.ReadJSON(&env); err != nil {
			return // client closed or errored
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1900*time.Millisecond)
		res, err := s.router.dispatch(ctx, cc, env)
		cancel()

		if err != nil {
			_ = conn.writeJSON(map[string]any{
				"event": "error",
				"body":  ErrorBody{Error: err.Error(), Code: domerr.CodeOf(err)},
			})
			continue
		}

		reply := map[string]any{"event": env.Event + "-ack"}
		if res != nil {
			reply["body"] = res
		}
		_ = conn.writeJSON(reply)
	}
}

func (s *WsServer) pinger(conn *clientConn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.write(websocket.PingMessage, nil); err != nil {
			_ = conn.rawConn.Close()
			return
		}
	}
}
