package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"fantasta/internal/collab/pgcollab"
	"fantasta/internal/config"
	"fantasta/internal/database/db_client"
	"fantasta/internal/events"
	"fantasta/internal/http/http_server"
	"fantasta/internal/redis/redis_client"
	"fantasta/internal/redis/timerkeys"
	"fantasta/internal/redis/watcher/timerwatcher"
	"fantasta/internal/services/appeal"
	"fantasta/internal/services/auction"
	"fantasta/internal/services/steal"
	"fantasta/internal/store/pgstore"
	"fantasta/internal/ws"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	var err error
	var cfg *config.Config
	var redisClient *redis.Client

	// 1. Load configuration
	cfg, err = config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Redis
	redisClient, err = redis_client.NewRedisClient(ctx, cfg.RedisHost, int(cfg.RedisPort))
	if err != nil {
		Log.Fatal("Failed to create Redis client", zap.Error(err))
	}
	defer redisClient.Close()

	// 4. Postgres db client + schemas
	pgDb, err := db_client.Open(ctx, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
	if err != nil {
		Log.Fatal("pg-open", zap.Error(err))
	}
	defer pgDb.Close()

	st := pgstore.New(pgDb)
	if err := st.EnsureSchema(ctx); err != nil {
		Log.Fatal("pg-schema", zap.Error(err))
	}
	league := pgcollab.New(pgDb)
	if err := league.EnsureSchema(ctx); err != nil {
		Log.Fatal("pg-schema", zap.Error(err))
	}

	// 5. Engine services
	bus := events.NewRedisBus(redisClient)
	timers := timerkeys.New(redisClient)
	auctionService := auction.NewAuctionService(st, league, league, league, league,
		bus, timers, cfg.DefaultTimerSeconds)
	appealService := appeal.NewAppealService(st, league, bus, appeal.NoCorrection{})
	stealService := steal.NewStealService(st, auctionService, league, league, league, bus)

	// 6. Background: key-expiry watcher closes expired auctions
	go timerwatcher.Run(ctx, redisClient, auctionService)

	// 7. WebSockets hub + Redis fan-out
	hub := ws.NewHub()
	wsSrv := ws.NewWsServer(hub, redisClient, auctionService)

	// 8. HTTP + WS server; SIGINT/SIGTERM drains it via Dispose
	httpServer := http_server.NewHttpServer(cfg.HttpServerPort, wsSrv,
		auctionService, appealService, stealService)
	go func() {
		<-ctx.Done()
		if err := httpServer.Dispose(); err != nil {
			Log.Error("Failed to shut down HTTP server", zap.Error(err))
		}
	}()
	if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}
