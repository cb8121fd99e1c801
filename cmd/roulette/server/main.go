package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof" // Register pprof handlers
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/frankieli/roulette_table/internal/config"
	gatewayHttp "github.com/frankieli/roulette_table/internal/modules/gateway/adapter/http"
	"github.com/frankieli/roulette_table/internal/modules/gateway/session"
	gatewayUseCase "github.com/frankieli/roulette_table/internal/modules/gateway/usecase"
	"github.com/frankieli/roulette_table/internal/modules/gateway/ws"
	"github.com/frankieli/roulette_table/internal/modules/roulette/domain"
	"github.com/frankieli/roulette_table/internal/modules/roulette/machine"
	"github.com/frankieli/roulette_table/internal/modules/roulette/payout"
	"github.com/frankieli/roulette_table/internal/modules/roulette/registry"
	rouletteDB "github.com/frankieli/roulette_table/internal/modules/roulette/repository/db"
	rouletteMemory "github.com/frankieli/roulette_table/internal/modules/roulette/repository/memory"
	rouletteRedis "github.com/frankieli/roulette_table/internal/modules/roulette/repository/redis"
	rouletteUseCase "github.com/frankieli/roulette_table/internal/modules/roulette/usecase"
	"github.com/frankieli/roulette_table/pkg/logger"
	"github.com/frankieli/roulette_table/pkg/netutil"
	"github.com/frankieli/roulette_table/pkg/workerpool"
)

func main() {
	cfg := config.Load()

	// Flags override the environment
	port := flag.String("port", cfg.Server.Port, "Port for WebSocket and HTTP API")
	roundInterval := flag.Duration("round-interval", cfg.Roulette.BettingDuration, "Betting window of each round")
	rosterPath := flag.String("roster", cfg.Database.RosterPath, "sqlite file holding the roster")
	historyPath := flag.String("history", cfg.Database.HistoryPath, "sqlite file holding the round history")
	pprofPort := flag.String("pprof-port", cfg.Server.PprofPort, "Port to run pprof server on (e.g., 6060)")
	background := flag.Bool("d", false, "Run in background mode (disable console logging)")
	flag.Parse()

	// If background is true, disable console logging
	logger.InitWithFile(cfg.Server.LogFile, cfg.Server.LogLevel, cfg.Server.LogFormat, !*background)
	defer logger.Flush()

	if *pprofPort != "" {
		lis, actual, err := netutil.ListenWithFallback("localhost", *pprofPort)
		if err != nil {
			logger.ErrorGlobal().Err(err).Msg("Failed to start pprof server")
		} else {
			logger.InfoGlobal().Int("port", actual).Msg("📈 Starting pprof server")
			go func() {
				if err := http.Serve(lis, nil); err != nil {
					logger.ErrorGlobal().Err(err).Msg("pprof server stopped")
				}
			}()
		}
	}

	fmt.Printf("🚀 Starting Roulette Table... Logs are being written to %s (rotating)\n", cfg.Server.LogFile)
	logger.InfoGlobal().Msg("🎰 Starting Roulette Table...")

	domain.SetNodeID(cfg.Roulette.NodeID)

	// 1. Storage
	rosterDSN, historyDSN := *rosterPath, *historyPath
	if cfg.Database.Driver == "postgres" {
		rosterDSN = cfg.Database.PostgresDSN()
		historyDSN = rosterDSN
	}

	rosterDB, err := rouletteDB.Open(cfg.Database.Driver, rosterDSN, cfg.Database.LogLevel)
	if err != nil {
		logger.FatalGlobal().Err(err).Msg("Failed to open roster database")
	}
	defer closeDB(rosterDB)
	rosterRepo := rouletteDB.NewRosterRepository(rosterDB)
	logger.InfoGlobal().Str("driver", cfg.Database.Driver).Msg("✅ Roster store ready")

	var history domain.HistoryRepository
	switch cfg.Roulette.HistoryStore {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.FatalGlobal().Err(err).Msg("Failed to connect to redis")
		}
		history = rouletteRedis.NewHistoryRepository(rdb, int64(cfg.Roulette.HistoryMaxLen))
		logger.InfoGlobal().Str("addr", cfg.Redis.Addr()).Msg("✅ History store: Redis")
	case "memory":
		history = rouletteMemory.NewHistoryRepository(cfg.Roulette.HistoryMaxLen)
		logger.InfoGlobal().Msg("✅ History store: Memory")
	default:
		historyDB, err := rouletteDB.Open(cfg.Database.Driver, historyDSN, cfg.Database.LogLevel)
		if err != nil {
			logger.FatalGlobal().Err(err).Msg("Failed to open history database")
		}
		defer closeDB(historyDB)
		history = rouletteDB.NewHistoryRepository(historyDB)
		logger.InfoGlobal().Msg("✅ History store: Database")
	}

	// 2. Roulette module
	reg := registry.New()
	loaded, err := rouletteUseCase.LoadRoster(context.Background(), reg, rosterRepo)
	if err != nil {
		logger.FatalGlobal().Err(err).Msg("Failed to load roster")
	}
	logger.InfoGlobal().Int("players", loaded).Msg("✅ Roster loaded")

	pool := workerpool.New(cfg.Roulette.WorkerPoolSize, cfg.Roulette.WorkerQueueSize)
	engine := payout.NewEngine(reg, pool, cfg.Roulette.NotifyTimeout)

	coord := machine.NewCoordinator()
	stateMachine := machine.NewStateMachine(coord, engine)
	stateMachine.BettingDuration = *roundInterval
	stateMachine.GraceDuration = cfg.Roulette.GraceDuration
	stateMachine.ReadDuration = cfg.Roulette.ReadDuration

	rouletteUseCase.NewHistoryRecorder(history, stateMachine)

	snapshotter, err := rouletteUseCase.NewRosterSnapshotter(reg, rosterRepo, pool, cfg.Roulette.RosterSchedule)
	if err != nil {
		logger.FatalGlobal().Err(err).Msg("Invalid roster schedule")
	}
	snapshotter.Start()

	table := rouletteUseCase.NewTableUseCase(reg, coord, history, snapshotter, rouletteUseCase.TableConfig{
		MaxStake:      cfg.Roulette.MaxStake,
		MaxDeposit:    cfg.Roulette.MaxDeposit,
		MaxOpeningBal: cfg.Roulette.MaxOpeningBalance,
	})
	logger.InfoGlobal().Msg("✅ Roulette module initialized")

	// 3. Gateway module
	wsManager := ws.NewManager(cfg.Gateway.WebSocket)
	go wsManager.Run()

	sessionCtx, cancelSessions := context.WithCancel(context.Background())
	defer cancelSessions()

	gatewayUC := gatewayUseCase.NewGatewayUseCase(table)
	handler := gatewayHttp.NewHandler(sessionCtx, gatewayUC, wsManager, session.Config{
		MaxLoginAttempts: cfg.Gateway.MaxLoginAttempts,
		IdleTimeout:      cfg.Gateway.WebSocket.IdleTimeout,
		WriteWait:        cfg.Gateway.WebSocket.WriteWait,
	})

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.GinMiddleware())
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    ":" + *port,
		Handler: router,
	}

	// 4. Run
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	driverCtx, cancelDriver := context.WithCancel(context.Background())
	defer cancelDriver()

	g, gctx := errgroup.WithContext(ctx)

	driverDone := make(chan struct{})
	g.Go(func() error {
		defer close(driverDone)
		stateMachine.Start(driverCtx)
		return nil
	})

	g.Go(func() error {
		logger.InfoGlobal().
			Str("port", *port).
			Dur("round_interval", *roundInterval).
			Str("ws_url", fmt.Sprintf("ws://localhost:%s/ws", *port)).
			Msg("🚀 Roulette table running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.InfoGlobal().Msg("🛑 Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		// Stop accepting new connections
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.ErrorGlobal().Err(err).Msg("Server forced to shutdown")
		}

		// A closed round is settled before the driver returns
		logger.InfoGlobal().Msg("⏳ Finishing current round...")
		stateMachine.Stop()
		cancelDriver()
		<-driverDone

		logger.InfoGlobal().Msg("🔌 Closing all WebSocket connections...")
		wsManager.Shutdown()
		cancelSessions()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.ErrorGlobal().Err(err).Msg("Roulette table stopped with error")
	}

	// Final roster write after every session has left
	saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := snapshotter.Stop(saveCtx); err != nil {
		logger.ErrorGlobal().Err(err).Msg("Final roster save failed")
	}
	pool.Close()

	logger.InfoGlobal().Msg("👋 Server exited properly")
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
