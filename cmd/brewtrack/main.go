package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rookgm/brewtrack/config"
	"github.com/rookgm/brewtrack/internal/auth"
	"github.com/rookgm/brewtrack/internal/changefeed"
	handler "github.com/rookgm/brewtrack/internal/handler/http"
	"github.com/rookgm/brewtrack/internal/logger"
	"github.com/rookgm/brewtrack/internal/repository"
	"github.com/rookgm/brewtrack/internal/repository/memory"
	"github.com/rookgm/brewtrack/internal/repository/postgres"
	"github.com/rookgm/brewtrack/internal/service"
	"github.com/rookgm/brewtrack/internal/worker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// store is everything services need from storage
type store interface {
	service.OrderRepository
	service.TransitionStore
	service.EventRepository
}

func main() {

	// create new config
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	tokenKey, err := cfg.TokenKeyBytes()
	if err != nil {
		log.Fatalf("Error extracting token key: %v", err)
	}
	token := auth.NewAuthToken(tokenKey, cfg.TokenTTL)
	sessionService := service.NewSessionService(token)

	// operator mode: mint staff token and exit
	if cfg.StaffToken != "" {
		staff, err := sessionService.IssueStaff(cfg.StaffToken)
		if err != nil {
			log.Fatalf("Error creating staff token: %v", err)
		}
		fmt.Println(staff)
		return
	}

	// initialize logger
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer logger.Log.Sync()

	// create context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := changefeed.NewHub(logger.Log)
	defer hub.Close()

	g, gctx := errgroup.WithContext(ctx)

	var st store
	if cfg.DatabaseDSN != "" {
		// initialize database
		db, err := postgres.New(ctx, cfg.DatabaseDSN)
		if err != nil {
			logger.Log.Fatal("Error initializing database", zap.Error(err))
		}
		defer db.Close()

		// migrate database
		if err := db.Migrate(); err != nil {
			logger.Log.Fatal("Error migrating database", zap.Error(err))
		}
		st = repository.NewStore(db)

		// row triggers feed the hub
		listener := changefeed.NewListener(db.Pool, hub, logger.Log)
		g.Go(func() error {
			return listener.Run(gctx)
		})
	} else {
		logger.Log.Warn("No database configured, using in-memory store")
		st = memory.New(memory.WithPublisher(hub))
	}

	if cfg.AMQPURL != "" {
		bridge := changefeed.NewAMQPBridge(cfg.AMQPURL, hub, logger.Log)
		g.Go(func() error {
			return worker.NewSupervisor("amqp bridge", bridge, 0).Run(gctx)
		})
	}

	// dependency injection
	orderService := service.NewOrderService(st)
	coordinator := service.NewCoordinator(st,
		service.WithStrictTransitions(cfg.StrictTransitions),
		service.WithAccurateCascadeLog(cfg.AccurateCascadeLog),
		service.WithCoordinatorLogger(logger.Log),
	)
	eventService := service.NewEventService(st)

	router := handler.NewRouter(handler.Deps{
		Orders:      orderService,
		Transitions: coordinator,
		Events:      eventService,
		Sessions:    sessionService,
		Tokens:      token,
		Stream:      handler.NewStreamHandler(orderService, hub, cfg.PollInterval, logger.Log),
		Log:         logger.Log,
	})

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: router,
		// requests, streams included, end with the server context
		BaseContext: func(net.Listener) context.Context {
			return gctx
		},
	}

	g.Go(func() error {
		logger.Log.Info("Running server", zap.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Log.Fatal("Error running server", zap.Error(err))
	}
	logger.Log.Info("Server stopped")
}
