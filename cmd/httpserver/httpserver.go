// Package httpserver manages server creation and api routing.
package httpserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/ledger"
	"github.com/go-petr/pet-ledger/internal/ledgerdelivery"
	"github.com/go-petr/pet-ledger/internal/ledgerrepo"
	"github.com/go-petr/pet-ledger/internal/ledgerservice"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/internal/notifier"
	"github.com/go-petr/pet-ledger/internal/sessionservice"
	"github.com/go-petr/pet-ledger/internal/userdelivery"
	"github.com/go-petr/pet-ledger/internal/userrepo"
	"github.com/go-petr/pet-ledger/internal/userservice"
	"github.com/go-petr/pet-ledger/pkg/categorypkg"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
	"github.com/go-petr/pet-ledger/pkg/tokenpkg"
)

// Server holds db connection, handlers router and configuration.
type Server struct {
	DB        *sql.DB
	Engine    *gin.Engine
	Config    configpkg.Config
	Sessions  *sessionservice.Service
	Scheduler *sessionservice.Scheduler
	Feed      *notifier.Feed

	logger    zerolog.Logger
	publisher *notifier.AMQP
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

// New creates Server type with instantiated domains and routes.
//
// conn is used for users and ledgers when config selects the postgres
// backend and may be nil otherwise.
func New(conn *sql.DB, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	if config.LedgerBackend == configpkg.BackendPostgres && conn == nil {
		return nil, errors.New("postgres ledger backend requires a database connection")
	}

	tokenMaker, err := tokenpkg.New(config.TokenType, config.TokenSymmetricKey)
	if err != nil {
		return nil, fmt.Errorf("cannot create token maker: %w", err)
	}

	seed, err := ledger.SeedByName(config.LedgerSeed)
	if err != nil {
		return nil, err
	}

	feed := notifier.NewFeed(config.NotifyFeedSize)
	notifiers := notifier.Multi{notifier.Log{}, feed}

	var publisher *notifier.AMQP

	if config.AMQPURL != "" {
		publisher, err = notifier.DialAMQP(config.AMQPURL, config.NotifyExchange)
		if err != nil {
			logger.Warn().Err(err).Msg("notification publisher disabled")
		} else {
			notifiers = append(notifiers, publisher)
		}
	}

	var (
		userRepo userservice.Repo
		factory  sessionservice.Factory
	)

	switch config.LedgerBackend {
	case configpkg.BackendPostgres:
		userRepo = userrepo.NewRepoPGS(conn)
		factory = postgresFactory(ledgerrepo.NewRepoPGS(conn), seed)
	case configpkg.BackendMemory, "":
		userRepo = userrepo.NewMemory()
		factory = memoryFactory(seed, config)
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", config.LedgerBackend)
	}

	userService := userservice.New(userRepo)
	sessionService := sessionservice.New(factory, notifiers,
		sessionservice.WithIdleTimeout(config.SessionIdleTimeout),
		sessionservice.WithFeed(feed),
	)

	userHandler := userdelivery.NewHandler(userService, sessionService, tokenMaker, config.AccessTokenDuration)
	ledgerHandler := ledgerdelivery.NewHandler(activeLedgers{sessionService}, feed)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))

	engine.POST("/users", userHandler.Create)
	engine.POST("/users/login", userHandler.Login)

	authRoutes := engine.Group("/").Use(middleware.AuthMiddleware(tokenMaker))

	authRoutes.POST("/users/logout", userHandler.Logout)
	authRoutes.GET("/users/me", userHandler.Me)

	authRoutes.GET("/overview", ledgerHandler.Overview)
	authRoutes.POST("/accounts", ledgerHandler.CreateAccount)
	authRoutes.GET("/accounts", ledgerHandler.ListAccounts)
	authRoutes.GET("/accounts/:id", ledgerHandler.GetAccount)
	authRoutes.GET("/accounts/:id/transactions", ledgerHandler.History)
	authRoutes.GET("/accounts/:id/statement", ledgerHandler.Statement)
	authRoutes.POST("/accounts/:id/deposits", ledgerHandler.Deposit)
	authRoutes.POST("/accounts/:id/withdrawals", ledgerHandler.Withdraw)
	authRoutes.POST("/transfers", ledgerHandler.Transfer)
	authRoutes.GET("/notifications", ledgerHandler.Notifications)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		err := v.RegisterValidation("category", categorypkg.ValidCategory)
		if err != nil {
			return nil, errors.New("cannot register category validator")
		}
	}

	server := &Server{
		DB:        conn,
		Engine:    engine,
		Config:    config,
		Sessions:  sessionService,
		Scheduler: sessionservice.NewScheduler(sessionService, config.SessionReapSchedule, logger),
		Feed:      feed,
		logger:    logger,
		publisher: publisher,
	}

	return server, nil
}

// activeLedgers serves the ledger handler from the signed-in sessions.
type activeLedgers struct {
	sessions *sessionservice.Service
}

func (a activeLedgers) Ledger(username string) (ledgerdelivery.Ledger, error) {
	lg, err := a.sessions.Ledger(username)
	if err != nil {
		return nil, err
	}

	return lg, nil
}

func memoryFactory(seed ledger.Seed, config configpkg.Config) sessionservice.Factory {
	return func(_ context.Context, owner string) (ledgerservice.Backend, error) {
		return ledger.New(owner,
			ledger.WithSeed(seed),
			ledger.WithLatency(config.LedgerLatency),
		), nil
	}
}

func postgresFactory(store ledgerrepo.Store, seed ledger.Seed) sessionservice.Factory {
	return func(ctx context.Context, owner string) (ledgerservice.Backend, error) {
		return ledgerrepo.NewUserLedger(ctx, store, owner, seed)
	}
}

// Close stops the reaper, disposes active ledgers and releases connections.
func (s *Server) Close(ctx context.Context) error {
	<-s.Scheduler.Stop().Done()

	s.Sessions.Close(s.logger.WithContext(ctx))

	var errs []error

	if s.publisher != nil {
		errs = append(errs, s.publisher.Close())
	}

	if s.DB != nil {
		errs = append(errs, s.DB.Close())
	}

	return errors.Join(errs...)
}
