package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"livechat-service/internal/auth"
	"livechat-service/internal/config"
	"livechat-service/internal/db"
	"livechat-service/internal/handlers"
	"livechat-service/internal/logger"
	"livechat-service/internal/middleware"
	"livechat-service/internal/observability"
	"livechat-service/internal/presence"
	"livechat-service/internal/rabbitmq"
	"livechat-service/internal/repositories"
	"livechat-service/internal/services"
	"livechat-service/internal/telemetry"
	"livechat-service/internal/ws"
)

const serviceName = "livechat-service"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	log := logger.Log.With(zap.String("service", serviceName), zap.String("environment", cfg.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		shutdownTracer, err := observability.InitTracer(ctx, serviceName, cfg.Environment, cfg.Tracing.Endpoint)
		if err != nil {
			log.Warn("tracing disabled", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdownTracer(shutdownCtx)
			}()
		}
	}

	database, err := db.Connect(cfg.Database.DSN, cfg.Database.MaxOpenConns)
	if err != nil {
		return fmt.Errorf("connect to db: %w", err)
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(ctx, cfg.AMQP.URL, cfg.AMQP.Exchange, 30*time.Second)
	defer publisher.Close()
	if mode := rabbitmq.PublisherMode(publisher); mode == "noop" {
		log.Warn("amqp publisher disabled", zap.String("reason", rabbitmq.PublisherNoopReason(publisher)))
	} else {
		log.Info("amqp publisher ready", zap.String("exchange", cfg.AMQP.Exchange))
	}
	observability.SetPublisher(publisher)
	auditEmitter := telemetry.NewAuditEmitter(publisher, "audit.livechat", serviceName, cfg.Environment)

	presenceStore := presence.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log.Named("presence"))
	defer presenceStore.Close()

	requestRepo := repositories.NewRequestRepo(database)
	sessionRepo := repositories.NewSessionRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	feedbackRepo := repositories.NewFeedbackRepo(database)
	notificationRepo := repositories.NewNotificationRepo(database)
	categoryRepo := repositories.NewCategoryRepo(database)

	hub := ws.NewHub(log)
	defer hub.Close()

	scheduler, err := services.NewTimeoutScheduler(cfg.Chat.TimeoutWorkers, log)
	if err != nil {
		return err
	}
	defer scheduler.Stop()

	requestService := services.NewRequestService(services.RequestDeps{
		Requests:      requestRepo,
		Sessions:      sessionRepo,
		Categories:    categoryRepo,
		Notifications: notificationRepo,
		Notifier:      hub,
		Scheduler:     scheduler,
	}, cfg.Chat.RequestTimeout, log)
	sessionService := services.NewSessionService(sessionRepo, messageRepo, hub, log)
	feedbackService := services.NewFeedbackService(feedbackRepo, sessionRepo, log)

	scheduler.Bind(func(requestID int64) {
		checkCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := requestService.CheckTimeout(checkCtx, requestID); err != nil {
			log.Error("timeout check failed", zap.Int64("request_id", requestID), zap.Error(err))
		}
	})
	if err := requestService.Recover(ctx); err != nil {
		return fmt.Errorf("recover request state: %w", err)
	}

	verifier := auth.NewJWTVerifier(cfg.Auth.JWTSecret)

	chatHandler := handlers.NewChatHandler(requestService, categoryRepo, auditEmitter)
	sessionHandler := handlers.NewSessionHandler(sessionService, presenceStore, auditEmitter)
	feedbackHandler := handlers.NewFeedbackHandler(feedbackService)
	categoryHandler := handlers.NewCategoryAdminHandler(categoryRepo, auditEmitter)
	channels := ws.NewChannelHandler(hub, ws.NewRelay(hub, sessionService, log), verifier, presenceStore, cfg.Chat.SendBuffer, log)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.RequestLogger(log.Named("http")))
	if cfg.Metrics.Enabled {
		router.Use(observability.HTTPMetricsMiddleware())
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	handlers.RegisterHealthRoutes(router, database)
	handlers.RegisterDebugRoutes(router, auditEmitter, verifier, cfg.Debug.Enabled)

	authMiddleware := middleware.AuthMiddleware(verifier)

	router.GET("/chat/categories", chatHandler.ListCategories)
	router.GET("/chat/subcategories/:category_id", chatHandler.ListSubcategories)
	router.POST("/chat/request", chatHandler.CreateRequest)
	router.POST("/chat/request/cancel", chatHandler.CancelRequest)
	router.GET("/chat/request/:request_id/status", chatHandler.RequestStatus)
	router.POST("/chat/feedback", feedbackHandler.Submit)
	router.GET("/chat/sessions/:id/messages/public", sessionHandler.PublicMessages)

	router.GET("/chat/requests", authMiddleware, chatHandler.ListRequests)
	router.GET("/chat/requests/rejected", authMiddleware, chatHandler.ListRejected)
	router.POST("/chat/requests/:id/accept", authMiddleware, chatHandler.AcceptRequest)
	router.POST("/chat/requests/:id/reject", authMiddleware, chatHandler.RejectRequest)
	router.GET("/chat/sessions", authMiddleware, sessionHandler.ListMine)
	router.GET("/chat/sessions/all", authMiddleware, sessionHandler.ListAll)
	router.GET("/chat/sessions/total", authMiddleware, sessionHandler.Totals)
	router.POST("/chat/sessions/:id/end", authMiddleware, sessionHandler.End)
	router.GET("/chat/sessions/:id/messages", authMiddleware, sessionHandler.Messages)
	router.GET("/chat/feedback/stats", authMiddleware, feedbackHandler.Stats)
	router.GET("/chat/agents/online", authMiddleware, sessionHandler.OnlineAgents)

	admin := router.Group("/admin/chat", authMiddleware, middleware.RequireAdmin())
	admin.GET("/categories", categoryHandler.ListCategories)
	admin.POST("/categories", categoryHandler.CreateCategory)
	admin.PUT("/categories/:id", categoryHandler.UpdateCategory)
	admin.DELETE("/categories/:id", categoryHandler.DeleteCategory)
	admin.GET("/subcategories", categoryHandler.ListSubcategories)
	admin.POST("/subcategories", categoryHandler.CreateSubcategory)
	admin.PUT("/subcategories/:id", categoryHandler.UpdateSubcategory)
	admin.DELETE("/subcategories/:id", categoryHandler.DeleteSubcategory)

	router.GET("/chat/ws/:user_id", channels.Visitor)
	router.GET("/chat/ws/support/:support_user_id", channels.Agent)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		hub.Close()
		if drainErr := channels.Drain(shutdownCtx); drainErr != nil {
			log.Warn("relay connections did not finish before shutdown", zap.Error(drainErr))
		}
		return err
	})

	return g.Wait()
}
