package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	consultationHandler "teleconsult-backend/internal/handler/http/consultation"
	deviceHandler "teleconsult-backend/internal/handler/http/device"
	messageHandler "teleconsult-backend/internal/handler/http/message"
	wsHandler "teleconsult-backend/internal/handler/ws"
	"teleconsult-backend/internal/invite"
	"teleconsult-backend/internal/middleware"
	"teleconsult-backend/internal/notify"
	"teleconsult-backend/internal/realtime"
	"teleconsult-backend/internal/relay"
	cassandraRepo "teleconsult-backend/internal/repository/cassandra"
	"teleconsult-backend/internal/repository/cockroach"
	redisRepo "teleconsult-backend/internal/repository/redis"
	"teleconsult-backend/internal/scheduler"
	callService "teleconsult-backend/internal/service/call"
	consultationService "teleconsult-backend/internal/service/consultation"
	messageService "teleconsult-backend/internal/service/message"
	"teleconsult-backend/pkg/config"
	"teleconsult-backend/pkg/database"
	"teleconsult-backend/pkg/email"
	"teleconsult-backend/pkg/jwt"
	"teleconsult-backend/pkg/logger"
	"teleconsult-backend/pkg/metrics"
	"teleconsult-backend/pkg/push"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// stores
	pool, err := database.NewCockroachPool(ctx, cfg.Database)
	if err != nil {
		logger.Log.Fatal("cockroachdb unavailable", zap.Error(err))
	}
	defer pool.Close()

	redisClient, err := database.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Log.Fatal("redis unavailable", zap.Error(err))
	}
	defer redisClient.Close()

	cassandraSession, err := database.NewCassandraSession(cfg.Cassandra)
	if err != nil {
		logger.Log.Fatal("cassandra unavailable", zap.Error(err))
	}
	defer cassandraSession.Close()

	minioClient, err := database.NewMinIOClient(ctx, cfg.MinIO)
	if err != nil {
		logger.Log.Fatal("minio unavailable", zap.Error(err))
	}

	// collaborators
	m := metrics.New()
	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)
	relayIssuer, err := relay.NewTokenIssuer(cfg.Relay)
	if err != nil {
		logger.Log.Fatal("relay config invalid", zap.Error(err))
	}
	pushProvider, err := push.NewProvider(ctx, cfg.Push)
	if err != nil {
		logger.Log.Fatal("push provider init failed", zap.Error(err))
	}

	// repositories
	consultationRepo := cockroach.NewConsultationRepo(pool)
	callRepo := cockroach.NewCallRepo(pool)
	queueRepo := cockroach.NewQueueRepo(pool)
	userRepo := cockroach.NewUserRepo(pool)
	archiveRepo := cockroach.NewArchiveRepo(pool)
	messageRepo := cassandraRepo.NewMessageRepo(cassandraSession)
	presenceRepo := redisRepo.NewPresenceRepo(redisClient)
	pushTokenRepo := redisRepo.NewPushTokenRepo(redisClient)

	// services
	broadcaster := realtime.NewRedisBroadcaster(redisClient, m)
	jobs := scheduler.New(redisClient, m, cfg.Timeout.PollInterval)
	dispatcher := notify.NewDispatcher(pushTokenRepo, pushProvider, email.NewSender(cfg.SMTP))

	consultSvc := consultationService.NewService(consultationService.Deps{
		Consultations: consultationRepo,
		Calls:         callRepo,
		Messages:      messageRepo,
		Users:         userRepo,
		Queues:        queueRepo,
		Archives:      archiveRepo,
		Broadcaster:   broadcaster,
		Invites:       invite.NewLifecycle(cfg.Invite),
		Metrics:       m,
	})
	callSvc := callService.NewService(callService.Deps{
		Calls:         callRepo,
		Consultations: consultationRepo,
		Users:         userRepo,
		Presence:      presenceRepo,
		Broadcaster:   broadcaster,
		Relay:         relayIssuer,
		Jobs:          jobs,
		Notifier:      dispatcher,
		Metrics:       m,
		Timeouts:      cfg.Timeout,
	})
	consultSvc.SetCallEnder(callSvc)
	callSvc.RegisterTimeoutHandlers(jobs)

	messageSvc := messageService.NewService(
		messageRepo, consultationRepo, broadcaster,
		messageService.NewAttachmentStore(minioClient, cfg.MinIO.Bucket),
	)

	// background loops
	go jobs.Run(ctx)
	go consultationService.NewReaper(consultSvc, cfg.Timeout.Consultation).Run(ctx)

	// http
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.Recovery(),
		middleware.RequestLogger(),
		middleware.CORS(cfg.Server.CORSOrigins),
		middleware.Prometheus(m),
	)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", middleware.MetricsHandler(m))

	gateway := wsHandler.NewGateway(redisClient, presenceRepo, consultSvc, userRepo, queueRepo, jwtManager)
	router.GET("/ws", gateway.Handle)

	api := router.Group("/api/v1", middleware.Auth(jwtManager))
	consultationHandler.NewHandler(consultSvc, callSvc).RegisterRoutes(api)
	messageHandler.NewHandler(messageSvc).RegisterRoutes(api)
	deviceHandler.NewHandler(pushTokenRepo).RegisterRoutes(api)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}
	go func() {
		logger.Log.Info("consultation service listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("shutdown failed", zap.Error(err))
		os.Exit(1)
	}
}
