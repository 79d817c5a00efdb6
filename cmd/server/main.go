package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/hibiken/asynq"
	"github.com/mbeoliero/kit/log"

	"github.com/mbeoliero/haven/internal/config"
	"github.com/mbeoliero/haven/internal/gateway"
	"github.com/mbeoliero/haven/internal/handler"
	"github.com/mbeoliero/haven/internal/notify"
	"github.com/mbeoliero/haven/internal/push"
	"github.com/mbeoliero/haven/internal/repository"
	"github.com/mbeoliero/haven/internal/router"
	"github.com/mbeoliero/haven/internal/service"
	"github.com/mbeoliero/haven/pkg/constant"
	"github.com/mbeoliero/haven/pkg/idgen"
	"github.com/mbeoliero/haven/pkg/jwt"
	"github.com/mbeoliero/haven/pkg/response"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load(config.PathFromEnv("config/config.yaml"))
	if err != nil {
		log.CtxError(ctx, "failed to load config: %v", err)
		panic(err)
	}
	log.CtxInfo(ctx, "config loaded: mode=%s, notify_mode=%s, push_enabled=%v", cfg.Server.Mode, cfg.Notify.Mode, cfg.Push.Enabled)

	response.SetDebug(cfg.Server.IsDebug())
	constant.InitRedisKeyPrefix(cfg.Redis.KeyPrefix)
	log.CtxInfo(ctx, "redis key prefix: %s", constant.GetRedisKeyPrefix())

	gen, err := idgen.NewSonyflakeGenerator(cfg.Server.MachineId)
	if err != nil {
		log.CtxError(ctx, "failed to initialize id generator: %v", err)
		panic(err)
	}
	idgen.SetDefaultGenerator(gen)

	// Initialize repositories
	repos, err := repository.NewRepositories(cfg)
	if err != nil {
		log.CtxError(ctx, "failed to initialize repositories: %v", err)
		panic(err)
	}
	defer repos.Close()

	if err := repos.CheckConnection(ctx); err != nil {
		log.CtxError(ctx, "database connection check failed: %v", err)
		panic(err)
	}
	log.CtxInfo(ctx, "database connection established")

	// The hub is the broadcaster, so it exists before the services that publish to it
	hub := gateway.NewHub(
		gateway.NewUserMap(repos.Redis, cfg.WebSocket.OnlineTTL),
		cfg.WebSocket.PushChannelSize,
		cfg.WebSocket.PushWorkerNum,
	)
	hub.Run(ctx)

	// Notifications
	sender, err := newPushSender(cfg)
	if err != nil {
		log.CtxError(ctx, "failed to initialize push sender: %v", err)
		panic(err)
	}
	notifications := service.NewNotificationService(repos.Chat, repos.Profile, repos.PushToken, sender, hub.Users())
	deliver := func(ctx context.Context, job *service.NewMessageJob) { notifications.Deliver(ctx, job) }

	queue, stopQueue, err := newNotificationQueue(cfg, deliver)
	if err != nil {
		log.CtxError(ctx, "failed to initialize notification queue: %v", err)
		panic(err)
	}

	// Services
	identity := service.NewIdentityService(
		jwt.NewVerifier(cfg.JWT.Secret, cfg.JWT.Issuer),
		jwt.NewRevocationStore(repos.Redis, cfg.JWT.ExpireHours),
		repos.Profile,
	)
	convService := service.NewConversationService(repos.Chat, repos.Profile)
	msgService := service.NewMessageService(repos.Chat, repos.Profile, convService,
		service.WithBroadcaster(hub),
		service.WithNotificationQueue(queue),
		service.WithMaxMessageRunes(cfg.Chat.MaxMessageLength),
	)
	channelService := service.NewChannelService(convService, hub)

	wsServer := gateway.NewWsServer(cfg.WebSocket, hub, identity, channelService, msgService)
	log.CtxInfo(ctx, "websocket gateway started")

	handlers := &router.Handlers{
		Auth:         handler.NewAuthHandler(identity),
		Conversation: handler.NewConversationHandler(convService),
		Message:      handler.NewMessageHandler(msgService),
		PushToken:    handler.NewPushTokenHandler(repos.PushToken),
	}

	h := server.Default(
		server.WithHostPorts(fmt.Sprintf(":%d", cfg.Server.HTTPPort)),
	)
	router.SetupRouter(h, handlers, wsServer, router.Options{
		Auth:           identity,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		HealthCheck:    repos.CheckConnection,
	})

	log.CtxInfo(ctx, "server starting on port %d", cfg.Server.HTTPPort)
	go func() {
		h.Spin()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.CtxInfo(ctx, "shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := h.Shutdown(shutdownCtx); err != nil {
		log.CtxError(ctx, "server shutdown error: %v", err)
	}
	hub.Close()
	cancel()
	stopQueue(shutdownCtx)

	log.CtxInfo(ctx, "server stopped")
}

func newPushSender(cfg *config.Config) (service.PushSender, error) {
	if !cfg.Push.Enabled {
		return push.NopSender{}, nil
	}
	return push.NewExpoSender(cfg.Push.Endpoint, cfg.Push.AccessToken, cfg.Push.Timeout)
}

// newNotificationQueue builds the queue selected by notify.mode and returns its shutdown hook
func newNotificationQueue(cfg *config.Config, handler notify.Handler) (service.NotificationQueue, func(context.Context), error) {
	switch cfg.Notify.Mode {
	case "asynq":
		opt := asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}
		worker := notify.NewAsynqWorker(opt, cfg.Notify.AsynqQueue, cfg.Notify.Concurrency, cfg.Notify.JobTimeout, handler)
		if err := worker.Start(); err != nil {
			return nil, nil, err
		}
		queue := notify.NewAsynqQueue(opt, cfg.Notify.AsynqQueue, cfg.Notify.QueueSize, cfg.Notify.JobTimeout)
		return queue, func(ctx context.Context) {
			if err := queue.Close(ctx); err != nil {
				log.Warn("close asynq queue failed: %v", err)
			}
			worker.Shutdown()
		}, nil

	case "local", "":
		queue := notify.NewLocalQueue(cfg.Notify.QueueSize, cfg.Notify.WorkerNum, cfg.Notify.JobTimeout, handler)
		queue.Start()
		return queue, func(ctx context.Context) {
			if err := queue.Stop(ctx); err != nil {
				log.Warn("stop notification queue failed: %v", err)
			}
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown notify.mode %q", cfg.Notify.Mode)
}
