package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"

	"wa-group-gateway/internal/config"
	"wa-group-gateway/internal/controller"
	"wa-group-gateway/internal/handler"
	"wa-group-gateway/internal/metrics"
	"wa-group-gateway/internal/pairing"
	"wa-group-gateway/internal/pkg/logger"
	"wa-group-gateway/internal/service"
	"wa-group-gateway/internal/session"
	"wa-group-gateway/internal/websocket"
	"wa-group-gateway/internal/whatsapp"
	pktNats "wa-group-gateway/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"go.mau.fi/whatsmeow/store/sqlstore"
)

// SessionCore is everything needed to keep a chat session alive: enough for
// the pair command on its own.
type SessionCore struct {
	Logger    *logger.ZapLogger
	Tracker   *session.Tracker
	Pairing   *session.PairingStore
	Bus       *gochannel.GoChannel
	Lifecycle *session.Lifecycle
	Metrics   *metrics.Recorder
	WhatsApp  *whatsapp.Client

	store *sqlstore.Container
}

type Container struct {
	*SessionCore

	// Controllers
	GatewayController controller.IGatewayController

	// Background Services (Exposed for the serve command to run)
	ConsumerService service.IConsumerService
	DispatchService service.IDispatchService

	// WebSockets
	SessionHandler *handler.SessionHandler
	WebSocketHub   *websocket.Hub

	natsPub *pktNats.Publisher
	rdb     *redis.Client
}

// NewSessionCore opens the session store and builds an unconnected client.
func NewSessionCore(ctx context.Context, cfg *config.Config) (*SessionCore, error) {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	sessionLogger := logger.NewIsolatedLogger(cfg.App.SessionLogFilePath)
	waLogger := logger.NewWALogger(sessionLogger, "whatsmeow", cfg.Session.WALogLevel)

	// 1. Event Bus
	bus := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NopLogger{},
	)

	// 2. Session state
	recorder := metrics.NewRecorder()
	tracker := session.NewTracker()
	pairingStore := session.NewPairingStore()
	lifecycle := session.NewLifecycle(tracker, pairingStore, bus, recorder, sysLogger)

	// 3. Session client
	store, err := whatsapp.OpenStore(ctx, cfg.Session.StoreDialect, cfg.Session.StoreDSN, waLogger.Sub("store"))
	if err != nil {
		bus.Close()
		return nil, err
	}

	client, err := whatsapp.NewClient(ctx, store, lifecycle, cfg.Session.PairingRetryBackoff, sysLogger, waLogger.Sub("client"))
	if err != nil {
		store.Close()
		bus.Close()
		return nil, err
	}

	return &SessionCore{
		Logger:    sysLogger,
		Tracker:   tracker,
		Pairing:   pairingStore,
		Bus:       bus,
		Lifecycle: lifecycle,
		Metrics:   recorder,
		WhatsApp:  client,
		store:     store,
	}, nil
}

// NewContainer builds the full gateway. NATS and redis are optional and only
// logged when unreachable.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	core, err := NewSessionCore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to start session core: %w", err)
	}
	sysLogger := core.Logger

	// 1. Infrastructure
	var natsPub *pktNats.Publisher
	var eventPublisher service.EventPublisher
	if cfg.App.NatsURL != "" {
		natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect to NATS Publisher", map[string]interface{}{"error": err.Error()})
		} else {
			eventPublisher = natsPub
		}
	}

	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		if err := rdb.Ping(ctx).Err(); err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect to Redis, relay disabled", map[string]interface{}{"error": err.Error()})
			rdb.Close()
			rdb = nil
		}
	}

	// 2. WebSocket Hub
	wsLogger := logger.NewIsolatedLogger(cfg.App.WSLogFilePath)
	wsHub := websocket.NewHub(rdb, cfg.App.InstanceID, wsLogger)
	if err := wsHub.Subscribe(ctx); err != nil {
		sysLogger.Warn("BOOTSTRAP", "Failed to join cluster channel", map[string]interface{}{"error": err.Error()})
	}

	// 3. Services
	var terminal io.Writer
	if pairing.PrintsToTerminal(cfg.Session.QRMode) {
		terminal = os.Stdout
	}
	consumerService := service.NewConsumerService(core.Bus, wsHub, eventPublisher, terminal, sysLogger)

	dispatchService := service.NewDispatchService(
		core.Tracker,
		core.WhatsApp,
		cfg.Dispatch,
		sysLogger,
		core.Metrics,
		eventPublisher,
	)

	presenter := pairing.NewPresenter(core.Pairing)

	// 4. Controllers
	return &Container{
		SessionCore: core,
		GatewayController: controller.NewGatewayController(
			dispatchService,
			presenter,
			core.Tracker,
			cfg.Auth,
			pairing.ModeFromConfig(cfg.Session.QRMode),
			sysLogger,
		),
		ConsumerService: consumerService,
		DispatchService: dispatchService,
		SessionHandler:  handler.NewSessionHandler(wsHub, cfg.Auth, wsLogger),
		WebSocketHub:    wsHub,
		natsPub:         natsPub,
		rdb:             rdb,
	}, nil
}

// Close releases the session store and the bus. The client must be stopped first.
func (s *SessionCore) Close() {
	if err := s.Bus.Close(); err != nil {
		s.Logger.Warn("BOOTSTRAP", "Failed to close event bus", map[string]interface{}{"error": err.Error()})
	}
	if err := s.store.Close(); err != nil {
		s.Logger.Warn("BOOTSTRAP", "Failed to close session store", map[string]interface{}{"error": err.Error()})
	}
	s.Logger.Sync()
}

func (c *Container) Close() {
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.rdb != nil {
		c.rdb.Close()
	}
	c.SessionCore.Close()
}
