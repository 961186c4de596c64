package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/apt/middleware"
	"github.com/appetiteclub/apt/seed"
	"github.com/appetiteclub/dinein/internal/authn"
	"github.com/appetiteclub/dinein/internal/feed"
	"github.com/appetiteclub/dinein/internal/history"
	"github.com/appetiteclub/dinein/internal/kitchen"
	"github.com/appetiteclub/dinein/internal/menu"
	"github.com/appetiteclub/dinein/internal/order"
	"github.com/appetiteclub/dinein/internal/payment"
	"github.com/appetiteclub/dinein/internal/seeding"
	"github.com/appetiteclub/dinein/internal/store"
	"github.com/appetiteclub/dinein/internal/tables"
	"github.com/appetiteclub/dinein/pkg"
	"github.com/go-chi/chi/v5"
)

const (
	Name    = "dinein"
	Version = "0.1.0"
)

// App holds every engine component and the transports built on top of them.
type App struct {
	config *apt.Config
	logger apt.Logger

	backend     *store.Backend
	broadcaster *feed.Broadcaster
	publisher   events.Publisher

	Tables   *tables.Registry
	Menu     *menu.Service
	Ledger   *order.Ledger
	Kitchen  *kitchen.Dispatcher
	Gate     *payment.Gate
	Archiver *history.Archiver
	Auth     *authn.Service
	Seeder   *seeding.Seeder

	modules   []apt.HTTPModule
	stream    *feed.StreamServer
	closers   []func() error
	closeOnce sync.Once
}

// New opens the configured store and event brokers and assembles the
// engine. Callers must Close the returned App when Run is not used.
func New(ctx context.Context, config *apt.Config, logger apt.Logger) (*App, error) {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}

	backend, err := store.Open(ctx, config, logger)
	if err != nil {
		return nil, fmt.Errorf("cannot open store: %w", err)
	}

	a := &App{
		config:  config,
		logger:  logger,
		backend: backend,
	}

	if err := a.connectEvents(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if err := a.build(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) connectEvents(ctx context.Context) error {
	a.broadcaster = feed.NewBroadcaster(a.config.GetIntOrDef("feed.buffer", 100), a.logger)

	var publishers pkg.Publishers

	if natsURL := a.config.GetStringOrDef("nats.url", ""); natsURL != "" {
		if a.config.GetBoolOrFalse("nats.stream.enabled") {
			stream, err := pkg.NewNATSStream(ctx, pkg.NATSStreamConfig{
				URL:          natsURL,
				StreamName:   a.config.GetStringOrDef("nats.stream.name", "DINEIN_EVENTS"),
				Subject:      "dinein.>",
				ConsumerName: a.config.GetStringOrDef("nats.stream.consumer", "dinein-server"),
				MaxAge:       a.config.GetDurationOrDef("nats.stream.max.age", 0),
			}, a.logger)
			if err != nil {
				return fmt.Errorf("cannot open NATS stream: %w", err)
			}
			publishers = append(publishers, stream)
			a.closers = append(a.closers, stream.Close)
			a.logger.Info("publishing change events to JetStream", "url", natsURL)
		} else {
			publisher, err := pkg.NewNATSPublisher(natsURL)
			if err != nil {
				return fmt.Errorf("cannot connect to NATS publisher: %w", err)
			}
			publishers = append(publishers, publisher)
			a.closers = append(a.closers, publisher.Close)
			a.logger.Info("publishing change events to NATS", "url", natsURL)
		}
	}

	if brokers := splitList(a.config.GetStringOrDef("kafka.brokers", "")); len(brokers) > 0 {
		kp, err := pkg.NewKafkaPublisher(brokers, a.logger)
		if err != nil {
			return err
		}
		publishers = append(publishers, kp)
		a.closers = append(a.closers, kp.Close)
		a.logger.Info("publishing change events to Kafka", "brokers", brokers)
	}

	if amqpURL := a.config.GetStringOrDef("amqp.url", ""); amqpURL != "" {
		ap, err := pkg.NewAMQPPublisher(pkg.AMQPConfig{
			URL:      amqpURL,
			Exchange: a.config.GetStringOrDef("amqp.exchange", pkg.DefaultExchange),
		})
		if err != nil {
			return err
		}
		publishers = append(publishers, ap)
		a.closers = append(a.closers, ap.Close)
		a.logger.Info("publishing change events to RabbitMQ", "exchange", ap.Exchange())
	}

	switch len(publishers) {
	case 0:
		a.logger.Info("no event broker configured, change events stay in process")
	case 1:
		a.publisher = publishers[0]
	default:
		a.publisher = publishers
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (a *App) build() error {
	st := a.backend.Store
	locks := store.NewKeyLocker()
	hub := feed.NewHub(a.broadcaster, a.publisher, a.logger)

	a.Tables = tables.NewRegistry(tables.NewStoreRepo(st), locks, hub, a.logger)
	a.Menu = menu.NewService(st, locks, hub, a.logger)

	a.Ledger = order.NewLedger(order.LedgerDeps{
		Store:    st,
		Tables:   a.Tables,
		Menu:     a.Menu,
		Locks:    locks,
		Notifier: hub,
	}, a.logger)

	a.Kitchen = kitchen.NewDispatcher(kitchen.DispatcherDeps{
		Store:    st,
		Ledger:   a.Ledger,
		Notifier: hub,
	}, a.logger)

	a.Gate = payment.NewGate(payment.GateDeps{
		Ledger:  a.Ledger,
		Tables:  a.Tables,
		Kitchen: a.Kitchen,
	}, a.logger)

	a.Archiver = history.NewArchiver(st, hub, a.logger)
	a.Tables.UseSessions(a.Ledger, history.NewCloser(a.Archiver, a.Ledger, a.Kitchen, a.logger))

	auth, err := authn.NewService(st, authn.ConfigFrom(a.config), a.logger)
	if err != nil {
		return fmt.Errorf("cannot set up authentication: %w", err)
	}
	a.Auth = auth

	var tracker seed.Tracker = seeding.NewStoreTracker(st)
	if a.backend.Mongo != nil {
		tracker = seed.NewMongoTracker(a.backend.Mongo.GetDatabase())
	}
	seeder, err := seeding.NewSeeder(seeding.Deps{
		Tables:  a.Tables,
		Menu:    a.Menu,
		Users:   a.Auth,
		Tracker: tracker,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("cannot load demo seeds: %w", err)
	}
	a.Seeder = seeder

	staff := a.Auth.RequireStaff
	a.modules = []apt.HTTPModule{
		&healthHandler{},
		tables.NewHandler(tables.HandlerDeps{Registry: a.Tables, Staff: staff}, a.config, a.logger),
		order.NewHandler(a.Ledger, a.config, a.logger),
		payment.NewHandler(a.Gate, a.config, a.logger),
		kitchen.NewHandler(kitchen.HandlerDeps{Dispatcher: a.Kitchen, Staff: staff}, a.config, a.logger),
		menu.NewHandler(menu.HandlerDeps{Service: a.Menu, Staff: staff}, a.config, a.logger),
		history.NewHandler(history.HandlerDeps{Archiver: a.Archiver, Staff: staff}, a.config, a.logger),
		authn.NewHandler(a.Auth, a.config, a.logger),
		seeding.NewHandler(seeding.HandlerDeps{Seeder: a.Seeder, Staff: staff}, a.config, a.logger),
		feed.NewSSEHandler(a.broadcaster, a.logger),
	}
	a.stream = feed.NewStreamServer(a.broadcaster, a.snapshot, a.logger)
	return nil
}

// Middleware is the stack every HTTP route runs behind.
func (a *App) Middleware() []func(http.Handler) http.Handler {
	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger: a.logger,
	})
	return append(stack, a.Auth.Identify)
}

// Router mounts every module on a fresh chi router. Run builds its own
// router through apt; this one serves tests and embedding.
func (a *App) Router() chi.Router {
	r := chi.NewRouter()
	for _, mw := range a.Middleware() {
		r.Use(mw)
	}
	for _, m := range a.modules {
		m.RegisterRoutes(r)
	}
	return r
}

// Run serves HTTP and gRPC until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	seedCtx, cancelSeeds := context.WithCancel(ctx)
	defer cancelSeeds()

	lifecycle := []any{
		apt.LifecycleHooks{
			OnStop: func(ctx context.Context) error {
				a.Close()
				return nil
			},
		},
	}

	if a.config.GetBoolOrTrue("seed.demo") {
		a.logger.Info("demo seeding enabled")
		lifecycle = append(lifecycle, apt.LifecycleHooks{
			OnStart: seeding.SeedingFunc(seedCtx, a.Seeder, a.logger),
			OnStop:  seeding.StopFunc(cancelSeeds),
		})
	}

	options := []apt.Option{
		apt.WithConfig(a.config),
		apt.WithLogger(a.logger),
		// Health checks are collected when the HTTP server is built.
		apt.WithHealthChecks(Name, apt.HealthStatusOK, a.ready),
		apt.WithHTTPMiddleware(a.Middleware()...),
		apt.WithHTTPServerModules("web.port", a.modules...),
		apt.WithGRPCServerModules("grpc.port", a.stream),
		apt.WithLifecycle(lifecycle...),
	}

	ms := apt.NewMicro(options...)
	a.logger.Infof("Starting %s(%s) with %s store", Name, Version, a.backend.Driver)
	return ms.Run(ctx)
}

func (a *App) ready(ctx context.Context) error {
	if err := a.backend.Store.Ping(ctx); err != nil {
		return fmt.Errorf("store not ready: %w", err)
	}
	return nil
}

// Close releases the broker connections and the store backend. It is safe to
// call more than once.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		err := errors.Join(a.closeAll(), a.backend.Stop(context.Background()))
		if err != nil {
			a.logger.Error("error releasing resources", "error", err)
		}
	})
}

func (a *App) closeAll() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

type healthHandler struct{}

func (h *healthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		apt.RespondSuccess(w, map[string]string{"status": "ok"})
	})
}
