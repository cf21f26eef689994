// Package bootstrap assembles the server from its configuration: it binds
// the standard namespace, the sample building and the configured model
// files, freezes the address space and builds the services on top of it.
//
// The frozen space is published atomically. Until Start succeeds Services
// returns nil and the readiness check fails.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-uaspace/pkg/addressspace"
	"github.com/dd0wney/cluso-uaspace/pkg/auth"
	"github.com/dd0wney/cluso-uaspace/pkg/browse"
	"github.com/dd0wney/cluso-uaspace/pkg/config"
	"github.com/dd0wney/cluso-uaspace/pkg/health"
	"github.com/dd0wney/cluso-uaspace/pkg/history"
	"github.com/dd0wney/cluso-uaspace/pkg/logging"
	"github.com/dd0wney/cluso-uaspace/pkg/metrics"
	"github.com/dd0wney/cluso-uaspace/pkg/modelfile"
	"github.com/dd0wney/cluso-uaspace/pkg/objects"
	"github.com/dd0wney/cluso-uaspace/pkg/sample"
	"github.com/dd0wney/cluso-uaspace/pkg/ua"
)

// ErrNotStarted is returned by operations that need the frozen space.
var ErrNotStarted = errors.New("bootstrap: address space not published")

// SimulationInterval is the sensor update period of the sample building.
const SimulationInterval = 2 * time.Second

// Services are the request handlers built on the frozen space.
type Services struct {
	Space   *addressspace.Space
	Browse  *browse.Service
	History *history.Service
	// Objects is the sample building backend, nil when the sample is off.
	Objects *objects.Backend

	archive *history.PGProvider
}

// Runtime owns every long-lived component of the server.
type Runtime struct {
	cfg     *config.Config
	logger  logging.Logger
	metrics *metrics.Registry
	health  *health.HealthChecker

	authenticator auth.Authenticator
	users         *auth.UserStore
	tokens        *auth.TokenManager

	building *sample.Building
	pg       *history.PGProvider

	services  atomic.Pointer[Services]
	startMu   sync.Mutex
	closeOnce sync.Once
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Runtime) { r.logger = l }
}

// WithMetrics sets the metrics registry. Defaults to a fresh registry.
func WithMetrics(m *metrics.Registry) Option {
	return func(r *Runtime) { r.metrics = m }
}

// New prepares a runtime for cfg: authentication and health checks are set
// up, the address space is not built yet.
func New(cfg *config.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: nil config")
	}
	r := &Runtime{cfg: cfg, health: health.NewHealthChecker()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrDefault(r.logger).With(logging.Component("bootstrap"))
	if r.metrics == nil {
		r.metrics = metrics.NewRegistry()
	}
	if cfg.AddressSpace.Sample {
		r.building = sample.NewBuilding()
	}
	if err := r.setupAuth(); err != nil {
		return nil, err
	}

	r.health.RegisterReadinessCheck("addressspace", health.AddressSpaceCheck(r.spaceState))
	r.health.RegisterCheck("addressspace", health.AddressSpaceCheck(r.spaceState))
	r.health.RegisterCheck("memory", health.MemoryCheck())
	r.health.RegisterLivenessCheck("process", func(context.Context) health.Check {
		return health.Check{Name: "process", Status: health.StatusHealthy}
	})
	return r, nil
}

func (r *Runtime) setupAuth() error {
	a := r.cfg.Auth
	if a.Mode == config.AuthNone {
		r.authenticator = auth.Anonymous{}
		return nil
	}

	r.users = auth.NewUserStore(
		auth.WithStoreLogger(r.logger),
		auth.WithStoreMetrics(r.metrics),
	)
	for _, u := range a.Users {
		if _, err := r.users.AddHashed(u.Username, u.PasswordHash, u.Role); err != nil {
			return fmt.Errorf("bootstrap: user %s: %w", u.Username, err)
		}
	}
	if len(a.Users) == 0 && r.building != nil {
		if err := sample.AddUsers(r.users); err != nil {
			return fmt.Errorf("bootstrap: sample users: %w", err)
		}
		r.logger.Warn("no users configured, using the sample accounts")
	}

	if a.Mode == config.AuthPassword {
		r.authenticator = r.users
		return nil
	}
	tokens, err := auth.NewTokenManager(a.JWT.Secret, a.JWT.Issuer, a.JWT.TokenTTL, r.metrics)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	r.tokens = tokens
	r.authenticator = auth.Chain{tokens, r.users}
	return nil
}

// Start builds and freezes the address space and publishes the services.
// Once it has succeeded further calls return nil; a failed Start may be
// retried.
func (r *Runtime) Start(ctx context.Context) error {
	r.startMu.Lock()
	defer r.startMu.Unlock()
	if r.services.Load() != nil {
		return nil
	}

	timer := logging.StartTimer(r.logger, "address space built")
	svc, err := r.build(ctx)
	if err != nil {
		timer.EndError(err)
		return err
	}
	r.services.Store(svc)
	timer.EndInfo(logging.Int("namespaces", len(svc.Space.Namespaces())))
	return nil
}

func (r *Runtime) build(ctx context.Context) (*Services, error) {
	asCfg := r.cfg.AddressSpace
	modelOpts := []modelfile.Option{
		modelfile.WithLogger(r.logger),
		modelfile.WithMetrics(r.metrics),
		modelfile.WithLocale(asCfg.Locale),
	}

	builder := addressspace.NewBuilder(addressspace.WithLogger(r.logger), addressspace.WithMetrics(r.metrics))
	standard, err := modelfile.Standard(ctx, modelOpts...)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: standard model: %w", err)
	}
	if err := builder.Bind(ua.NamespaceIndexStandard, ua.NamespaceURIStandard, standard); err != nil {
		return nil, err
	}

	svc := &Services{}
	if r.building != nil {
		_, err := builder.Register(asCfg.SampleURI, func(ns uint16, lookup addressspace.Lookup) (addressspace.Backend, error) {
			b, err := r.building.Backend(ns, lookup,
				objects.WithLogger(r.logger),
				objects.WithMetrics(r.metrics),
				objects.WithLocale(asCfg.Locale),
			)
			if err != nil {
				return nil, err
			}
			svc.Objects = b
			return b, nil
		})
		if err != nil {
			return nil, fmt.Errorf("bootstrap: sample namespace: %w", err)
		}
	}

	s3opts := modelfile.S3Options(asCfg.S3)
	for _, m := range asCfg.Models {
		model, err := modelfile.OpenLocation(ctx, m.Path, s3opts)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: model %s: %w", m.URI, err)
		}
		var ids modelfile.Source
		if m.NodeIDs != "" {
			if ids, err = modelfile.OpenLocation(ctx, m.NodeIDs, s3opts); err != nil {
				return nil, fmt.Errorf("bootstrap: node ids of %s: %w", m.URI, err)
			}
		}
		if _, err := builder.Register(m.URI, modelfile.Factory(model, ids, modelOpts...)); err != nil {
			return nil, fmt.Errorf("bootstrap: model %s: %w", m.URI, err)
		}
	}

	space, err := builder.Freeze()
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	svc.Space = space

	svc.Browse = browse.NewService(space,
		browse.WithLogger(r.logger),
		browse.WithMetrics(r.metrics),
		browse.WithMaxNodesPerRequest(r.cfg.Browse.MaxNodesPerRequest),
	)

	provider, err := r.historyProvider(ctx, svc)
	if err != nil {
		return nil, err
	}
	svc.History = history.NewService(space, provider, history.WithLogger(r.logger), history.WithMetrics(r.metrics))
	return svc, nil
}

func (r *Runtime) historyProvider(ctx context.Context, svc *Services) (history.Provider, error) {
	objs := svc.Objects
	switch r.cfg.History.Provider {
	case config.HistoryMock:
		router := history.NewRouter(history.Mock{})
		if objs != nil {
			router.Route(objs.Namespace(), history.NewFieldAdapter(objs, history.Mock{}))
		}
		return router, nil
	case config.HistoryPostgres:
		pg, err := history.NewPGProvider(ctx, r.cfg.History.DSN)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: history: %w", err)
		}
		r.pg = pg
		svc.archive = pg
		r.health.RegisterReadinessCheck("database", health.DatabaseCheck(pg.Ping))
		return pg, nil
	default:
		return nil, nil
	}
}

func (r *Runtime) spaceState() (bool, int, int) {
	svc := r.services.Load()
	if svc == nil {
		return false, 0, 0
	}
	nodes := 0
	for _, ns := range svc.Space.Namespaces() {
		nodes += max(ns.Nodes, 0)
	}
	return true, len(svc.Space.Namespaces()), nodes
}

// Simulate runs the sample sensor simulation until ctx is done. It returns
// at once when the sample is off. With the postgres history provider every
// step is archived so HistoryRead has data to return.
func (r *Runtime) Simulate(ctx context.Context) {
	if r.building == nil {
		return
	}
	r.building.Simulate(ctx, SimulationInterval, nil, func(now time.Time) { r.archive(ctx, now) })
}

// archive appends the current sensor values of the sample building.
func (r *Runtime) archive(ctx context.Context, now time.Time) {
	svc := r.services.Load()
	if svc == nil || svc.Objects == nil || svc.archive == nil {
		return
	}
	ns := svc.Objects.Namespace()
	for _, room := range r.building.Rooms() {
		readings := []struct {
			id    ua.NodeID
			value float64
		}{
			{objects.InstanceID(ns, sample.TemperatureType, room.Temperature.ID), room.Temperature.Value()},
			{objects.InstanceID(ns, sample.HumidityType, room.Humidity.ID), room.Humidity.Value()},
		}
		for _, rd := range readings {
			if err := svc.archive.Append(ctx, rd.id, history.Good(rd.value, now)); err != nil {
				if ctx.Err() == nil {
					r.logger.Warn("archiving sample failed", logging.NodeID(rd.id), logging.Error(err))
				}
				return
			}
		}
	}
}

// Reload applies the parts of cfg that may change at runtime: the log
// level.
func (r *Runtime) Reload(cfg *config.Config) {
	level := logging.ParseLevel(cfg.Logging.Level)
	r.logger.SetLevel(level)
	r.logger.Info("log level changed", logging.String("level", level.String()))
}

// Close releases external connections.
func (r *Runtime) Close() error {
	var err error
	r.closeOnce.Do(func() {
		if r.pg != nil {
			err = r.pg.Close()
		}
	})
	return err
}

// Services returns the published services, or nil before Start.
func (r *Runtime) Services() *Services { return r.services.Load() }

func (r *Runtime) Config() *config.Config            { return r.cfg }
func (r *Runtime) Logger() logging.Logger            { return r.logger }
func (r *Runtime) Metrics() *metrics.Registry        { return r.metrics }
func (r *Runtime) Health() *health.HealthChecker     { return r.health }
func (r *Runtime) Authenticator() auth.Authenticator { return r.authenticator }
func (r *Runtime) Users() *auth.UserStore            { return r.users }
func (r *Runtime) Tokens() *auth.TokenManager        { return r.tokens }
func (r *Runtime) Building() *sample.Building        { return r.building }
