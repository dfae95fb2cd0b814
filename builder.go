package signon

import (
	"errors"

	"github.com/davrx/signon/internal/stores"
	"github.com/davrx/signon/jwt"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. Without a Redis client the three ephemeral
// stores are process-local and volatile, which is the intended default: no
// credential survives a restart. WithRedis switches all three to shared
// backends for multi-process deployments.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	userProvider UserProvider
	messenger    Messenger
	auditSink    AuditSink

	built bool
}

// New returns a Builder preloaded with default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. Call before other With*
// methods that touch config fields.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis externalizes the OTP, reset, and revocation stores to Redis.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserProvider supplies the account lookup collaborator. Required.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithMessenger supplies the outbound delivery collaborator. Required.
func (b *Builder) WithMessenger(m Messenger) *Builder {
	b.messenger = m
	return b
}

// WithAuditSink supplies the audit destination and enables the pipeline.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, wires the stores and token service,
// and returns a ready Engine. A Builder can build at most once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}
	if b.messenger == nil {
		return nil, errors.New("messenger required")
	}

	engine := &Engine{
		config:       cfg,
		userProvider: b.userProvider,
		messenger:    b.messenger,
	}

	if b.redis != nil {
		engine.otpStore = stores.NewRedisOTPStore(b.redis, cfg.OTP.RedisPrefix)
		engine.resetStore = stores.NewRedisResetStore(b.redis, cfg.Reset.RedisPrefix)
		engine.revocations = stores.NewRedisRevocationList(b.redis, cfg.Revocation.RedisPrefix)
	} else {
		engine.otpStore = stores.NewMemoryOTPStore()
		engine.resetStore = stores.NewMemoryResetStore()
		engine.revocations = stores.NewMemoryRevocationList()
	}

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:        cfg.JWT.AccessTTL,
		RefreshTTL:       cfg.JWT.RefreshTTL,
		SigningMethod:    jwt.SigningMethod(cfg.JWT.SigningMethod),
		AccessKey:        cloneBytes(cfg.JWT.AccessKey),
		RefreshKey:       cloneBytes(cfg.JWT.RefreshKey),
		AccessPublicKey:  cloneBytes(cfg.JWT.AccessPublicKey),
		RefreshPublicKey: cloneBytes(cfg.JWT.RefreshPublicKey),
		Issuer:           cfg.JWT.Issuer,
		Leeway:           cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}
	engine.tokens = jm

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
