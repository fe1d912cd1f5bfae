package cli

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/sluice/internal/config"
	"github.com/aretw0/sluice/pkg/adapters/file"
	"github.com/aretw0/sluice/pkg/adapters/memory"
	"github.com/aretw0/sluice/pkg/adapters/redis"
	"github.com/aretw0/sluice/pkg/adapters/sqlite"
	"github.com/aretw0/sluice/pkg/persistence/middleware"
	"github.com/aretw0/sluice/pkg/ports"
)

type runStore struct {
	store  ports.RunStore
	locker ports.DistributedLocker
	close  func() error
}

func newStore(cfg config.StoreConfig, logger *slog.Logger) (*runStore, error) {
	st := &runStore{close: func() error { return nil }}

	switch cfg.Type {
	case config.StoreMemory:
		st.store = memory.NewStore()
	case config.StoreFile:
		st.store = file.New(cfg.Path)
	case config.StoreSQLite:
		s, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, err
		}
		st.store, st.close = s, s.Close
	case config.StoreRedis:
		var opts []redis.Option
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		if cfg.Redis.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.Redis.TTL))
		}
		s := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		st.store, st.close = s, s.Close
		if cfg.Redis.Lock {
			st.locker = redis.NewLocker(s.Client(), s.Prefix())
		}
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}

	var mws []middleware.Middleware
	if len(cfg.Redact) > 0 {
		mw, err := middleware.NewPIIMiddleware(cfg.Redact)
		if err != nil {
			return nil, fmt.Errorf("store.redact: %w", err)
		}
		mws = append(mws, mw)
	}
	if cfg.EncryptionKey != "" {
		enc, err := encryptionConfig(cfg)
		if err != nil {
			return nil, err
		}
		mw, err := middleware.NewEncryptionMiddleware(enc)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	st.store = middleware.Chain(st.store, mws...)

	logger.Debug("run store ready", "type", cfg.Type, "encrypted", cfg.EncryptionKey != "", "locking", st.locker != nil)
	return st, nil
}

func encryptionConfig(cfg config.StoreConfig) (middleware.EncryptionConfig, error) {
	active, err := config.DecodeKey(cfg.EncryptionKey)
	if err != nil {
		return middleware.EncryptionConfig{}, fmt.Errorf("store.encryption_key: %w", err)
	}
	out := middleware.EncryptionConfig{ActiveKey: active}
	for _, k := range cfg.FallbackKeys {
		key, err := config.DecodeKey(k)
		if err != nil {
			return middleware.EncryptionConfig{}, fmt.Errorf("store.fallback_keys: %w", err)
		}
		out.FallbackKeys = append(out.FallbackKeys, key)
	}
	return out, nil
}
