package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/authkeep/authkeep-go/internal/config"
	"github.com/authkeep/authkeep-go/internal/crypto"
	"github.com/authkeep/authkeep-go/internal/notify"
	"github.com/authkeep/authkeep-go/internal/repository"
	"github.com/authkeep/authkeep-go/internal/service"
)

// newUserStore opens the store selected by DATABASE_DRIVER. The returned
// func releases its connections.
func newUserStore(ctx context.Context, cfg config.Config) (service.UserStore, func(), error) {
	switch cfg.DatabaseDriver {
	case repository.DriverMySQL:
		db, err := repository.NewDB(cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewUserRepository(db), func() { db.Close() }, nil
	case repository.DriverPostgres:
		pool, err := repository.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewPostgresUserRepository(pool), pool.Close, nil
	case repository.DriverMemory:
		slog.Warn("using in-memory user store, accounts are lost on restart")
		return repository.NewMemoryUserRepository(), func() {}, nil
	default:
		return nil, nil, oops.Code("CONFIG_INVALID").Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}

func newHasher(cfg config.Config) (crypto.Hasher, error) {
	params := crypto.DefaultHashParams()
	params.Memory = cfg.Argon2Memory
	params.Iterations = cfg.Argon2Iterations
	params.Parallelism = cfg.Argon2Parallelism
	return crypto.NewHasher(cfg.PasswordHasher, params, cfg.BcryptCost)
}

func newNotifier(cfg config.Config, logger *slog.Logger) notify.Notifier {
	if !cfg.SendEmail {
		return notify.NewLogNotifier(logger)
	}
	return notify.NewSMTPNotifier(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	})
}

func newDispatcher(cfg config.Config, logger *slog.Logger) *notify.Dispatcher {
	return notify.NewDispatcher(newNotifier(cfg, logger), notify.DispatcherConfig{
		RatePerSecond: cfg.MailRatePerSecond,
		Burst:         cfg.MailBurst,
		SendTimeout:   cfg.MailSendTimeout,
	}, logger)
}
