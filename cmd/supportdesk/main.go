// Command supportdesk serves the customer-support chat and product
// recommendation proxy in front of an automation webhook.
package main

import (
	"context"
	"io"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/0xcro3dile/supportdesk-go/internal/adapters/auditlog"
	"github.com/0xcro3dile/supportdesk-go/internal/adapters/cache"
	"github.com/0xcro3dile/supportdesk-go/internal/adapters/content"
	"github.com/0xcro3dile/supportdesk-go/internal/adapters/filewatcher"
	"github.com/0xcro3dile/supportdesk-go/internal/adapters/llm"
	"github.com/0xcro3dile/supportdesk-go/internal/adapters/webhook"
	"github.com/0xcro3dile/supportdesk-go/internal/config"
	"github.com/0xcro3dile/supportdesk-go/internal/domain/ports"
	"github.com/0xcro3dile/supportdesk-go/internal/domain/usecases"
	httpserver "github.com/0xcro3dile/supportdesk-go/internal/infrastructure/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("supportdesk stopped")
	}
	log.Info("supportdesk stopped")
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	dispatcher := newDispatcher(cfg, log)

	audit, closeAudit, err := newAuditLog(cfg)
	if err != nil {
		return err
	}
	defer closeAudit.Close()
	log.WithField("driver", cfg.AuditDriver).Info("audit log ready")

	var recCache ports.RecommendationCache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCacheFromURL(ctx, cfg.RedisURL)
		if err != nil {
			log.WithError(err).Warn("redis unavailable, recommendations will not be cached")
		} else {
			defer rc.Close()
			recCache = rc
			log.Info("recommendation cache enabled")
		}
	}

	fallbacks := usecases.NewFallbackSelector(usecases.DefaultCatalog())
	if cfg.FallbackContentPath != "" {
		if err := startContentReloader(ctx, cfg.FallbackContentPath, fallbacks, log); err != nil {
			return err
		}
	}

	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	shaper := usecases.NewProductShaper(usecases.NewLockedSource(seed))

	if cfg.ChatWebhookURL == "" {
		log.Warn("CHAT_WEBHOOK_URL is not set, every chat reply will be a fallback")
	}
	if cfg.RecommendationsWebhookURL == "" {
		log.Warn("RECOMMENDATIONS_WEBHOOK_URL is not set, recommendations will answer 500")
	}

	chat := usecases.NewChatUseCase(
		dispatcher,
		fallbacks,
		audit,
		log.WithField("pipeline", "chat"),
		cfg.ChatWebhookURL,
		cfg.ChatTimeout,
	)
	recommend := usecases.NewRecommendUseCase(
		dispatcher,
		fallbacks,
		shaper,
		recCache,
		audit,
		log.WithField("pipeline", "recommendations"),
		usecases.RecommendConfig{
			Endpoint: cfg.RecommendationsWebhookURL,
			Timeout:  cfg.RecommendationsTimeout,
			CacheTTL: cfg.RecommendationsCacheTTL,
		},
	)

	server := httpserver.NewServer(chat, recommend, audit, log, ":"+cfg.Port, cfg.AllowedOrigins)
	return server.Start(ctx)
}

func newDispatcher(cfg *config.Config, log logrus.FieldLogger) ports.WebhookDispatcher {
	if cfg.UpstreamMode == config.UpstreamOpenAI {
		log.WithFields(logrus.Fields{"base_url": cfg.OpenAIBaseURL, "model": cfg.OpenAIModel}).Info("using OpenAI-compatible upstream")
		return llm.NewOpenAIDispatcher(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, nil)
	}
	return webhook.NewN8NDispatcher(&http.Client{})
}

func newAuditLog(cfg *config.Config) (ports.AuditLog, io.Closer, error) {
	if cfg.AuditDriver == config.AuditMemory {
		return auditlog.NewInMemoryAuditLog(0), io.NopCloser(nil), nil
	}
	dsn := cfg.AuditDSN
	if dsn == "" && cfg.AuditDriver == config.AuditMySQL {
		dsn = auditlog.MySQLDSN(cfg.MySQL.User, cfg.MySQL.Password, cfg.MySQL.Host, cfg.MySQL.Database)
	}
	store, err := auditlog.NewSQLAuditLog(cfg.AuditDriver, dsn)
	if err != nil {
		return nil, nil, err
	}
	return store, store, nil
}

func startContentReloader(ctx context.Context, path string, fallbacks *usecases.FallbackSelector, log logrus.FieldLogger) error {
	watcher, err := filewatcher.NewFSNotifyWatcher([]string{filepath.Base(path)}, log)
	if err != nil {
		return err
	}
	reloader := content.NewReloader(path, fallbacks, watcher, log.WithField("component", "content"))
	if err := reloader.Reload(); err != nil {
		log.WithError(err).Warn("fallback content not loaded, using built-in defaults")
	}
	go func() {
		if err := reloader.Run(ctx); err != nil {
			log.WithError(err).Error("fallback content watcher stopped")
		}
	}()
	return nil
}
