package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gopherdesk/supportbot/internal/ai"
	"github.com/gopherdesk/supportbot/internal/chat"
	"github.com/gopherdesk/supportbot/internal/config"
	"github.com/gopherdesk/supportbot/internal/db"
	"github.com/gopherdesk/supportbot/internal/httpapi"
	"github.com/gopherdesk/supportbot/internal/httpapi/handlers"
	"github.com/gopherdesk/supportbot/internal/kb"
	"github.com/gopherdesk/supportbot/internal/store/rabbitmq"
	"github.com/gopherdesk/supportbot/internal/store/redisstore"
)

func buildProvider(cfg config.Config) ai.Provider {
	reg := ai.NewRegistry()

	reg.Register("ollama", func(ctx context.Context, model string) (ai.Provider, error) {
		_ = ctx
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.OllamaModel
		}
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, m), nil
	})

	reg.Register("openrouter", func(ctx context.Context, model string) (ai.Provider, error) {
		_ = ctx
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.OpenRouterModel
		}
		return ai.NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, m, cfg.OpenRouterSiteURL, cfg.OpenRouterAppName), nil
	})

	provider, err := reg.Get(context.Background(), cfg.AIProvider, "")
	if err != nil {
		log.Fatalf("ai provider: %v", err)
	}
	return provider
}

func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)
	if err := gdb.AutoMigrate(
		&kb.Entry{},
		&chat.User{},
		&chat.Session{},
		&chat.Message{},
		&chat.Escalation{},
		&chat.SessionMetrics{},
	); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	provider := buildProvider(cfg)
	embedder := ai.NewOllamaEmbedder(cfg.OllamaBaseURL, cfg.OllamaEmbedModel)

	// Redis backs the cross-instance session lock. Without it a single
	// instance still works on in-process locks.
	var locker chat.SessionLocker
	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := rds.Ping(pingCtx); err != nil {
		log.Printf("redis unavailable, using in-process session locks: %v", err)
	} else {
		locker = rds
	}
	cancel()

	kbRepo := kb.NewRepo(gdb)
	kbCache := kb.NewCache(kbRepo)
	if _, err := kbCache.Reload(context.Background()); err != nil {
		log.Fatalf("kb snapshot load: %v", err)
	}
	kbSvc := kb.NewService(kbRepo, kbCache, embedder)

	chatRepo := chat.NewRepo(gdb)
	chatSvc := chat.NewService(chatRepo, kbCache, embedder, provider, locker, cfg.ChatContextWindowSize)

	pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Printf("rabbit unavailable, post-turn events disabled: %v", err)
	} else {
		defer pub.Close()
		chatSvc.SetPublisher(pub)
	}

	r := httpapi.NewRouter(handlers.NewHandler(chatSvc, kbSvc))

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	log.Printf("api listening on %s provider=%s", addr, cfg.AIProvider)
	if err := r.Run(addr); err != nil {
		log.Fatalf("http server: %v", err)
	}
}
