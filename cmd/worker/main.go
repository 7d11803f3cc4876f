package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gopherdesk/supportbot/internal/ai"
	"github.com/gopherdesk/supportbot/internal/chat"
	"github.com/gopherdesk/supportbot/internal/config"
	"github.com/gopherdesk/supportbot/internal/db"
	"github.com/gopherdesk/supportbot/internal/kb"
	"github.com/gopherdesk/supportbot/internal/store/rabbitmq"
	amqp "github.com/rabbitmq/amqp091-go"
)

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)

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
	embedder := ai.NewOllamaEmbedder(cfg.OllamaBaseURL, cfg.OllamaEmbedModel)

	kbRepo := kb.NewRepo(gdb)
	kbCache := kb.NewCache(kbRepo)
	if _, err := kbCache.Reload(context.Background()); err != nil {
		log.Fatalf("kb snapshot load: %v", err)
	}

	repo := chat.NewRepo(gdb)
	svc := chat.NewService(repo, kbCache, embedder, provider, nil, cfg.ChatContextWindowSize)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	// Same topology as the publisher: rejects dead-letter to the DLQ.
	_, err = ch.QueueDeclare(cfg.RabbitQueue+".dlq", true, false, false, false, nil)
	if err != nil {
		log.Fatalf("dlq declare: %v", err)
	}
	_, err = ch.QueueDeclare(cfg.RabbitQueue+".retry", true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.RabbitQueue,
	})
	if err != nil {
		log.Fatalf("retry queue declare: %v", err)
	}
	_, err = ch.QueueDeclare(cfg.RabbitQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.RabbitQueue + ".dlq",
	})
	if err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	concurrency := workerConcurrency()

	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("worker started, queue=%s concurrency=%d", cfg.RabbitQueue, concurrency)

	// worker pool
	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				var ev rabbitmq.Event
				if err := json.Unmarshal(d.Body, &ev); err != nil || ev.Kind == "" {
					log.Printf("worker=%d bad message: %v", workerID, err)
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				if err := handleEvent(ctx, svc, repo, ev); err != nil {
					log.Printf("worker=%d event kind=%s failed cost=%s err=%v", workerID, ev.Kind, time.Since(start), err)
					_ = d.Nack(false, false)
					continue
				}

				if err := d.Ack(false); err != nil {
					log.Printf("worker=%d ack failed kind=%s err=%v", workerID, ev.Kind, err)
				}
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			log.Printf("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Printf("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			jobs <- d
		}
	}
}

func handleEvent(ctx context.Context, svc *chat.Service, repo *chat.Repo, ev rabbitmq.Event) error {
	switch ev.Kind {
	case rabbitmq.EventMetrics:
		m, err := svc.RecomputeMetrics(ctx, ev.SessionID)
		if err != nil {
			return err
		}
		log.Printf("metrics session=%s total=%d avg_confidence=%.2f escalated=%t",
			ev.SessionID, m.TotalMessages, m.AverageConfidence, m.WasEscalated)
		return nil

	case rabbitmq.EventTicket:
		t, err := repo.GetEscalationByTicketID(ctx, ev.TicketID)
		if err != nil {
			return err
		}
		log.Printf("ticket notice ticket=%s session=%s priority=%s reason=%q",
			t.TicketID, t.SessionID, t.Priority, t.Reason)
		return nil

	default:
		log.Printf("unknown event kind=%q dropped", ev.Kind)
		return nil
	}
}
