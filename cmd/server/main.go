package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"pong-arena/internal/ai"
	"pong-arena/internal/api"
	"pong-arena/internal/config"
	"pong-arena/internal/game"
	"pong-arena/internal/lobby"
	"pong-arena/internal/notify"
	"pong-arena/internal/store"
	"pong-arena/internal/tournament"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("💡 No .env file found, using environment variables only")
	}

	log.Println("🏓 ================================")
	log.Println("🏓  PONG ARENA - GAME SERVER")
	log.Println("🏓 ================================")

	// Load centralized configuration (SSOT - Single Source of Truth)
	cfg := config.Load()
	log.Printf("🎮 Config: %d TPS, %vx%v canvas, %d life points",
		cfg.Game.TickRate, cfg.Game.CanvasWidth, cfg.Game.CanvasHeight, cfg.Game.LifePoints)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Outcome store: Postgres when a DSN is configured, in-memory otherwise.
	var outcomes store.Store
	if cfg.Store.DSN != "" {
		pg, err := store.OpenPostgres(cfg.Store.DSN)
		if err != nil {
			log.Fatalf("❌ Postgres: %v", err)
		}
		outcomes = pg
		log.Println("🗄️ Outcome store: postgres")
	} else {
		outcomes = store.NewMemory()
		log.Println("🗄️ Outcome store: in-memory (set DATABASE_DSN for postgres)")
	}

	// Notifications: in-process hub, optionally fanned out to Redis.
	hub := notify.NewHub()
	var feed notify.Publisher = hub
	if cfg.Redis.Addr != "" {
		redisPub, err := notify.NewRedisPublisher(ctx, cfg.Redis)
		if err != nil {
			log.Fatalf("❌ Redis: %v", err)
		}
		defer redisPub.Close()
		feed = notify.Multi{hub, redisPub}
		log.Printf("📣 Notifications: hub + redis (%s)", cfg.Redis.Addr)
	} else {
		log.Println("📣 Notifications: in-process hub")
	}

	arena := lobby.New(cfg.Matchmaking, cfg.Game,
		lobby.WithOutcomeSink(outcomes),
		lobby.WithTickObserver(api.ObserveTickDuration),
		lobby.WithAISpawner(func(m *game.Match) {
			seat, err := m.Attach(game.RolePlayer2)
			if err != nil {
				log.Printf("⚠️ AI seat attach for match %s: %v", m.ID(), err)
				return
			}
			controller := ai.New(cfg.Game, ai.NewSeatTransport(seat))
			go controller.Run(ctx)
		}),
	)
	if err := arena.Start(); err != nil {
		log.Fatalf("❌ Matchmaking scheduler: %v", err)
	}
	defer arena.Shutdown()

	tournaments := tournament.NewManager(arena, feed,
		tournament.WithPresence(hub),
		tournament.WithResultSink(outcomes),
	)

	server := api.NewServer(cfg.Server, arena, tournaments, hub)

	// Shut down on SIGINT/SIGTERM.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("🛑 Received %v, shutting down", sig)
		cancel()
	}()

	if err := server.Start(ctx); err != nil && err != http.ErrServerClosed {
		log.Fatalf("❌ Server: %v", err)
	}
	log.Println("👋 Goodbye!")
}
