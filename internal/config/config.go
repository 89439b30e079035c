// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all simulation and server settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
	"time"
)

// =============================================================================
// GAME / SIMULATION CONFIGURATION
// =============================================================================

// GameConfig holds the canvas geometry and simulation tuning shared by the
// authoritative engine and the AI controller's local trajectory model.
type GameConfig struct {
	CanvasWidth  float64 // Playfield width in pixels
	CanvasHeight float64 // Playfield height in pixels
	PaddleWidth  float64 // Paddle thickness
	PaddleSize   float64 // Paddle height
	PaddleSpeed  float64 // Paddle vertical speed per tick
	BallRadius   float64 // Ball radius
	BallSpeedX   float64 // Initial horizontal ball velocity magnitude
	BallSpeedY   float64 // Initial vertical ball velocity magnitude
	TickRate     int     // Simulation ticks per second
	LifePoints   int     // Life points per paddle at match start
	CountdownSec int     // Seconds counted down before play resumes
}

// DefaultGame returns the default game configuration.
func DefaultGame() GameConfig {
	return GameConfig{
		CanvasWidth:  800,
		CanvasHeight: 400,
		PaddleWidth:  10,
		PaddleSize:   100,
		PaddleSpeed:  3,
		BallRadius:   10,
		BallSpeedX:   2,
		BallSpeedY:   2,
		TickRate:     60,
		LifePoints:   3,
		CountdownSec: 3,
	}
}

// GameFromEnv returns game configuration with environment variable overrides.
// Environment variables take precedence over defaults.
func GameFromEnv() GameConfig {
	cfg := DefaultGame()

	if tr := getEnvInt("GAME_TICK_RATE", 0); tr > 0 {
		cfg.TickRate = tr
	}
	if lp := getEnvInt("GAME_LIFE_POINTS", 0); lp > 0 {
		cfg.LifePoints = lp
	}
	if w := getEnvFloat("GAME_CANVAS_WIDTH", 0); w > 0 {
		cfg.CanvasWidth = w
	}
	if h := getEnvFloat("GAME_CANVAS_HEIGHT", 0); h > 0 {
		cfg.CanvasHeight = h
	}
	if s := getEnvFloat("GAME_PADDLE_SPEED", 0); s > 0 {
		cfg.PaddleSpeed = s
	}

	return cfg
}

// TickInterval returns the duration of one simulation tick.
func (c GameConfig) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

// Player1X returns the fixed x position of the left paddle.
func (c GameConfig) Player1X() float64 {
	return c.CanvasWidth / 100
}

// Player2X returns the fixed x position of the right paddle.
func (c GameConfig) Player2X() float64 {
	return c.CanvasWidth - c.CanvasWidth/100 - c.PaddleWidth
}

// =============================================================================
// MATCHMAKING CONFIGURATION
// =============================================================================

// MatchmakingConfig controls the lobby scheduler and ticket aging bands.
type MatchmakingConfig struct {
	PassInterval    time.Duration // Cadence of the pairing pass
	WaitingNotify   time.Duration // How often unmatched tickets hear "still waiting"
	NarrowBand      float64       // Max skill-ratio gap before NarrowBandUntil
	NarrowBandUntil time.Duration // Elapsed wait below which NarrowBand applies
	WideBand        float64       // Max skill-ratio gap before WideBandUntil
	WideBandUntil   time.Duration // Elapsed wait below which WideBand applies
	InviteTTL       time.Duration // Direct invitation expiry
}

// DefaultMatchmaking returns the default matchmaking configuration.
func DefaultMatchmaking() MatchmakingConfig {
	return MatchmakingConfig{
		PassInterval:    time.Second,
		WaitingNotify:   5 * time.Second,
		NarrowBand:      0.1,
		NarrowBandUntil: 10 * time.Second,
		WideBand:        0.2,
		WideBandUntil:   20 * time.Second,
		InviteTTL:       30 * time.Second,
	}
}

// MatchmakingFromEnv returns matchmaking configuration with environment
// variable overrides.
func MatchmakingFromEnv() MatchmakingConfig {
	cfg := DefaultMatchmaking()

	if s := getEnvInt("MM_PASS_INTERVAL_MS", 0); s > 0 {
		cfg.PassInterval = time.Duration(s) * time.Millisecond
	}
	if s := getEnvInt("MM_INVITE_TTL_SEC", 0); s > 0 {
		cfg.InviteTTL = time.Duration(s) * time.Second
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int
	AllowedOrigins []string
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:           8000,
		AllowedOrigins: []string{"http://localhost:8000", "http://localhost:3000"},
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if o := os.Getenv("ALLOWED_ORIGIN"); o != "" {
		cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
	}

	return cfg
}

// =============================================================================
// EXTERNAL COLLABORATORS
// =============================================================================

// StoreConfig holds the optional outcome-store database settings.
// An empty DSN selects the in-memory store.
type StoreConfig struct {
	DSN string
}

// RedisConfig holds the optional Redis pub/sub fan-out settings.
// An empty Addr keeps notifications in-process.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// StoreFromEnv returns store configuration from the environment.
func StoreFromEnv() StoreConfig {
	return StoreConfig{DSN: os.Getenv("DATABASE_DSN")}
}

// RedisFromEnv returns Redis configuration from the environment.
func RedisFromEnv() RedisConfig {
	return RedisConfig{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       getEnvInt("REDIS_DB", 0),
	}
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Game        GameConfig
	Matchmaking MatchmakingConfig
	Server      ServerConfig
	Store       StoreConfig
	Redis       RedisConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Game:        GameFromEnv(),
		Matchmaking: MatchmakingFromEnv(),
		Server:      ServerFromEnv(),
		Store:       StoreFromEnv(),
		Redis:       RedisFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
