package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pong-arena/internal/game"
)

// Postgres persists outcomes through GORM.
type Postgres struct {
	db *gorm.DB
}

// OpenPostgres connects to the database and migrates the schema.
func OpenPostgres(dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New("empty database DSN")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := db.AutoMigrate(&MatchOutcome{}, &TournamentResult{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &Postgres{db: db}, nil
}

// PersistMatchOutcome upserts the outcome keyed by match id, keeping the
// exactly-once guarantee even if the sink is called again after a crash.
func (p *Postgres) PersistMatchOutcome(ctx context.Context, o game.Outcome) error {
	rec := MatchOutcome{
		MatchID:        o.MatchID,
		WinnerRole:     string(o.Winner),
		WinnerIdentity: o.WinnerIdentity,
		LoserIdentity:  o.LoserIdentity,
		Reason:         string(o.Reason),
	}
	return p.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "match_id"}}, DoNothing: true}).
		Create(&rec).Error
}

// SaveTournamentResult records a completed tournament.
func (p *Postgres) SaveTournamentResult(ctx context.Context, r *TournamentResult) error {
	return p.db.WithContext(ctx).Create(r).Error
}
