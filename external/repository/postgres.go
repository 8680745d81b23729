package repository

import (
	"context"
	"time"

	"github.com/foxseedlab/n7chat/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresTurnArchive struct {
	pool *pgxpool.Pool
}

func NewPostgresTurnArchive(pool *pgxpool.Pool) repository.TurnArchive {
	return &PostgresTurnArchive{pool: pool}
}

func (r *PostgresTurnArchive) SaveTurn(ctx context.Context, turn repository.TurnRecord) error {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO conversation_turns
		 (id, session_id, source, script, transcript, reply, inbound_fallback, outbound_failed, completion_failed, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO NOTHING`,
		turn.ID, turn.SessionID, string(turn.Source), turn.Script, turn.Transcript, turn.Reply,
		turn.InboundFallback, turn.OutboundFailed, turn.CompletionFailed, turn.CreatedAt)
	return err
}

func (r *PostgresTurnArchive) Close() {
	r.pool.Close()
}
