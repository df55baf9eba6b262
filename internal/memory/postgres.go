package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/antoniostano/minaai/internal/clock"
)

// PostgresStore persists turns and customer profiles in PostgreSQL. All
// profile mutation happens server-side in upsert conflict clauses so that
// concurrent writers never race through client-side read-modify-write.
type PostgresStore struct {
	pool *pgxpool.Pool
	clk  clock.Clock
}

func NewPostgresStore(ctx context.Context, databaseURL string, clk clock.Clock) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	if clk == nil {
		clk = clock.NewBusiness(0)
	}
	return &PostgresStore{pool: pool, clk: clk}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chat_history (
			id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			user_message TEXT NOT NULL,
			ai_response TEXT NOT NULL,
			response_time_ms INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_history_customer_created ON chat_history (customer_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_history_session ON chat_history (customer_id, session_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS customer_memory (
			customer_id TEXT PRIMARY KEY,
			summary TEXT NOT NULL DEFAULT 'New customer',
			total_conversations INTEGER NOT NULL DEFAULT 0,
			first_interaction TIMESTAMPTZ NOT NULL,
			last_interaction TIMESTAMPTZ NOT NULL,
			customer_type TEXT NOT NULL DEFAULT 'new',
			interaction_frequency TEXT NOT NULL DEFAULT 'low',
			last_summary_session TEXT NOT NULL DEFAULT '',
			last_summary_turn INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) ResolveSession(ctx context.Context, customerID string) (*SessionSnapshot, error) {
	row := s.pool.QueryRow(ctx,
		`WITH latest AS (
			SELECT session_id, created_at
			FROM chat_history
			WHERE customer_id = $1
			ORDER BY created_at DESC
			LIMIT 1
		)
		SELECT l.session_id,
		       l.created_at,
		       (SELECT COUNT(*) FROM chat_history ch
		         WHERE ch.customer_id = $1 AND ch.session_id = l.session_id),
		       p.summary,
		       p.total_conversations,
		       p.first_interaction,
		       p.last_interaction,
		       p.customer_type,
		       p.interaction_frequency,
		       p.last_summary_session,
		       p.last_summary_turn
		FROM latest l
		LEFT JOIN customer_memory p ON p.customer_id = $1`,
		customerID,
	)

	var (
		snap      SessionSnapshot
		summary   *string
		total     *int
		firstSeen *time.Time
		lastSeen  *time.Time
		ctype     *string
		freq      *string
		wmSession *string
		wmTurn    *int
	)
	err := row.Scan(&snap.SessionID, &snap.LastTurnAt, &snap.TurnCount,
		&summary, &total, &firstSeen, &lastSeen, &ctype, &freq, &wmSession, &wmTurn)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}

	if summary != nil {
		p := &CustomerProfile{CustomerID: customerID, Summary: *summary}
		if total != nil {
			p.TotalConversations = *total
		}
		if firstSeen != nil {
			p.FirstInteraction = *firstSeen
		}
		if lastSeen != nil {
			p.LastInteraction = *lastSeen
		}
		if ctype != nil {
			p.CustomerType = *ctype
		}
		if freq != nil {
			p.InteractionFrequency = *freq
		}
		if wmSession != nil {
			p.LastSummarySession = *wmSession
		}
		if wmTurn != nil {
			p.LastSummaryTurn = *wmTurn
		}
		snap.Profile = p
	}
	return &snap, nil
}

func (s *PostgresStore) RecentTurns(ctx context.Context, customerID, sessionID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT customer_id, session_id, user_message, ai_response, response_time_ms, created_at
		 FROM chat_history
		 WHERE customer_id = $1 AND session_id = $2
		 ORDER BY created_at DESC
		 LIMIT $3`,
		customerID, sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent turns: %w", err)
	}
	turns, err := scanTurns(rows)
	if err != nil {
		return nil, err
	}
	// Reverse into chronological order for prompt coherence.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (s *PostgresStore) SessionTurns(ctx context.Context, customerID, sessionID string) ([]Turn, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT customer_id, session_id, user_message, ai_response, response_time_ms, created_at
		 FROM chat_history
		 WHERE customer_id = $1 AND session_id = $2
		 ORDER BY created_at ASC`,
		customerID, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query session turns: %w", err)
	}
	return scanTurns(rows)
}

func scanTurns(rows pgx.Rows) ([]Turn, error) {
	defer rows.Close()
	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.CustomerID, &t.SessionID, &t.UserMessage, &t.AssistantReply, &t.ResponseTimeMS, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turn rows: %w", err)
	}
	return turns, nil
}

func (s *PostgresStore) AppendTurn(ctx context.Context, turn Turn) (int, error) {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = s.clk.Now()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO chat_history (id, customer_id, session_id, user_message, ai_response, response_time_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.NewString(), turn.CustomerID, turn.SessionID, turn.UserMessage, turn.AssistantReply, turn.ResponseTimeMS, turn.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert turn: %w", err)
	}

	// Counter arithmetic and derived fields happen in the conflict clause so
	// concurrent appends both apply.
	_, err = tx.Exec(ctx,
		`INSERT INTO customer_memory
			(customer_id, summary, total_conversations, first_interaction, last_interaction, customer_type, interaction_frequency, updated_at)
		 VALUES ($1, $2, 1, $3, $3, 'new', 'low', $3)
		 ON CONFLICT (customer_id) DO UPDATE SET
			total_conversations = customer_memory.total_conversations + 1,
			last_interaction = EXCLUDED.last_interaction,
			customer_type = CASE
				WHEN customer_memory.total_conversations >= 10 THEN 'loyal'
				WHEN customer_memory.total_conversations >= 3 THEN 'returning'
				ELSE 'new'
			END,
			interaction_frequency = CASE
				WHEN EXTRACT(EPOCH FROM (EXCLUDED.last_interaction - customer_memory.last_interaction)) / 3600 < 24 THEN 'high'
				WHEN EXTRACT(EPOCH FROM (EXCLUDED.last_interaction - customer_memory.last_interaction)) / 3600 < 168 THEN 'medium'
				ELSE 'low'
			END,
			updated_at = EXCLUDED.updated_at`,
		turn.CustomerID, NoSummary, turn.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert customer profile: %w", err)
	}

	// Read-after-write inside the transaction: the count must include the
	// row inserted above.
	var count int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM chat_history WHERE customer_id = $1 AND session_id = $2`,
		turn.CustomerID, turn.SessionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count session turns: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit turn append: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) SaveSummary(ctx context.Context, customerID, sessionID, summary string, watermark int) (bool, error) {
	now := s.clk.Now()
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO customer_memory
			(customer_id, summary, total_conversations, first_interaction, last_interaction, customer_type, interaction_frequency, last_summary_session, last_summary_turn, updated_at)
		 VALUES ($1, $2, 0, $5, $5, 'new', 'low', $3, $4, $5)
		 ON CONFLICT (customer_id) DO UPDATE SET
			summary = EXCLUDED.summary,
			last_summary_session = EXCLUDED.last_summary_session,
			last_summary_turn = EXCLUDED.last_summary_turn,
			updated_at = EXCLUDED.updated_at
		 WHERE customer_memory.last_summary_session IS DISTINCT FROM EXCLUDED.last_summary_session
		    OR customer_memory.last_summary_turn <= EXCLUDED.last_summary_turn`,
		customerID, summary, sessionID, watermark, now,
	)
	if err != nil {
		return false, fmt.Errorf("save summary: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
