package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// PostgresStore is the token-bound backing: each session is a row in
// quiz_sessions keyed by a random UUID handed to the client. Ownership is
// part of the stored state; the engine verifies it on every access.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Create(ctx context.Context, state *State) (string, error) {
	ref := uuid.NewString()

	questionIDs, err := json.Marshal(state.QuestionIDs)
	if err != nil {
		return "", fmt.Errorf("marshal question ids: %w", err)
	}
	answers, err := json.Marshal(state.Answers)
	if err != nil {
		return "", fmt.Errorf("marshal answers: %w", err)
	}

	_, err = p.db.ExecContext(ctx,
		`INSERT INTO quiz_sessions
		 (id, user_id, category_id, category_name, question_ids, answers,
		  current_index, score, completed, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		ref, state.OwnerID, state.CategoryID, state.CategoryName,
		questionIDs, answers, state.Cursor, state.Score, state.Completed,
		state.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return ref, nil
}

func (p *PostgresStore) Load(ctx context.Context, ref string) (*State, error) {
	var s State
	var questionIDs, answers []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT user_id, category_id, category_name, question_ids, answers,
		        current_index, score, completed, created_at
		 FROM quiz_sessions WHERE id = $1`,
		ref,
	).Scan(&s.OwnerID, &s.CategoryID, &s.CategoryName, &questionIDs, &answers,
		&s.Cursor, &s.Score, &s.Completed, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	if err := json.Unmarshal(questionIDs, &s.QuestionIDs); err != nil {
		return nil, fmt.Errorf("decode question ids: %w", err)
	}
	if err := json.Unmarshal(answers, &s.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	return &s, nil
}

func (p *PostgresStore) Save(ctx context.Context, ref string, state *State, expectCursor int) error {
	answers, err := json.Marshal(state.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	// The cursor guard in the WHERE clause carries the optimistic check:
	// zero rows means the row is gone or another submission won.
	res, err := p.db.ExecContext(ctx,
		`UPDATE quiz_sessions
		 SET current_index = $1, score = $2, completed = $3, answers = $4
		 WHERE id = $5 AND current_index = $6`,
		state.Cursor, state.Score, state.Completed, answers, ref, expectCursor,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := p.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM quiz_sessions WHERE id = $1)`, ref,
		).Scan(&exists); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrConflict
	}
	return nil
}
