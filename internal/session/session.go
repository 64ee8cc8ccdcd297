// Package session stores in-progress quiz state behind one contract with
// interchangeable backings: an identity-bound server-side object (memory or
// Redis, one session per owner) and a token-bound Postgres row addressed by
// an unguessable identifier. The engine never branches on which is active.
package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound means no session exists for the given ref (or it expired).
	ErrNotFound = errors.New("session not found")
	// ErrConflict means the optimistic cursor check failed: another request
	// advanced the session between load and save.
	ErrConflict = errors.New("session modified concurrently")
)

// AnswerRecord is one submitted answer of this attempt, kept on the session
// itself so review reconstruction never depends on the shared result log.
type AnswerRecord struct {
	QuestionID int64 `json:"question_id"`
	AnswerID   int64 `json:"answer_id"`
	IsCorrect  bool  `json:"is_correct"`
}

// State is the full quiz-session snapshot. Saves are whole-state overwrites;
// cursor, score and completed are never written independently.
type State struct {
	OwnerID      int64          `json:"owner_id"`
	CategoryID   int64          `json:"category_id"`
	CategoryName string         `json:"category_name"`
	QuestionIDs  []int64        `json:"question_ids"`
	Cursor       int            `json:"cursor"`
	Score        int            `json:"score"`
	Completed    bool           `json:"completed"`
	Answers      []AnswerRecord `json:"answers"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (s *State) Clone() *State {
	cp := *s
	cp.QuestionIDs = append([]int64(nil), s.QuestionIDs...)
	cp.Answers = append([]AnswerRecord(nil), s.Answers...)
	return &cp
}

type Store interface {
	// Create persists a fresh session and returns its ref. Identity-bound
	// backings key by owner and overwrite any prior session for that owner;
	// token-bound backings mint a fresh unguessable id.
	Create(ctx context.Context, state *State) (string, error)

	// Load returns the state for ref, or ErrNotFound.
	Load(ctx context.Context, ref string) (*State, error)

	// Save overwrites the state for ref, but only if the stored cursor still
	// equals expectCursor. Returns ErrConflict otherwise. This serializes
	// concurrent submissions against one session without a long-held lock.
	Save(ctx context.Context, ref string, state *State, expectCursor int) error
}
