// Package results owns the append-only log of every answer ever submitted,
// across all attempts. It powers the longitudinal accuracy dashboard;
// per-attempt review lives on the quiz session itself.
package results

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nuclear-quiz/backend/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts one entry. No uniqueness across attempts: the same
// (user, question) pair accumulates a row per retake.
func (s *Store) Append(ctx context.Context, entry models.ResultEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO results (user_id, question_id, answer_id, is_correct)
		 VALUES ($1, $2, $3, $4)`,
		entry.UserID, entry.QuestionID, entry.AnswerID, entry.IsCorrect,
	)
	if err != nil {
		return fmt.Errorf("append result: %w", err)
	}
	return nil
}

// Progress aggregates the user's full answer history: overall totals plus a
// per-category breakdown, joined through questions to categories.
func (s *Store) Progress(ctx context.Context, userID int64) (*models.ProgressResponse, error) {
	var total, correct int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(id), COALESCE(SUM(CASE WHEN is_correct THEN 1 ELSE 0 END), 0)
		 FROM results WHERE user_id = $1`,
		userID,
	).Scan(&total, &correct)
	if err != nil {
		return nil, fmt.Errorf("overall progress: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.name,
		        COUNT(r.id) AS total_answered,
		        SUM(CASE WHEN r.is_correct THEN 1 ELSE 0 END) AS total_correct,
		        ROUND(AVG(CASE WHEN r.is_correct THEN 1.0 ELSE 0.0 END) * 100) AS accuracy
		 FROM results r
		 JOIN questions q ON q.id = r.question_id
		 JOIN categories c ON c.id = q.category_id
		 WHERE r.user_id = $1
		 GROUP BY c.id
		 ORDER BY c.name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("category progress: %w", err)
	}
	defer rows.Close()

	byCategory := []models.CategoryProgress{}
	for rows.Next() {
		var cp models.CategoryProgress
		if err := rows.Scan(&cp.CategoryID, &cp.CategoryName,
			&cp.TotalAnswered, &cp.TotalCorrect, &cp.Accuracy); err != nil {
			return nil, fmt.Errorf("scan category progress: %w", err)
		}
		byCategory = append(byCategory, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	accuracy := 0
	if total > 0 {
		accuracy = int(float64(correct)/float64(total)*100 + 0.5)
	}

	return &models.ProgressResponse{
		Overall: models.OverallProgress{
			TotalAnswered: total,
			TotalCorrect:  correct,
			Accuracy:      accuracy,
		},
		ByCategory: byCategory,
	}, nil
}
