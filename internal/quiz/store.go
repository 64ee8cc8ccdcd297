package quiz

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nuclear-quiz/backend/internal/models"
)

// Store is the Postgres question bank. The engine treats it as read-only;
// content changes happen through administrative tooling outside this service.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.name, c.description, c.icon, COUNT(q.id) AS question_count
		 FROM categories c
		 LEFT JOIN questions q ON q.category_id = c.id
		 GROUP BY c.id
		 ORDER BY c.name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Icon, &c.QuestionCount); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Store) GetCategory(ctx context.Context, categoryID int64) (*models.Category, error) {
	var c models.Category
	err := s.db.QueryRowContext(ctx,
		`SELECT c.id, c.name, c.description, c.icon, COUNT(q.id) AS question_count
		 FROM categories c
		 LEFT JOIN questions q ON q.category_id = c.id
		 WHERE c.id = $1
		 GROUP BY c.id`,
		categoryID,
	).Scan(&c.ID, &c.Name, &c.Description, &c.Icon, &c.QuestionCount)
	if err == sql.ErrNoRows {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

// SampleQuestionIDs draws up to limit question ids from the category,
// uniformly and without replacement, in non-deterministic order.
func (s *Store) SampleQuestionIDs(ctx context.Context, categoryID int64, limit int) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM questions WHERE category_id = $1 ORDER BY RANDOM() LIMIT $2`,
		categoryID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sample questions: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan question id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) GetQuestionWithAnswers(ctx context.Context, questionID int64) (*models.Question, error) {
	var q models.Question
	err := s.db.QueryRowContext(ctx,
		`SELECT id, category_id, question_text, explanation, difficulty, COALESCE(source, '')
		 FROM questions WHERE id = $1`,
		questionID,
	).Scan(&q.ID, &q.CategoryID, &q.Text, &q.Explanation, &q.Difficulty, &q.Source)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("question %d: %w", questionID, sql.ErrNoRows)
	}
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question_id, answer_text, is_correct
		 FROM answers WHERE question_id = $1 ORDER BY id`,
		questionID,
	)
	if err != nil {
		return nil, fmt.Errorf("get answers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a models.Answer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.Text, &a.IsCorrect); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		q.Answers = append(q.Answers, a)
	}
	return &q, rows.Err()
}
