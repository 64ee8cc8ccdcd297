package models

import "time"

// ── Core Structs ───────────────────────────────────────

type Category struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Icon          string `json:"icon"`
	QuestionCount int    `json:"question_count"`
}

type Question struct {
	ID          int64    `json:"id"`
	CategoryID  int64    `json:"category_id"`
	Text        string   `json:"question_text"`
	Explanation string   `json:"explanation"`
	Difficulty  string   `json:"difficulty"`
	Source      string   `json:"source"`
	Answers     []Answer `json:"answers"`
}

// CorrectAnswer returns the question's single correct answer option.
// Bank content guarantees exactly one per question.
func (q *Question) CorrectAnswer() *Answer {
	for i := range q.Answers {
		if q.Answers[i].IsCorrect {
			return &q.Answers[i]
		}
	}
	return nil
}

type Answer struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Text       string `json:"answer_text"`
	IsCorrect  bool   `json:"is_correct"`
}

type ResultEntry struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	QuestionID int64     `json:"question_id"`
	AnswerID   int64     `json:"answer_id"`
	IsCorrect  bool      `json:"is_correct"`
	AnsweredAt time.Time `json:"answered_at"`
}

// ── Request Types ─────────────────────────────────────

type StartQuizRequest struct {
	CategoryID int64 `json:"category_id"`
}

type SubmitAnswerRequest struct {
	AnswerID int64 `json:"answer_id"`
}

// ── Response Types ────────────────────────────────────

type SessionDescriptor struct {
	QuizID         string `json:"quiz_id"`
	CategoryName   string `json:"category_name"`
	TotalQuestions int    `json:"total_questions"`
}

// AnswerOption is an answer as served to the client: correctness stripped.
type AnswerOption struct {
	ID   int64  `json:"id"`
	Text string `json:"answer_text"`
}

type QuestionView struct {
	QuizID         string         `json:"quiz_id"`
	QuestionNumber int            `json:"question_number"`
	TotalQuestions int            `json:"total_questions"`
	QuestionID     int64          `json:"question_id"`
	QuestionText   string         `json:"question_text"`
	Answers        []AnswerOption `json:"answers"`
}

type AnswerOutcome struct {
	IsCorrect         bool   `json:"is_correct"`
	CorrectAnswerID   int64  `json:"correct_answer_id"`
	CorrectAnswerText string `json:"correct_answer_text"`
	Explanation       string `json:"explanation"`
	Score             int    `json:"score"`
	QuestionsAnswered int    `json:"questions_answered"`
	TotalQuestions    int    `json:"total_questions"`
	IsComplete        bool   `json:"is_complete"`
}

type ReviewEntry struct {
	QuestionText  string `json:"question_text"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation"`
	Source        string `json:"source"`
	IsCorrect     bool   `json:"is_correct"`
}

type ResultsView struct {
	QuizID         string        `json:"quiz_id"`
	CategoryName   string        `json:"category_name"`
	Score          int           `json:"score"`
	TotalQuestions int           `json:"total_questions"`
	Percentage     int           `json:"percentage"`
	Review         []ReviewEntry `json:"review"`
}

// ── Progress Types ────────────────────────────────────

type OverallProgress struct {
	TotalAnswered int `json:"total_answered"`
	TotalCorrect  int `json:"total_correct"`
	Accuracy      int `json:"accuracy"`
}

type CategoryProgress struct {
	CategoryID    int64  `json:"category_id"`
	CategoryName  string `json:"category_name"`
	TotalAnswered int    `json:"total_answered"`
	TotalCorrect  int    `json:"total_correct"`
	Accuracy      int    `json:"accuracy"`
}

type ProgressResponse struct {
	Overall    OverallProgress    `json:"overall"`
	ByCategory []CategoryProgress `json:"by_category"`
}
