package quiz

import (
	"context"
	"errors"
	"testing"

	"github.com/nuclear-quiz/backend/internal/models"
	"github.com/nuclear-quiz/backend/internal/session"
)

// ── Fakes ──────────────────────────────────────────────

type fakeBank struct {
	categories map[int64]*models.Category
	questions  map[int64]*models.Question
	order      []int64
}

func (f *fakeBank) GetCategory(_ context.Context, categoryID int64) (*models.Category, error) {
	c, ok := f.categories[categoryID]
	if !ok {
		return nil, ErrCategoryNotFound
	}
	return c, nil
}

func (f *fakeBank) SampleQuestionIDs(_ context.Context, categoryID int64, limit int) ([]int64, error) {
	var ids []int64
	for _, id := range f.order {
		if f.questions[id].CategoryID == categoryID {
			ids = append(ids, id)
		}
		if len(ids) == limit {
			break
		}
	}
	return ids, nil
}

func (f *fakeBank) GetQuestionWithAnswers(_ context.Context, questionID int64) (*models.Question, error) {
	q, ok := f.questions[questionID]
	if !ok {
		return nil, errors.New("question not found")
	}
	return q, nil
}

type fakeResultLog struct {
	entries []models.ResultEntry
	failErr error
}

func (f *fakeResultLog) Append(_ context.Context, entry models.ResultEntry) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.entries = append(f.entries, entry)
	return nil
}

// conflictStore fails the next n Save calls with ErrConflict, standing in
// for a concurrent submission that committed first.
type conflictStore struct {
	session.Store
	conflicts  int
	onConflict func()
}

func (c *conflictStore) Save(ctx context.Context, ref string, state *session.State, expectCursor int) error {
	if c.conflicts > 0 {
		c.conflicts--
		if c.onConflict != nil {
			c.onConflict()
		}
		return session.ErrConflict
	}
	return c.Store.Save(ctx, ref, state, expectCursor)
}

func newTestBank() *fakeBank {
	bank := &fakeBank{
		categories: map[int64]*models.Category{
			1: {ID: 1, Name: "Radiation Protection", QuestionCount: 3},
			2: {ID: 2, Name: "Reactor Physics", QuestionCount: 0},
		},
		questions: make(map[int64]*models.Question),
		order:     []int64{101, 102, 103},
	}
	for i, id := range bank.order {
		q := &models.Question{
			ID:          id,
			CategoryID:  1,
			Text:        "question",
			Explanation: "explanation",
			Source:      "10 CFR 20",
		}
		for j := 0; j < 4; j++ {
			q.Answers = append(q.Answers, models.Answer{
				ID:         id*10 + int64(j),
				QuestionID: id,
				Text:       "option",
				IsCorrect:  j == i%4,
			})
		}
		bank.questions[id] = q
	}
	return bank
}

func newTestEngine() (*Engine, *fakeBank, *fakeResultLog) {
	bank := newTestBank()
	log := &fakeResultLog{}
	return NewEngine(bank, session.NewMemoryStore(), log), bank, log
}

// ── Tests ──────────────────────────────────────────────

func TestStartQuiz(t *testing.T) {
	engine, _, _ := newTestEngine()

	desc, err := engine.Start(context.Background(), 7, 1)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if desc.QuizID == "" {
		t.Error("expected a quiz id")
	}
	if desc.CategoryName != "Radiation Protection" {
		t.Errorf("expected category name Radiation Protection, got %q", desc.CategoryName)
	}
	if desc.TotalQuestions != 3 {
		t.Errorf("expected 3 questions, got %d", desc.TotalQuestions)
	}
}

func TestStartQuizUnknownCategory(t *testing.T) {
	engine, _, _ := newTestEngine()

	_, err := engine.Start(context.Background(), 7, 99)
	if !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}
}

func TestStartQuizEmptyCategory(t *testing.T) {
	engine, _, _ := newTestEngine()

	_, err := engine.Start(context.Background(), 7, 2)
	if !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}

func TestQuizRoundTrip(t *testing.T) {
	engine, bank, resultLog := newTestEngine()
	ctx := context.Background()

	desc, err := engine.Start(ctx, 7, 1)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		view, err := engine.CurrentQuestion(ctx, desc.QuizID, 7)
		if err != nil {
			t.Fatalf("CurrentQuestion %d failed: %v", i, err)
		}
		if view.QuestionNumber != i+1 {
			t.Errorf("expected question number %d, got %d", i+1, view.QuestionNumber)
		}
		if len(view.Answers) != 4 {
			t.Errorf("expected 4 options, got %d", len(view.Answers))
		}

		correct := bank.questions[view.QuestionID].CorrectAnswer()
		outcome, err := engine.SubmitAnswer(ctx, desc.QuizID, 7, correct.ID)
		if err != nil {
			t.Fatalf("SubmitAnswer %d failed: %v", i, err)
		}
		if !outcome.IsCorrect {
			t.Errorf("submission %d: expected correct", i)
		}
		if outcome.Score != i+1 {
			t.Errorf("submission %d: expected score %d, got %d", i, i+1, outcome.Score)
		}
		if outcome.QuestionsAnswered != i+1 {
			t.Errorf("submission %d: expected %d answered, got %d", i, i+1, outcome.QuestionsAnswered)
		}
		wantComplete := i == 2
		if outcome.IsComplete != wantComplete {
			t.Errorf("submission %d: expected is_complete=%v", i, wantComplete)
		}
	}

	results, err := engine.Results(ctx, desc.QuizID, 7)
	if err != nil {
		t.Fatalf("Results failed: %v", err)
	}
	if results.Score != 3 || results.Percentage != 100 {
		t.Errorf("expected 3/100%%, got %d/%d%%", results.Score, results.Percentage)
	}
	if len(results.Review) != 3 {
		t.Errorf("expected 3 review entries, got %d", len(results.Review))
	}
	for i, entry := range results.Review {
		if !entry.IsCorrect {
			t.Errorf("review entry %d: expected correct", i)
		}
		if entry.UserAnswer != entry.CorrectAnswer {
			t.Errorf("review entry %d: user answer should match correct answer", i)
		}
	}

	if len(resultLog.entries) != 3 {
		t.Errorf("expected 3 log entries, got %d", len(resultLog.entries))
	}
}

func TestSubmitWrongAnswer(t *testing.T) {
	engine, bank, _ := newTestEngine()
	ctx := context.Background()

	desc, _ := engine.Start(ctx, 7, 1)
	view, _ := engine.CurrentQuestion(ctx, desc.QuizID, 7)

	question := bank.questions[view.QuestionID]
	var wrong *models.Answer
	for i := range question.Answers {
		if !question.Answers[i].IsCorrect {
			wrong = &question.Answers[i]
			break
		}
	}

	outcome, err := engine.SubmitAnswer(ctx, desc.QuizID, 7, wrong.ID)
	if err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	if outcome.IsCorrect {
		t.Error("expected incorrect")
	}
	if outcome.Score != 0 {
		t.Errorf("expected score 0, got %d", outcome.Score)
	}
	if outcome.CorrectAnswerID != question.CorrectAnswer().ID {
		t.Errorf("expected correct answer id %d, got %d", question.CorrectAnswer().ID, outcome.CorrectAnswerID)
	}

	results, err := engine.Results(ctx, desc.QuizID, 7)
	if err != nil {
		t.Fatalf("Results failed: %v", err)
	}
	if len(results.Review) != 1 || results.Review[0].IsCorrect {
		t.Errorf("expected one incorrect review entry, got %+v", results.Review)
	}
}

func TestSubmitAnswerFromOtherQuestion(t *testing.T) {
	engine, bank, resultLog := newTestEngine()
	ctx := context.Background()

	desc, _ := engine.Start(ctx, 7, 1)
	view, _ := engine.CurrentQuestion(ctx, desc.QuizID, 7)

	// An answer id that exists in the bank but belongs to a later question.
	var foreign int64
	for id, q := range bank.questions {
		if id != view.QuestionID {
			foreign = q.Answers[0].ID
			break
		}
	}

	_, err := engine.SubmitAnswer(ctx, desc.QuizID, 7, foreign)
	if !errors.Is(err, ErrInvalidAnswer) {
		t.Fatalf("expected ErrInvalidAnswer, got %v", err)
	}

	// Rejection must not advance the cursor or touch the log.
	again, err := engine.CurrentQuestion(ctx, desc.QuizID, 7)
	if err != nil {
		t.Fatalf("CurrentQuestion failed: %v", err)
	}
	if again.QuestionNumber != 1 || again.QuestionID != view.QuestionID {
		t.Error("invalid submission mutated session state")
	}
	if len(resultLog.entries) != 0 {
		t.Errorf("expected no log entries, got %d", len(resultLog.entries))
	}
}

func TestSubmitAfterComplete(t *testing.T) {
	engine, bank, resultLog := newTestEngine()
	ctx := context.Background()

	desc, _ := engine.Start(ctx, 7, 1)
	for i := 0; i < 3; i++ {
		view, _ := engine.CurrentQuestion(ctx, desc.QuizID, 7)
		if _, err := engine.SubmitAnswer(ctx, desc.QuizID, 7, bank.questions[view.QuestionID].CorrectAnswer().ID); err != nil {
			t.Fatalf("SubmitAnswer %d failed: %v", i, err)
		}
	}

	logged := len(resultLog.entries)

	if _, err := engine.CurrentQuestion(ctx, desc.QuizID, 7); !errors.Is(err, ErrQuizComplete) {
		t.Errorf("CurrentQuestion: expected ErrQuizComplete, got %v", err)
	}
	if _, err := engine.SubmitAnswer(ctx, desc.QuizID, 7, bank.questions[103].Answers[0].ID); !errors.Is(err, ErrQuizComplete) {
		t.Errorf("SubmitAnswer: expected ErrQuizComplete, got %v", err)
	}
	if len(resultLog.entries) != logged {
		t.Error("post-completion submission appended to the log")
	}

	// Results stay readable after completion.
	if _, err := engine.Results(ctx, desc.QuizID, 7); err != nil {
		t.Errorf("Results after completion failed: %v", err)
	}
}

func TestOwnershipEnforced(t *testing.T) {
	engine, bank, _ := newTestEngine()
	ctx := context.Background()

	desc, _ := engine.Start(ctx, 7, 1)

	if _, err := engine.CurrentQuestion(ctx, desc.QuizID, 8); !errors.Is(err, ErrForbidden) {
		t.Errorf("CurrentQuestion: expected ErrForbidden, got %v", err)
	}
	if _, err := engine.SubmitAnswer(ctx, desc.QuizID, 8, bank.questions[101].Answers[0].ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("SubmitAnswer: expected ErrForbidden, got %v", err)
	}
	if _, err := engine.Results(ctx, desc.QuizID, 8); !errors.Is(err, ErrForbidden) {
		t.Errorf("Results: expected ErrForbidden, got %v", err)
	}
}

func TestUnknownSession(t *testing.T) {
	engine, _, _ := newTestEngine()

	if _, err := engine.CurrentQuestion(context.Background(), "no-such-quiz", 7); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSubmitConflict(t *testing.T) {
	bank := newTestBank()
	resultLog := &fakeResultLog{}
	store := &conflictStore{Store: session.NewMemoryStore(), conflicts: 1}
	engine := NewEngine(bank, store, resultLog)
	ctx := context.Background()

	desc, _ := engine.Start(ctx, 7, 1)

	_, err := engine.SubmitAnswer(ctx, desc.QuizID, 7, bank.questions[101].CorrectAnswer().ID)
	if !errors.Is(err, session.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if len(resultLog.entries) != 0 {
		t.Errorf("lost submission must not log, got %d entries", len(resultLog.entries))
	}
}

func TestSubmitConflictAgainstFinishedQuiz(t *testing.T) {
	bank := newTestBank()
	resultLog := &fakeResultLog{}
	memory := session.NewMemoryStore()
	store := &conflictStore{Store: memory}
	engine := NewEngine(bank, store, resultLog)
	ctx := context.Background()

	desc, _ := engine.Start(ctx, 7, 1)

	// The winner commits a finished session while the loser's save is in
	// flight; the loser re-reads and reports the terminal state.
	store.conflicts = 1
	store.onConflict = func() {
		state, _ := memory.Load(ctx, desc.QuizID)
		winner := state.Clone()
		winner.Cursor = len(winner.QuestionIDs)
		winner.Completed = true
		if err := memory.Save(ctx, desc.QuizID, winner, state.Cursor); err != nil {
			t.Fatalf("winner save failed: %v", err)
		}
	}

	_, err := engine.SubmitAnswer(ctx, desc.QuizID, 7, bank.questions[101].CorrectAnswer().ID)
	if !errors.Is(err, ErrQuizComplete) {
		t.Fatalf("expected ErrQuizComplete, got %v", err)
	}
}

func TestResultsPartial(t *testing.T) {
	engine, bank, _ := newTestEngine()
	ctx := context.Background()

	desc, _ := engine.Start(ctx, 7, 1)
	view, _ := engine.CurrentQuestion(ctx, desc.QuizID, 7)
	if _, err := engine.SubmitAnswer(ctx, desc.QuizID, 7, bank.questions[view.QuestionID].CorrectAnswer().ID); err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}

	results, err := engine.Results(ctx, desc.QuizID, 7)
	if err != nil {
		t.Fatalf("Results failed: %v", err)
	}
	if results.Score != 1 || results.TotalQuestions != 3 {
		t.Errorf("expected 1/3, got %d/%d", results.Score, results.TotalQuestions)
	}
	if results.Percentage != 33 {
		t.Errorf("expected 33%%, got %d%%", results.Percentage)
	}
	if len(results.Review) != 1 {
		t.Errorf("expected 1 review entry, got %d", len(results.Review))
	}
}

func TestCurrentQuestionServesAllOptions(t *testing.T) {
	engine, bank, _ := newTestEngine()
	ctx := context.Background()

	desc, _ := engine.Start(ctx, 7, 1)
	view, err := engine.CurrentQuestion(ctx, desc.QuizID, 7)
	if err != nil {
		t.Fatalf("CurrentQuestion failed: %v", err)
	}

	// Shuffled order still carries every option exactly once.
	seen := make(map[int64]bool)
	for _, opt := range view.Answers {
		seen[opt.ID] = true
	}
	for _, a := range bank.questions[view.QuestionID].Answers {
		if !seen[a.ID] {
			t.Errorf("option %d missing from served question", a.ID)
		}
	}
}

func TestResultLogFailureDoesNotBlockScoring(t *testing.T) {
	bank := newTestBank()
	resultLog := &fakeResultLog{failErr: errors.New("log unavailable")}
	engine := NewEngine(bank, session.NewMemoryStore(), resultLog)
	ctx := context.Background()

	desc, _ := engine.Start(ctx, 7, 1)
	outcome, err := engine.SubmitAnswer(ctx, desc.QuizID, 7, bank.questions[101].CorrectAnswer().ID)
	if err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	if !outcome.IsCorrect || outcome.Score != 1 {
		t.Errorf("scoring lost to log failure: %+v", outcome)
	}
}

func TestRestartRetiresPriorSession(t *testing.T) {
	engine, bank, _ := newTestEngine()
	ctx := context.Background()

	first, _ := engine.Start(ctx, 7, 1)
	view, _ := engine.CurrentQuestion(ctx, first.QuizID, 7)
	if _, err := engine.SubmitAnswer(ctx, first.QuizID, 7, bank.questions[view.QuestionID].CorrectAnswer().ID); err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}

	second, err := engine.Start(ctx, 7, 1)
	if err != nil {
		t.Fatalf("second Start failed: %v", err)
	}

	// Identity-bound backing: the fresh session starts at question one.
	view, err = engine.CurrentQuestion(ctx, second.QuizID, 7)
	if err != nil {
		t.Fatalf("CurrentQuestion failed: %v", err)
	}
	if view.QuestionNumber != 1 {
		t.Errorf("expected fresh session at question 1, got %d", view.QuestionNumber)
	}
}
