package quiz

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/nuclear-quiz/backend/internal/models"
	"github.com/nuclear-quiz/backend/internal/session"
)

// MaxQuestionsPerQuiz caps the sequence length; categories with fewer
// questions serve everything they have.
const MaxQuestionsPerQuiz = 10

// QuestionBank is the read-only catalog the engine draws from. Content is
// assumed immutable for the lifetime of a session.
type QuestionBank interface {
	GetCategory(ctx context.Context, categoryID int64) (*models.Category, error)
	SampleQuestionIDs(ctx context.Context, categoryID int64, limit int) ([]int64, error)
	GetQuestionWithAnswers(ctx context.Context, questionID int64) (*models.Question, error)
}

// ResultLog receives one append per scored answer, across all attempts.
type ResultLog interface {
	Append(ctx context.Context, entry models.ResultEntry) error
}

// Engine orchestrates session creation, question delivery, answer scoring
// and review reconstruction over a Session Store backing it never inspects.
type Engine struct {
	bank     QuestionBank
	sessions session.Store
	results  ResultLog
}

func NewEngine(bank QuestionBank, sessions session.Store, results ResultLog) *Engine {
	return &Engine{bank: bank, sessions: sessions, results: results}
}

// Start samples up to MaxQuestionsPerQuiz questions from the category and
// opens a fresh session for ownerID. Identity-bound backings discard any
// prior incomplete session for the same owner.
func (e *Engine) Start(ctx context.Context, ownerID, categoryID int64) (*models.SessionDescriptor, error) {
	category, err := e.bank.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	questionIDs, err := e.bank.SampleQuestionIDs(ctx, categoryID, MaxQuestionsPerQuiz)
	if err != nil {
		return nil, fmt.Errorf("sample questions: %w", err)
	}
	if len(questionIDs) == 0 {
		return nil, ErrNoQuestions
	}

	state := &session.State{
		OwnerID:      ownerID,
		CategoryID:   categoryID,
		CategoryName: category.Name,
		QuestionIDs:  questionIDs,
		CreatedAt:    time.Now().UTC(),
	}
	ref, err := e.sessions.Create(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &models.SessionDescriptor{
		QuizID:         ref,
		CategoryName:   category.Name,
		TotalQuestions: len(questionIDs),
	}, nil
}

// CurrentQuestion serves the question at the cursor with its options in a
// fresh random order. Option order is presentation only and never persisted.
func (e *Engine) CurrentQuestion(ctx context.Context, ref string, ownerID int64) (*models.QuestionView, error) {
	state, err := e.loadOwned(ctx, ref, ownerID)
	if err != nil {
		return nil, err
	}
	if state.Completed || state.Cursor >= len(state.QuestionIDs) {
		return nil, ErrQuizComplete
	}

	questionID := state.QuestionIDs[state.Cursor]
	question, err := e.bank.GetQuestionWithAnswers(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("%w: question %d: %v", ErrIntegrity, questionID, err)
	}

	options := make([]models.AnswerOption, len(question.Answers))
	for i, a := range question.Answers {
		options[i] = models.AnswerOption{ID: a.ID, Text: a.Text}
	}
	rand.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

	return &models.QuestionView{
		QuizID:         ref,
		QuestionNumber: state.Cursor + 1,
		TotalQuestions: len(state.QuestionIDs),
		QuestionID:     question.ID,
		QuestionText:   question.Text,
		Answers:        options,
	}, nil
}

// SubmitAnswer is the sole mutator of session state and the sole producer of
// result entries for a live quiz. Scoring, cursor advance and completion are
// committed as one conditional save; of two concurrent submissions exactly
// one wins and the other observes ErrConflict or ErrQuizComplete.
func (e *Engine) SubmitAnswer(ctx context.Context, ref string, ownerID, answerID int64) (*models.AnswerOutcome, error) {
	state, err := e.loadOwned(ctx, ref, ownerID)
	if err != nil {
		return nil, err
	}
	if state.Completed || state.Cursor >= len(state.QuestionIDs) {
		return nil, ErrQuizComplete
	}

	questionID := state.QuestionIDs[state.Cursor]
	question, err := e.bank.GetQuestionWithAnswers(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("%w: question %d: %v", ErrIntegrity, questionID, err)
	}

	var chosen *models.Answer
	for i := range question.Answers {
		if question.Answers[i].ID == answerID {
			chosen = &question.Answers[i]
			break
		}
	}
	if chosen == nil {
		return nil, ErrInvalidAnswer
	}

	correct := question.CorrectAnswer()
	if correct == nil {
		return nil, fmt.Errorf("%w: question %d has no correct answer", ErrIntegrity, questionID)
	}

	prevCursor := state.Cursor
	next := state.Clone()
	next.Answers = append(next.Answers, session.AnswerRecord{
		QuestionID: questionID,
		AnswerID:   answerID,
		IsCorrect:  chosen.IsCorrect,
	})
	if chosen.IsCorrect {
		next.Score++
	}
	next.Cursor++
	next.Completed = next.Cursor == len(next.QuestionIDs)

	if err := e.sessions.Save(ctx, ref, next, prevCursor); err != nil {
		if errors.Is(err, session.ErrConflict) {
			// Lost the race. Report the terminal state if the winner finished.
			if current, loadErr := e.sessions.Load(ctx, ref); loadErr == nil && current.Completed {
				return nil, ErrQuizComplete
			}
		}
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	// The session carries this attempt's answers; the log only feeds
	// longitudinal stats, so a failed append degrades the dashboard, not
	// the quiz.
	if err := e.results.Append(ctx, models.ResultEntry{
		UserID:     ownerID,
		QuestionID: questionID,
		AnswerID:   answerID,
		IsCorrect:  chosen.IsCorrect,
	}); err != nil {
		log.Printf("WARN: failed to append result entry: %v", err)
	}

	return &models.AnswerOutcome{
		IsCorrect:         chosen.IsCorrect,
		CorrectAnswerID:   correct.ID,
		CorrectAnswerText: correct.Text,
		Explanation:       question.Explanation,
		Score:             next.Score,
		QuestionsAnswered: next.Cursor,
		TotalQuestions:    len(next.QuestionIDs),
		IsComplete:        next.Completed,
	}, nil
}

// Results reconstructs the review from the attempt's own answer records, so
// retakes of the same category never bleed into each other. Partial results
// are allowed: an in-progress quiz reports its score so far against the
// fixed total.
func (e *Engine) Results(ctx context.Context, ref string, ownerID int64) (*models.ResultsView, error) {
	state, err := e.loadOwned(ctx, ref, ownerID)
	if err != nil {
		return nil, err
	}

	total := len(state.QuestionIDs)
	percentage := 0
	if total > 0 {
		percentage = int(math.Round(float64(state.Score) / float64(total) * 100))
	}

	review := make([]models.ReviewEntry, 0, len(state.Answers))
	for _, rec := range state.Answers {
		question, err := e.bank.GetQuestionWithAnswers(ctx, rec.QuestionID)
		if err != nil {
			return nil, fmt.Errorf("%w: question %d: %v", ErrIntegrity, rec.QuestionID, err)
		}
		entry := models.ReviewEntry{
			QuestionText: question.Text,
			Explanation:  question.Explanation,
			Source:       question.Source,
			IsCorrect:    rec.IsCorrect,
		}
		for _, a := range question.Answers {
			if a.ID == rec.AnswerID {
				entry.UserAnswer = a.Text
			}
			if a.IsCorrect {
				entry.CorrectAnswer = a.Text
			}
		}
		review = append(review, entry)
	}

	return &models.ResultsView{
		QuizID:         ref,
		CategoryName:   state.CategoryName,
		Score:          state.Score,
		TotalQuestions: total,
		Percentage:     percentage,
		Review:         review,
	}, nil
}

// loadOwned fetches the session and enforces ownership on every access, so
// a guessed token never exposes another user's quiz.
func (e *Engine) loadOwned(ctx context.Context, ref string, ownerID int64) (*session.State, error) {
	state, err := e.sessions.Load(ctx, ref)
	if errors.Is(err, session.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if state.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return state, nil
}
