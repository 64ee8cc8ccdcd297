package quiz

import "errors"

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrNoQuestions      = errors.New("no questions available in this category")
	ErrSessionNotFound  = errors.New("quiz not found")
	ErrForbidden        = errors.New("forbidden")

	// ErrQuizComplete is a terminal-state signal, not a failure: callers are
	// expected to redirect to the results view.
	ErrQuizComplete = errors.New("quiz already completed")

	// ErrInvalidAnswer means the submitted answer id does not belong to the
	// current question. Rejected outright rather than scored as incorrect so
	// a tampering client cannot corrupt scoring.
	ErrInvalidAnswer = errors.New("invalid answer_id for this question")

	// ErrIntegrity means stored session state references a question or answer
	// that no longer exists. Fatal for that session.
	ErrIntegrity = errors.New("quiz state references missing content")
)
