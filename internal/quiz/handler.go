package quiz

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/nuclear-quiz/backend/internal/middleware"
	"github.com/nuclear-quiz/backend/internal/models"
	"github.com/nuclear-quiz/backend/internal/session"
)

type Handler struct {
	engine *Engine
	store  *Store
}

func NewHandler(engine *Engine, store *Store) *Handler {
	return &Handler{engine: engine, store: store}
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		log.Printf("[handler] ListCategories error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list categories"})
		return
	}
	if categories == nil {
		categories = []models.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) StartQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.StartQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.CategoryID <= 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "category_id is required"})
		return
	}

	descriptor, err := h.engine.Start(r.Context(), userID, req.CategoryID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, descriptor)
}

func (h *Handler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}
	quizID := mux.Vars(r)["quiz_id"]

	view, err := h.engine.CurrentQuestion(r.Context(), quizID, userID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}
	quizID := mux.Vars(r)["quiz_id"]

	var req models.SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.AnswerID <= 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "answer_id is required"})
		return
	}

	outcome, err := h.engine.SubmitAnswer(r.Context(), quizID, userID, req.AnswerID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *Handler) GetResults(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}
	quizID := mux.Vars(r)["quiz_id"]

	results, err := h.engine.Results(r.Context(), quizID, userID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// writeEngineError maps the engine's error taxonomy onto HTTP statuses.
// Completion is 410 with an is_complete flag so clients branch to results
// instead of treating it as a failure.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrCategoryNotFound), errors.Is(err, ErrNoQuestions),
		errors.Is(err, ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrForbidden):
		// Ownership mismatch is a potential abuse signal worth a log line.
		log.Printf("WARN: forbidden quiz access: %v", err)
		writeJSON(w, http.StatusForbidden, models.ErrorResponse{Error: "Forbidden"})
	case errors.Is(err, ErrQuizComplete):
		writeJSON(w, http.StatusGone, map[string]interface{}{
			"error":       err.Error(),
			"is_complete": true,
		})
	case errors.Is(err, ErrInvalidAnswer):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, session.ErrConflict):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "Submission raced with another request; re-fetch the current question"})
	default:
		log.Printf("[handler] quiz error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
