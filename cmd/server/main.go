package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/nuclear-quiz/backend/internal/auth"
	"github.com/nuclear-quiz/backend/internal/database"
	"github.com/nuclear-quiz/backend/internal/middleware"
	"github.com/nuclear-quiz/backend/internal/quiz"
	"github.com/nuclear-quiz/backend/internal/results"
	"github.com/nuclear-quiz/backend/internal/session"
	"github.com/rs/cors"
)

func main() {
	// Initialize database
	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Session storage backing. Postgres keeps sessions across restarts,
	// redis and memory bind one active quiz per user.
	sessions, err := newSessionStore(db)
	if err != nil {
		log.Fatalf("Failed to init session store: %v", err)
	}

	// Initialize handlers
	questionStore := quiz.NewStore(db)
	resultStore := results.NewStore(db)
	engine := quiz.NewEngine(questionStore, sessions, resultStore)

	authHandler := auth.NewHandler(db)
	quizHandler := quiz.NewHandler(engine, questionStore)
	resultsHandler := results.NewHandler(resultStore)

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware)
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")
	protected.HandleFunc("/auth/password", authHandler.ChangePassword).Methods("PUT")
	protected.HandleFunc("/auth/account", authHandler.DeleteAccount).Methods("DELETE")

	protected.HandleFunc("/categories", quizHandler.ListCategories).Methods("GET")
	protected.HandleFunc("/quiz/start", quizHandler.StartQuiz).Methods("POST")
	protected.HandleFunc("/quiz/{quiz_id}", quizHandler.GetQuestion).Methods("GET")
	protected.HandleFunc("/quiz/{quiz_id}/answer", quizHandler.SubmitAnswer).Methods("POST")
	protected.HandleFunc("/quiz/{quiz_id}/results", quizHandler.GetResults).Methods("GET")

	protected.HandleFunc("/progress", resultsHandler.GetProgress).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func newSessionStore(db *sql.DB) (session.Store, error) {
	backend := getEnv("SESSION_BACKEND", "postgres")
	switch backend {
	case "postgres":
		return session.NewPostgresStore(db), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return session.NewRedisStore(client, 24*time.Hour), nil
	case "memory":
		log.Printf("WARN: using in-memory session store, sessions are lost on restart")
		return session.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown SESSION_BACKEND %q", backend)
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
