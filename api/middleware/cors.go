package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS admits the operator dashboard origins. Headers the API reads or sets
// are listed so browsers can send and see them.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", ActorHeader, IdempotencyHeader, RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader, IdempotencyReplayHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
