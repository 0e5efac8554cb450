package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/MalayathiGeetha/Motor-Part/pkg/logger"
)

const RequestIDHeader = "X-Request-Id"

// Upstream ids are echoed only when they look like ids; anything else is
// replaced so it cannot pollute the logs.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,64}$`)

func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if !requestIDPattern.MatchString(id) {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(logg.WithRequestID(r.Context(), id)))
		})
	}
}
