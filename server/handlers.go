package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"pinyinhub/config"
	"pinyinhub/core/auth"
	"pinyinhub/core/enrich"
	"pinyinhub/logger"
	"pinyinhub/repository"
)

// APIHandler 处理所有API请求
type APIHandler struct {
	songRepo repository.SongRepository
	userRepo repository.UserRepository
	pipeline *enrich.Pipeline
	cfg      *config.Config
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(
	songRepo repository.SongRepository,
	userRepo repository.UserRepository,
	pipeline *enrich.Pipeline,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		songRepo: songRepo,
		userRepo: userRepo,
		pipeline: pipeline,
		cfg:      cfg,
	}
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Error("Failed to encode JSON response", logger.ErrorField(err))
		}
	}
}

// respondError writes a conventional {message} error body.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}

// respondValidationError writes a 400 with per-field error detail.
func respondValidationError(w http.ResponseWriter, fieldErrors map[string]string) {
	respondJSON(w, http.StatusBadRequest, map[string]interface{}{
		"message": "Invalid song data",
		"errors":  fieldErrors,
	})
}

// RequestIDMiddleware tags each request with a uuid carried in logs and
// the X-Request-Id response header.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()
		w.Header().Set("X-Request-Id", requestID)
		ctx := context.WithValue(r.Context(), "requestID", requestID)

		logger.Debug("Request received",
			logger.String("requestId", requestID),
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthMiddleware is a middleware function that checks for a valid JWT token
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		const prefix = "Bearer "
		if len(authHeader) <= len(prefix) || authHeader[:len(prefix)] != prefix {
			respondError(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := auth.ParseToken(authHeader[len(prefix):])
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), "userID", claims.UserID)
		ctx = context.WithValue(ctx, "username", claims.Username)

		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value("userID").(int64)
	if !ok {
		return 0, fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}
