package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"pinyinhub/core/auth"
	"pinyinhub/logger"
	"pinyinhub/model"
	"pinyinhub/repository"
)

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username"` // 可以是用户名或邮箱
	Password string `json:"password"`
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// LoginHandler handles user login requests
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("[Login] 解析请求体失败", logger.ErrorField(err))
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Username/Email and password are required")
		return
	}

	// 查询用户 - 支持用户名或邮箱登录
	var user *model.User
	var err error
	if strings.Contains(req.Username, "@") {
		user, err = h.userRepo.GetUserByEmail(req.Username)
	} else {
		user, err = h.userRepo.GetUserByUsername(req.Username)
	}
	if err != nil {
		logger.Error("[Login] 查询用户失败", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if user == nil {
		logger.Warn("[Login] 用户不存在", logger.String("username", req.Username))
		respondError(w, http.StatusUnauthorized, "Invalid username/email or password")
		return
	}

	// 验证密码
	if !auth.VerifyPassword(req.Password, user.PasswordHash) {
		logger.Warn("[Login] 密码验证失败", logger.String("username", req.Username))
		respondError(w, http.StatusUnauthorized, "Invalid username/email or password")
		return
	}

	// 生成JWT token
	token, err := auth.GenerateToken(user.ID, user.Username)
	if err != nil {
		logger.Error("[Login] 生成Token失败", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	logger.Info("[Login] 登录成功", logger.String("username", user.Username))

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// RegisterHandler handles user registration requests
func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" || req.Email == "" {
		respondError(w, http.StatusBadRequest, "Username, password and email are required")
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to process password")
		return
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashedPassword,
	}

	userID, err := h.userRepo.CreateUser(user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			logger.Warn("[Register] 用户名或邮箱已存在",
				logger.String("username", req.Username),
				logger.String("email", req.Email))
			respondError(w, http.StatusConflict, "Username or email already exists")
			return
		}
		logger.Error("[Register] 创建用户失败", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	token, err := auth.GenerateToken(userID, user.Username)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"token": token,
		"user": map[string]interface{}{
			"id":       userID,
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

// GetCurrentUserHandler handles GET /api/user for the authenticated caller.
func (h *APIHandler) GetCurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.userRepo.GetUserByID(userID)
	if err != nil {
		logger.Error("[User] 查询用户失败", logger.Int64("userId", userID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}

	respondJSON(w, http.StatusOK, user)
}
