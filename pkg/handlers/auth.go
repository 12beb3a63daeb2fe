package handlers

import (
	"context"
	"net/http"
	"time"

	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/models"
	"taskboard-backend/pkg/services"
	"taskboard-backend/pkg/utils"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	users       *services.UserService
	db          database.DatabaseInterface
	environment string
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(users *services.UserService, db database.DatabaseInterface, environment string) *AuthHandler {
	return &AuthHandler{users: users, db: db, environment: environment}
}

// SignUp 用户注册
// POST /api/auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req models.UserRegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.users.SignUp(r.Context(), req)
	if err != nil {
		utils.WriteServiceError(w, r, err)
		return
	}
	utils.WriteCreatedResponse(w, user)
}

// Login 用户登录
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.UserLoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		utils.WriteServiceError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, resp)
}

// HealthCheck 健康检查
// GET /
func (h *AuthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 测试数据库连接
	dbStatus := "healthy"
	if err := h.db.HealthCheck(ctx); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"service":     "taskboard-backend",
		"version":     "1.0.0",
		"environment": h.environment,
		"db_status":   dbStatus,
		"timestamp":   time.Now().Unix(),
		"status":      "healthy",
	})
}
