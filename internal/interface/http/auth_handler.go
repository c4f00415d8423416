package handlers

import (
	"errors"
	"expvar"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/klovaare/authgate/internal/application"
	"github.com/klovaare/authgate/internal/infrastructure/postgres"
	"github.com/klovaare/authgate/pkg/response"
	"github.com/klovaare/authgate/pkg/validation"
)

// Outcome counters surfaced on /debug/vars. Incremented on every path,
// success or failure alike, so counting adds no branch-dependent work.
var (
	registerCount     = expvar.NewInt("authgate_register_total")
	authenticateCount = expvar.NewInt("authgate_authenticate_total")
	rotateCount       = expvar.NewInt("authgate_rotate_total")
)

type AuthHandler struct {
	Svc    *application.Service
	Logger *logrus.Logger
	Audit  *postgres.AuditStore
}

func NewAuthHandler(svc *application.Service, logger *logrus.Logger, audit *postgres.AuditStore) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Audit: audit}
}

type registerAccessRequest struct {
	Application string `json:"application" binding:"required"`
	Password    string `json:"password" binding:"required"`
}

type registerRequest struct {
	Email  string                `json:"email" binding:"required,email"`
	Access registerAccessRequest `json:"access" binding:"required"`
}

type authenticateRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Application string `json:"application" binding:"required"`
	Password    string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Application string `json:"application" binding:"required"`
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

func clientIP(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	return c.ClientIP()
}

// audit records a credential lifecycle event; best effort, errors dropped.
func (h *AuthHandler) audit(c *gin.Context, email, action string, metadata map[string]any) {
	if h.Audit == nil {
		return
	}
	_ = h.Audit.Record(c.Request.Context(), email, action, clientIP(c), c.GetHeader("User-Agent"), metadata)
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	registerCount.Add(1)

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	accessID, err := h.Svc.Register(c.Request.Context(), req.Email, req.Access.Application, req.Access.Password)
	if err != nil {
		h.audit(c, req.Email, "register_failed", map[string]any{"application": req.Access.Application})
		status, msg := statusForError(err)
		response.Error[any](c, status, msg, nil)
		return
	}

	h.audit(c, req.Email, "register", map[string]any{"application": req.Access.Application, "access_id": accessID})
	response.Success(c, http.StatusCreated, gin.H{"access_id": accessID}, "credential registered")
}

// Authenticate POST /api/auth/authenticate
func (h *AuthHandler) Authenticate(c *gin.Context) {
	authenticateCount.Add(1)

	var req authenticateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	// The core never surfaces why authentication failed; neither do we.
	if !h.Svc.Authenticate(c.Request.Context(), req.Email, req.Application, req.Password) {
		response.Error[any](c, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}

	response.Success[any](c, http.StatusOK, gin.H{"authenticated": true}, "authentication successful")
}

// ChangePassword POST /api/auth/change_password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	rotateCount.Add(1)

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	err := h.Svc.RotatePassword(c.Request.Context(), req.Email, req.Application, req.OldPassword, req.NewPassword)
	if err != nil {
		h.audit(c, req.Email, "rotate_failed", map[string]any{"application": req.Application})
		status, msg := statusForError(err)
		response.Error[any](c, status, msg, nil)
		return
	}

	h.audit(c, req.Email, "rotate", map[string]any{"application": req.Application})
	response.Success[any](c, http.StatusOK, gin.H{"rotated": true}, "password changed")
}

// statusForError maps the core's closed error set to transport statuses.
func statusForError(err error) (int, string) {
	var appErr *application.Error
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, "internal error"
	}
	switch appErr.Kind {
	case application.KindPasswordPolicy:
		return http.StatusBadRequest, appErr.Error()
	case application.KindAccessExists:
		return http.StatusConflict, appErr.Error()
	case application.KindAccessNotFound:
		return http.StatusUnauthorized, "authentication failed"
	case application.KindUserNotFound:
		return http.StatusNotFound, appErr.Error()
	case application.KindDatabase:
		// Detail stays in the logs, not in the response.
		return http.StatusInternalServerError, "internal error"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
