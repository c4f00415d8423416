package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/klovaare/authgate/internal/interface/http"
)

// AuthModule wires the credential endpoints.
// Public: POST /api/auth/register, /api/auth/authenticate, /api/auth/change_password

type AuthModule struct {
	Handler *handlers.AuthHandler
}

func NewAuthModule(h *handlers.AuthHandler) *AuthModule {
	return &AuthModule{Handler: h}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rg.POST("/auth/register", m.Handler.Register)
	rg.POST("/auth/authenticate", m.Handler.Authenticate)
	rg.POST("/auth/change_password", m.Handler.ChangePassword)
}
