package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ErlanBelekov/authgate/internal/domain"
	"github.com/ErlanBelekov/authgate/internal/usecase"
)

// authUsecaser is the subset of AuthUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type authUsecaser interface {
	Login(ctx context.Context, email, password string) (*usecase.LoginResult, error)
	Register(ctx context.Context, email, password string) (*usecase.RegisterResult, error)
	VerifyEmail(ctx context.Context, rawToken string) (*domain.User, error)
}

type AuthHandler struct {
	authUsecase authUsecaser
	logger      *slog.Logger
}

func NewAuthHandler(authUsecase authUsecaser, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authUsecase: authUsecase,
		logger:      logger.With("component", "auth_handler"),
	}
}

type credentialsRequest struct {
	Email    string `json:"email"    binding:"required,email,max=254"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token  string `json:"token"`
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}

type registerResponse struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}

type verifyEmailResponse struct {
	UserID        int64  `json:"user_id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// POST /auth/login
// Unknown email and wrong password get the same 401 body.
func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidRequest})
		return
	}

	res, err := h.authUsecase.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, "login", err)
		return
	}

	c.JSON(http.StatusOK, loginResponse{Token: res.Token, UserID: res.UserID, Email: res.Email})
}

// POST /auth/register
// Does not issue a token; the client logs in separately.
func (h *AuthHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidRequest})
		return
	}

	res, err := h.authUsecase.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, "register", err)
		return
	}

	c.JSON(http.StatusCreated, registerResponse{UserID: res.UserID, Email: res.Email})
}

// GET /auth/verify-email?token=<jwt>
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	raw := c.Query("token")
	if raw == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errAuthenticationFailed})
		return
	}

	user, err := h.authUsecase.VerifyEmail(c.Request.Context(), raw)
	if err != nil {
		respondError(c, h.logger, "verify email", err)
		return
	}

	c.JSON(http.StatusOK, verifyEmailResponse{
		UserID:        user.ID,
		Email:         user.Email,
		EmailVerified: user.IsEmailVerified,
	})
}
