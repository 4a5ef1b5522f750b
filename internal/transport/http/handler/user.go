package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ErlanBelekov/authgate/internal/authctx"
	"github.com/ErlanBelekov/authgate/internal/domain"
	"github.com/ErlanBelekov/authgate/internal/usecase"
)

type userUsecaser interface {
	Get(ctx context.Context, callerID, id int64) (*domain.User, error)
	List(ctx context.Context, limit, offset int) ([]*domain.User, error)
	Update(ctx context.Context, callerID, id int64, params usecase.UpdateUserParams) (*domain.User, error)
	Delete(ctx context.Context, callerID, id int64) error
}

type UserHandler struct {
	userUsecase userUsecaser
	logger      *slog.Logger
}

func NewUserHandler(userUsecase userUsecaser, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		userUsecase: userUsecase,
		logger:      logger.With("component", "user_handler"),
	}
}

type userResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

type listUsersQuery struct {
	Limit  int `form:"limit"  binding:"omitempty,min=0"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

type updateUserRequest struct {
	Email    *string `json:"email"    binding:"omitempty,email,max=254"`
	Password *string `json:"password" binding:"omitempty,min=1"`
}

// GET /users?limit=&offset=
func (h *UserHandler) List(c *gin.Context) {
	var q listUsersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidRequest})
		return
	}

	users, err := h.userUsecase.List(c.Request.Context(), q.Limit, q.Offset)
	if err != nil {
		respondError(c, h.logger, "list users", err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	c.JSON(http.StatusOK, out)
}

// GET /users/:id
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	user, err := h.userUsecase.Get(c.Request.Context(), authctx.UserID(c.Request.Context()), id)
	if err != nil {
		respondError(c, h.logger, "get user", err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

// PUT /users/:id
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidRequest})
		return
	}

	user, err := h.userUsecase.Update(c.Request.Context(), authctx.UserID(c.Request.Context()), id,
		usecase.UpdateUserParams{Email: req.Email, Password: req.Password})
	if err != nil {
		respondError(c, h.logger, "update user", err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

// DELETE /users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.userUsecase.Delete(c.Request.Context(), authctx.UserID(c.Request.Context()), id); err != nil {
		respondError(c, h.logger, "delete user", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidRequest})
		return 0, false
	}
	return id, true
}
