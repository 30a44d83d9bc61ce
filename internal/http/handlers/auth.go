package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/taskhub/taskhub/internal/auth"
	"github.com/taskhub/taskhub/internal/cache"
	"github.com/taskhub/taskhub/internal/config"
	"github.com/taskhub/taskhub/internal/domain/user"
	"github.com/taskhub/taskhub/internal/http/middlewares"
	"github.com/taskhub/taskhub/internal/observability"
	"github.com/taskhub/taskhub/internal/security"
)

type UserStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
}

type TokenIssuer interface {
	Issue(subject string) (string, error)
}

type AuthHandler struct {
	users    UserStore
	jwt      TokenIssuer
	prom     *observability.Prom
	profiles *cache.Cache
}

func NewAuthHandler(users UserStore, jwtManager *auth.Manager, prom *observability.Prom) *AuthHandler {
	return &AuthHandler{
		users:    users,
		jwt:      jwtManager,
		prom:     prom,
		profiles: cache.New(5 * time.Second),
	}
}

type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if req.Password != req.PasswordConfirm {
		RespondBadRequest(ctx, "password_mismatch", "Passwords do not match.", nil)
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.users.Create(cctx, user.New(req.Email, hash))

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondConflict(ctx, "email_taken", "Email is already registered.")
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	ctx.JSON(http.StatusCreated, u.Public())
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		// same response as a wrong password so emails cannot be enumerated
		h.countLogin("rejected")
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		h.countLogin("rejected")
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	accessToken, err := h.jwt.Issue(foundUser.Email)

	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	h.countLogin("ok")

	ctx.JSON(http.StatusOK, TokenResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
	})
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	u, ok := middlewares.CurrentUserFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	ctx.JSON(http.StatusOK, u.Public())
}

func (h *AuthHandler) GetUser(ctx *gin.Context) {
	id := ctx.Param("id")

	if _, err := uuid.Parse(id); err != nil {
		RespondBadRequest(ctx, "invalid_id", "user id must be a valid UUID", nil)
		return
	}

	if cached, ok := h.profiles.Get(id); ok {
		if pub, ok := cached.(user.Public); ok {
			ctx.JSON(http.StatusOK, pub)
			return
		}
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not fetch user")
		return
	}

	pub := u.Public()
	h.profiles.Set(id, pub)

	ctx.JSON(http.StatusOK, pub)
}

func (h *AuthHandler) countLogin(result string) {
	if h.prom != nil {
		h.prom.LoginsTotal.WithLabelValues(result).Inc()
	}
}
