package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/msauth/internal/common"
	"github.com/dmitrijs2005/msauth/internal/logging"
	"github.com/dmitrijs2005/msauth/internal/server/metrics"
	"github.com/dmitrijs2005/msauth/internal/server/models"
	"github.com/gin-gonic/gin"
)

// Service is the engine API the transport calls into.
type Service interface {
	Register(ctx context.Context, r models.Registration) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.LoginResult, error)
	ResetPassword(ctx context.Context, email, newPassword string) (*models.User, error)
	UpdateUser(ctx context.Context, id int64, u models.UserUpdate) (*models.User, error)
	ValidateToken(ctx context.Context, token string) (*models.TokenClaims, error)
}

type AuthHandler struct {
	auth    Service
	logger  logging.Logger
	metrics *metrics.Metrics
}

func NewAuthHandler(auth Service, l logging.Logger, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{auth: auth, logger: l.With("module", "http_handler"), metrics: m}
}

// op wraps fn with metrics and error rendering. fn writes the success
// response itself, and may write its own failure response too.
func (h *AuthHandler) op(name string, fn func(c *gin.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		err := fn(c)
		h.metrics.Observe("http", name, started, err)
		if err != nil && !c.Writer.Written() {
			respondError(c, err)
		}
	}
}

func bind(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return common.NewError(common.KindValidation, errors.New("invalid request body"))
	}
	return nil
}

// Register handles POST /register.
func (h *AuthHandler) Register(c *gin.Context) error {
	var req models.RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.auth.Register(c.Request.Context(), req.Registration())
	if err != nil {
		return err
	}
	c.JSON(http.StatusCreated, models.NewUserView(user))
	return nil
}

// Login handles POST /login.
func (h *AuthHandler) Login(c *gin.Context) error {
	var req models.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, models.NewLoginResponse(res))
	return nil
}

// ResetPassword handles POST /reset-password.
func (h *AuthHandler) ResetPassword(c *gin.Context) error {
	var req models.ResetPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.auth.ResetPassword(c.Request.Context(), req.Email, req.NewPassword)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, models.NewUserView(user))
	return nil
}

// UpdateUser handles PUT /users/:id and PUT /update. A path id wins over one
// in the body.
func (h *AuthHandler) UpdateUser(c *gin.Context) error {
	var req models.UpdateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	id := req.ID
	if p := c.Param("id"); p != "" {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return common.NewError(common.KindValidation, errors.New("invalid user id"))
		}
		id = n
	}
	if id <= 0 {
		return common.NewError(common.KindValidation, errors.New("user id is required"))
	}

	user, err := h.auth.UpdateUser(c.Request.Context(), id, req.Update())
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, models.NewUserView(user))
	return nil
}

// ValidateToken handles POST /validate-token. The token is taken from the
// Authorization header, then the body, then the query string. Verification
// failures are answered with 401 and valid=false rather than the generic
// error body.
func (h *AuthHandler) ValidateToken(c *gin.Context) error {
	token := extractToken(c)
	if token == "" {
		return common.NewError(common.KindValidation, errors.New("token is required"))
	}

	claims, err := h.auth.ValidateToken(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ValidateTokenResponse{
			Valid:   false,
			Message: common.KindOf(err).String(),
		})
		return err
	}
	c.JSON(http.StatusOK, models.ValidateTokenResponse{Valid: true, Payload: claims})
	return nil
}

func extractToken(c *gin.Context) string {
	if token, ok := models.BearerToken(c.GetHeader("Authorization")); ok {
		return token
	}

	var body models.ValidateTokenRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err == nil && body.Token != "" {
			return body.Token
		}
	}

	return c.Query("token")
}
