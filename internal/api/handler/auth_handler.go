package handler

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/api/metrics"
	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

// LoginThrottle limits failed logins per identifier.
type LoginThrottle interface {
	Allow(ctx context.Context, identifier string) (bool, time.Duration, error)
	RecordFailure(ctx context.Context, identifier string) error
	Reset(ctx context.Context, identifier string) error
}

type AuthHandler struct {
	authService ports.AuthService
	throttle    LoginThrottle
	log         zerolog.Logger
}

// NewAuthHandler builds the handler. throttle may be nil, which disables
// login throttling.
func NewAuthHandler(authService ports.AuthService, throttle LoginThrottle, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, throttle: throttle, log: log}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=150"`
	TaxID    string `json:"tax_id,omitempty" validate:"omitempty,len=11,numeric"`
	Password string `json:"password" validate:"required,min=6,maxbytes=72"`
	Name     string `json:"name" validate:"required,max=100"`
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=Admin Manager Employee Client"`
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required,max=150"`
	Password   string `json:"password" validate:"required,min=6,maxbytes=72"`
}

type adminResponse struct {
	Message   string `json:"message"`
	AccountID string `json:"account_id"`
}

type tokenInfoResponse struct {
	Subject   string    `json:"sub"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Roles     []string  `json:"roles"`
	Issuer    string    `json:"iss,omitempty"`
	Audience  []string  `json:"aud,omitempty"`
	TokenID   string    `json:"jti"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

func resultLabel(f *domain.Failure) string {
	if f == nil {
		return metrics.ResultSuccess
	}
	return string(f.Kind)
}

// Register creates a new account.
//
// @Summary      Register a new account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Account details"
// @Success      201   {object}  domain.AccountView
// @Failure      400   {object}  map[string]any
// @Failure      500   {object}  map[string]any
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Email:    strings.TrimSpace(req.Email),
		TaxID:    req.TaxID,
		Password: req.Password,
		Name:     strings.TrimSpace(req.Name),
		Role:     req.Role,
	})
	metrics.RegistrationsTotal.WithLabelValues(resultLabel(res.Failure())).Inc()

	view, err := res.Unwrap()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, view)
}

// Login authenticates by email or tax id and returns a token pair.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Identifier (email or tax id) and password"
// @Success      200   {object}  domain.AuthResult
// @Failure      400   {object}  map[string]any
// @Failure      401   {object}  map[string]any
// @Failure      429   {object}  map[string]any
// @Failure      500   {object}  map[string]any
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	identifier := strings.TrimSpace(req.Identifier)

	if h.throttle != nil {
		allowed, retryAfter, err := h.throttle.Allow(ctx, identifier)
		if err != nil {
			metrics.LimiterErrorsTotal.Inc()
			h.log.Warn().Err(err).Msg("login limiter unavailable")
		}
		if !allowed {
			metrics.LoginThrottledTotal.Inc()
			secs := int(math.Ceil(retryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many login attempts")
		}
	}

	res := h.authService.Authenticate(ctx, ports.LoginInput{Identifier: identifier, Password: req.Password})
	metrics.LoginsTotal.WithLabelValues(resultLabel(res.Failure())).Inc()

	if h.throttle != nil {
		h.trackAttempt(ctx, identifier, res.Failure())
	}

	out, err := res.Unwrap()
	if err != nil {
		return err
	}
	metrics.TokensIssuedTotal.Inc()
	return c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) trackAttempt(ctx context.Context, identifier string, f *domain.Failure) {
	var err error
	switch {
	case f == nil:
		err = h.throttle.Reset(ctx, identifier)
	case f.Kind == domain.KindUnauthorized:
		err = h.throttle.RecordFailure(ctx, identifier)
	default:
		return
	}
	if err != nil {
		metrics.LimiterErrorsTotal.Inc()
		h.log.Warn().Err(err).Msg("login limiter update failed")
	}
}

// Me returns the profile of the authenticated account.
//
// @Summary      Current account
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200   {object}  domain.AccountView
// @Failure      401   {object}  map[string]any
// @Failure      404   {object}  map[string]any
// @Router       /api/auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	accountID, err := ctxAccountID(c)
	if err != nil {
		return err
	}

	view, err := h.authService.GetProfile(c.Request().Context(), accountID).Unwrap()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

// AdminOnly is reachable only with the Admin role.
//
// @Summary      Admin check
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200   {object}  adminResponse
// @Failure      401   {object}  map[string]any
// @Failure      403   {object}  map[string]any
// @Router       /api/auth/admin [get]
func (h *AuthHandler) AdminOnly(c echo.Context) error {
	accountID, err := ctxAccountID(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, adminResponse{Message: "admin access granted", AccountID: accountID})
}

// TokenInfo echoes the verified claims of the presented token.
//
// @Summary      Token claims
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200   {object}  tokenInfoResponse
// @Failure      401   {object}  map[string]any
// @Router       /api/auth/token-info [get]
func (h *AuthHandler) TokenInfo(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	roles := claims.RoleList()
	if roles == nil {
		roles = []string{}
	}
	resp := tokenInfoResponse{
		Subject:  claims.Subject,
		Email:    claims.Email,
		Name:     claims.Name,
		Roles:    roles,
		Issuer:   claims.Issuer,
		Audience: claims.Audience,
		TokenID:  claims.ID,
	}
	if claims.IssuedAt != nil {
		resp.IssuedAt = claims.IssuedAt.UTC()
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.UTC()
	}
	return c.JSON(http.StatusOK, resp)
}
