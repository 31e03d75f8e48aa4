package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"crms/internal/middleware"
	"crms/internal/service"
	"crms/pkg/response"
)

type AuthHandler struct {
	authService service.AuthService
	cookies     middleware.CookieOptions
	loginLimit  gin.HandlerFunc
	logger      *zap.Logger
}

// NewAuthHandler wires the auth endpoints. loginLimit runs in front of login
// and may be a pass-through.
func NewAuthHandler(authService service.AuthService, cookies middleware.CookieOptions, loginLimit gin.HandlerFunc, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, cookies: cookies, loginLimit: loginLimit, logger: logger}
}

// RegisterRoutes binds login/refresh on public and logout/me on protected
func (h *AuthHandler) RegisterRoutes(public, protected *gin.RouterGroup) {
	auth := public.Group("/auth")
	auth.POST("/login", h.loginLimit, h.Login)
	auth.POST("/refresh", h.Refresh)

	me := protected.Group("/auth")
	me.POST("/logout", h.Logout)
	me.GET("/me", h.Me)
}

func (h *AuthHandler) authError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrInvalidCredentials) || errors.Is(err, service.ErrInvalidToken) {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
		return
	}
	respondError(c, h.logger, err)
}

// Login handles POST /api/auth/login
// @Summary      Login user
// @Description  Authenticates by email and password, returning an access and refresh token pair
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest  true  "Login Credentials"
// @Success      200      {object}  response.Response{data=service.TokenResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Failure      429      {object}  response.Response
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	tokens, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		h.authError(c, err)
		return
	}

	middleware.SetTokenCookies(c, h.cookies, tokens.AccessToken, tokens.RefreshToken)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tokens))
}

// Refresh handles POST /api/auth/refresh
// @Summary      Refresh token
// @Description  Rotates the refresh token, read from the refresh_token cookie or the body
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RefreshRequest  false  "Refresh Token"
// @Success      200      {object}  response.Response{data=service.TokenResponse}
// @Failure      401      {object}  response.Response
// @Router       /api/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken := middleware.RefreshTokenCookie(c)
	if refreshToken == "" {
		var req service.RefreshRequest
		if !bindJSON(c, &req) {
			return
		}
		refreshToken = req.RefreshToken
	}

	tokens, err := h.authService.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		h.authError(c, err)
		return
	}

	middleware.SetTokenCookies(c, h.cookies, tokens.AccessToken, tokens.RefreshToken)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tokens))
}

// Logout handles POST /api/auth/logout
// @Summary      Logout
// @Description  Revokes the current access token and the refresh token, then clears the cookies
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.RefreshRequest  false  "Refresh Token"
// @Success      200      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken := middleware.RefreshTokenCookie(c)
	if refreshToken == "" {
		var req service.RefreshRequest
		if !bindOptionalJSON(c, &req) {
			return
		}
		refreshToken = req.RefreshToken
	}

	if err := h.authService.Logout(c.Request.Context(), middleware.Claims(c), refreshToken); err != nil {
		h.authError(c, err)
		return
	}

	middleware.ClearTokenCookies(c, h.cookies)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Logged out"))
}

// Me handles GET /api/auth/me
// @Summary      Get current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.UserResponse}
// @Failure      401  {object}  response.Response
// @Router       /api/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authService.Me(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}
