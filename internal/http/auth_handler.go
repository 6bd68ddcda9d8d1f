package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"multiauth/internal/challenge"
	"multiauth/internal/domain"
	"multiauth/internal/oauth"
	"multiauth/internal/service"
)

// Authenticator es la parte del dispatcher que expone la API.
type Authenticator interface {
	LoginWithPassword(ctx context.Context, handleOrEmail, password string, timeoutMs int64) (domain.AuthResult, error)
	Register(ctx context.Context, login, email, password string, timeoutMs int64) (domain.AuthResult, error)
	ResetPassword(ctx context.Context, handleOrEmail string, timeoutMs int64) error
	Logout() error
	RefreshTokens(ctx context.Context, refreshToken string, timeoutMs int64) (domain.AuthTokens, error)
	RequestVerificationCode(ctx context.Context, id, phoneNumber string, timeoutMs int64, testMode bool) (bool, error)
	LoginWithVerificationCode(ctx context.Context, id, code string, timeoutMs int64) (domain.AuthResult, error)
	LoginWithOAuth(ctx context.Context, provider domain.Provider, correlationID string, timeoutMs int64) (domain.AuthResult, error)
	VerifyRecaptchaToken(ctx context.Context, token string, timeoutMs int64) (bool, error)
}

type HandlerConfig struct {
	// TimeoutMs acota las llamadas al backend.
	TimeoutMs int64
	// InteractiveTimeoutMs acota los flujos que esperan al navegador del usuario.
	InteractiveTimeoutMs int64
}

// AuthHandler mantiene dependencias para endpoints de autenticacion.
type AuthHandler struct {
	logger     *zap.Logger
	auth       Authenticator
	tickets    *service.TicketService
	challenges *challenge.BrokerPresenter
	browser    *oauth.BrokerBrowser
	cfg        HandlerConfig
}

func NewAuthHandler(
	logger *zap.Logger,
	auth Authenticator,
	tickets *service.TicketService,
	challenges *challenge.BrokerPresenter,
	browser *oauth.BrokerBrowser,
	cfg HandlerConfig,
) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TimeoutMs <= 0 {
		cfg.TimeoutMs = 10000
	}
	if cfg.InteractiveTimeoutMs <= 0 {
		cfg.InteractiveTimeoutMs = challenge.DefaultTimeoutMs
	}
	return &AuthHandler{
		logger:     logger,
		auth:       auth,
		tickets:    tickets,
		challenges: challenges,
		browser:    browser,
		cfg:        cfg,
	}
}

func (h *AuthHandler) bind(c *gin.Context, req any, what string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.logger.Warn("invalid "+what+" request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return false
	}
	return true
}

// Login maneja POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Login    string `json:"login" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if !h.bind(c, &req, "login") {
		return
	}
	res, err := h.auth.LoginWithPassword(c.Request.Context(), req.Login, req.Password, h.cfg.TimeoutMs)
	if err != nil {
		writeError(c, err)
		return
	}
	writeResult(c, http.StatusOK, res)
}

// Register maneja POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Login    string `json:"login" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if !h.bind(c, &req, "register") {
		return
	}
	res, err := h.auth.Register(c.Request.Context(), req.Login, req.Email, req.Password, h.cfg.TimeoutMs)
	if err != nil {
		writeError(c, err)
		return
	}
	writeResult(c, http.StatusCreated, res)
}

// ResetPassword maneja POST /auth/password/reset.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Login string `json:"login" binding:"required"`
	}
	if !h.bind(c, &req, "password reset") {
		return
	}
	if err := h.auth.ResetPassword(c.Request.Context(), req.Login, h.cfg.TimeoutMs); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset_sent"})
}

// Logout maneja POST /auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.auth.Logout(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "signed_out"})
}

// Refresh maneja POST /auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if !h.bind(c, &req, "refresh") {
		return
	}
	tokens, err := h.auth.RefreshTokens(c.Request.Context(), req.RefreshToken, h.cfg.TimeoutMs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

// PhoneTicket maneja POST /auth/phone/ticket: abre una sesion de verificacion.
// session_id identifica tambien el desafio reCAPTCHA de esa sesion.
func (h *AuthHandler) PhoneTicket(c *gin.Context) {
	ticket, sid, err := h.tickets.Issue()
	if err != nil {
		h.logger.Error("ticket issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue ticket"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ticket": ticket, "session_id": sid})
}

// PhoneCode maneja POST /auth/phone/code.
func (h *AuthHandler) PhoneCode(c *gin.Context) {
	var req struct {
		Ticket      string `json:"ticket" binding:"required"`
		PhoneNumber string `json:"phone_number" binding:"required"`
		TestMode    bool   `json:"test_mode"`
	}
	if !h.bind(c, &req, "phone code") {
		return
	}
	sid, err := h.tickets.Parse(req.Ticket)
	if err != nil {
		writeError(c, err)
		return
	}
	if _, err := h.auth.RequestVerificationCode(c.Request.Context(), sid, req.PhoneNumber, h.cfg.TimeoutMs, req.TestMode); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "code_sent"})
}

// PhoneVerify maneja POST /auth/phone/verify.
func (h *AuthHandler) PhoneVerify(c *gin.Context) {
	var req struct {
		Ticket string `json:"ticket" binding:"required"`
		Code   string `json:"code" binding:"required"`
	}
	if !h.bind(c, &req, "phone verify") {
		return
	}
	sid, err := h.tickets.Parse(req.Ticket)
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := h.auth.LoginWithVerificationCode(c.Request.Context(), sid, req.Code, h.cfg.TimeoutMs)
	if err != nil {
		writeError(c, err)
		return
	}
	writeResult(c, http.StatusOK, res)
}

// Challenge maneja GET /auth/challenge/:id.
func (h *AuthHandler) Challenge(c *gin.Context) {
	id := c.Param("id")
	pageURL, ok := h.challenges.PageURL(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "challenge not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "page_url": pageURL})
}

// ReportChallenge maneja POST /auth/challenge/:id/report con la URI de callback del widget.
func (h *AuthHandler) ReportChallenge(c *gin.Context) {
	var req struct {
		URI string `json:"uri" binding:"required"`
	}
	if !h.bind(c, &req, "challenge report") {
		return
	}
	if err := h.challenges.Report(c.Param("id"), req.URI); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reported"})
}

// CancelChallenge maneja POST /auth/challenge/:id/cancel.
func (h *AuthHandler) CancelChallenge(c *gin.Context) {
	if err := h.challenges.Cancel(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// OAuthLogin maneja POST /auth/oauth/:provider. Bloquea hasta que llega el callback.
func (h *AuthHandler) OAuthLogin(c *gin.Context) {
	provider, ok := domain.ParseProvider(c.Param("provider"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown provider"})
		return
	}
	var req struct {
		CorrelationID string `json:"correlation_id" binding:"required"`
	}
	if !h.bind(c, &req, "oauth") {
		return
	}
	res, err := h.auth.LoginWithOAuth(c.Request.Context(), provider, req.CorrelationID, h.cfg.InteractiveTimeoutMs)
	if err != nil {
		writeError(c, err)
		return
	}
	writeResult(c, http.StatusOK, res)
}

// OAuthPending maneja GET /auth/oauth/pending/:id.
func (h *AuthHandler) OAuthPending(c *gin.Context) {
	startURL, ok := h.browser.StartURL(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "oauth attempt not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"start_url": startURL})
}

// OAuthCallback maneja GET /auth/oauth/callback?state=<id>&id_token=...|access_token=...
func (h *AuthHandler) OAuthCallback(c *gin.Context) {
	params := c.Request.URL.Query()
	state := params.Get("state")
	if state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing state"})
		return
	}
	if err := h.browser.Complete(state, params); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}

// VerifyRecaptcha maneja POST /auth/recaptcha/verify.
func (h *AuthHandler) VerifyRecaptcha(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if !h.bind(c, &req, "recaptcha") {
		return
	}
	valid, err := h.auth.VerifyRecaptchaToken(c.Request.Context(), req.Token, h.cfg.TimeoutMs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": valid})
}
