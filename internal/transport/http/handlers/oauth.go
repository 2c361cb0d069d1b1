package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/juanjice29/PortalCapacitaciones/internal/infra/config"
	"github.com/juanjice29/PortalCapacitaciones/internal/usecase"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateMaxAge = 600
)

// OAuthHandler drives the federated login flow: redirect to the provider,
// exchange the callback code, and hand the verified assertion to the
// identity linker.
type OAuthHandler struct {
	federation      *usecase.FederationService
	providers       map[string]*oauth2.Config
	successRedirect string
	logger          *zap.Logger
}

// NewOAuthHandler constructs OAuthHandler from the configured providers.
func NewOAuthHandler(federation *usecase.FederationService, cfg config.OAuthSettings, logger *zap.Logger) *OAuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	providers := make(map[string]*oauth2.Config, len(cfg.Providers))
	for id, provider := range cfg.Providers {
		scopes := provider.Scopes
		if len(scopes) == 0 {
			scopes = []string{"openid", "profile", "email"}
		}
		providers[strings.ToLower(id)] = &oauth2.Config{
			ClientID:     provider.ClientID,
			ClientSecret: provider.ClientSecret,
			RedirectURL:  provider.RedirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  provider.AuthURL,
				TokenURL: provider.TokenURL,
			},
		}
	}

	return &OAuthHandler{
		federation:      federation,
		providers:       providers,
		successRedirect: cfg.SuccessRedirect,
		logger:          logger,
	}
}

// RegisterRoutes binds the federated login routes.
func (h *OAuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/oauth/:provider", h.begin)
	r.GET("/oauth/:provider/callback", h.callback)
}

func (h *OAuthHandler) begin(c *gin.Context) {
	provider, cfg, ok := h.provider(c)
	if !ok {
		return
	}

	state, err := randomState()
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, http.StatusInternalServerError, "could not start login"))
		return
	}

	c.SetCookie(oauthStateCookie, state, oauthStateMaxAge, "/", "", false, true)
	h.logger.Debug("starting federated login", zap.String("provider", provider))
	c.Redirect(http.StatusFound, cfg.AuthCodeURL(state))
}

func (h *OAuthHandler) callback(c *gin.Context) {
	provider, cfg, ok := h.provider(c)
	if !ok {
		return
	}

	state := c.Query("state")
	cookieState, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || state != cookieState {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, http.StatusBadRequest, "invalid login state"))
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", false, true)

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, http.StatusBadRequest, "missing authorization code"))
		return
	}

	token, err := cfg.Exchange(c.Request.Context(), code)
	if err != nil {
		h.logger.Warn("code exchange failed", zap.String("provider", provider), zap.Error(err))
		c.JSON(http.StatusBadGateway, NewErrorResponse(c, http.StatusBadGateway, "provider exchange failed"))
		return
	}

	assertion, err := assertionFromToken(provider, token)
	if err != nil {
		h.logger.Warn("could not read provider assertion", zap.String("provider", provider), zap.Error(err))
		c.JSON(http.StatusBadGateway, NewErrorResponse(c, http.StatusBadGateway, "provider response unreadable"))
		return
	}

	result, err := h.federation.LinkIdentity(c.Request.Context(), assertion)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrNoFederatedEmail, Status: http.StatusBadRequest, Message: "provider supplied no email"},
			{Err: usecase.ErrInactiveAccount, Status: http.StatusForbidden, Message: "account is disabled"},
		}, http.StatusInternalServerError, "federated login failed")
		return
	}

	if h.successRedirect != "" {
		target := fmt.Sprintf("%s#token=%s&expires_in=%d",
			h.successRedirect, url.QueryEscape(result.Token), int(result.ExpiresIn.Seconds()))
		c.Redirect(http.StatusFound, target)
		return
	}

	c.JSON(http.StatusOK, authResponse(result))
}

func (h *OAuthHandler) provider(c *gin.Context) (string, *oauth2.Config, bool) {
	provider := strings.ToLower(c.Param("provider"))
	cfg, ok := h.providers[provider]
	if !ok {
		c.JSON(http.StatusNotFound, NewErrorResponse(c, http.StatusNotFound, "unknown provider"))
		return "", nil, false
	}
	return provider, cfg, true
}

// providerClaims is the subset of ID-token claims the linker consumes.
type providerClaims struct {
	Subject           string `json:"sub"`
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
	Name              string `json:"name"`
	RealmAccess       struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
	Roles  []string `json:"roles"`
	Groups []string `json:"groups"`
}

// assertionFromToken extracts identity material from the provider token.
// The ID token's payload is decoded without signature verification: it was
// obtained directly from the provider's token endpoint over TLS, which is
// the trust anchor here.
func assertionFromToken(provider string, token *oauth2.Token) (usecase.FederatedAssertion, error) {
	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		return usecase.FederatedAssertion{}, fmt.Errorf("token response carries no id_token")
	}

	parts := strings.Split(idToken, ".")
	if len(parts) != 3 {
		return usecase.FederatedAssertion{}, fmt.Errorf("malformed id_token")
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return usecase.FederatedAssertion{}, fmt.Errorf("decode id_token payload: %w", err)
	}

	var claims providerClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return usecase.FederatedAssertion{}, fmt.Errorf("parse id_token claims: %w", err)
	}

	// Some providers assert no email claim and carry the address in
	// preferred_username instead; it serves as the identifier then.
	email := claims.Email
	if email == "" {
		email = claims.PreferredUsername
	}

	return usecase.FederatedAssertion{
		RegistrationID: provider,
		SubjectID:      claims.Subject,
		Email:          email,
		FullName:       claims.Name,
		RoleHints:      roleHints(claims),
	}, nil
}

// roleHints flattens every role claim source in priority order. All sources
// are forwarded so an unmappable entry in an earlier list (offline_access
// and friends) cannot shadow a mappable one further down.
func roleHints(claims providerClaims) []string {
	hints := make([]string, 0, len(claims.RealmAccess.Roles)+len(claims.Roles)+len(claims.Groups))
	hints = append(hints, claims.RealmAccess.Roles...)
	hints = append(hints, claims.Roles...)
	hints = append(hints, claims.Groups...)
	return hints
}

func randomState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
