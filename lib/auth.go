package userdesk

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"userdesk/internal/models"
	"userdesk/shared/logger"
)

// Auth is the identity collaborator: it runs the OpenID Connect sign-in flow
// and exposes the current session.
type Auth interface {
	SignInHandler(ctx *gin.Context)
	LoginHandler(ctx *gin.Context)
	CallbackHandler(ctx *gin.Context)
	LogoutHandler(ctx *gin.Context)
	SessionHandler(ctx *gin.Context)
}

// IDTokenVerifier verifies a raw ID token and decodes its claims.
type IDTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

// zAuth authenticates users against an OIDC provider.
type zAuth struct {
	oauth    oauth2.Config
	verifier IDTokenVerifier
	provider string
}

// profileClaims are the ID token claims copied into the session.
type profileClaims struct {
	Subject string `json:"sub"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// NewAuth discovers the OIDC provider and prepares the OAuth2 configuration.
func NewAuth(ctx context.Context, c Config) (Auth, error) {
	provider, err := oidc.NewProvider(ctx, c.AuthIssuer())
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	oauth := oauth2.Config{
		ClientID:     c.AuthClientID(),
		ClientSecret: c.AuthClientSecret(),
		RedirectURL:  c.AuthCallback(),
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}

	verifier := provider.Verifier(&oidc.Config{ClientID: oauth.ClientID})
	return newAuth(oauth, verifier, c.AuthIssuer()), nil
}

func newAuth(oauth oauth2.Config, verifier IDTokenVerifier, provider string) *zAuth {
	return &zAuth{oauth: oauth, verifier: verifier, provider: provider}
}

// SignInHandler describes how to sign in.
func (a *zAuth) SignInHandler(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"providers": []gin.H{{
			"issuer": a.provider,
			"login":  "/auth/login",
		}},
	})
}

// LoginHandler starts the authorization code flow.
func (a *zAuth) LoginHandler(ctx *gin.Context) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		ctx.String(http.StatusInternalServerError, err.Error())
		return
	}
	state := base64.RawURLEncoding.EncodeToString(b)

	session := sessions.Default(ctx)
	session.Set(stateKey, state)
	if err := session.Save(); err != nil {
		ctx.String(http.StatusInternalServerError, err.Error())
		return
	}

	ctx.Redirect(http.StatusTemporaryRedirect, a.oauth.AuthCodeURL(state))
}

// CallbackHandler completes the flow and stores the principal in the session.
func (a *zAuth) CallbackHandler(ctx *gin.Context) {
	session := sessions.Default(ctx)
	state, _ := session.Get(stateKey).(string)
	if state == "" || ctx.Query("state") != state {
		ctx.String(http.StatusBadRequest, "Invalid state parameter.")
		return
	}
	// State is single use, whether or not the exchange below succeeds.
	session.Delete(stateKey)
	if err := session.Save(); err != nil {
		ctx.String(http.StatusInternalServerError, err.Error())
		return
	}

	token, err := a.oauth.Exchange(ctx.Request.Context(), ctx.Query("code"))
	if err != nil {
		logger.Warn("Authorization code exchange failed", logger.Err(err))
		ctx.String(http.StatusUnauthorized, "Failed to exchange an authorization code for a token.")
		return
	}

	principal, err := a.principal(ctx.Request.Context(), token)
	if err != nil {
		logger.Warn("ID token verification failed", logger.Err(err))
		ctx.String(http.StatusInternalServerError, "Failed to verify ID Token.")
		return
	}

	session.Set(principalKey, *principal)
	if err := session.Save(); err != nil {
		ctx.String(http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("User signed in", logger.String("principal", principal.ID))
	ctx.Redirect(http.StatusTemporaryRedirect, "/users")
}

// LogoutHandler clears the session.
func (a *zAuth) LogoutHandler(ctx *gin.Context) {
	session := sessions.Default(ctx)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		ctx.String(http.StatusInternalServerError, err.Error())
		return
	}
	ctx.Redirect(http.StatusTemporaryRedirect, "/signin")
}

// SessionHandler reports the current session, or null when signed out.
func (a *zAuth) SessionHandler(ctx *gin.Context) {
	p := CurrentPrincipal(ctx)
	if p == nil {
		ctx.JSON(http.StatusOK, nil)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"user": p})
}

func (a *zAuth) principal(ctx context.Context, token *oauth2.Token) (*models.Principal, error) {
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("no id_token field in oauth2 token")
	}

	idToken, err := a.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, err
	}

	var claims profileClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("id_token has no subject")
	}

	return &models.Principal{
		ID:      claims.Subject,
		Name:    claims.Name,
		Email:   claims.Email,
		Picture: claims.Picture,
	}, nil
}
