package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/notely-dev/notely/internal/models"
)

// OIDCAuthenticator provides generic OIDC authentication. Verified OIDC
// identities are mapped onto local accounts; issued sessions are the same
// JWTs the basic authenticator produces.
type OIDCAuthenticator struct {
	provider  *oidc.Provider
	config    *oauth2.Config
	verifier  *oidc.IDTokenVerifier
	db        *gorm.DB
	basicAuth *BasicAuthenticator
}

// OIDCConfig holds OIDC configuration
type OIDCConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// NewOIDCAuthenticator creates a new OIDC authenticator
func NewOIDCAuthenticator(ctx context.Context, cfg OIDCConfig, db *gorm.DB, jwtSecret string) (*OIDCAuthenticator, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       scopes,
	}

	verifier := provider.Verifier(&oidc.Config{
		ClientID: cfg.ClientID,
	})

	return &OIDCAuthenticator{
		provider:  provider,
		config:    oauth2Config,
		verifier:  verifier,
		db:        db,
		basicAuth: NewBasicAuthenticator(db, jwtSecret),
	}, nil
}

// Login delegates to password authentication so the login endpoint keeps
// working for accounts with local credentials.
func (a *OIDCAuthenticator) Login(email, password string) (*LoginResponse, error) {
	return a.basicAuth.Login(email, password)
}

// Middleware delegates to the JWT middleware; OIDC only changes how a
// session is obtained, not how it is presented.
func (a *OIDCAuthenticator) Middleware() gin.HandlerFunc {
	return a.basicAuth.Middleware()
}

// GetUserFromContext delegates to the basic authenticator.
func (a *OIDCAuthenticator) GetUserFromContext(c *gin.Context) (*models.User, error) {
	return a.basicAuth.GetUserFromContext(c)
}

// GetAuthURL returns the URL to redirect users to for authentication
func (a *OIDCAuthenticator) GetAuthURL(state string) string {
	return a.config.AuthCodeURL(state)
}

// HandleCallback handles the OAuth2 callback
func (a *OIDCAuthenticator) HandleCallback(ctx context.Context, code string) (*LoginResponse, error) {
	oauth2Token, err := a.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("no id_token in token response")
	}

	idToken, err := a.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Sub           string `json:"sub"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}

	if claims.Email == "" {
		return nil, errors.New("OIDC provider returned no email claim")
	}

	user, err := a.findOrCreateUser(claims.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find or create user: %w", err)
	}

	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	token, err := a.basicAuth.generateToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate JWT: %w", err)
	}

	slog.Info("User logged in via OIDC", "user_id", user.ID, "email", user.Email)
	return &LoginResponse{
		Token: token,
		User:  user,
	}, nil
}

// findOrCreateUser finds an existing account by email or creates a new
// regular one. OIDC users have no local password.
func (a *OIDCAuthenticator) findOrCreateUser(email string) (*models.User, error) {
	email = models.NormalizeEmail(email)

	var user models.User
	result := a.db.Where("email = ?", email).First(&user)
	if result.Error == nil {
		return &user, nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error: %w", result.Error)
	}

	user = models.User{
		ID:       uuid.New(),
		Email:    email,
		Role:     models.RoleRegular,
		IsActive: true,
		// No password hash - OIDC users don't have passwords
		PasswordHash: "",
	}

	if err := a.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("Created new user from OIDC", "user_id", user.ID, "email", email)
	return &user, nil
}
