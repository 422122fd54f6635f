package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/notely-dev/notely/internal/audit"
	"github.com/notely-dev/notely/internal/auth"
)

// Login godoc
// @Summary User login
// @Description Authenticate by email and password and return a JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body auth.LoginRequest true "Login credentials"
// @Success 200 {object} auth.LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/login [post]
func Login(authenticator auth.Authenticator, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req auth.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
			return
		}

		resp, err := authenticator.Login(req.Email, req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
				return
			}
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}

		audit.LogAction(db, resp.User.ID, audit.ActionLogin, "user:"+resp.User.ID.String(), nil)
		c.JSON(http.StatusOK, resp)
	}
}

// GetCurrentUser godoc
// @Summary Get current user
// @Description Get the currently authenticated user's information
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} ErrorResponse
// @Router /auth/me [get]
func GetCurrentUser(authenticator auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := authenticator.GetUserFromContext(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}

		c.JSON(http.StatusOK, user)
	}
}

const oidcStateCookie = "notely_oidc_state"

// OIDCLogin redirects the caller to the OIDC provider's authorization URL.
func OIDCLogin(authenticator *auth.OIDCAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := uuid.NewString()
		c.SetCookie(oidcStateCookie, state, 300, "/", "", false, true)
		c.Redirect(http.StatusFound, authenticator.GetAuthURL(state))
	}
}

// OIDCCallback completes the authorization-code flow and issues a session
// token for the mapped local account.
func OIDCCallback(authenticator *auth.OIDCAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		expected, err := c.Cookie(oidcStateCookie)
		if err != nil || expected == "" || c.Query("state") != expected {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid OIDC state"})
			return
		}

		code := c.Query("code")
		if code == "" {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing authorization code"})
			return
		}

		resp, err := authenticator.HandleCallback(c.Request.Context(), code)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "account is deactivated"})
				return
			}
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "OIDC authentication failed"})
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}
