package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/moraineventures/moraine-site/backend/internal/auth"
	"go.uber.org/zap"
)

const adminLoginPage = "/login"

type loginRequestPayload struct {
	Password string `json:"password"`
}

// handleAdminPage enforces the edge redirect rule for the admin UI shell.
// Only the token's shape is checked here; the cryptographic check runs in
// the protected API handlers, which hold the signing secret.
func (h *httpHandler) handleAdminPage(c *gin.Context) {
	page := c.Param("page")
	if page == adminLoginPage || page == adminLoginPage+"/" {
		c.JSON(http.StatusOK, gin.H{"page": "login"})
		return
	}

	cookie, err := c.Cookie(h.cookieName)
	if err != nil || !auth.HasTokenShape(cookie) {
		target := "/admin/login?from=" + url.QueryEscape(c.Request.URL.Path)
		c.Redirect(http.StatusFound, target)
		return
	}

	c.JSON(http.StatusOK, gin.H{"page": strings.TrimPrefix(page, "/")})
}

func (h *httpHandler) handleAdminLogin(c *gin.Context) {
	if h.adminPassword == "" {
		h.logger.Error("admin login rejected", zap.String("reason", "admin password not configured"))
		c.JSON(http.StatusInternalServerError, gin.H{"error": h.configErrorMessage("admin password not configured")})
		return
	}

	var request loginRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password required"})
		return
	}

	if !auth.CheckAdminPassword(request.Password, h.adminPassword) {
		h.logger.Warn("admin login failed", zap.String("remote", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid password"})
		return
	}

	token, err := h.tokens.Issue()
	if err != nil {
		if errors.Is(err, auth.ErrMissingSigningSecret) {
			h.logger.Error("admin login rejected", zap.String("reason", "signing secret not configured"))
			c.JSON(http.StatusInternalServerError, gin.H{"error": h.configErrorMessage("signing secret not configured")})
			return
		}
		h.logger.Error("failed to issue session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	h.setSessionCookie(c, token, int(h.tokens.TokenTTL().Seconds()))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *httpHandler) handleAdminLogout(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleAdminSession reports current token validity without side effects.
func (h *httpHandler) handleAdminSession(c *gin.Context) {
	cookie, err := c.Cookie(h.cookieName)
	ok := err == nil && h.tokens.Verify(cookie)
	c.JSON(http.StatusOK, gin.H{"ok": ok})
}

// requireAdminSession is the route-layer half of the admin guard: the
// cookie must carry a token whose signature and expiry verify.
func (h *httpHandler) requireAdminSession(c *gin.Context) {
	cookie, err := c.Cookie(h.cookieName)
	if err != nil || !h.tokens.Verify(cookie) {
		h.logger.Warn("admin session rejected",
			zap.String("path", c.Request.URL.Path),
			zap.Bool("cookie_present", err == nil))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}

func (h *httpHandler) setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cookieName, token, maxAge, "/", "", h.secureCookies, true)
}

func (h *httpHandler) configErrorMessage(detail string) string {
	if h.productionMessages {
		return "server configuration error"
	}
	return detail
}
