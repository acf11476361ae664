package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/moraineventures/moraine-site/backend/internal/deals"
	"github.com/moraineventures/moraine-site/backend/internal/investor"
	"github.com/moraineventures/moraine-site/backend/internal/permissions"
	"github.com/moraineventures/moraine-site/backend/internal/theses"
	"github.com/moraineventures/moraine-site/backend/internal/visitors"
	"go.uber.org/zap"
)

var (
	errMissingSessionTokens = errors.New("session token codec dependency required")
	errMissingPermissions   = errors.New("permission service dependency required")
	errMissingTheses        = errors.New("thesis service dependency required")
	errMissingDeals         = errors.New("deal service dependency required")
	errMissingVisitors      = errors.New("visitor service dependency required")
	errMissingGate          = errors.New("investor gate dependency required")
	errMissingCookieName    = errors.New("session cookie name required")
)

// SessionTokens issues and verifies admin session tokens.
type SessionTokens interface {
	Issue() (string, error)
	Verify(token string) bool
	TokenTTL() time.Duration
}

// Dependencies wires the HTTP layer to its collaborators.
type Dependencies struct {
	SessionTokens      SessionTokens
	AdminPassword      string
	CookieName         string
	SecureCookies      bool
	ProductionMessages bool
	Permissions        *permissions.Service
	Theses             *theses.Service
	Deals              *deals.Service
	Visitors           *visitors.Service
	Gate               *investor.Gate
	Logger             *zap.Logger
}

// NewHTTPHandler assembles the gin router for the site backend.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.SessionTokens == nil {
		return nil, errMissingSessionTokens
	}
	if deps.Permissions == nil {
		return nil, errMissingPermissions
	}
	if deps.Theses == nil {
		return nil, errMissingTheses
	}
	if deps.Deals == nil {
		return nil, errMissingDeals
	}
	if deps.Visitors == nil {
		return nil, errMissingVisitors
	}
	if deps.Gate == nil {
		return nil, errMissingGate
	}
	if deps.CookieName == "" {
		return nil, errMissingCookieName
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		tokens:             deps.SessionTokens,
		adminPassword:      deps.AdminPassword,
		cookieName:         deps.CookieName,
		secureCookies:      deps.SecureCookies,
		productionMessages: deps.ProductionMessages,
		permissions:        deps.Permissions,
		theses:             deps.Theses,
		deals:              deps.Deals,
		visitors:           deps.Visitors,
		gate:               deps.Gate,
		logger:             logger,
	}

	router.GET("/healthz", handler.handleHealth)

	// Admin UI shell: the rendering layer lives elsewhere, but the edge
	// redirect rule for /admin/* is enforced here.
	router.GET("/admin/*page", handler.handleAdminPage)

	api := router.Group("/api")
	api.POST("/admin/login", handler.handleAdminLogin)
	api.POST("/admin/logout", handler.handleAdminLogout)
	api.GET("/admin/session", handler.handleAdminSession)

	api.GET("/thesis", handler.handleThesisRead)
	api.GET("/deals", handler.handleDealList)
	api.GET("/deals/:id", handler.handleDealGet)
	api.POST("/permissions/check", handler.handlePermissionCheck)
	api.POST("/investor/access", handler.handleInvestorAccess)
	api.POST("/visitors", handler.handleVisitorRecord)

	protected := api.Group("")
	protected.Use(handler.requireAdminSession)
	protected.GET("/permissions", handler.handlePermissionList)
	protected.POST("/permissions", handler.handlePermissionAdd)
	protected.DELETE("/permissions", handler.handlePermissionRemove)
	protected.PUT("/thesis", handler.handleThesisUpdate)
	protected.DELETE("/thesis", handler.handleThesisDelete)
	protected.PUT("/deals", handler.handleDealUpsert)
	protected.DELETE("/deals", handler.handleDealDelete)
	protected.GET("/visitors", handler.handleVisitorList)

	return router, nil
}

type httpHandler struct {
	tokens             SessionTokens
	adminPassword      string
	cookieName         string
	secureCookies      bool
	productionMessages bool
	permissions        *permissions.Service
	theses             *theses.Service
	deals              *deals.Service
	visitors           *visitors.Service
	gate               *investor.Gate
	logger             *zap.Logger
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
