package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/moraineventures/moraine-site/backend/internal/investor"
	"github.com/moraineventures/moraine-site/backend/internal/permissions"
	"github.com/moraineventures/moraine-site/backend/internal/visitors"
	"go.uber.org/zap"
)

// actor label recorded on entries created through the admin API.
const adminActorLabel = "admin"

type permissionEntryPayload struct {
	Email     string `json:"email"`
	GroupName string `json:"groupName"`
	AddedAt   int64  `json:"addedAt"`
	AddedBy   string `json:"addedBy"`
}

func (h *httpHandler) handlePermissionList(c *gin.Context) {
	entries, err := h.permissions.List(c.Request.Context())
	if err != nil {
		// The admin UI treats a read failure as an empty list.
		h.logger.Error("permission list failed", zap.Error(err))
		c.JSON(http.StatusOK, []permissionEntryPayload{})
		return
	}

	response := make([]permissionEntryPayload, 0, len(entries))
	for _, entry := range entries {
		response = append(response, permissionEntryPayload{
			Email:     entry.Email,
			GroupName: entry.GroupName,
			AddedAt:   entry.AddedAtSeconds,
			AddedBy:   entry.AddedBy,
		})
	}
	c.JSON(http.StatusOK, response)
}

type permissionMutationPayload struct {
	Email string `json:"email"`
	Group string `json:"group"`
}

func (h *httpHandler) handlePermissionAdd(c *gin.Context) {
	var request permissionMutationPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	_, err := h.permissions.Add(c.Request.Context(), request.Email, request.Group, adminActorLabel)
	if err != nil {
		switch {
		case errors.Is(err, permissions.ErrInvalidEmail):
			c.JSON(http.StatusBadRequest, gin.H{"error": "email required"})
		case errors.Is(err, permissions.ErrAlreadyExists):
			c.JSON(http.StatusBadRequest, gin.H{"error": "email already has access"})
		default:
			h.logger.Error("permission add failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "permission write failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *httpHandler) handlePermissionRemove(c *gin.Context) {
	var request permissionMutationPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	err := h.permissions.Remove(c.Request.Context(), request.Email, request.Group)
	if err != nil {
		switch {
		case errors.Is(err, permissions.ErrInvalidEmail):
			c.JSON(http.StatusBadRequest, gin.H{"error": "email required"})
		case errors.Is(err, permissions.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		default:
			h.logger.Error("permission remove failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "permission write failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type permissionCheckPayload struct {
	Email string `json:"email"`
	Group string `json:"group"`
}

func (h *httpHandler) handlePermissionCheck(c *gin.Context) {
	var request permissionCheckPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	allowed, err := h.permissions.Check(c.Request.Context(), request.Email, request.Group)
	if err != nil {
		h.logger.Error("permission check failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "permission check failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"hasPermission": allowed})
}

type investorAccessPayload struct {
	IDToken     string `json:"id_token"`
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri"`
	Group       string `json:"group"`
}

func (h *httpHandler) handleInvestorAccess(c *gin.Context) {
	var request investorAccessPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	resolution, err := h.gate.Resolve(c.Request.Context(), investor.ResolveRequest{
		IDToken:     request.IDToken,
		Code:        request.Code,
		RedirectURI: request.RedirectURI,
		Group:       request.Group,
	})
	if err != nil {
		switch {
		case errors.Is(err, investor.ErrNoCredential):
			c.JSON(http.StatusBadRequest, gin.H{"error": "sign-in returned no credential"})
		case errors.Is(err, investor.ErrSignInFailed):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "sign-in could not be completed"})
		default:
			h.logger.Error("investor access resolution failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "access check failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"hasPermission": resolution.HasPermission,
		"email":         resolution.Email,
	})
}

type visitorRecordPayload struct {
	Page     string `json:"page"`
	Referrer string `json:"referrer"`
}

func (h *httpHandler) handleVisitorRecord(c *gin.Context) {
	var request visitorRecordPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	visit, err := h.visitors.Record(c.Request.Context(), request.Page, request.Referrer, c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, visitors.ErrInvalidPage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "page required"})
			return
		}
		h.logger.Error("visitor record failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "visit write failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": visit.VisitID})
}

func (h *httpHandler) handleVisitorList(c *gin.Context) {
	visits, err := h.visitors.List(c.Request.Context())
	if err != nil {
		h.logger.Error("visitor list failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "visit read failed"})
		return
	}
	c.JSON(http.StatusOK, visits)
}
