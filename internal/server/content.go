package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/moraineventures/moraine-site/backend/internal/deals"
	"github.com/moraineventures/moraine-site/backend/internal/theses"
	"go.uber.org/zap"
)

// handleThesisRead returns the full document map keyed by thesis id. The
// built-in default set is served when the store is empty or unreadable, so
// the public research page always has content.
func (h *httpHandler) handleThesisRead(c *gin.Context) {
	documents, err := h.theses.List(c.Request.Context())
	if err != nil {
		h.logger.Error("thesis read failed, serving defaults", zap.Error(err))
		documents = nil
	}
	if len(documents) == 0 {
		documents = theses.DefaultDocuments()
	}

	response := make(map[string]theses.Document, len(documents))
	for _, document := range documents {
		response[document.ThesisID] = document
	}
	c.JSON(http.StatusOK, response)
}

type thesisUpdatePayload struct {
	ThesisID    string          `json:"thesisId"`
	Section     string          `json:"section"`
	Content     json.RawMessage `json:"content"`
	ThesisTitle *string         `json:"thesisTitle,omitempty"`
	Featured    *bool           `json:"featured,omitempty"`
}

func (h *httpHandler) handleThesisUpdate(c *gin.Context) {
	var request thesisUpdatePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	id, err := theses.NewThesisID(request.ThesisID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "thesisId required"})
		return
	}

	ctx := c.Request.Context()

	// The featured flag bypasses section handling entirely.
	if request.Featured != nil {
		if err := h.theses.UpdateFeatured(ctx, id, *request.Featured); err != nil {
			h.logger.Error("featured update failed", zap.Error(err), zap.String("thesis_id", id.String()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	section := strings.TrimSpace(request.Section)
	if section == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "section required"})
		return
	}
	if len(request.Content) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content required"})
		return
	}

	if request.ThesisTitle != nil {
		encodedTitle, err := json.Marshal(*request.ThesisTitle)
		if err == nil {
			if _, err := h.theses.UpdateField(ctx, id, "title", encodedTitle); err != nil {
				h.logger.Error("thesis title update failed", zap.Error(err), zap.String("thesis_id", id.String()))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
				return
			}
		}
	}

	if _, err := h.theses.UpdateField(ctx, id, section, request.Content); err != nil {
		if errors.Is(err, theses.ErrInvalidFieldValue) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid value for field"})
			return
		}
		h.logger.Error("thesis update failed", zap.Error(err),
			zap.String("thesis_id", id.String()), zap.String("field", section))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type thesisDeletePayload struct {
	ThesisID string `json:"thesisId"`
}

func (h *httpHandler) handleThesisDelete(c *gin.Context) {
	var request thesisDeletePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	id, err := theses.NewThesisID(request.ThesisID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "thesisId required"})
		return
	}

	if err := h.theses.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, theses.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "thesis not found"})
			return
		}
		h.logger.Error("thesis delete failed", zap.Error(err), zap.String("thesis_id", id.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *httpHandler) handleDealList(c *gin.Context) {
	records, err := h.deals.List(c.Request.Context())
	if err != nil {
		h.logger.Error("deal list failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "deal list failed"})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *httpHandler) handleDealGet(c *gin.Context) {
	record, err := h.deals.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, deals.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "deal not found"})
			return
		}
		h.logger.Error("deal get failed", zap.Error(err), zap.String("deal_id", c.Param("id")))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "deal read failed"})
		return
	}
	c.JSON(http.StatusOK, record)
}

type dealUpsertPayload struct {
	DealID          string `json:"id"`
	Company         string `json:"company"`
	RaiseUSD        int64  `json:"raiseUsd"`
	PreMoneyUSD     int64  `json:"preMoneyUsd"`
	PostMoneyUSD    int64  `json:"postMoneyUsd"`
	Status          string `json:"status"`
	AnnouncementURL string `json:"announcementUrl"`
	ThesisRoute     string `json:"thesisRoute"`
}

func (h *httpHandler) handleDealUpsert(c *gin.Context) {
	var request dealUpsertPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if strings.TrimSpace(request.Company) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "company required"})
		return
	}

	record, err := h.deals.Upsert(c.Request.Context(), deals.Deal{
		DealID:          request.DealID,
		Company:         request.Company,
		RaiseUSD:        request.RaiseUSD,
		PreMoneyUSD:     request.PreMoneyUSD,
		PostMoneyUSD:    request.PostMoneyUSD,
		Status:          deals.Status(request.Status),
		AnnouncementURL: request.AnnouncementURL,
		ThesisRoute:     request.ThesisRoute,
	})
	if err != nil {
		if errors.Is(err, deals.ErrInvalidStatus) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		h.logger.Error("deal upsert failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "deal write failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": record.DealID})
}

type dealDeletePayload struct {
	DealID string `json:"id"`
}

func (h *httpHandler) handleDealDelete(c *gin.Context) {
	var request dealDeletePayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.DealID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id required"})
		return
	}

	if err := h.deals.Delete(c.Request.Context(), request.DealID); err != nil {
		if errors.Is(err, deals.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "deal not found"})
			return
		}
		h.logger.Error("deal delete failed", zap.Error(err), zap.String("deal_id", request.DealID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
