package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/salestext/dtax-crm/internal/taxevent"
)

// HandleTaxSystemWebhook ingests events from tax.salestext.no. No-op
// deliveries (unknown user, unknown type) still answer 200 so the
// sender does not retry them forever.
func (s *Server) HandleTaxSystemWebhook(c *gin.Context) {
	var event taxevent.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		webhookEventsTotal.WithLabelValues("invalid", "rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook payload"})
		return
	}

	if err := s.taxEventSvc.Handle(c.Request.Context(), event); err != nil {
		webhookEventsTotal.WithLabelValues(event.Type, "failed").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook processing failed"})
		return
	}

	webhookEventsTotal.WithLabelValues(event.Type, "ok").Inc()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RegisterTaxSystemUser pushes a prospect into tax.salestext.no and
// stores the linkage the webhook ingest matches on.
func (s *Server) RegisterTaxSystemUser(c *gin.Context) {
	var req struct {
		ProspectID string `json:"prospectId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	prospect, err := s.taxEventSvc.RegisterProspect(c.Request.Context(), req.ProspectID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"taxSystemUserId": prospect.TaxSystemUserID,
		"prospect":        prospect,
	})
}
