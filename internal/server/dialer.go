package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	apikeydomain "github.com/salestext/dtax-crm/internal/apikey/domain"
	prospectdomain "github.com/salestext/dtax-crm/internal/prospect/domain"
	"go.uber.org/zap"
)

// dialerDefaultStatuses is what the dialer sees when no status filter is
// given: everything still worth calling.
var dialerDefaultStatuses = []prospectdomain.Status{
	prospectdomain.StatusNew,
	prospectdomain.StatusContacted,
	prospectdomain.StatusQualified,
	prospectdomain.StatusInProgress,
	prospectdomain.StatusStep1,
	prospectdomain.StatusStep2,
	prospectdomain.StatusStep3,
	prospectdomain.StatusStep4,
	prospectdomain.StatusStep5,
	prospectdomain.StatusStep6,
}

func (s *Server) DialerListProspects(c *gin.Context) {
	req := prospectdomain.ListProspectRequest{
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
		Limit:     parseIntDefault(c.Query("limit"), 50),
		Offset:    parseIntDefault(c.Query("offset"), 0),
	}

	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			req.Statuses = append(req.Statuses, prospectdomain.Status(strings.TrimSpace(part)))
		}
	} else {
		req.Statuses = dialerDefaultStatuses
	}

	hasPhone, err := parseOptionalBool(c.Query("hasPhone"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dialerError("invalid hasPhone"))
		return
	}
	req.HasPhone = hasPhone

	notCalledSince, err := parseOptionalTime(c.Query("notCalledSince"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dialerError("invalid notCalledSince"))
		return
	}
	req.NotCalledSince = notCalledSince

	resp, err := s.prospectSvc.List(c.Request.Context(), req)
	if err != nil {
		s.dialerFail(c, err)
		return
	}
	c.JSON(http.StatusOK, dialerOK(resp))
}

func (s *Server) DialerGetProspect(c *gin.Context) {
	prospect, err := s.prospectSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.dialerFail(c, err)
		return
	}
	c.JSON(http.StatusOK, dialerOK(prospect))
}

func (s *Server) DialerUpdateProspect(c *gin.Context) {
	var req prospectdomain.UpdateProspectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dialerError("invalid request body"))
		return
	}

	prospect, err := s.prospectSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		s.dialerFail(c, err)
		return
	}
	c.JSON(http.StatusOK, dialerOK(prospect))
}

func (s *Server) DialerRecordCall(c *gin.Context) {
	var req prospectdomain.RecordCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dialerError("invalid request body"))
		return
	}
	req.ProspectID = c.Param("id")
	req.SourceName = s.dialerKeyName(c)

	result, err := s.prospectSvc.RecordCallOutcome(c.Request.Context(), req)
	if err != nil {
		s.dialerFail(c, err)
		return
	}
	c.JSON(http.StatusOK, dialerOK(result))
}

func (s *Server) DialerAddNote(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dialerError("invalid request body"))
		return
	}

	note, err := s.prospectSvc.AddNote(c.Request.Context(), prospectdomain.AddNoteRequest{
		ProspectID: c.Param("id"),
		Content:    req.Content,
	})
	if err != nil {
		s.dialerFail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dialerOK(note))
}

func (s *Server) dialerFail(c *gin.Context, err error) {
	switch {
	case isNotFoundError(err):
		c.JSON(http.StatusNotFound, dialerError("prospect not found"))
	case isValidationError(err):
		c.JSON(http.StatusBadRequest, dialerError(err.Error()))
	default:
		s.log.Error("dialer request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dialerError("internal error"))
	}
}

func (s *Server) dialerKeyName(c *gin.Context) string {
	if value, ok := c.Get(contextAPIKey); ok {
		if key, ok := value.(*apikeydomain.APIKey); ok {
			return key.Name
		}
	}
	return ""
}
