package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	prospectdomain "github.com/salestext/dtax-crm/internal/prospect/domain"
)

func (s *Server) ListProspects(c *gin.Context) {
	req := prospectdomain.ListProspectRequest{
		Search:    c.Query("search"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
		Limit:     parseIntDefault(c.Query("limit"), 50),
		Offset:    parseIntDefault(c.Query("offset"), 0),
	}

	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			req.Statuses = append(req.Statuses, prospectdomain.Status(strings.TrimSpace(part)))
		}
	}

	hasPhone, err := parseOptionalBool(c.Query("hasPhone"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.HasPhone = hasPhone

	resp, err := s.prospectSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListCustomers is the converted-prospect view.
func (s *Server) ListCustomers(c *gin.Context) {
	resp, err := s.prospectSvc.List(c.Request.Context(), prospectdomain.ListProspectRequest{
		Statuses:  []prospectdomain.Status{prospectdomain.StatusConverted},
		Search:    c.Query("search"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
		Limit:     parseIntDefault(c.Query("limit"), 50),
		Offset:    parseIntDefault(c.Query("offset"), 0),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) CreateProspect(c *gin.Context) {
	var req prospectdomain.CreateProspectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	prospect, err := s.prospectSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, prospect)
}

func (s *Server) GetProspectByID(c *gin.Context) {
	prospect, err := s.prospectSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, prospect)
}

func (s *Server) UpdateProspect(c *gin.Context) {
	var req prospectdomain.UpdateProspectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	prospect, err := s.prospectSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, prospect)
}

func (s *Server) DeleteProspect(c *gin.Context) {
	if err := s.prospectSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ListProspectActivities(c *gin.Context) {
	activities, err := s.prospectSvc.Activities(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": activities})
}

func (s *Server) AddProspectNote(c *gin.Context) {
	var req prospectdomain.AddNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ProspectID = c.Param("id")

	note, err := s.prospectSvc.AddNote(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

func (s *Server) AddProspectTask(c *gin.Context) {
	var req prospectdomain.AddTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ProspectID = c.Param("id")

	task, err := s.prospectSvc.AddTask(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (s *Server) CompleteProspectTask(c *gin.Context) {
	task, err := s.prospectSvc.CompleteTask(c.Request.Context(), c.Param("id"), c.Param("taskId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}
