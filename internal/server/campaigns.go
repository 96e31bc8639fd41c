package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/salestext/dtax-crm/internal/campaign"
)

func (s *Server) ListCampaigns(c *gin.Context) {
	var campaigns []campaign.Campaign
	query := s.db.WithContext(c.Request.Context()).Order("created_at desc")
	if active, _ := parseOptionalBool(c.Query("active")); active != nil {
		query = query.Where("is_active = ?", *active)
	}
	if err := query.Find(&campaigns).Error; err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": campaigns})
}

func (s *Server) CreateCampaign(c *gin.Context) {
	var req campaign.Campaign
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		AbortWithError(c, newValidationError("name", "invalid_name", "name is required"))
		return
	}

	req.ID = s.genID.Generate()
	req.Name = strings.TrimSpace(req.Name)
	req.IsActive = true
	if err := s.db.WithContext(c.Request.Context()).Create(&req).Error; err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}
