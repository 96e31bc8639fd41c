package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/salestext/dtax-crm/internal/settings"
	"gorm.io/gorm/clause"
)

func (s *Server) ListSettings(c *gin.Context) {
	var rows []settings.Setting
	if err := s.db.WithContext(c.Request.Context()).Order("key asc").Find(&rows).Error; err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": rows})
}

func (s *Server) PutSetting(c *gin.Context) {
	var req struct {
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	row := settings.Setting{
		Key:       c.Param("key"),
		Value:     req.Value,
		UpdatedAt: time.Now().UTC(),
	}
	err := s.db.WithContext(c.Request.Context()).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}
