package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/salestext/dtax-crm/internal/user"
	"github.com/salestext/dtax-crm/pkg/db"
	"gorm.io/gorm"
)

func (s *Server) ListUsers(c *gin.Context) {
	var users []user.User
	query := s.db.WithContext(c.Request.Context()).Order("name asc")
	if active, _ := parseOptionalBool(c.Query("active")); active != nil {
		query = query.Where("is_active = ?", *active)
	}
	if err := query.Find(&users).Error; err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (s *Server) CreateUser(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
		Name  string `json:"name"`
		Role  string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || strings.TrimSpace(req.Name) == "" {
		AbortWithError(c, newValidationError("email", "invalid_user", "email and name are required"))
		return
	}
	if req.Role == "" {
		req.Role = user.RoleAgent
	}
	if req.Role != user.RoleAdmin && req.Role != user.RoleAgent {
		AbortWithError(c, newValidationError("role", "invalid_role", "unknown role"))
		return
	}

	record := user.User{
		ID:       s.genID.Generate(),
		Email:    req.Email,
		Name:     strings.TrimSpace(req.Name),
		Role:     req.Role,
		IsActive: true,
	}
	if err := s.db.WithContext(c.Request.Context()).Create(&record).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			AbortWithError(c, ErrConflict)
			return
		}
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (s *Server) UpdateUser(c *gin.Context) {
	var req struct {
		Name     *string `json:"name"`
		Role     *string `json:"role"`
		IsActive *bool   `json:"isActive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	record, err := s.findUser(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if req.Name != nil {
		record.Name = strings.TrimSpace(*req.Name)
	}
	if req.Role != nil {
		if *req.Role != user.RoleAdmin && *req.Role != user.RoleAgent {
			AbortWithError(c, newValidationError("role", "invalid_role", "unknown role"))
			return
		}
		record.Role = *req.Role
	}
	if req.IsActive != nil {
		record.IsActive = *req.IsActive
	}

	if err := s.db.WithContext(c.Request.Context()).Save(record).Error; err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) DeactivateUser(c *gin.Context) {
	record, err := s.findUser(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	record.IsActive = false
	if err := s.db.WithContext(c.Request.Context()).Save(record).Error; err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) findUser(c *gin.Context) (*user.User, error) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		return nil, ErrInvalidRequest
	}
	var record user.User
	if err := s.db.WithContext(c.Request.Context()).First(&record, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}
