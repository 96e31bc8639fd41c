package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/salestext/dtax-crm/internal/apikey/domain"
	"github.com/salestext/dtax-crm/internal/apikey/repository"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*gorm.DB, domain.Service) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&domain.APIKey{}, &domain.APILog{}))

	node, _ := snowflake.NewNode(1)
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
	return db, svc
}

func TestCreate_KeyShape(t *testing.T) {
	_, svc := newTestService(t)

	resp, err := svc.Create(context.Background(), domain.CreateRequest{
		Name:        "Dialer production",
		Permissions: []string{domain.PermissionDialerRead, domain.PermissionDialerCall},
	})
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.PlainText, "dtax_"))
	assert.Len(t, resp.PlainText, len("dtax_")+32)
	assert.Equal(t, resp.PlainText[:12], resp.Key.KeyPrefix)
	assert.Equal(t, domain.HashAPIKey(resp.PlainText), resp.Key.KeyHash)
	assert.True(t, resp.Key.IsActive)
}

func TestCreate_RejectsUnknownPermission(t *testing.T) {
	_, svc := newTestService(t)

	_, err := svc.Create(context.Background(), domain.CreateRequest{
		Name:        "Bad",
		Permissions: []string{"admin:all"},
	})
	assert.ErrorIs(t, err, domain.ErrBadPermissions)
}

func TestValidate_Success(t *testing.T) {
	_, svc := newTestService(t)

	created, err := svc.Create(context.Background(), domain.CreateRequest{
		Name:        "Dialer",
		Permissions: []string{domain.PermissionDialerRead},
	})
	assert.NoError(t, err)

	key, err := svc.Validate(context.Background(), created.PlainText, domain.PermissionDialerRead)
	assert.NoError(t, err)
	assert.Equal(t, created.Key.ID, key.ID)
}

func TestValidate_DistinctFailureReasons(t *testing.T) {
	db, svc := newTestService(t)

	_, err := svc.Validate(context.Background(), "", domain.PermissionDialerRead)
	assert.ErrorIs(t, err, domain.ErrMissingKey)

	_, err = svc.Validate(context.Background(), "dtax_doesnotexist", domain.PermissionDialerRead)
	assert.ErrorIs(t, err, domain.ErrUnknownKey)

	created, err := svc.Create(context.Background(), domain.CreateRequest{
		Name:        "Dialer",
		Permissions: []string{domain.PermissionDialerRead},
	})
	assert.NoError(t, err)

	assert.NoError(t, db.Model(&domain.APIKey{}).
		Where("id = ?", created.Key.ID).
		Update("is_active", false).Error)
	_, err = svc.Validate(context.Background(), created.PlainText, domain.PermissionDialerRead)
	assert.ErrorIs(t, err, domain.ErrInactiveKey)

	expired := time.Now().UTC().Add(-time.Hour)
	assert.NoError(t, db.Model(&domain.APIKey{}).
		Where("id = ?", created.Key.ID).
		Updates(map[string]interface{}{"is_active": true, "expires_at": expired}).Error)
	_, err = svc.Validate(context.Background(), created.PlainText, domain.PermissionDialerRead)
	assert.ErrorIs(t, err, domain.ErrExpiredKey)
}

func TestValidate_MissingPermissionNamesIt(t *testing.T) {
	_, svc := newTestService(t)

	created, err := svc.Create(context.Background(), domain.CreateRequest{
		Name:        "Read only",
		Permissions: []string{domain.PermissionDialerRead},
	})
	assert.NoError(t, err)

	_, err = svc.Validate(context.Background(), created.PlainText, domain.PermissionDialerCall)
	assert.ErrorIs(t, err, domain.ErrNoPermission)
	assert.Contains(t, err.Error(), domain.PermissionDialerCall)
}

func TestValidate_BumpsUsage(t *testing.T) {
	db, svc := newTestService(t)

	created, err := svc.Create(context.Background(), domain.CreateRequest{
		Name:        "Dialer",
		Permissions: []string{domain.PermissionDialerRead},
	})
	assert.NoError(t, err)

	_, err = svc.Validate(context.Background(), created.PlainText, domain.PermissionDialerRead)
	assert.NoError(t, err)

	assert.Eventually(t, func() bool {
		var key domain.APIKey
		if err := db.First(&key, "id = ?", created.Key.ID).Error; err != nil {
			return false
		}
		return key.UsageCount == 1 && key.LastUsedAt != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLogCall_Appends(t *testing.T) {
	db, svc := newTestService(t)

	created, err := svc.Create(context.Background(), domain.CreateRequest{
		Name:        "Dialer",
		Permissions: []string{domain.PermissionDialerRead},
	})
	assert.NoError(t, err)

	svc.LogCall(context.Background(), domain.LogEntry{
		APIKeyID:       created.Key.ID,
		Endpoint:       "/api/external/dialer/prospects",
		Method:         "GET",
		StatusCode:     200,
		IPAddress:      "10.0.0.1",
		UserAgent:      "dialer/1.0",
		ResponseTimeMs: 12,
	})

	var count int64
	assert.NoError(t, db.Model(&domain.APILog{}).
		Where("api_key_id = ?", created.Key.ID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
