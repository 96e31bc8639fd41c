package service

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
	"github.com/salestext/dtax-crm/internal/apikey/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	keyPrefix       = "dtax_"
	keySecretChars  = 32
	keyDisplayChars = 12
	recentLogLimit  = 50
	keyAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("apikey.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.SecretResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.SecretResponse{}, domain.ErrInvalidName
	}

	permissions, err := normalizePermissions(req.Permissions)
	if err != nil {
		return domain.SecretResponse{}, err
	}

	plain, err := generateKey()
	if err != nil {
		return domain.SecretResponse{}, err
	}

	now := time.Now().UTC()
	key := domain.APIKey{
		ID:          s.genID.Generate(),
		Name:        name,
		KeyHash:     domain.HashAPIKey(plain),
		KeyPrefix:   plain[:keyDisplayChars],
		Permissions: pq.StringArray(permissions),
		IsActive:    true,
		ExpiresAt:   req.ExpiresAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, s.db, &key); err != nil {
		return domain.SecretResponse{}, err
	}

	return domain.SecretResponse{Key: key, PlainText: plain}, nil
}

func (s *Service) List(ctx context.Context) ([]domain.APIKey, error) {
	return s.repo.List(ctx, s.db)
}

func (s *Service) Get(ctx context.Context, id string) (domain.KeyDetail, error) {
	keyID, err := s.parseID(id)
	if err != nil {
		return domain.KeyDetail{}, err
	}

	key, err := s.repo.FindByID(ctx, s.db, keyID)
	if err != nil {
		return domain.KeyDetail{}, err
	}
	if key == nil {
		return domain.KeyDetail{}, domain.ErrNotFound
	}

	logs, err := s.repo.RecentLogs(ctx, s.db, keyID, recentLogLimit)
	if err != nil {
		return domain.KeyDetail{}, err
	}

	return domain.KeyDetail{Key: *key, Logs: logs}, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateRequest) (domain.APIKey, error) {
	keyID, err := s.parseID(id)
	if err != nil {
		return domain.APIKey{}, err
	}

	key, err := s.repo.FindByID(ctx, s.db, keyID)
	if err != nil {
		return domain.APIKey{}, err
	}
	if key == nil {
		return domain.APIKey{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.APIKey{}, domain.ErrInvalidName
		}
		key.Name = name
	}
	if req.Permissions != nil {
		permissions, err := normalizePermissions(req.Permissions)
		if err != nil {
			return domain.APIKey{}, err
		}
		key.Permissions = pq.StringArray(permissions)
	}
	if req.IsActive != nil {
		key.IsActive = *req.IsActive
	}
	if req.ExpiresAt != nil {
		key.ExpiresAt = req.ExpiresAt
	}
	key.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, key); err != nil {
		return domain.APIKey{}, err
	}
	return *key, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	keyID, err := s.parseID(id)
	if err != nil {
		return err
	}

	key, err := s.repo.FindByID(ctx, s.db, keyID)
	if err != nil {
		return err
	}
	if key == nil {
		return domain.ErrNotFound
	}

	return s.repo.Delete(ctx, s.db, keyID)
}

func (s *Service) Validate(ctx context.Context, rawKey, permission string) (*domain.APIKey, error) {
	if strings.TrimSpace(rawKey) == "" {
		return nil, domain.ErrMissingKey
	}

	key, err := s.repo.FindByHash(ctx, s.db, domain.HashAPIKey(rawKey))
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, domain.ErrUnknownKey
	}
	if !key.IsActive {
		return nil, domain.ErrInactiveKey
	}
	if key.ExpiresAt != nil && key.ExpiresAt.Before(time.Now().UTC()) {
		return nil, domain.ErrExpiredKey
	}
	if !hasPermission(key.Permissions, permission) {
		return nil, &domain.PermissionError{Permission: permission}
	}

	// Fire and forget; the caller's request must not wait on or fail
	// from the usage bump.
	go func(id snowflake.ID) {
		bumpCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.BumpUsage(bumpCtx, s.db, id); err != nil {
			s.log.Warn("usage bump failed", zap.String("api_key_id", id.String()), zap.Error(err))
		}
	}(key.ID)

	return key, nil
}

func (s *Service) LogCall(ctx context.Context, entry domain.LogEntry) {
	log := domain.APILog{
		ID:             s.genID.Generate(),
		APIKeyID:       entry.APIKeyID,
		Endpoint:       entry.Endpoint,
		Method:         entry.Method,
		StatusCode:     entry.StatusCode,
		IPAddress:      entry.IPAddress,
		UserAgent:      entry.UserAgent,
		ResponseTimeMs: entry.ResponseTimeMs,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.repo.InsertLog(ctx, s.db, &log); err != nil {
		s.log.Warn("api call log failed",
			zap.String("api_key_id", entry.APIKeyID.String()),
			zap.String("endpoint", entry.Endpoint),
			zap.Error(err),
		)
	}
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func normalizePermissions(input []string) ([]string, error) {
	if len(input) == 0 {
		return nil, domain.ErrBadPermissions
	}
	seen := make(map[string]bool, len(input))
	permissions := make([]string, 0, len(input))
	for _, p := range input {
		p = strings.TrimSpace(p)
		if !domain.ValidPermission(p) {
			return nil, domain.ErrBadPermissions
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		permissions = append(permissions, p)
	}
	return permissions, nil
}

func hasPermission(granted []string, required string) bool {
	for _, p := range granted {
		if p == required {
			return true
		}
	}
	return false
}

func generateKey() (string, error) {
	var b strings.Builder
	b.WriteString(keyPrefix)
	max := big.NewInt(int64(len(keyAlphabet)))
	for i := 0; i < keySecretChars; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(keyAlphabet[n.Int64()])
	}
	return b.String(), nil
}
