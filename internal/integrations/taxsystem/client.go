package taxsystem

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/salestext/dtax-crm/internal/config"
	"github.com/salestext/dtax-crm/internal/integrations/intlog"
	"go.uber.org/zap"
)

const systemName = "tax_system"

var (
	ErrNotConfigured = errors.New("tax_system_not_configured")
	ErrNotFound      = errors.New("tax_system_not_found")
	ErrRequestFailed = errors.New("tax_system_request_failed")
)

// Case is a tax case as the external processor reports it.
type Case struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Status      string     `json:"status"`
	CurrentStep int        `json:"currentStep"`
	TaxBenefit  float64    `json:"taxBenefit"`
	SubmittedAt *time.Time `json:"submittedAt"`
}

// Contract is a signed agreement as the external processor reports it.
type Contract struct {
	ID           string     `json:"id"`
	CaseID       string     `json:"caseId"`
	ContractType string     `json:"contractType"`
	SignedAt     *time.Time `json:"signedAt"`
	SignatureRef *string    `json:"signatureRef"`
}

// CreateUserInput registers a prospect as a tax-system user.
type CreateUserInput struct {
	Email      string  `json:"email"`
	FirstName  string  `json:"firstName"`
	LastName   string  `json:"lastName"`
	Phone      *string `json:"phone,omitempty"`
	Source     string  `json:"source"`
	ProspectID string  `json:"prospectId"`
}

// User is a tax-system account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Client interface {
	CreateUser(ctx context.Context, input CreateUserInput) (User, error)
	GetCase(ctx context.Context, caseID string) (Case, error)
	GetContract(ctx context.Context, contractID string) (Contract, error)
}

type client struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	log      *zap.Logger
	recorder *intlog.Recorder
}

func New(cfg config.Config, log *zap.Logger, recorder *intlog.Recorder) Client {
	return &client{
		baseURL:  strings.TrimRight(cfg.TaxSystem.BaseURL, "/"),
		apiKey:   strings.TrimSpace(cfg.TaxSystem.APIKey),
		http:     &http.Client{Timeout: 12 * time.Second},
		log:      log.Named("integrations.taxsystem"),
		recorder: recorder,
	}
}

func (c *client) CreateUser(ctx context.Context, input CreateUserInput) (User, error) {
	var out User
	err := c.doRequest(ctx, "create_user", http.MethodPost, "/api/users", input, &out)
	if err == nil && out.ID == "" {
		err = ErrRequestFailed
	}
	return out, err
}

func (c *client) GetCase(ctx context.Context, caseID string) (Case, error) {
	var out Case
	err := c.doRequest(ctx, "get_case", http.MethodGet, "/api/cases/"+caseID, nil, &out)
	return out, err
}

func (c *client) GetContract(ctx context.Context, contractID string) (Contract, error) {
	var out Contract
	err := c.doRequest(ctx, "get_contract", http.MethodGet, "/api/contracts/"+contractID, nil, &out)
	return out, err
}

func (c *client) doRequest(ctx context.Context, operation, method, path string, body, out interface{}) error {
	if c.baseURL == "" || c.apiKey == "" {
		return ErrNotConfigured
	}

	start := time.Now()
	statusCode, err := c.execute(ctx, method, path, body, out)
	c.recorder.Record(ctx, intlog.Entry{
		System:     systemName,
		Operation:  operation,
		Success:    err == nil,
		StatusCode: statusCode,
		Err:        err,
		Duration:   time.Since(start),
	})
	return err
}

func (c *client) execute(ctx context.Context, method, path string, body, out interface{}) (int, error) {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, ErrNotFound
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, ErrRequestFailed
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, err
	}
	return resp.StatusCode, nil
}
