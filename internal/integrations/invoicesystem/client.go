package invoicesystem

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

const systemName = "invoice_system"

var (
	ErrNotConfigured = errors.New("invoice_system_not_configured")
	ErrNotFound      = errors.New("invoice_system_not_found")
	ErrRequestFailed = errors.New("invoice_system_request_failed")
)

// CustomerInput identifies or creates a customer in the invoicing system.
type CustomerInput struct {
	Name       string  `json:"name"`
	Email      *string `json:"email,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Address    *string `json:"address,omitempty"`
	PostalCode *string `json:"postalCode,omitempty"`
	City       *string `json:"city,omitempty"`
}

type Customer struct {
	ID string `json:"id"`
}

// InvoiceInput is the payload for a new invoice.
type InvoiceInput struct {
	CustomerID  string  `json:"customerId"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	VATAmount   float64 `json:"vatAmount"`
	TotalAmount float64 `json:"totalAmount"`
	DueDays     int     `json:"dueDays"`
}

type Invoice struct {
	ID            string `json:"id"`
	InvoiceNumber string `json:"invoiceNumber"`
	Status        string `json:"status"`
}

type Client interface {
	EnsureCustomer(ctx context.Context, input CustomerInput) (Customer, error)
	CreateInvoice(ctx context.Context, input InvoiceInput) (Invoice, error)
	GetInvoice(ctx context.Context, invoiceID string) (Invoice, error)
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
		baseURL:  strings.TrimRight(cfg.InvoiceSystem.BaseURL, "/"),
		apiKey:   strings.TrimSpace(cfg.InvoiceSystem.APIKey),
		http:     &http.Client{Timeout: 12 * time.Second},
		log:      log.Named("integrations.invoicesystem"),
		recorder: recorder,
	}
}

func (c *client) EnsureCustomer(ctx context.Context, input CustomerInput) (Customer, error) {
	var out Customer
	err := c.doRequest(ctx, "ensure_customer", http.MethodPost, "/api/customers", input, &out)
	if err == nil && out.ID == "" {
		err = ErrRequestFailed
	}
	return out, err
}

func (c *client) CreateInvoice(ctx context.Context, input InvoiceInput) (Invoice, error) {
	var out Invoice
	err := c.doRequest(ctx, "create_invoice", http.MethodPost, "/api/invoices", input, &out)
	if err == nil && out.ID == "" {
		err = ErrRequestFailed
	}
	return out, err
}

func (c *client) GetInvoice(ctx context.Context, invoiceID string) (Invoice, error) {
	var out Invoice
	err := c.doRequest(ctx, "get_invoice", http.MethodGet, "/api/invoices/"+invoiceID, nil, &out)
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
