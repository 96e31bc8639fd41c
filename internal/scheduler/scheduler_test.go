package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/salestext/dtax-crm/internal/clock"
	invoicedomain "github.com/salestext/dtax-crm/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type mockInvoiceService struct {
	mock.Mock
}

func (m *mockInvoiceService) CreateFromTaxCase(ctx context.Context, req invoicedomain.CreateFromTaxCaseRequest) (invoicedomain.Invoice, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(invoicedomain.Invoice), args.Error(1)
}

func (m *mockInvoiceService) List(ctx context.Context, req invoicedomain.ListRequest) (invoicedomain.ListResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(invoicedomain.ListResponse), args.Error(1)
}

func (m *mockInvoiceService) GetByID(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(invoicedomain.Invoice), args.Error(1)
}

func (m *mockInvoiceService) SyncStatuses(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func newTestScheduler(t *testing.T, svc invoicedomain.Service) *Scheduler {
	sched, err := New(Params{
		Log:        zap.NewNop(),
		Clock:      clock.NewFakeClock(time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)),
		InvoiceSvc: svc,
	})
	assert.NoError(t, err)
	return sched
}

func TestRunOnce_SyncsInvoiceStatuses(t *testing.T) {
	svc := &mockInvoiceService{}
	svc.On("SyncStatuses", mock.Anything).Return(3, nil).Once()

	sched := newTestScheduler(t, svc)
	assert.NoError(t, sched.RunOnce(context.Background()))
	svc.AssertExpectations(t)
}

func TestRunOnce_ReturnsSyncError(t *testing.T) {
	svc := &mockInvoiceService{}
	svc.On("SyncStatuses", mock.Anything).Return(0, errors.New("invoice system down")).Once()

	sched := newTestScheduler(t, svc)
	assert.Error(t, sched.RunOnce(context.Background()))
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunForever_StopsOnContextCancel(t *testing.T) {
	svc := &mockInvoiceService{}
	sched, err := New(Params{
		Log:        zap.NewNop(),
		Clock:      clock.NewSystem(),
		InvoiceSvc: svc,
		Config:     Config{SyncInterval: time.Hour},
	})
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.RunForever(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
	svc.AssertNotCalled(t, "SyncStatuses", mock.Anything)
}
