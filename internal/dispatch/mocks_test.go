package dispatch

import (
	"context"
	"time"

	"arogya-swarm/backend/internal/retry"
	"arogya-swarm/backend/pkg/models"

	"github.com/stretchr/testify/mock"
)

// MockResources satisfies repository.ResourceProvider
type MockResources struct {
	mock.Mock
}

func (m *MockResources) GetStaffAvailability(ctx context.Context) (models.StaffAvailability, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.StaffAvailability), args.Error(1)
}

func (m *MockResources) GetInventoryStatus(ctx context.Context, criticalOnly bool) ([]models.InventoryItem, error) {
	args := m.Called(ctx, criticalOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.InventoryItem), args.Error(1)
}

func (m *MockResources) GetPatientQueueLength(ctx context.Context) (models.PatientQueue, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.PatientQueue), args.Error(1)
}

// MockReasoner satisfies services.Reasoner
type MockReasoner struct {
	mock.Mock
}

func (m *MockReasoner) Invoke(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func fastPolicy() retry.Policy {
	return retry.Policy{Attempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond, Timeout: time.Second}
}
