package sheets

import (
	"context"
	"sync"

	"github.com/Veraticus/spice-budget/internal/budget"
	"github.com/Veraticus/spice-budget/internal/model"
	"github.com/Veraticus/spice-budget/internal/service"
)

// MockWriter is a mock implementation of service.ReportWriter for testing.
type MockWriter struct {
	WriteFunc      func(ctx context.Context, summary *budget.Summary, forecasts []*model.ForecastResult) error
	LastSummary    *budget.Summary
	LastForecasts  []*model.ForecastResult
	WriteCalls     []WriteCall
	WriteCallCount int
	mu             sync.Mutex
}

// WriteCall represents a single call to Write.
type WriteCall struct {
	Error     error
	Summary   *budget.Summary
	Forecasts []*model.ForecastResult
}

// NewMockWriter creates a new mock writer.
func NewMockWriter() *MockWriter {
	return &MockWriter{}
}

// Write records the call and returns WriteFunc's result.
func (m *MockWriter) Write(ctx context.Context, summary *budget.Summary, forecasts []*model.ForecastResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteCallCount++
	m.LastSummary = summary
	m.LastForecasts = forecasts

	var err error
	if m.WriteFunc != nil {
		err = m.WriteFunc(ctx, summary, forecasts)
	}

	m.WriteCalls = append(m.WriteCalls, WriteCall{
		Summary:   summary,
		Forecasts: forecasts,
		Error:     err,
	})

	return err
}

// Reset clears all recorded calls.
func (m *MockWriter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteCallCount = 0
	m.LastSummary = nil
	m.LastForecasts = nil
	m.WriteCalls = nil
}

var _ service.ReportWriter = (*MockWriter)(nil)
