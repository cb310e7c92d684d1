package adapter

import (
	"context"

	"github.com/saba-chan/saba-core/internal/domain"
)

// Mock implements domain.Adapter in-process, for tests and for instances
// configured without a real module script (the fallback analogue of the
// teacher's in-memory mock inference backend).
type Mock struct {
	StartFn   func(ctx context.Context, config map[string]any) (domain.AdapterResult, error)
	StopFn    func(ctx context.Context, config map[string]any) (domain.AdapterResult, error)
	StatusFn  func(ctx context.Context, config map[string]any) (domain.AdapterResult, error)
	CommandFn func(ctx context.Context, config map[string]any) (domain.AdapterResult, error)
}

var _ domain.Adapter = (*Mock)(nil)

// NewMock returns a Mock that reports success with a synthetic PID for
// Start, "unknown" for Status, and success for everything else.
func NewMock() *Mock {
	return &Mock{
		StartFn: func(ctx context.Context, config map[string]any) (domain.AdapterResult, error) {
			return domain.AdapterResult{Success: true, PID: 1, Message: "started"}, nil
		},
		StopFn: func(ctx context.Context, config map[string]any) (domain.AdapterResult, error) {
			return domain.AdapterResult{Success: true, Message: "stopped"}, nil
		},
		StatusFn: func(ctx context.Context, config map[string]any) (domain.AdapterResult, error) {
			return domain.AdapterResult{Success: true, Status: "unknown"}, nil
		},
		CommandFn: func(ctx context.Context, config map[string]any) (domain.AdapterResult, error) {
			return domain.AdapterResult{Success: true}, nil
		},
	}
}

func (m *Mock) Start(ctx context.Context, config map[string]any) (domain.AdapterResult, error) {
	return m.StartFn(ctx, config)
}

func (m *Mock) Stop(ctx context.Context, config map[string]any) (domain.AdapterResult, error) {
	return m.StopFn(ctx, config)
}

func (m *Mock) Status(ctx context.Context, config map[string]any) (domain.AdapterResult, error) {
	return m.StatusFn(ctx, config)
}

func (m *Mock) Command(ctx context.Context, config map[string]any) (domain.AdapterResult, error) {
	return m.CommandFn(ctx, config)
}
