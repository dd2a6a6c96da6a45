package ssh

import "context"

// MockRunner is a test double that records invocations and returns configured results.
type MockRunner struct {
	RunFunc     func(ctx context.Context, in Invocation) (*Result, error)
	Invocations []Invocation
}

// Run records the invocation and delegates to RunFunc.
func (m *MockRunner) Run(ctx context.Context, in Invocation) (*Result, error) {
	m.Invocations = append(m.Invocations, in)
	if m.RunFunc != nil {
		return m.RunFunc(ctx, in)
	}
	if !in.Request.WantResult {
		return nil, nil
	}
	return &Result{}, nil
}
