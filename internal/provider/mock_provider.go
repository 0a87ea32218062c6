package provider

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockProvider is a mock implementation of article.Provider for testing.
type MockProvider struct {
	mock.Mock
}

// Generate is the mock implementation of the Generate method.
func (m *MockProvider) Generate(ctx context.Context, keyword, url, credential string) (string, error) {
	args := m.Called(ctx, keyword, url, credential)
	return args.String(0), args.Error(1) //nolint:wrapcheck
}
