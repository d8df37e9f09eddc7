package auth

import "context"

// MockVerifier is a func-field mock of Verifier for tests.
type MockVerifier struct {
	VerifyFunc func(ctx context.Context, credential string) (UserInfo, error)
}

var _ Verifier = (*MockVerifier)(nil)

// Verify delegates to VerifyFunc, defaulting to a fixed test identity.
func (m *MockVerifier) Verify(ctx context.Context, credential string) (UserInfo, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, credential)
	}
	return UserInfo{Username: "test-user", Email: "test@example.com", EmailVerified: true, Name: "Test User"}, nil
}
