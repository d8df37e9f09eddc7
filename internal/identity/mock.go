package identity

import "context"

// Mock implements Sync with overridable behavior for tests.
type Mock struct {
	EnsureInstanceRoleFunc    func(ctx context.Context, name string) error
	EnsureFederatedRoleFunc   func(ctx context.Context, username string) (string, error)
	GrantInstanceAccessFunc   func(ctx context.Context, username, instanceARN string) error
	ReplaceInstanceAccessFunc func(ctx context.Context, username, oldInstanceID, newInstanceARN string) error
	InstanceARNFunc           func(instanceID string) string
}

var _ Sync = (*Mock)(nil)

func (m *Mock) EnsureInstanceRole(ctx context.Context, name string) error {
	if m.EnsureInstanceRoleFunc != nil {
		return m.EnsureInstanceRoleFunc(ctx, name)
	}
	return nil
}

func (m *Mock) EnsureFederatedRole(ctx context.Context, username string) (string, error) {
	if m.EnsureFederatedRoleFunc != nil {
		return m.EnsureFederatedRoleFunc(ctx, username)
	}
	return "arn:aws:iam::000000000000:role/dave-user-" + username, nil
}

func (m *Mock) GrantInstanceAccess(ctx context.Context, username, instanceARN string) error {
	if m.GrantInstanceAccessFunc != nil {
		return m.GrantInstanceAccessFunc(ctx, username, instanceARN)
	}
	return nil
}

func (m *Mock) ReplaceInstanceAccess(ctx context.Context, username, oldInstanceID, newInstanceARN string) error {
	if m.ReplaceInstanceAccessFunc != nil {
		return m.ReplaceInstanceAccessFunc(ctx, username, oldInstanceID, newInstanceARN)
	}
	return nil
}

func (m *Mock) InstanceARN(instanceID string) string {
	if m.InstanceARNFunc != nil {
		return m.InstanceARNFunc(instanceID)
	}
	return "arn:aws:ec2:us-east-1:000000000000:instance/" + instanceID
}
