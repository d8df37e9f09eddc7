package iam

import "context"

// Mock is a func-field mock of API for tests.
type Mock struct {
	CreateRoleFunc                  func(ctx context.Context, roleName, trustPolicyJSON string) error
	AttachRolePolicyFunc            func(ctx context.Context, roleName, policyARN string) error
	CreateInstanceProfileFunc       func(ctx context.Context, profileName string) error
	AddRoleToInstanceProfileFunc    func(ctx context.Context, profileName, roleName string) error
	GetRolePolicyFunc               func(ctx context.Context, roleName, policyName string) (string, error)
	PutRolePolicyFunc               func(ctx context.Context, roleName, policyName, documentJSON string) error
	FindOpenIDConnectProviderFunc   func(ctx context.Context, domain string) (string, error)
	CreateOpenIDConnectProviderFunc func(ctx context.Context, providerURL, clientID string) (string, error)
}

var _ API = (*Mock)(nil)

func (m *Mock) CreateRole(ctx context.Context, roleName, trustPolicyJSON string) error {
	if m.CreateRoleFunc != nil {
		return m.CreateRoleFunc(ctx, roleName, trustPolicyJSON)
	}
	return nil
}

func (m *Mock) AttachRolePolicy(ctx context.Context, roleName, policyARN string) error {
	if m.AttachRolePolicyFunc != nil {
		return m.AttachRolePolicyFunc(ctx, roleName, policyARN)
	}
	return nil
}

func (m *Mock) CreateInstanceProfile(ctx context.Context, profileName string) error {
	if m.CreateInstanceProfileFunc != nil {
		return m.CreateInstanceProfileFunc(ctx, profileName)
	}
	return nil
}

func (m *Mock) AddRoleToInstanceProfile(ctx context.Context, profileName, roleName string) error {
	if m.AddRoleToInstanceProfileFunc != nil {
		return m.AddRoleToInstanceProfileFunc(ctx, profileName, roleName)
	}
	return nil
}

func (m *Mock) GetRolePolicy(ctx context.Context, roleName, policyName string) (string, error) {
	if m.GetRolePolicyFunc != nil {
		return m.GetRolePolicyFunc(ctx, roleName, policyName)
	}
	return "", ErrNoSuchEntity
}

func (m *Mock) PutRolePolicy(ctx context.Context, roleName, policyName, documentJSON string) error {
	if m.PutRolePolicyFunc != nil {
		return m.PutRolePolicyFunc(ctx, roleName, policyName, documentJSON)
	}
	return nil
}

func (m *Mock) FindOpenIDConnectProvider(ctx context.Context, domain string) (string, error) {
	if m.FindOpenIDConnectProviderFunc != nil {
		return m.FindOpenIDConnectProviderFunc(ctx, domain)
	}
	return "", nil
}

func (m *Mock) CreateOpenIDConnectProvider(ctx context.Context, providerURL, clientID string) (string, error) {
	if m.CreateOpenIDConnectProviderFunc != nil {
		return m.CreateOpenIDConnectProviderFunc(ctx, providerURL, clientID)
	}
	return "arn:aws:iam::000000000000:oidc-provider/mock", nil
}
