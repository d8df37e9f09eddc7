// Package identity maintains the IAM footprint of workspaces: a role and
// instance profile per workspace, and a per-owner federated role whose
// inline policy tracks the instance ARNs the owner may open sessions on.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hunoz/dave-user-api/internal/apperrors"
	"github.com/hunoz/dave-user-api/internal/config"
	"github.com/hunoz/dave-user-api/internal/logctx"
	"github.com/hunoz/dave-user-api/internal/model"
	"github.com/hunoz/dave-user-api/internal/naming"
	"github.com/hunoz/dave-user-api/internal/platform/iam"
)

// managedSessionPolicyARNFormat names the managed policy that lets the
// session agent on a workspace instance register with the session service.
const managedSessionPolicyARNFormat = "arn:%s:iam::aws:policy/AmazonSSMManagedInstanceCore"

// Sync is the identity contract consumed by the reconciler.
type Sync interface {
	// EnsureInstanceRole idempotently creates the workspace instance role,
	// attaches the managed session policy, and binds the role to an
	// instance profile of the same name.
	EnsureInstanceRole(ctx context.Context, name string) error
	// EnsureFederatedRole idempotently creates the owner's federated role,
	// trusted by the configured external issuer, and returns its ARN.
	EnsureFederatedRole(ctx context.Context, username string) (string, error)
	// GrantInstanceAccess appends the instance ARN to the owner's federated
	// policy, creating role and policy on first use.
	GrantInstanceAccess(ctx context.Context, username, instanceARN string) error
	// ReplaceInstanceAccess swaps the old instance's ARN for the new one.
	// It fails when the owner has no federated policy yet.
	ReplaceInstanceAccess(ctx context.Context, username, oldInstanceID, newInstanceARN string) error
	// InstanceARN builds the ARN of an instance in the configured account.
	InstanceARN(instanceID string) string
}

// Synchronizer implements Sync over the IAM wrapper.
type Synchronizer struct {
	iam       iam.API
	auth      config.AuthConfig
	partition string
	region    string
	accountID string
}

var _ Sync = (*Synchronizer)(nil)

// NewSynchronizer creates a synchronizer bound to one account and issuer.
func NewSynchronizer(iamClient iam.API, auth config.AuthConfig, partition, region, accountID string) *Synchronizer {
	return &Synchronizer{
		iam:       iamClient,
		auth:      auth,
		partition: partition,
		region:    region,
		accountID: accountID,
	}
}

// InstanceARN builds arn:<partition>:ec2:<region>:<account>:instance/<id>.
func (s *Synchronizer) InstanceARN(instanceID string) string {
	return fmt.Sprintf("arn:%s:ec2:%s:%s:instance/%s", s.partition, s.region, s.accountID, instanceID)
}

// trustPolicy is an assume-role document.
type trustPolicy struct {
	Version    string           `json:"Version"`
	Statements []trustStatement `json:"Statement"`
}

type trustStatement struct {
	Effect     string                       `json:"Effect"`
	Principal  map[string]any               `json:"Principal"`
	Actions    []string                     `json:"Action"`
	Conditions map[string]map[string]string `json:"Condition,omitempty"`
}

// EnsureInstanceRole runs the unconditional creation sequence: role, managed
// policy attachment, instance profile, profile binding. Each step tolerates
// already-existing entities so replacement can repeat it.
func (s *Synchronizer) EnsureInstanceRole(ctx context.Context, name string) error {
	log := logctx.From(ctx)

	trust, err := json.Marshal(trustPolicy{
		Version: model.PolicyVersion,
		Statements: []trustStatement{{
			Effect:    "Allow",
			Principal: map[string]any{"Service": []string{"ec2.amazonaws.com"}},
			Actions:   []string{"sts:AssumeRole"},
		}},
	})
	if err != nil {
		return apperrors.Internal(fmt.Errorf("failed to marshal instance trust policy: %w", err))
	}

	log.Info("ensuring instance role", "role", name)
	if err := s.iam.CreateRole(ctx, name, string(trust)); err != nil {
		return apperrors.Internal(err)
	}
	if err := s.iam.AttachRolePolicy(ctx, name, fmt.Sprintf(managedSessionPolicyARNFormat, s.partition)); err != nil {
		return apperrors.Internal(err)
	}
	if err := s.iam.CreateInstanceProfile(ctx, name); err != nil {
		return apperrors.Internal(err)
	}
	if err := s.iam.AddRoleToInstanceProfile(ctx, name, name); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// EnsureFederatedRole finds or registers the OIDC provider for the issuer,
// then creates the owner's role trusted by it, scoped by a claim-equality
// condition binding the configured username claim to the owner.
func (s *Synchronizer) EnsureFederatedRole(ctx context.Context, username string) (string, error) {
	log := logctx.From(ctx)

	providerARN, err := s.iam.FindOpenIDConnectProvider(ctx, s.auth.Domain)
	if err != nil {
		return "", apperrors.Internal(err)
	}
	if providerARN == "" {
		log.Info("registering OIDC provider", "domain", s.auth.Domain)
		providerARN, err = s.iam.CreateOpenIDConnectProvider(ctx, "https://"+s.auth.Domain, s.auth.ClientID)
		if err != nil {
			return "", apperrors.Internal(err)
		}
	}

	roleName := naming.FederatedRole(username)
	trust, err := json.Marshal(trustPolicy{
		Version: model.PolicyVersion,
		Statements: []trustStatement{{
			Effect:    "Allow",
			Principal: map[string]any{"Federated": []string{providerARN}},
			Actions:   []string{"sts:AssumeRoleWithWebIdentity"},
			Conditions: map[string]map[string]string{
				"StringEquals": {
					fmt.Sprintf("%s:%s", s.auth.Domain, s.auth.UsernameClaim): username,
				},
			},
		}},
	})
	if err != nil {
		return "", apperrors.Internal(fmt.Errorf("failed to marshal federated trust policy: %w", err))
	}

	log.Info("ensuring federated role", "role", roleName, "username", username)
	if err := s.iam.CreateRole(ctx, roleName, string(trust)); err != nil {
		return "", apperrors.Internal(err)
	}
	return fmt.Sprintf("arn:%s:iam::%s:role/%s", s.partition, s.accountID, roleName), nil
}

// GrantInstanceAccess appends the ARN to the owner's federated policy. On
// first use the federated role is created and the policy starts from the
// fixed session actions with an empty resource list.
func (s *Synchronizer) GrantInstanceAccess(ctx context.Context, username, instanceARN string) error {
	log := logctx.From(ctx)
	roleName := naming.FederatedRole(username)

	resources := []string{instanceARN}

	document, err := s.iam.GetRolePolicy(ctx, roleName, naming.FederatedPolicy)
	switch {
	case errors.Is(err, iam.ErrNoSuchEntity):
		log.Info("creating federated role for first workspace", "username", username)
		if _, err := s.EnsureFederatedRole(ctx, username); err != nil {
			return err
		}
	case err != nil:
		return apperrors.Internal(err)
	default:
		policy, err := parsePolicy(document)
		if err != nil {
			return err
		}
		if len(policy.Statements) > 0 {
			resources = append(resources, policy.Statements[0].Resources...)
		}
	}

	return s.putFederatedPolicy(ctx, roleName, resources)
}

// ReplaceInstanceAccess removes every resource ending in the old instance id
// and adds the new ARN. Replace only ever follows a grant, so an absent
// policy is fatal.
func (s *Synchronizer) ReplaceInstanceAccess(ctx context.Context, username, oldInstanceID, newInstanceARN string) error {
	roleName := naming.FederatedRole(username)

	document, err := s.iam.GetRolePolicy(ctx, roleName, naming.FederatedPolicy)
	if err != nil {
		return apperrors.Internal(fmt.Errorf("federated policy missing for %s: %w", username, err))
	}

	policy, err := parsePolicy(document)
	if err != nil {
		return err
	}

	resources := []string{newInstanceARN}
	if len(policy.Statements) > 0 {
		for _, resource := range policy.Statements[0].Resources {
			if !strings.HasSuffix(resource, oldInstanceID) {
				resources = append(resources, resource)
			}
		}
	}

	return s.putFederatedPolicy(ctx, roleName, resources)
}

func (s *Synchronizer) putFederatedPolicy(ctx context.Context, roleName string, resources []string) error {
	document, err := json.Marshal(model.FederatedPermissionsPolicyDocument{
		Version: model.PolicyVersion,
		Statements: []model.Statement{{
			Effect:    "Allow",
			Actions:   model.SessionActions,
			Resources: resources,
		}},
	})
	if err != nil {
		return apperrors.Internal(fmt.Errorf("failed to marshal federated policy: %w", err))
	}

	if err := s.iam.PutRolePolicy(ctx, roleName, naming.FederatedPolicy, string(document)); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func parsePolicy(document string) (*model.FederatedPermissionsPolicyDocument, error) {
	var policy model.FederatedPermissionsPolicyDocument
	if err := json.Unmarshal([]byte(document), &policy); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to parse federated policy: %w", err))
	}
	return &policy, nil
}
