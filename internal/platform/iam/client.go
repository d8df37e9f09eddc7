// Package iam wraps the IAM API calls used for workspace instance roles and
// per-owner federated roles.
//
// Role, instance-profile, and profile-attachment creation are idempotent:
// an EntityAlreadyExists response is treated as success so that instance
// replacement can re-run the creation sequence.
package iam

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsiam "github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/smithy-go"
)

// ErrNoSuchEntity reports an absent role or policy.
var ErrNoSuchEntity = errors.New("iam entity does not exist")

// API is the IAM surface consumed by the identity synchronizer.
type API interface {
	// CreateRole creates a role with the given trust policy. Succeeds when
	// the role already exists.
	CreateRole(ctx context.Context, roleName, trustPolicyJSON string) error
	// AttachRolePolicy attaches a managed policy to a role.
	AttachRolePolicy(ctx context.Context, roleName, policyARN string) error
	// CreateInstanceProfile creates an instance profile. Succeeds when it
	// already exists.
	CreateInstanceProfile(ctx context.Context, profileName string) error
	// AddRoleToInstanceProfile binds a role to a profile. Succeeds when the
	// binding already exists.
	AddRoleToInstanceProfile(ctx context.Context, profileName, roleName string) error
	// GetRolePolicy returns the inline policy document, or ErrNoSuchEntity.
	GetRolePolicy(ctx context.Context, roleName, policyName string) (string, error)
	// PutRolePolicy writes an inline policy document.
	PutRolePolicy(ctx context.Context, roleName, policyName, documentJSON string) error
	// FindOpenIDConnectProvider returns the ARN of the provider whose ARN
	// ends with the given domain, or "" when none matches.
	FindOpenIDConnectProvider(ctx context.Context, domain string) (string, error)
	// CreateOpenIDConnectProvider registers an OIDC provider and returns
	// its ARN.
	CreateOpenIDConnectProvider(ctx context.Context, providerURL, clientID string) (string, error)
}

// Client is the real IAM-backed implementation of API.
type Client struct {
	iam *awsiam.Client
}

var _ API = (*Client)(nil)

// NewClient wraps an IAM client.
func NewClient(client *awsiam.Client) *Client {
	return &Client{iam: client}
}

// CreateRole creates the role, tolerating a pre-existing one.
func (c *Client) CreateRole(ctx context.Context, roleName, trustPolicyJSON string) error {
	_, err := c.iam.CreateRole(ctx, &awsiam.CreateRoleInput{
		RoleName:                 aws.String(roleName),
		AssumeRolePolicyDocument: aws.String(trustPolicyJSON),
	})
	if err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("failed to create role %s: %w", roleName, err)
	}
	return nil
}

// AttachRolePolicy attaches a managed policy. Attaching is idempotent on the
// AWS side.
func (c *Client) AttachRolePolicy(ctx context.Context, roleName, policyARN string) error {
	if _, err := c.iam.AttachRolePolicy(ctx, &awsiam.AttachRolePolicyInput{
		RoleName:  aws.String(roleName),
		PolicyArn: aws.String(policyARN),
	}); err != nil {
		return fmt.Errorf("failed to attach policy %s to role %s: %w", policyARN, roleName, err)
	}
	return nil
}

// CreateInstanceProfile creates the profile, tolerating a pre-existing one.
func (c *Client) CreateInstanceProfile(ctx context.Context, profileName string) error {
	_, err := c.iam.CreateInstanceProfile(ctx, &awsiam.CreateInstanceProfileInput{
		InstanceProfileName: aws.String(profileName),
	})
	if err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("failed to create instance profile %s: %w", profileName, err)
	}
	return nil
}

// AddRoleToInstanceProfile binds the role, tolerating an existing binding.
func (c *Client) AddRoleToInstanceProfile(ctx context.Context, profileName, roleName string) error {
	_, err := c.iam.AddRoleToInstanceProfile(ctx, &awsiam.AddRoleToInstanceProfileInput{
		InstanceProfileName: aws.String(profileName),
		RoleName:            aws.String(roleName),
	})
	if err != nil && !isAlreadyExists(err) && !isLimitExceeded(err) {
		return fmt.Errorf("failed to add role %s to instance profile %s: %w", roleName, profileName, err)
	}
	return nil
}

// GetRolePolicy fetches and URL-decodes the inline policy document.
func (c *Client) GetRolePolicy(ctx context.Context, roleName, policyName string) (string, error) {
	out, err := c.iam.GetRolePolicy(ctx, &awsiam.GetRolePolicyInput{
		RoleName:   aws.String(roleName),
		PolicyName: aws.String(policyName),
	})
	if err != nil {
		if isNoSuchEntity(err) {
			return "", fmt.Errorf("policy %s on role %s: %w", policyName, roleName, ErrNoSuchEntity)
		}
		return "", fmt.Errorf("failed to get policy %s on role %s: %w", policyName, roleName, err)
	}

	// IAM returns inline documents URL-encoded.
	document, err := url.QueryUnescape(aws.ToString(out.PolicyDocument))
	if err != nil {
		return "", fmt.Errorf("failed to decode policy %s on role %s: %w", policyName, roleName, err)
	}
	return document, nil
}

// PutRolePolicy writes the inline policy document.
func (c *Client) PutRolePolicy(ctx context.Context, roleName, policyName, documentJSON string) error {
	if _, err := c.iam.PutRolePolicy(ctx, &awsiam.PutRolePolicyInput{
		RoleName:       aws.String(roleName),
		PolicyName:     aws.String(policyName),
		PolicyDocument: aws.String(documentJSON),
	}); err != nil {
		return fmt.Errorf("failed to put policy %s on role %s: %w", policyName, roleName, err)
	}
	return nil
}

// FindOpenIDConnectProvider scans the account's providers for one matching
// the issuer domain.
func (c *Client) FindOpenIDConnectProvider(ctx context.Context, domain string) (string, error) {
	out, err := c.iam.ListOpenIDConnectProviders(ctx, &awsiam.ListOpenIDConnectProvidersInput{})
	if err != nil {
		return "", fmt.Errorf("failed to list OIDC providers: %w", err)
	}
	for _, provider := range out.OpenIDConnectProviderList {
		if strings.HasSuffix(aws.ToString(provider.Arn), domain) {
			return aws.ToString(provider.Arn), nil
		}
	}
	return "", nil
}

// CreateOpenIDConnectProvider registers the issuer as a federation provider.
func (c *Client) CreateOpenIDConnectProvider(ctx context.Context, providerURL, clientID string) (string, error) {
	out, err := c.iam.CreateOpenIDConnectProvider(ctx, &awsiam.CreateOpenIDConnectProviderInput{
		Url:          aws.String(providerURL),
		ClientIDList: []string{clientID},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create OIDC provider for %s: %w", providerURL, err)
	}
	return aws.ToString(out.OpenIDConnectProviderArn), nil
}

func isAlreadyExists(err error) bool {
	var exists *types.EntityAlreadyExistsException
	if errors.As(err, &exists) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "EntityAlreadyExists"
	}
	return false
}

func isLimitExceeded(err error) bool {
	var limit *types.LimitExceededException
	return errors.As(err, &limit)
}

func isNoSuchEntity(err error) bool {
	var noSuch *types.NoSuchEntityException
	if errors.As(err, &noSuch) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "NoSuchEntity"
	}
	return false
}
