// Package ssm resolves the latest base machine image for an architecture
// from the public SSM parameter store.
package ssm

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/hunoz/dave-user-api/internal/model"
)

// amiParameterFormat is the public Amazon Linux 2023 AMI parameter, keyed by
// lowercased architecture.
const amiParameterFormat = "/aws/service/ami-amazon-linux-latest/al2023-ami-kernel-default-%s"

// API resolves machine images.
type API interface {
	// LatestImage returns the current base image id for the architecture.
	LatestImage(ctx context.Context, arch model.CPUArchitecture) (string, error)
}

// Client is the real SSM-backed implementation of API.
type Client struct {
	ssm *awsssm.Client
}

var _ API = (*Client)(nil)

// NewClient wraps an SSM client.
func NewClient(client *awsssm.Client) *Client {
	return &Client{ssm: client}
}

// LatestImage reads the architecture's AMI parameter.
func (c *Client) LatestImage(ctx context.Context, arch model.CPUArchitecture) (string, error) {
	parameter := fmt.Sprintf(amiParameterFormat, strings.ToLower(string(arch)))

	out, err := c.ssm.GetParameter(ctx, &awsssm.GetParameterInput{
		Name: aws.String(parameter),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get AMI parameter %s: %w", parameter, err)
	}
	if out.Parameter == nil || aws.ToString(out.Parameter.Value) == "" {
		return "", fmt.Errorf("AMI parameter %s has no value", parameter)
	}
	return aws.ToString(out.Parameter.Value), nil
}

// Mock is a func-field mock of API for tests.
type Mock struct {
	LatestImageFunc func(ctx context.Context, arch model.CPUArchitecture) (string, error)
}

var _ API = (*Mock)(nil)

func (m *Mock) LatestImage(ctx context.Context, arch model.CPUArchitecture) (string, error) {
	if m.LatestImageFunc != nil {
		return m.LatestImageFunc(ctx, arch)
	}
	return "ami-mock", nil
}
