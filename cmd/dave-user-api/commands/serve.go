package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	awsiam "github.com/aws/aws-sdk-go-v2/service/iam"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/spf13/cobra"

	"github.com/hunoz/dave-user-api/internal/auth"
	"github.com/hunoz/dave-user-api/internal/config"
	"github.com/hunoz/dave-user-api/internal/identity"
	"github.com/hunoz/dave-user-api/internal/platform/ec2"
	"github.com/hunoz/dave-user-api/internal/platform/iam"
	"github.com/hunoz/dave-user-api/internal/platform/ssm"
	"github.com/hunoz/dave-user-api/internal/provision"
	"github.com/hunoz/dave-user-api/internal/server"
	"github.com/hunoz/dave-user-api/internal/store"
	"github.com/hunoz/dave-user-api/internal/userdata"
	"github.com/hunoz/dave-user-api/internal/workspace"
)

// Serve returns the serve command, which wires the AWS clients and runs the
// HTTP server until interrupted.
func Serve() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the workspace API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	callerIdentity, err := sts.NewFromConfig(awsCfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return fmt.Errorf("failed to resolve account id: %w", err)
	}
	accountID := *callerIdentity.Account

	ec2Client := ec2.NewClient(awsec2.NewFromConfig(awsCfg))

	// Volumes must be created in the same availability zone as the
	// instances they attach to.
	subnet, err := ec2Client.DescribeSubnet(ctx, cfg.AWS.SubnetID)
	if err != nil {
		return fmt.Errorf("failed to describe subnet %s: %w", cfg.AWS.SubnetID, err)
	}
	availabilityZone := ""
	if subnet.AvailabilityZone != nil {
		availabilityZone = *subnet.AvailabilityZone
	}

	provisioner := provision.NewProvisioner(ec2Client, ssm.NewClient(awsssm.NewFromConfig(awsCfg)), provision.Network{
		VpcID:            cfg.AWS.VpcID,
		SubnetID:         cfg.AWS.SubnetID,
		AvailabilityZone: availabilityZone,
	})

	synchronizer := identity.NewSynchronizer(
		iam.NewClient(awsiam.NewFromConfig(awsCfg)),
		cfg.Auth,
		cfg.AWS.Partition,
		cfg.AWS.Region,
		accountID,
	)

	renderer, err := userdata.NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to load user-data template: %w", err)
	}

	verifier, err := auth.NewJWKSVerifier(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize token verifier: %w", err)
	}

	reconciler := workspace.NewReconciler(
		store.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.AWS.TableName),
		provisioner,
		synchronizer,
		renderer,
	)

	srv := server.New(cfg.Server, cfg.Auth, logger, reconciler, verifier)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		return srv.Shutdown(context.Background())
	}
}
