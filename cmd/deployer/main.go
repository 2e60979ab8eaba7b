// Command deployer publishes and retires micro-app versions. It serves the
// JSON invoke envelope over HTTP, or handles a single request read from
// standard input with --stdin.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/apigatewayv2"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/juju/gnuflag"

	"github.com/input-output-hk/catalyst-forge-deployer/artifacts"
	"github.com/input-output-hk/catalyst-forge-deployer/config"
	"github.com/input-output-hk/catalyst-forge-deployer/credentials"
	"github.com/input-output-hk/catalyst-forge-deployer/deployer"
	"github.com/input-output-hk/catalyst-forge-deployer/functions"
	"github.com/input-output-hk/catalyst-forge-deployer/gateway"
	"github.com/input-output-hk/catalyst-forge-deployer/internal/awsretry"
	"github.com/input-output-hk/catalyst-forge-deployer/invoke"
	"github.com/input-output-hk/catalyst-forge-deployer/records"
)

const shutdownTimeout = 15 * time.Second

type options struct {
	configPath string
	listenAddr string
	stdin      bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := gnuflag.NewFlagSet("deployer", gnuflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "path to a CUE or JSON configuration file")
	fs.StringVar(&opts.listenAddr, "listen", "", "HTTP listen address, overrides the configuration")
	fs.BoolVar(&opts.stdin, "stdin", false, "handle one request from standard input and exit")

	if err := fs.Parse(true, args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "deployer:", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, opts.configPath)
	if err != nil {
		return err
	}
	if opts.listenAddr != "" {
		cfg.ListenAddr = opts.listenAddr
	}

	logger := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	d, err := build(ctx, cfg, awsCfg, logger)
	if err != nil {
		return err
	}
	handler := invoke.NewHandler(d, invoke.WithLogger(logger))

	if opts.stdin {
		return serveOnce(ctx, handler, stdin, stdout)
	}
	return serve(ctx, cfg.ListenAddr, invoke.NewRouter(handler, logger), logger)
}

// build wires the deployer to its AWS clients. S3 gets its own attempt
// budget; every control-plane client shares the other.
func build(ctx context.Context, cfg *config.Config, awsCfg aws.Config, logger *slog.Logger) (*deployer.Deployer, error) {
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.Retryer = awsretry.New(cfg.S3MaxAttempts)
	})
	dynamoClient := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		o.Retryer = awsretry.New(cfg.ControlPlaneMaxAttempts)
	})
	lambdaClient := lambda.NewFromConfig(awsCfg, func(o *lambda.Options) {
		o.Retryer = awsretry.New(cfg.ControlPlaneMaxAttempts)
	})
	apiClient := apigatewayv2.NewFromConfig(awsCfg, func(o *apigatewayv2.Options) {
		o.Retryer = awsretry.New(cfg.ControlPlaneMaxAttempts)
	})

	apiID := cfg.APIGatewayID
	if apiID == "" {
		id, err := gateway.LookupAPIID(ctx, apiClient, cfg.APIGatewayName)
		if err != nil {
			return nil, err
		}
		apiID = id
		logger.InfoContext(ctx, "api gateway resolved", "api_name", cfg.APIGatewayName, "api_id", apiID)
	}

	fnOpts := []functions.Option{
		functions.WithLogger(logger),
		functions.WithAllowedCallers(cfg.AllowedCallerARNs...),
	}
	if cfg.ParentDeployerARN != "" {
		fnOpts = append(fnOpts, functions.WithConfigProvider(
			functions.NewLambdaConfigProvider(lambdaClient, cfg.ParentDeployerARN)))
	}

	store := records.NewDynamoStore(dynamoClient, cfg.TableName, records.WithLogger(logger))
	mover := artifacts.NewMover(s3Client, cfg.StagingBucket, cfg.ProductionBucket,
		artifacts.WithConcurrency(cfg.CopyConcurrency),
		artifacts.WithLogger(logger))

	dOpts := []deployer.Option{
		deployer.WithLogger(logger),
		deployer.WithRouter(gateway.New(apiClient, apiID,
			gateway.WithIAMAuthorization(cfg.RequireIAMAuthorization),
			gateway.WithLogger(logger))),
		deployer.WithFunctionManager(functions.New(lambdaClient, fnOpts...)),
	}
	if role := cfg.UploadRoleARN(); role != "" {
		stsClient := sts.NewFromConfig(awsCfg, func(o *sts.Options) {
			o.Retryer = awsretry.New(cfg.ControlPlaneMaxAttempts)
		})
		dOpts = append(dOpts, deployer.WithCredentialIssuer(
			credentials.NewBroker(stsClient, role, credentials.WithLogger(logger))))
	}

	return deployer.New(cfg, store, mover, dOpts...), nil
}

// serveOnce handles the single request on r and writes the response to w.
func serveOnce(ctx context.Context, h *invoke.Handler, r io.Reader, w io.Writer) error {
	payload, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read request: %w", err)
	}
	return writeResponse(w, h.Handle(ctx, payload))
}

func serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.InfoContext(ctx, "listening", "addr", addr)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.InfoContext(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
