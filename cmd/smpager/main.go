// Command smpager calls SageMaker operations and pages through their results.
// Every operation is a subcommand; results go to stdout as JSON lines or to a
// DynamoDB table, logs go to stderr.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gurre/s3streamer"
	"github.com/gurre/smpager/aws"
	"github.com/gurre/smpager/checkpoint"
	"github.com/gurre/smpager/config"
	"github.com/gurre/smpager/coordinator"
	"github.com/gurre/smpager/driver"
	"github.com/gurre/smpager/logging"
	"github.com/gurre/smpager/metrics"
	"github.com/gurre/smpager/operations"
	"github.com/gurre/smpager/preflight"
	"github.com/gurre/smpager/sink"
	"github.com/urfave/cli/v2"
)

func main() {
	defaults, err := config.LoadDefaults()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := newApp(defaults).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(d config.Defaults) *cli.App {
	commands := make([]*cli.Command, 0, len(operations.All())+1)
	for _, spec := range operations.All() {
		commands = append(commands, operationCommand(spec))
	}
	commands = append(commands, batchCommand())

	return &cli.App{
		Name:     "smpager",
		Usage:    "Call SageMaker operations and page through their results",
		Flags:    globalFlags(d),
		Commands: commands,
	}
}

func globalFlags(d config.Defaults) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "region", Value: d.Region, Usage: "AWS region"},
		&cli.StringFlag{Name: "profile", Value: d.Profile, Usage: "Shared config profile"},
		&cli.StringFlag{Name: "endpoint-url", Value: d.EndpointURL, Usage: "Override the SageMaker endpoint"},
		&cli.StringFlag{Name: "output", Value: d.Output, Usage: "'-' for JSON lines on stdout or dynamodb://<table>"},
		&cli.StringFlag{Name: "checkpoint", Value: d.CheckpointURI, Usage: "Cursor checkpoint (s3://, file://, redis:// or memory://)"},
		&cli.StringFlag{Name: "report", Value: d.ReportS3URI, Usage: "S3 URI for the run report"},
		&cli.StringFlag{Name: "pushgateway", Value: d.PushgatewayURL, Usage: "Prometheus Pushgateway URL"},
		&cli.StringFlag{Name: "principal", Value: d.PrincipalARN, Usage: "Principal ARN to check with the IAM policy simulator before calling"},
		&cli.IntFlag{Name: "max-workers", Value: d.MaxWorkers, Usage: "Concurrent sequences in batch mode"},
		&cli.IntFlag{Name: "batch-size", Value: d.BatchSize, Usage: "DynamoDB write batch size (max 25)"},
		&cli.StringFlag{Name: "log-level", Value: d.LogLevel, Usage: "debug|info|warn|error"},
		&cli.BoolFlag{Name: "log-pretty", Value: d.LogPretty, Usage: "Human-readable logs"},
		&cli.DurationFlag{Name: "shutdown-timeout", Value: d.ShutdownTimeout, Usage: "Time allowed to flush results after an interrupt"},
	}
}

// configFrom reads the global flags.
func configFrom(c *cli.Context) (*config.Config, error) {
	cfg := &config.Config{
		Region:          c.String("region"),
		Profile:         c.String("profile"),
		EndpointURL:     c.String("endpoint-url"),
		Output:          c.String("output"),
		CheckpointURI:   c.String("checkpoint"),
		ReportS3URI:     c.String("report"),
		PushgatewayURL:  c.String("pushgateway"),
		PrincipalARN:    c.String("principal"),
		MaxWorkers:      c.Int("max-workers"),
		BatchSize:       c.Int("batch-size"),
		LogLevel:        c.String("log-level"),
		LogPretty:       c.Bool("log-pretty"),
		ShutdownTimeout: c.Duration("shutdown-timeout"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func operationCommand(spec operations.Spec) *cli.Command {
	params := spec.New()
	flags := append(params.Flags(),
		&cli.StringFlag{Name: "select", Usage: "'*' for whole responses, a response field, or '^Param' to echo a request parameter"},
	)
	if spec.Paginated {
		flags = append(flags,
			&cli.StringFlag{Name: "next-token", Usage: "Fetch the single page at this continuation token"},
			&cli.BoolFlag{Name: "no-auto-iteration", Usage: "Make a single call instead of following continuation tokens"},
		)
	}

	return &cli.Command{
		Name:  spec.Command,
		Usage: spec.Usage,
		Flags: flags,
		Action: func(c *cli.Context) error {
			if err := params.Bind(c); err != nil {
				return err
			}
			sel, err := driver.ParseSelector(c.String("select"))
			if err != nil {
				return err
			}
			job := coordinator.Job{
				Spec:     spec,
				Params:   params,
				Selector: sel,
				Cursor:   c.String("next-token"),
				Manual:   c.Bool("no-auto-iteration") || c.IsSet("next-token"),
			}
			return execute(c, func(ctx context.Context, coord *coordinator.Coordinator) error {
				_, err := coord.RunOne(ctx, job)
				return err
			})
		},
	}
}

func batchCommand() *cli.Command {
	return &cli.Command{
		Name:  "batch",
		Usage: "Run one invocation per line of a JSON lines file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Usage: "s3://bucket/key.jsonl or file:///path.jsonl", Required: true},
		},
		Action: func(c *cli.Context) error {
			return execute(c, func(ctx context.Context, coord *coordinator.Coordinator) error {
				_, err := coord.RunBatch(ctx, c.String("input"))
				return err
			})
		},
	}
}

var errFailures = errors.New("one or more invocations failed")

// execute builds the run's collaborators, runs fn and always flushes results
// and the report, even after an interrupt.
func execute(c *cli.Context, fn func(ctx context.Context, coord *coordinator.Coordinator) error) error {
	cfg, err := configFrom(c)
	if err != nil {
		return err
	}
	logging.Setup(logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	coord, err := build(ctx, cfg)
	if err != nil {
		return err
	}

	runErr := fn(ctx, coord)

	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()
	report, finishErr := coord.Finish(finishCtx)
	fmt.Fprintln(os.Stderr, report)

	switch {
	case runErr != nil:
		return runErr
	case finishErr != nil:
		return finishErr
	case report.Failures > 0:
		return fmt.Errorf("%w: %d failure(s)", errFailures, report.Failures)
	}
	return nil
}

// build creates the AWS clients and wires the coordinator.
func build(ctx context.Context, cfg *config.Config) (*coordinator.Coordinator, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	rawS3Client := s3.NewFromConfig(awsCfg)
	s3Client := aws.NewS3Client(rawS3Client)

	var out sink.Sink
	switch cfg.OutputKind() {
	case config.OutputDynamoDB:
		out = sink.NewDynamoDBSink(aws.NewDynamoDBClient(dynamodb.NewFromConfig(awsCfg)), cfg.OutputTable(), cfg.BatchSize)
	default:
		out = sink.NewJSONSink(os.Stdout)
	}

	deps := coordinator.Deps{
		Client:   aws.NewSageMakerClient(awsCfg, cfg.EndpointURL),
		Sink:     out,
		Metrics:  metrics.NewMetrics(),
		Uploader: metrics.NewS3Uploader(s3Client),
		Streamer: s3streamer.NewS3Streamer(rawS3Client),
	}
	if cfg.CheckpointURI != "" {
		store, err := checkpoint.Open(cfg.CheckpointURI, checkpoint.Deps{S3: s3Client})
		if err != nil {
			return nil, fmt.Errorf("failed to open checkpoint store: %w", err)
		}
		deps.Store = store
	}
	if cfg.PrincipalARN != "" {
		deps.Preflight = preflight.New(aws.NewIAMClient(iam.NewFromConfig(awsCfg)), cfg.PrincipalARN)
	}
	return coordinator.NewCoordinator(cfg, deps), nil
}
