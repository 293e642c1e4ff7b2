// Package config holds the process-wide settings of smpager: where to send
// requests, where results, checkpoints and reports go, and how much
// concurrency batch mode may use.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gurre/smpager/logging"
	"github.com/kelseyhightower/envconfig"
)

// Output sink kinds.
const (
	OutputStdout   = "stdout"
	OutputDynamoDB = "dynamodb"
)

// Config is validated once in main before any client is built.
type Config struct {
	Region          string        // AWS region for every client
	Profile         string        // shared config profile, empty for the default chain
	EndpointURL     string        // SageMaker endpoint override
	Output          string        // "-", "stdout" or "dynamodb://<table>"
	CheckpointURI   string        // s3://, file://, redis:// or memory://
	ReportS3URI     string        // S3 URI for the run report
	PushgatewayURL  string        // Prometheus Pushgateway base URL
	PrincipalARN    string        // principal checked by the IAM preflight
	MaxWorkers      int           // concurrent sequences in batch mode
	BatchSize       int           // DynamoDB sink batch size (≤25)
	LogLevel        string        // debug|info|warn|error
	LogPretty       bool          // console log output
	ShutdownTimeout time.Duration // grace period for flushing on interrupt

	outputKind  string
	outputTable string
}

// OutputKind returns OutputStdout or OutputDynamoDB. Valid after Validate.
func (c *Config) OutputKind() string {
	return c.outputKind
}

// OutputTable returns the DynamoDB table parsed from Output.
func (c *Config) OutputTable() string {
	return c.outputTable
}

// Validate checks every field and derives the parsed output target.
func (c *Config) Validate() error {
	if c.Region == "" {
		return fmt.Errorf("region is required")
	}

	if c.EndpointURL != "" {
		u, err := url.Parse(c.EndpointURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("endpoint URL must be an http(s) URL: %q", c.EndpointURL)
		}
	}

	switch {
	case c.Output == "" || c.Output == "-" || c.Output == OutputStdout:
		c.outputKind = OutputStdout
	case strings.HasPrefix(c.Output, "dynamodb://"):
		table := strings.TrimPrefix(c.Output, "dynamodb://")
		if table == "" || strings.Contains(table, "/") {
			return fmt.Errorf("output must name a table: dynamodb://<table>")
		}
		c.outputKind = OutputDynamoDB
		c.outputTable = table
	default:
		return fmt.Errorf("output must be '-', 'stdout' or dynamodb://<table>, got %q", c.Output)
	}

	if c.CheckpointURI != "" {
		u, err := url.Parse(c.CheckpointURI)
		if err != nil {
			return fmt.Errorf("invalid checkpoint URI: %w", err)
		}
		switch u.Scheme {
		case "s3", "file", "redis", "memory":
		default:
			return fmt.Errorf("checkpoint URI must use s3, file, redis or memory scheme")
		}
	}

	if c.ReportS3URI != "" && !strings.HasPrefix(c.ReportS3URI, "s3://") {
		return fmt.Errorf("report S3 URI must start with s3://")
	}

	if c.PushgatewayURL != "" {
		u, err := url.Parse(c.PushgatewayURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("pushgateway URL must be an http(s) URL: %q", c.PushgatewayURL)
		}
	}

	if c.PrincipalARN != "" && !strings.HasPrefix(c.PrincipalARN, "arn:") {
		return fmt.Errorf("principal must be an ARN")
	}

	if c.MaxWorkers < 1 {
		return fmt.Errorf("max workers must be at least 1")
	}

	if c.BatchSize < 1 || c.BatchSize > 25 {
		return fmt.Errorf("batch size must be between 1 and 25")
	}

	if c.LogLevel != "" && !logging.ValidLevel(c.LogLevel) {
		return fmt.Errorf("log level must be debug, info, warn or error")
	}

	if c.ShutdownTimeout < time.Second {
		return fmt.Errorf("shutdown timeout must be at least 1 second")
	}

	return nil
}

// Defaults are read from SMPAGER_* environment variables and seed the
// command-line flag defaults.
type Defaults struct {
	Region          string        `envconfig:"REGION"`
	Profile         string        `envconfig:"PROFILE"`
	EndpointURL     string        `envconfig:"ENDPOINT_URL"`
	Output          string        `envconfig:"OUTPUT" default:"-"`
	CheckpointURI   string        `envconfig:"CHECKPOINT"`
	ReportS3URI     string        `envconfig:"REPORT_S3_URI"`
	PushgatewayURL  string        `envconfig:"PUSHGATEWAY_URL"`
	PrincipalARN    string        `envconfig:"PRINCIPAL_ARN"`
	MaxWorkers      int           `envconfig:"MAX_WORKERS" default:"4"`
	BatchSize       int           `envconfig:"BATCH_SIZE" default:"25"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty       bool          `envconfig:"LOG_PRETTY" default:"false"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// LoadDefaults processes the SMPAGER_* environment.
func LoadDefaults() (Defaults, error) {
	var d Defaults
	if err := envconfig.Process("smpager", &d); err != nil {
		return Defaults{}, fmt.Errorf("failed to load environment defaults: %w", err)
	}
	return d, nil
}
