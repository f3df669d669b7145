// Package main provides the shopeeweb command line client.
// It signs in to the Shopee buyer site by QR code, prints every client
// event and keeps the session open until interrupted or logged out.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/entrhq/shopeeweb/pkg/client"
	appconfig "github.com/entrhq/shopeeweb/pkg/config"
	"github.com/entrhq/shopeeweb/pkg/logging"
	"github.com/entrhq/shopeeweb/pkg/types"
)

const version = "0.1.0" // Version of the shopeeweb client

// Config holds the command line configuration. Flags that are set override
// the values loaded from ConfigFile.
type Config struct {
	ConfigFile   string
	Strategy     string
	ClientID     string
	DataPath     string
	RedisURL     string
	QROut        string
	QRWidth      int
	CopyQR       bool
	Headless     bool
	QRMaxRetries int
	AuthTimeout  time.Duration
	MetricsAddr  string
	LogLevel     string
	SkipInstall  bool
	ShowVersion  bool

	// set records which flags were given explicitly
	set map[string]bool
}

func main() {
	config := parseFlags()

	if config.ShowVersion {
		fmt.Printf("shopeeweb v%s\n", version)
		return
	}

	opts, err := config.options()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Create context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
	}()

	if runErr := run(ctx, config, opts); runErr != nil {
		cancel()
		log.Fatalf("Application error: %v", runErr)
	}
	cancel()
}

// parseFlags parses command line flags
func parseFlags() *Config {
	config := &Config{set: make(map[string]bool)}

	flag.StringVar(&config.ConfigFile, "config", "", "Path to a YAML configuration file")
	flag.StringVar(&config.Strategy, "auth", appconfig.StrategyNone, "Session persistence: none, local or remote")
	flag.StringVar(&config.ClientID, "client-id", "", "Client id separating multiple sessions")
	flag.StringVar(&config.DataPath, "data-path", "", "Directory for persisted sessions (default .shopeeweb_auth)")
	flag.StringVar(&config.RedisURL, "redis-url", os.Getenv("SHOPEEWEB_REDIS_URL"), "Redis URL for the remote strategy (or set SHOPEEWEB_REDIS_URL)")
	flag.StringVar(&config.QROut, "qr-out", "", "Write every QR code to this PNG file")
	flag.IntVar(&config.QRWidth, "qr-width", 0, "Resize written QR codes to this width in pixels (0 keeps the original)")
	flag.BoolVar(&config.CopyQR, "copy-qr", false, "Copy the latest QR payload to the clipboard")
	flag.BoolVar(&config.Headless, "headless", true, "Run the browser without a window")
	flag.IntVar(&config.QRMaxRetries, "qr-max-retries", 0, "Give up after this many QR codes (0 = unlimited)")
	flag.DurationVar(&config.AuthTimeout, "auth-timeout", 0, "Time to wait for the login page to settle (0 = unlimited)")
	flag.StringVar(&config.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	flag.StringVar(&config.LogLevel, "log-level", "", "Log level: debug, info, warn or error")
	flag.BoolVar(&config.SkipInstall, "skip-install", false, "Do not download the browser before the first run")
	flag.BoolVar(&config.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "shopeeweb - QR code login client for the Shopee buyer site\n\n")
		fmt.Fprintf(os.Stderr, "Usage: shopeeweb [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  shopeeweb -qr-out qr.png                      # Scan the code in qr.png\n")
		fmt.Fprintf(os.Stderr, "  shopeeweb -auth local -client-id shop-1       # Keep the session on disk\n")
		fmt.Fprintf(os.Stderr, "  shopeeweb -auth remote -redis-url redis://localhost:6379/0\n")
		fmt.Fprintf(os.Stderr, "  shopeeweb -config shopeeweb.yaml -metrics-addr :9090\n")
	}

	flag.Parse()
	flag.Visit(func(f *flag.Flag) {
		config.set[f.Name] = true
	})
	return config
}

// options loads the configuration file and applies explicitly set flags.
func (c *Config) options() (appconfig.Options, error) {
	opts := appconfig.Default()
	if c.ConfigFile != "" {
		loaded, err := appconfig.Load(c.ConfigFile)
		if err != nil {
			return opts, err
		}
		opts = loaded
	}

	if c.set["auth"] {
		opts.Auth.Strategy = c.Strategy
	}
	if c.set["client-id"] {
		opts.Auth.ClientID = c.ClientID
	}
	if c.set["data-path"] {
		opts.Auth.DataPath = c.DataPath
	}
	if c.RedisURL != "" {
		opts.Auth.RedisURL = c.RedisURL
	}
	if c.set["headless"] {
		opts.Browser.Headless = c.Headless
	}
	if c.set["qr-max-retries"] {
		opts.QRMaxRetries = c.QRMaxRetries
	}
	if c.set["auth-timeout"] {
		opts.AuthTimeout = c.AuthTimeout
	}
	if c.set["log-level"] {
		opts.Logging.Level = c.LogLevel
	}

	if c.QRWidth < 0 {
		return opts, fmt.Errorf("qr-width must be non-negative")
	}
	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

// run initializes the client and blocks until a terminal event or ctx ends.
func run(ctx context.Context, config *Config, opts appconfig.Options) error {
	if opts.Logging.Level != "" {
		level, err := logging.ParseLevel(opts.Logging.Level)
		if err != nil {
			return err
		}
		logging.SetLevel(level)
	}

	strategy, closeStrategy, err := buildStrategy(ctx, opts)
	if err != nil {
		return err
	}
	defer closeStrategy()

	launcher := newLauncher(config.SkipInstall)
	c, err := client.New(opts, client.WithStrategy(strategy), client.WithLauncher(launcher))
	if err != nil {
		return err
	}

	if config.MetricsAddr != "" {
		stopMetrics := serveMetrics(config.MetricsAddr)
		defer stopMetrics()
	}

	printer := newEventPrinter(config.QROut, config.QRWidth, config.CopyQR)
	finished := make(chan *types.ClientEvent, 1)
	c.OnAny(func(event *types.ClientEvent) {
		printer.print(event)
		if event.IsTerminal() {
			select {
			case finished <- event:
			default:
			}
		}
	})

	printer.status("Opening %s", opts.URL)
	if err := c.Initialize(ctx); err != nil {
		destroy(c)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	select {
	case <-ctx.Done():
	case event := <-finished:
		printer.status("Session ended: %s", event.Type)
	}

	destroy(c)
	return nil
}

func destroy(c *client.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.Destroy(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}
