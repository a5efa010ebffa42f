package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/leslieo2/go-hello/internal/config"
	"github.com/leslieo2/go-hello/internal/constants"
	"github.com/leslieo2/go-hello/internal/contract"
	"github.com/leslieo2/go-hello/internal/harness"
	"github.com/leslieo2/go-hello/internal/hotreload"
	"github.com/leslieo2/go-hello/internal/observability"
	"github.com/leslieo2/go-hello/internal/server"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args and either checks a live server (--check) or serves the
// greeting until interrupted. It returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("go-hello", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(fs, stderr) }

	configFile := fs.String("config", "", "Path to configuration file (YAML or JSON)")

	// Check mode
	checkURL := fs.String("check", "", "Run the GET / check against the server at this base URL and exit")
	checkTimeout := fs.Duration("check-timeout", harness.DefaultTimeout, "Timeout for --check")
	checkContract := fs.Bool("check-contract", false, "Also validate the --check response against the contract")

	cliFlags := &config.CLIFlags{
		FlagSet:     fs,
		Host:        fs.String("host", "localhost", "Host to listen on"),
		Port:        fs.String("port", "8080", "Port to listen on"),
		MetricsPort: fs.String("metrics-port", "9090", "Port to run the metrics server on"),

		// Server configuration
		ReadTimeout:     fs.Duration("read-timeout", 15*time.Second, "HTTP server read timeout"),
		WriteTimeout:    fs.Duration("write-timeout", 15*time.Second, "HTTP server write timeout"),
		IdleTimeout:     fs.Duration("idle-timeout", 60*time.Second, "HTTP server idle timeout"),
		MaxRequestSize:  fs.Int64("max-request-size", 10*1024*1024, "Maximum request size in bytes"),
		ShutdownTimeout: fs.Duration("shutdown-timeout", 30*time.Second, "Graceful shutdown timeout"),

		// Greeting
		Greeting:     fs.String("greeting", "", "Body served on GET / (default: the contract example, \"Hello World\\n\")"),
		ContractFile: fs.String("contract-file", "", "Path to an OpenAPI contract replacing the embedded one"),

		// Logging
		LogLevel:  fs.String("log-level", "info", "Log level: debug, info, warn, error"),
		LogFormat: fs.String("log-format", "json", "Log format: json, console"),

		// Security flags
		RateLimitEnabled:  fs.Bool("rate-limit-enabled", false, "Enable rate limiting"),
		RateLimitStrategy: fs.String("rate-limit-strategy", constants.RateLimitStrategyIP, "Rate limiting strategy: ip, global"),
		RateLimitRPS:      fs.Int("rate-limit-rps", 100, "Global rate limit requests per second"),

		// Hot reload flags
		HotReload:         fs.Bool("hot-reload", false, "Reload the greeting when the config or contract file changes"),
		HotReloadDebounce: fs.Duration("hot-reload-debounce", 500*time.Millisecond, "Debounce time for hot reload events"),

		// TLS flags
		TLSEnabled:  fs.Bool("tls-enabled", false, "Serve HTTPS"),
		TLSCertFile: fs.String("tls-cert-file", "", "TLS certificate file"),
		TLSKeyFile:  fs.String("tls-key-file", "", "TLS private key file"),
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *checkURL != "" {
		return runCheck(*checkURL, *checkTimeout, *checkContract, stdout, stderr)
	}

	return runServer(*configFile, cliFlags, stderr)
}

// runCheck runs the root GET check once and reports the outcome.
func runCheck(baseURL string, timeout time.Duration, withContract bool, stdout, stderr io.Writer) int {
	opts := []harness.Option{harness.WithTimeout(timeout)}
	if withContract {
		c, err := contract.Load("")
		if err != nil {
			fmt.Fprintf(stderr, "Failed to load contract: %v\n", err)
			return 1
		}
		opts = append(opts, harness.WithContract(c))
	}

	result, err := harness.New(baseURL, opts...).RunRootGet(context.Background())
	if result != nil {
		harness.Report(stdout, result)
	}
	if err != nil {
		if result == nil {
			fmt.Fprintf(stderr, "FAIL GET /: %v\n", err)
		}
		return 1
	}
	return 0
}

func runServer(configFile string, cliFlags *config.CLIFlags, stderr io.Writer) int {
	// Load configuration with precedence (CLI > Env > File > Defaults)
	load := func() (*config.Config, error) { return config.LoadConfig(configFile, cliFlags) }

	cfg, err := load()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	logger, err := observability.NewLogger(cfg.Observability.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	srv, err := server.New(cfg, server.WithLogger(logger), server.WithReloadSource(load))
	if err != nil {
		logger.Error("Failed to create server", zap.Error(err))
		return 1
	}

	if cfg.HotReload.Enabled {
		stopHotReload, err := startHotReload(cfg, configFile, srv, logger.Logger)
		if err != nil {
			logger.Error("Failed to start hot reload", zap.Error(err))
			return 1
		}
		defer stopHotReload()
	}

	if cfg.Security.RateLimit.Enabled {
		logger.Info("Rate limiting enabled", zap.String("strategy", cfg.Security.RateLimit.Strategy))
	}

	if err := srv.Start(); err != nil {
		logger.Error("Server failed", zap.Error(err))
		return 1
	}
	return 0
}

// startHotReload watches the config and contract files and reloads the
// server on change or on SIGHUP. The returned func releases the watcher and
// the signal handler.
func startHotReload(cfg *config.Config, configFile string, srv *server.Server, logger *zap.Logger) (func(), error) {
	paths := cfg.WatchPaths(configFile)
	if len(paths) == 0 {
		logger.Warn("Hot reload enabled but no file to watch")
		return func() {}, nil
	}

	manager, err := hotreload.NewManager(logger)
	if err != nil {
		return nil, err
	}
	manager.SetDebounceTime(cfg.HotReload.Debounce)

	for _, p := range paths {
		if err := manager.AddWatch(p); err != nil {
			manager.Stop()
			return nil, err
		}
	}
	if err := manager.RegisterReloadable(srv); err != nil {
		manager.Stop()
		return nil, err
	}
	if err := manager.AddListener("log", func(ctx context.Context, event hotreload.ReloadEvent) error {
		if event.Err == nil {
			logger.Info("Greeting now serving", zap.String("component", event.Component), zap.Int("greeting_bytes", len(srv.Greeting())))
		}
		return nil
	}); err != nil {
		manager.Stop()
		return nil, err
	}
	if err := manager.Start(); err != nil {
		manager.Stop()
		return nil, err
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	stopSignals := reloadOnSignal(manager, hup, logger)

	logger.Info("Hot reload enabled", zap.Strings("paths", paths))
	return func() {
		signal.Stop(hup)
		stopSignals()
		if err := manager.Shutdown(context.Background()); err != nil {
			logger.Warn("Failed to shutdown hot reload manager", zap.Error(err))
		}
	}, nil
}

// reloadOnSignal reloads every component each time sigs delivers. The
// returned func stops the loop and waits for an in-flight reload.
func reloadOnSignal(manager *hotreload.Manager, sigs <-chan os.Signal, logger *zap.Logger) func() {
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		for {
			select {
			case <-done:
				return
			case sig := <-sigs:
				logger.Info("Signal received, reloading", zap.String("signal", sig.String()))
				manager.ReloadNow(context.Background())
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
		<-exited
	}
}

// printUsage prints the usage information
func printUsage(fs *pflag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, "Usage: go-hello [flags]\n")
	fmt.Fprintf(w, "       go-hello --check http://localhost:8080\n\n")
	fmt.Fprintf(w, "Flags:\n%s", fs.FlagUsages())
	fmt.Fprintf(w, "\nEnvironment variables:\n")
	fmt.Fprintf(w, "  %s, %s, %s\n", constants.EnvHost, constants.EnvPort, constants.EnvMetricsPort)
	fmt.Fprintf(w, "  %s, %s, %s\n", constants.EnvReadTimeout, constants.EnvWriteTimeout, constants.EnvIdleTimeout)
	fmt.Fprintf(w, "  %s, %s\n", constants.EnvMaxRequestSize, constants.EnvShutdownTimeout)
	fmt.Fprintf(w, "  %s, %s\n", constants.EnvGreeting, constants.EnvContractFile)
	fmt.Fprintf(w, "  %s, %s\n", constants.EnvLogLevel, constants.EnvLogFormat)
	fmt.Fprintf(w, "  %s, %s, %s\n", constants.EnvHotReload, constants.EnvHotReloadDebounce, constants.EnvRateLimitEnabled)
	fmt.Fprintf(w, "  %s, %s, %s\n", constants.EnvTLSEnabled, constants.EnvTLSCertFile, constants.EnvTLSKeyFile)
}
