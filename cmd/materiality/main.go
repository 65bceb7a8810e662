// Package main is the entry point for the Materiality application.
// Materiality assembles climate-risk materiality reports from questionnaire
// answers, mapping tables and a YAML content library.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verustcode/materiality/consts"
	"github.com/verustcode/materiality/internal/check"
	"github.com/verustcode/materiality/internal/config"
	"github.com/verustcode/materiality/internal/database"
	"github.com/verustcode/materiality/internal/server"
	"github.com/verustcode/materiality/internal/shared"
	"github.com/verustcode/materiality/internal/store"
	"github.com/verustcode/materiality/pkg/errors"
	"github.com/verustcode/materiality/pkg/idgen"
	"github.com/verustcode/materiality/pkg/logger"
	"github.com/verustcode/materiality/pkg/telemetry"
)

// Build information - set via ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func init() {
	consts.Version = Version
	consts.BuildTime = BuildTime
	consts.GitCommit = GitCommit
}

// bootstrapPath holds the path to the bootstrap configuration file
var bootstrapPath string

var rootCmd = &cobra.Command{
	Use:   "materiality",
	Short: "Materiality - climate risk materiality report service",
	Long: `Materiality turns questionnaire answers into a structured report by joining
them with the mapping tables and the YAML content library.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Materiality server",
	Long: `Start the HTTP server for the questionnaire and report API.

On first run, use --check flag to interactively set up your environment:
  materiality serve --check

After initial setup, simply run:
  materiality serve`,
	Run: runServe,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check configuration and audit content coverage",
	Long: `Validate bootstrap.yaml and the mapping tables, create missing configuration
files from templates, and report every content file the mapping tables
reference but the content library does not provide.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return check.NewChecker(bootstrapPath).Run(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := consts.BuildInfo()
		fmt.Printf("%s %s\n", consts.ProjectName, info.Version)
		fmt.Printf("  Build Time: %s\n", info.BuildTime)
		fmt.Printf("  Git Commit: %s\n", info.GitCommit)
		fmt.Printf("  Source:     %s\n", consts.ProjectURL)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&bootstrapPath, "bootstrap", "", "bootstrap config file path (default: config/bootstrap.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(mappingsCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(versionCmd)

	serveCmd.Flags().String("host", "", "server host (overrides config)")
	serveCmd.Flags().Int("port", 0, "server port (overrides config)")
	serveCmd.Flags().Bool("debug", false, "enable debug mode")
	serveCmd.Flags().Bool("check", false, "run interactive environment check before starting server")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runServe starts the Materiality server
func runServe(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	checker := check.NewChecker(bootstrapPath)
	if interactive, _ := cmd.Flags().GetBool("check"); interactive {
		if err := checker.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Environment check failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("\n✓ Environment check completed successfully")
	} else {
		result := checker.RunNonInteractive(ctx)
		if !result.Success {
			check.PrintCheckResult(result)
			os.Exit(1)
		}
		for _, warn := range result.Warnings {
			fmt.Fprintf(os.Stderr, "[WARNING] %s\n", warn)
		}
		if len(result.Warnings) > 0 {
			fmt.Fprintln(os.Stderr)
		}
	}

	consts.SetStartedAt(time.Now())

	configPath := resolveConfigPath()
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		if errors.HasCode(err, errors.ErrCodeConfigInvalid) {
			os.Exit(errors.ExitCodeConfigValidation)
		}
		os.Exit(1)
	}

	// Override config with command line flags
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Server.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Server.Debug = true
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "text"
	}

	// Auto-generate JWT secret if empty and save to config file
	if cfg.Admin != nil && cfg.Admin.Enabled && strings.TrimSpace(cfg.Admin.JWTSecret) == "" {
		newSecret := idgen.NewSecureSecret(32)
		cfg.Admin.JWTSecret = newSecret

		if err := config.UpdateJWTSecretInConfig(configPath, newSecret); err != nil {
			fmt.Fprintf(os.Stderr, "[WARNING] Failed to save JWT secret to config file: %v\n", err)
			fmt.Fprintf(os.Stderr, "Using auto-generated JWT secret for this session only.\n\n")
		} else {
			fmt.Fprintf(os.Stderr, "[INFO] JWT secret was empty, auto-generated and saved to config file.\n\n")
		}
	}

	// password_hash may stay empty; it can be set through the setup endpoint
	if validationErr := config.ValidateAdminConfig(cfg.Admin); validationErr != nil {
		printAdminHint(validationErr)
		os.Exit(errors.ExitCodeConfigValidation)
	}
	if cfg.Admin != nil && cfg.Admin.Enabled && strings.TrimSpace(cfg.Admin.PasswordHash) == "" {
		fmt.Fprintf(os.Stderr, "[WARNING] Admin password not set\n")
		fmt.Fprintf(os.Stderr, "Set it with POST http://%s/api/v1/auth/setup after starting the server.\n\n", cfg.Server.Address())
	}

	if err := logger.Init(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Materiality", zap.String("version", Version))

	tel, err := telemetry.New(cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil {
			logger.Error("Failed to shutdown telemetry", zap.Error(err))
		}
	}()

	if err := database.Open(database.Options{
		Path:        cfg.Database.Path,
		BusyTimeout: cfg.Database.BusyTimeout(),
		LogSQL:      cfg.Server.Debug,
	}); err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close()
	dataStore := store.NewStore(database.Get())

	services, err := shared.InitServices(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize report services", zap.Error(err))
	}

	srv := server.New(cfg, configPath, services, dataStore)
	srv.SetupRoutes()
	if err := srv.StartBackground(); err != nil {
		logger.Fatal("Failed to start background jobs", zap.Error(err))
	}
	if err := srv.Start(); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}

	logger.Info("Materiality server is running", zap.String("address", cfg.Server.Address()))
	port := cfg.Server.Port
	logger.Info(fmt.Sprintf("  Local:   http://localhost:%d/api/v1/health", port))
	if lanIP := getLocalIP(); lanIP != "" {
		logger.Info(fmt.Sprintf("  Network: http://%s:%d/api/v1/health", lanIP, port))
	}

	srv.WaitForShutdown()

	logger.Info("Materiality stopped")
}

func resolveConfigPath() string {
	if bootstrapPath == "" {
		return config.ConfigPath
	}
	return bootstrapPath
}

// loadConfig loads and validates the bootstrap configuration
func loadConfig(path string) (*config.Config, error) {
	if !config.Exists(path) {
		return nil, errors.New(errors.ErrCodeConfigNotFound,
			fmt.Sprintf("bootstrap configuration not found: %s; run 'materiality serve --check' to create it", path))
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigParse, "failed to load bootstrap config", err)
	}
	if appErr := cfg.Validate(); appErr != nil {
		return nil, appErr
	}
	return cfg, nil
}

// printAdminHint prints configuration hints for an admin validation failure
func printAdminHint(validationErr *errors.AppError) {
	fmt.Fprintf(os.Stderr, "\n[ERROR] Admin configuration validation failed\n")
	fmt.Fprintf(os.Stderr, "Error Code: %s\n", validationErr.Code)
	fmt.Fprintf(os.Stderr, "Error: %v\n\n", validationErr)

	switch validationErr.Code {
	case errors.ErrCodeJWTSecretInvalid:
		fmt.Fprintf(os.Stderr, "JWT secret is invalid or too short.\n")
		fmt.Fprintf(os.Stderr, "Please configure JWT secret in your config file:\n")
		fmt.Fprintf(os.Stderr, "  admin:\n")
		fmt.Fprintf(os.Stderr, "    jwt_secret: \"%s\"\n\n", idgen.NewSecureSecret(32))
	case errors.ErrCodeAdminCredentialsEmpty:
		fmt.Fprintf(os.Stderr, "Please configure admin username in your config file:\n")
		fmt.Fprintf(os.Stderr, "  admin:\n")
		fmt.Fprintf(os.Stderr, "    username: \"admin\"\n\n")
	default:
		fmt.Fprintf(os.Stderr, "Please check admin configuration in your config file.\n\n")
	}
}

// getLocalIP returns the first non-loopback IPv4 address
func getLocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String()
			}
		}
	}
	return ""
}
