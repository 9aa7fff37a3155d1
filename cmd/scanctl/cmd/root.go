package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/openctemio/scanctl/internal/config"
	"github.com/openctemio/scanctl/pkg/logger"
)

var (
	version string

	// Global flags
	flagServer       string
	flagUsername     string
	flagPassword     string
	flagPasswordFile string
	flagContext      string
	flagOutput       string
	flagCheck        bool
	flagLogLevel     string
	flagLogFormat    string
	flagInsecure     bool
)

// errReported marks a failure whose result has already been printed.
var errReported = errors.New("stage failed")

var rootCmd = &cobra.Command{
	Use:   "scanctl",
	Short: "Tenable.sc scan lifecycle automation",
	Long: `scanctl drives the lifecycle of a vulnerability scan on Tenable.sc:

  scanctl asset create   publish an asset list from an inventory file
  scanctl scan create    define a scan against a policy and targets
  scanctl scan launch    start a defined scan
  scanctl scan fetch     download the report of the latest completed run

Every command prints a result with "changed" and "output", or "failed",
"msg" and "kind" on error. Use "scanctl config set-context" to store a
connection.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Interrupts cancel the running stage.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// IsReported reports whether err was already printed as a failed result.
func IsReported(err error) bool {
	return errors.Is(err, errReported)
}

// SetVersion sets the CLI version from build flags.
func SetVersion(v string) {
	version = v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "", "Tenable.sc host or URL (env: SCANCTL_SERVER)")
	rootCmd.PersistentFlags().StringVarP(&flagUsername, "username", "u", "", "Login user (env: SCANCTL_USERNAME)")
	rootCmd.PersistentFlags().StringVarP(&flagPassword, "password", "p", "", "Login password (env: SCANCTL_PASSWORD)")
	rootCmd.PersistentFlags().StringVar(&flagPasswordFile, "password-file", "", "Read the login password from a file")
	rootCmd.PersistentFlags().StringVarP(&flagContext, "context", "c", "", "Use specific context (env: SCANCTL_CONTEXT)")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", outputJSON, "Output format: json, yaml, text")
	rootCmd.PersistentFlags().BoolVar(&flagCheck, "check", false, "Validate inputs only, change nothing")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (env: SCANCTL_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format: text, json (env: SCANCTL_LOG_FORMAT)")
	rootCmd.PersistentFlags().BoolVar(&flagInsecure, "insecure", false, "Skip TLS certificate verification")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(assetCmd)
	rootCmd.AddCommand(scanCmd)
}

// loadSettings builds the configuration. Flags override the environment,
// which overrides the selected context.
func loadSettings() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if named := selectedContext(); named != nil {
		applyContext(&cfg.Platform, named.Context)
	}

	if flagServer != "" {
		cfg.Platform.Server = flagServer
	}
	if flagUsername != "" {
		cfg.Platform.Username = flagUsername
	}
	if flagPasswordFile != "" {
		password, err := readSecretFile(flagPasswordFile)
		if err != nil {
			return nil, err
		}
		cfg.Platform.Password = password
	}
	if flagPassword != "" {
		cfg.Platform.Password = flagPassword
	}
	if flagInsecure {
		cfg.Platform.InsecureSkipVerify = true
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.Log.Format = flagLogFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func selectedContext() *NamedContext {
	name := flagContext
	if name == "" {
		name = os.Getenv("SCANCTL_CONTEXT")
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil
	}
	if name == "" {
		name = cfg.CurrentContext
	}
	return cfg.GetContext(name)
}

// applyContext fills connection settings the environment left empty.
func applyContext(p *config.PlatformConfig, c ContextDetail) {
	if p.Server == "" {
		p.Server = c.Server
	}
	if p.Username == "" {
		p.Username = c.Username
	}
	if p.Password == "" {
		p.Password = c.Password
		if p.Password == "" && c.PasswordFile != "" {
			if password, err := readSecretFile(c.PasswordFile); err == nil {
				p.Password = password
			}
		}
	}
	if c.RepositoryID != "" && os.Getenv("SCANCTL_REPOSITORY_ID") == "" {
		p.RepositoryID = c.RepositoryID
	}
	if c.InsecureSkipVerify {
		p.InsecureSkipVerify = true
	}
}

func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(expandPath(path))
	if err != nil {
		return "", fmt.Errorf("read password file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func newLogger(cfg *config.Config) *logger.Logger {
	return logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "scanctl version %s\n", version)
		fmt.Fprintf(out, "  Go:       %s\n", runtime.Version())
		fmt.Fprintf(out, "  OS/Arch:  %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}
