package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Config types

type Config struct {
	APIVersion     string         `yaml:"apiVersion" json:"apiVersion"`
	Kind           string         `yaml:"kind" json:"kind"`
	CurrentContext string         `yaml:"current-context" json:"current-context"`
	Contexts       []NamedContext `yaml:"contexts" json:"contexts"`
}

type NamedContext struct {
	Name    string        `yaml:"name" json:"name"`
	Context ContextDetail `yaml:"context" json:"context"`
}

type ContextDetail struct {
	Server             string `yaml:"server" json:"server"`
	Username           string `yaml:"username,omitempty" json:"username,omitempty"`
	Password           string `yaml:"password,omitempty" json:"-"`
	PasswordFile       string `yaml:"password-file,omitempty" json:"password-file,omitempty"`
	RepositoryID       string `yaml:"repository-id,omitempty" json:"repository-id,omitempty"`
	InsecureSkipVerify bool   `yaml:"insecure-skip-verify,omitempty" json:"insecure-skip-verify,omitempty"`
}

// redacted returns a copy of c safe to print.
func (c *Config) redacted() *Config {
	out := *c
	out.Contexts = make([]NamedContext, len(c.Contexts))
	for i, nc := range c.Contexts {
		if nc.Context.Password != "" {
			nc.Context.Password = "[REDACTED]"
		}
		out.Contexts[i] = nc
	}
	return &out
}

func configDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".scanctl")
}

// configPath honors SCANCTL_CONFIG before the default location.
func configPath() string {
	if p := os.Getenv("SCANCTL_CONFIG"); p != "" {
		return expandPath(p)
	}
	return filepath.Join(configDir(), "config.yaml")
}

func expandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, p[2:])
	}
	return p
}

func loadConfig() (*Config, error) {
	data, err := os.ReadFile(configPath())
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func saveConfig(cfg *Config) error {
	if cfg.APIVersion == "" {
		cfg.APIVersion = "scanctl.openctem.io/v1"
	}
	if cfg.Kind == "" {
		cfg.Kind = "Config"
	}

	path := configPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func (c *Config) GetContext(name string) *NamedContext {
	for i := range c.Contexts {
		if c.Contexts[i].Name == name {
			return &c.Contexts[i]
		}
	}
	return nil
}

func (c *Config) SetContext(name string, ctx ContextDetail) {
	for i := range c.Contexts {
		if c.Contexts[i].Name == name {
			c.Contexts[i].Context = ctx
			return
		}
	}
	c.Contexts = append(c.Contexts, NamedContext{Name: name, Context: ctx})
}

// Config subcommands

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
}

func init() {
	setCtxCmd := &cobra.Command{
		Use:   "set-context NAME",
		Short: "Create or update a context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			server, _ := cmd.Flags().GetString("server")
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			passwordFile, _ := cmd.Flags().GetString("password-file")
			repositoryID, _ := cmd.Flags().GetString("repository-id")
			insecure, _ := cmd.Flags().GetBool("insecure")

			if server == "" {
				return fmt.Errorf("--server is required")
			}
			if username == "" {
				return fmt.Errorf("--username is required")
			}

			cfg, err := loadConfig()
			if err != nil {
				cfg = &Config{}
			}

			cfg.SetContext(name, ContextDetail{
				Server:             server,
				Username:           username,
				Password:           password,
				PasswordFile:       passwordFile,
				RepositoryID:       repositoryID,
				InsecureSkipVerify: insecure,
			})

			if cfg.CurrentContext == "" {
				cfg.CurrentContext = name
			}

			if err := saveConfig(cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Context %q set.\n", name)
			if cfg.CurrentContext == name {
				fmt.Fprintf(out, "Current context is %q.\n", name)
			}
			return nil
		},
	}
	setCtxCmd.Flags().String("repository-id", "", "Repository that new scans import into")

	useCtxCmd := &cobra.Command{
		Use:   "use-context NAME",
		Short: "Switch to a different context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("no config found: %w", err)
			}

			if cfg.GetContext(name) == nil {
				return fmt.Errorf("context %q not found", name)
			}

			cfg.CurrentContext = name
			if err := saveConfig(cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Switched to context %q.\n", name)
			return nil
		},
	}

	getCtxCmd := &cobra.Command{
		Use:   "get-contexts",
		Short: "List all configured contexts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("no config found: %w", err)
			}

			out := cmd.OutOrStdout()
			switch flagOutput {
			case outputJSON:
				return printJSON(out, cfg.redacted().Contexts)
			case outputYAML:
				return printYAML(out, cfg.redacted().Contexts)
			}

			t := newTable(out, "CURRENT", "NAME", "SERVER", "USERNAME")
			for _, c := range cfg.Contexts {
				current := ""
				if c.Name == cfg.CurrentContext {
					current = "*"
				}
				t.AddRow(current, c.Name, c.Context.Server, c.Context.Username)
			}
			t.Flush()
			return nil
		},
	}

	curCtxCmd := &cobra.Command{
		Use:   "current-context",
		Short: "Show the current context",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("no config found: %w", err)
			}
			if cfg.CurrentContext == "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "No current context set.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.CurrentContext)
			return nil
		},
	}

	viewCmd := &cobra.Command{
		Use:   "view",
		Short: "Show the full configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("no config found: %w", err)
			}

			if flagOutput == outputJSON {
				return printJSON(cmd.OutOrStdout(), cfg.redacted())
			}
			return printYAML(cmd.OutOrStdout(), cfg.redacted())
		},
	}

	configCmd.AddCommand(setCtxCmd, useCtxCmd, getCtxCmd, curCtxCmd, viewCmd)
}
