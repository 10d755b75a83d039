package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/hello-xone/xone-explorer-sub000/internal/constants"
	"github.com/hello-xone/xone-explorer-sub000/pkg/explorer"
)

// promptValue is the config set value that asks for a secret on the terminal.
const promptValue = "-"

// Config represents the CLI configuration.
type Config struct {
	API       string        `json:"api,omitempty"        yaml:"api,omitempty"`
	APIKey    string        `json:"api_key,omitempty"    yaml:"api_key,omitempty"`
	Chain     string        `json:"chain,omitempty"      yaml:"chain,omitempty"`
	Output    string        `json:"output,omitempty"     yaml:"output,omitempty"`
	StaleTime string        `json:"stale_time,omitempty" yaml:"stale_time,omitempty"`
	Cache     CacheSettings `json:"cache"                yaml:"cache"`
}

// CacheSettings configures the query cache used by the CLI.
type CacheSettings struct {
	Type      string `json:"type,omitempty"       yaml:"type,omitempty"`
	RedisAddr string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	NATSURL   string `json:"nats_url,omitempty"   yaml:"nats_url,omitempty"`
	L1        bool   `json:"l1"                   yaml:"l1"`
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Manage xexplorer CLI configuration including the API endpoint and cache backend",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the effective CLI configuration. The API key is masked.",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()
			config.APIKey = maskSecret(config.APIKey)

			done, err := renderStructured(cmd.OutOrStdout(), viper.GetString("output"), config)
			if done {
				return err
			}

			return displayConfigTable(cmd.OutOrStdout(), config)
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long: `Set a configuration value. Keys: api, api_key, chain, output, stale_time,
cache.type, cache.redis_addr, cache.nats_url, cache.l1.

Pass "-" as the api_key value to enter it without echo.`,
		Args: cobra.ExactArgs(2), //nolint:mnd // key and value
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			if key == "api_key" && value == promptValue {
				secret, err := readSecret(cmd.ErrOrStderr())
				if err != nil {
					return err
				}

				value = secret
			}

			config := loadConfig()

			err := setConfigValue(config, key, value)
			if err != nil {
				return err
			}

			err = saveConfig(config)
			if err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if key == "api_key" {
				value = maskSecret(value)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Set %s to %s\n", key, value)

			return nil
		},
	}
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Unset a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			err := unsetConfigValue(config, args[0])
			if err != nil {
				return err
			}

			err = saveConfig(config)
			if err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Unset %s\n", args[0])

			return nil
		},
	}
}

// loadConfig reads the effective configuration from viper.
func loadConfig() *Config {
	return &Config{
		API:       viper.GetString("api"),
		APIKey:    viper.GetString("api_key"),
		Chain:     viper.GetString("chain"),
		Output:    viper.GetString("output"),
		StaleTime: viper.GetString("stale_time"),
		Cache: CacheSettings{
			Type:      viper.GetString("cache.type"),
			RedisAddr: viper.GetString("cache.redis_addr"),
			NATSURL:   viper.GetString("cache.nats_url"),
			L1:        viper.GetBool("cache.l1"),
		},
	}
}

// configFilePath returns the file the configuration is saved to.
func configFilePath() (string, error) {
	if used := viper.ConfigFileUsed(); used != "" {
		return used, nil
	}

	if explicit := viper.GetString("config"); explicit != "" {
		return explicit, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ".xexplorer", "config.yml"), nil
}

func saveConfig(config *Config) error {
	configFile, err := configFilePath()
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(configFile), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func setConfigValue(config *Config, key, value string) error {
	switch key {
	case "api":
		config.API = value
	case "api_key":
		config.APIKey = value
	case "chain":
		config.Chain = value
	case "output":
		switch value {
		case constants.FormatTable, constants.FormatJSON, constants.FormatYAML:
			config.Output = value
		default:
			return fmt.Errorf("%w: %s", constants.ErrUnsupportedFormat, value)
		}
	case "stale_time":
		_, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid stale_time %q: %w", value, err)
		}

		config.StaleTime = value
	case "cache.type":
		switch explorer.CacheType(value) {
		case explorer.CacheTypeMemory, explorer.CacheTypeRedis, explorer.CacheTypeNATS, explorer.CacheTypeNone:
			config.Cache.Type = value
		default:
			return fmt.Errorf("%w: %s", explorer.ErrUnsupportedCacheType, value)
		}
	case "cache.redis_addr":
		config.Cache.RedisAddr = value
	case "cache.nats_url":
		config.Cache.NATSURL = value
	case "cache.l1":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s", constants.ErrInvalidConfigBool, value)
		}

		config.Cache.L1 = enabled
	default:
		return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
	}

	return nil
}

func unsetConfigValue(config *Config, key string) error {
	switch key {
	case "output":
		config.Output = constants.FormatTable
	case "cache.l1":
		config.Cache.L1 = false
	default:
		return setConfigValue(config, key, "")
	}

	return nil
}

// readSecret reads a value from the terminal without echo.
func readSecret(prompt io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", constants.ErrNotATerminal
	}

	_, _ = fmt.Fprint(prompt, "API key: ")

	secret, err := term.ReadPassword(fd)

	_, _ = fmt.Fprintln(prompt)

	if err != nil {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}

	return strings.TrimSpace(string(secret)), nil
}

func displayConfigTable(w io.Writer, config *Config) error {
	table := tablewriter.NewWriter(w)
	table.Header("Property", "Value")

	_ = table.Append([]string{"API", formatConfigValue(config.API)})
	_ = table.Append([]string{"API Key", config.APIKey})
	_ = table.Append([]string{"Chain", formatConfigValue(config.Chain)})
	_ = table.Append([]string{"Output", formatConfigValue(config.Output)})
	_ = table.Append([]string{"Stale Time", formatConfigValue(config.StaleTime)})
	_ = table.Append([]string{"Cache Type", formatConfigValue(config.Cache.Type)})
	_ = table.Append([]string{"Redis Address", formatConfigValue(config.Cache.RedisAddr)})
	_ = table.Append([]string{"NATS URL", formatConfigValue(config.Cache.NATSURL)})
	_ = table.Append([]string{"L1 Cache", strconv.FormatBool(config.Cache.L1)})

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func formatConfigValue(value string) string {
	if value == "" {
		return constants.NotAvailable
	}

	return value
}
