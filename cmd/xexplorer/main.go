package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hello-xone/xone-explorer-sub000/cmd/xexplorer/commands"
	"github.com/hello-xone/xone-explorer-sub000/internal/constants"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "xexplorer",
	Short: "Blockchain explorer API CLI",
	Long: `A command-line interface for the blockchain explorer API.

This CLI gives typed access to explorer resources including blocks,
transactions, addresses, tokens, DEX pools and attestations, with cursor
pagination and a shared query cache.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.xexplorer/config.yml)")
	rootCmd.PersistentFlags().StringP("api", "a", "", "explorer API endpoint URL")
	rootCmd.PersistentFlags().String("api-key", "", "explorer API key")
	rootCmd.PersistentFlags().String("chain", "", "chain slug used to scope cached queries")
	rootCmd.PersistentFlags().StringP("output", "o", constants.FormatTable, "output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("cache", "", "query cache backend (memory, redis, nats, none)")
	rootCmd.PersistentFlags().String("redis-addr", "", "redis address for the redis cache")
	rootCmd.PersistentFlags().String("nats-url", "", "NATS URL for the nats cache")
	rootCmd.PersistentFlags().Duration("stale-time", 0, "reuse cached single-page results younger than this")

	// Bind flags to viper
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("api", rootCmd.PersistentFlags().Lookup("api"))
	_ = viper.BindPFlag("api_key", rootCmd.PersistentFlags().Lookup("api-key"))
	_ = viper.BindPFlag("chain", rootCmd.PersistentFlags().Lookup("chain"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("cache.type", rootCmd.PersistentFlags().Lookup("cache"))
	_ = viper.BindPFlag("cache.redis_addr", rootCmd.PersistentFlags().Lookup("redis-addr"))
	_ = viper.BindPFlag("cache.nats_url", rootCmd.PersistentFlags().Lookup("nats-url"))
	_ = viper.BindPFlag("stale_time", rootCmd.PersistentFlags().Lookup("stale-time"))

	// Add commands
	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(commands.NewResourcesCommand())
	rootCmd.AddCommand(commands.NewGetCommand())
	rootCmd.AddCommand(commands.NewPageCommand())
	rootCmd.AddCommand(commands.NewBrowseCommand())
	rootCmd.AddCommand(commands.NewOverviewCommand())
}

func initConfig() {
	cfgFile := viper.GetString("config")

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".xexplorer")

		// Search config in ~/.xexplorer/config.yml
		viper.AddConfigPath(configDir)
		viper.SetConfigType("yml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match
	viper.SetEnvPrefix("XEXPLORER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
