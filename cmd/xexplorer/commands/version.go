package commands

import (
	"fmt"
	"runtime"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hello-xone/xone-explorer-sub000/pkg/explorer"
)

// VersionInfo describes the CLI build.
type VersionInfo struct {
	Version   string `json:"version"   yaml:"version"`
	Commit    string `json:"commit"    yaml:"commit"`
	Built     string `json:"built"     yaml:"built"`
	GoVersion string `json:"go"        yaml:"go"`
	Resources int    `json:"resources" yaml:"resources"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Long:  "Display detailed version information about the xexplorer CLI",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := VersionInfo{
				Version:   version,
				Commit:    commit,
				Built:     date,
				GoVersion: runtime.Version(),
				Resources: len(explorer.DefaultRegistry().Names()),
			}

			done, err := renderStructured(cmd.OutOrStdout(), viper.GetString("output"), info)
			if done {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header("Property", "Value")
			_ = table.Append("Version", info.Version)
			_ = table.Append("Commit", info.Commit)
			_ = table.Append("Built", info.Built)
			_ = table.Append("Go", info.GoVersion)
			_ = table.Append("Resources", strconv.Itoa(info.Resources))

			if err := table.Render(); err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}

			return nil
		},
	}
}
