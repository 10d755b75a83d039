package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hello-xone/xone-explorer-sub000/internal/constants"
	"github.com/hello-xone/xone-explorer-sub000/pkg/explorer"
)

// resourceInfo is the listing form of a resource descriptor.
type resourceInfo struct {
	Name        string   `json:"name"                  yaml:"name"`
	Path        string   `json:"path"                  yaml:"path"`
	Method      string   `json:"method"                yaml:"method"`
	PathParams  []string `json:"path_params,omitempty" yaml:"path_params,omitempty"`
	Filters     []string `json:"filters,omitempty"     yaml:"filters,omitempty"`
	Paginated   bool     `json:"paginated"             yaml:"paginated"`
	Transform   bool     `json:"transform"             yaml:"transform"`
	Interceptor string   `json:"interceptor,omitempty" yaml:"interceptor,omitempty"`
}

// NewResourcesCommand creates the resources command.
func NewResourcesCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "resources",
		Aliases: []string{"res"},
		Short:   "List explorer resources",
		Long:    "List every resource known to the client with its path template, parameters and filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := explorer.DefaultRegistry()

			infos := make([]resourceInfo, 0, len(registry.Names()))
			for _, desc := range registry.Descriptors() {
				infos = append(infos, resourceInfo{
					Name:        desc.Name,
					Path:        desc.Path,
					Method:      desc.HTTPMethod(),
					PathParams:  desc.PathParams,
					Filters:     desc.FilterFields,
					Paginated:   desc.Paginated,
					Transform:   desc.HasTransform(),
					Interceptor: desc.InterceptorName(),
				})
			}

			done, err := renderStructured(cmd.OutOrStdout(), viper.GetString("output"), infos)
			if done {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header("Name", "Path", "Params", "Filters", "Paginated", "Interceptor")

			for _, info := range infos {
				_ = table.Append([]string{
					info.Name,
					info.Path,
					joinOrNone(info.PathParams),
					joinOrNone(info.Filters),
					strconv.FormatBool(info.Paginated),
					formatConfigValue(info.Interceptor),
				})
			}

			err = table.Render()
			if err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}

			return nil
		},
	}
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return constants.None
	}

	return strings.Join(values, ", ")
}
