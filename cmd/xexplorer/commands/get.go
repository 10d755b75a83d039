package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewGetCommand creates the get command.
func NewGetCommand() *cobra.Command {
	var queryFlags []string

	cmd := &cobra.Command{
		Use:   "get RESOURCE [PARAM=VALUE...]",
		Short: "Query a single resource",
		Long: `Query a resource by name. Path parameters are given as PARAM=VALUE
arguments, query filters with --query.

Examples:
  xexplorer get stats
  xexplorer get address hash=0x3f...
  xexplorer get tokens --query type=ERC-20`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pathParams, err := parseParams(args[1:])
			if err != nil {
				return err
			}

			query, err := parseQuery(queryFlags)
			if err != nil {
				return err
			}

			client, err := newClient(cmd.Context())
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			result, err := client.Query(cmd.Context(), args[0], pathParams, query)
			if err != nil {
				return fmt.Errorf("failed to query %s: %w", args[0], err)
			}

			return renderDocument(cmd.OutOrStdout(), viper.GetString("output"), result.Data)
		},
	}

	cmd.Flags().StringArrayVarP(&queryFlags, "query", "q", nil, "query filter as KEY=VALUE (repeatable)")

	return cmd
}
