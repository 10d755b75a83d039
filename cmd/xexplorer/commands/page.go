package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hello-xone/xone-explorer-sub000/internal/constants"
	"github.com/hello-xone/xone-explorer-sub000/pkg/explorer"
)

// pageOptions holds the flags of the page command.
type pageOptions struct {
	query  []string
	pages  int
	resume string
	page   int
}

// NewPageCommand creates the page command.
func NewPageCommand() *cobra.Command {
	opts := &pageOptions{}

	cmd := &cobra.Command{
		Use:   "page RESOURCE [PARAM=VALUE...]",
		Short: "Walk the pages of a paginated resource",
		Long: `Fetch one or more consecutive pages of a paginated resource.

When more pages remain, the command prints the --page and --resume flags
that continue the walk from the following page.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPage(cmd, args, opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.query, "query", "q", nil, "query filter as KEY=VALUE (repeatable)")
	cmd.Flags().IntVarP(&opts.pages, "pages", "n", 1, "number of pages to fetch")
	cmd.Flags().StringVar(&opts.resume, "resume", "", "cursor token of the starting page")
	cmd.Flags().IntVar(&opts.page, "page", 1, "page number of the resume token")

	return cmd
}

func runPage(cmd *cobra.Command, args []string, opts *pageOptions) error {
	if opts.pages < 1 {
		return ErrInvalidPageCount
	}

	pathParams, err := parseParams(args[1:])
	if err != nil {
		return err
	}

	query, err := parseQuery(opts.query)
	if err != nil {
		return err
	}

	client, err := newClient(cmd.Context())
	if err != nil {
		return err
	}

	defer func() { _ = client.Close() }()

	session, err := openSession(client, args[0], pathParams, query, opts.resume, opts.page)
	if err != nil {
		return err
	}

	defer session.Dispose()

	return walkPages(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), session, opts.pages)
}

func openSession(client explorer.Client, name string, pathParams map[string]string, query map[string][]string, token string, page int) (*explorer.PaginationSession, error) {
	session, err := client.ResumePagination(name, pathParams, query, token, page)
	if err != nil {
		if errors.Is(err, explorer.ErrNotPaginated) {
			return nil, fmt.Errorf("%w, use 'xexplorer get %s'", err, name)
		}

		return nil, err
	}

	return session, nil
}

func walkPages(ctx context.Context, out, status io.Writer, session *explorer.PaginationSession, pages int) error {
	format := viper.GetString("output")

	result, err := session.Load(ctx)

	for i := 0; ; i++ {
		if err != nil {
			return fmt.Errorf("failed to fetch page %d of %s: %w", session.State().Page, session.Resource(), err)
		}

		err = renderPage(out, format, result)
		if err != nil {
			return err
		}

		if i+1 >= pages || !result.HasNextPage {
			break
		}

		result, err = session.Next(ctx)
	}

	if token := session.NextCursorToken(); token != "" {
		_, _ = fmt.Fprintf(status, "More pages available. Continue with --page %d --resume '%s'\n",
			result.Page+1, token)
	}

	return nil
}

func renderPage(out io.Writer, format string, result *explorer.PageResult) error {
	items, err := listItems(result.Data)
	if err != nil {
		return err
	}

	if format == constants.FormatTable || format == "" {
		_, _ = fmt.Fprintf(out, "Page %d\n", result.Page)
	}

	return renderItems(out, format, items)
}
