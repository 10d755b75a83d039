package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/hello-xone/xone-explorer-sub000/internal/constants"
	"github.com/hello-xone/xone-explorer-sub000/pkg/explorer"
)

const browseHelp = "[n]ext  [p]rev  [r]eset  [f]ilter KEY=VALUE...  [q]uit"

// NewBrowseCommand creates the interactive browse command.
func NewBrowseCommand() *cobra.Command {
	var query []string

	cmd := &cobra.Command{
		Use:   "browse RESOURCE [PARAM=VALUE...]",
		Short: "Interactively page through a resource",
		Long: `Open a pagination session and move through it from the keyboard.

Commands:
  n          next page
  p          previous page
  r          back to page 1, dropping cached pages
  f K=V...   replace the filters and start over
  q          quit`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return constants.ErrNotATerminal
			}

			pathParams, err := parseParams(args[1:])
			if err != nil {
				return err
			}

			filters, err := parseQuery(query)
			if err != nil {
				return err
			}

			client, err := newClient(cmd.Context())
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			session, err := openSession(client, args[0], pathParams, filters, "", 1)
			if err != nil {
				return err
			}

			defer session.Dispose()

			return browse(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), session)
		},
	}

	cmd.Flags().StringArrayVarP(&query, "query", "q", nil, "query filter as KEY=VALUE (repeatable)")

	return cmd
}

// browse reads commands from in until quit or EOF.
func browse(ctx context.Context, in io.Reader, out io.Writer, session *explorer.PaginationSession) error {
	format := viper.GetString("output")

	result, err := session.Load(ctx)
	showBrowseResult(out, format, session, result, err)

	scanner := bufio.NewScanner(in)

	for {
		_, _ = fmt.Fprintf(out, "%s\n> ", browseHelp)

		if !scanner.Scan() {
			_, _ = fmt.Fprintln(out)

			return scanner.Err()
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "n", "next":
			if !session.State().HasNextPage {
				_, _ = fmt.Fprintln(out, "Already on the last page")

				continue
			}

			result, err = session.Next(ctx)
		case "p", "prev":
			if !session.State().HasPrevPage {
				_, _ = fmt.Fprintln(out, "Already on the first page")

				continue
			}

			result, err = session.Prev(ctx)
		case "r", "reset":
			result, err = session.Reset(ctx)
		case "f", "filter":
			filters, parseErr := parseQuery(fields[1:])
			if parseErr != nil {
				_, _ = fmt.Fprintln(out, "Error:", parseErr)

				continue
			}

			result, err = session.SetQuery(ctx, filters)
		case "q", "quit", "exit":
			return nil
		default:
			_, _ = fmt.Fprintf(out, "Error: %v: %s\n", ErrUnknownCommand, fields[0])

			continue
		}

		showBrowseResult(out, format, session, result, err)
	}
}

func showBrowseResult(out io.Writer, format string, session *explorer.PaginationSession, result *explorer.PageResult, err error) {
	if err != nil {
		_, _ = fmt.Fprintf(out, "Error on page %d: %v\n", session.State().Page, err)

		return
	}

	err = renderPage(out, format, result)
	if err != nil {
		_, _ = fmt.Fprintln(out, "Error:", err)

		return
	}

	if result.FromCache {
		_, _ = fmt.Fprintln(out, "(cached)")
	}
}
