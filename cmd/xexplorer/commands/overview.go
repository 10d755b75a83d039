package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/hello-xone/xone-explorer-sub000/internal/constants"
	"github.com/hello-xone/xone-explorer-sub000/pkg/explorer"
)

// overviewRows bounds the blocks and transactions listed by overview.
const overviewRows = 5

// Overview is the chain summary printed by the overview command.
type Overview struct {
	Stats        *explorer.HomeStats    `json:"stats"        yaml:"stats"`
	Blocks       []explorer.Block       `json:"blocks"       yaml:"blocks"`
	Transactions []explorer.Transaction `json:"transactions" yaml:"transactions"`
}

// NewOverviewCommand creates the overview command.
func NewOverviewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Show chain statistics with the latest blocks and transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd.Context())
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			overview, err := fetchOverview(cmd.Context(), client)
			if err != nil {
				return err
			}

			done, err := renderStructured(cmd.OutOrStdout(), viper.GetString("output"), overview)
			if done {
				return err
			}

			return displayOverview(cmd.OutOrStdout(), overview)
		},
	}
}

// fetchOverview loads the three home page queries concurrently.
func fetchOverview(ctx context.Context, client explorer.Client) (*Overview, error) {
	overview := &Overview{}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		stats, err := client.Stats(gctx)
		if err != nil {
			return fmt.Errorf("failed to fetch stats: %w", err)
		}

		overview.Stats = stats

		return nil
	})

	g.Go(func() error {
		pager, err := client.Blocks(nil)
		if err != nil {
			return err
		}

		defer pager.Dispose()

		page, err := pager.Load(gctx)
		if err != nil {
			return fmt.Errorf("failed to fetch blocks: %w", err)
		}

		overview.Blocks = firstN(page.Items, overviewRows)

		return nil
	})

	g.Go(func() error {
		pager, err := client.Transactions(nil)
		if err != nil {
			return err
		}

		defer pager.Dispose()

		page, err := pager.Load(gctx)
		if err != nil {
			return fmt.Errorf("failed to fetch transactions: %w", err)
		}

		overview.Transactions = firstN(page.Items, overviewRows)

		return nil
	})

	err := g.Wait()
	if err != nil {
		return nil, err
	}

	return overview, nil
}

func firstN[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}

	return items
}

func displayOverview(w io.Writer, overview *Overview) error {
	stats := overview.Stats

	price := constants.NotAvailable
	if stats.CoinPrice != nil {
		price = *stats.CoinPrice
	}

	change := constants.NotAvailable
	if stats.CoinPriceChangePercentage != nil {
		change = strconv.FormatFloat(*stats.CoinPriceChangePercentage, 'f', 2, 64) + "%"
	}

	summary := tablewriter.NewWriter(w)
	summary.Header("Property", "Value")
	_ = summary.Append("Total Blocks", stats.TotalBlocks)
	_ = summary.Append("Total Transactions", stats.TotalTransactions)
	_ = summary.Append("Total Addresses", stats.TotalAddresses)
	_ = summary.Append("Transactions Today", formatConfigValue(stats.TransactionsToday))
	_ = summary.Append("Average Block Time", strconv.FormatFloat(stats.AverageBlockTime/1000, 'f', 1, 64)+"s")
	_ = summary.Append("Coin Price", price)
	_ = summary.Append("Price Change", change)

	if err := summary.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	_, _ = fmt.Fprintln(w, "\nLatest blocks:")

	blocks := tablewriter.NewWriter(w)
	blocks.Header("Height", "Hash", "Txs", "Timestamp")

	for _, block := range overview.Blocks {
		_ = blocks.Append(strconv.FormatInt(block.Height, 10), truncateHash(block.Hash),
			strconv.FormatInt(block.TxCount, 10), block.Timestamp)
	}

	if err := blocks.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	_, _ = fmt.Fprintln(w, "\nLatest transactions:")

	txs := tablewriter.NewWriter(w)
	txs.Header("Hash", "From", "Value", "Status")

	for _, tx := range overview.Transactions {
		status := constants.NotAvailable
		if tx.Status != nil {
			status = *tx.Status
		}

		_ = txs.Append(truncateHash(tx.Hash), truncateHash(tx.From.Hash), tx.Value, status)
	}

	if err := txs.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}
