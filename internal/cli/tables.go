package cli

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/datasynth/api/internal/database"
)

var tablesLimit int

var tablesCmd = &cobra.Command{
	Use:   "tables [table]",
	Short: "List generated tables or show rows of one",
	Long: `Without arguments, tables lists every synthetic_ table in the configured
database. With a table name it prints its columns and the first rows.

Examples:
  datasynth tables
  datasynth tables synthetic_orders --limit 20`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTables,
}

func init() {
	tablesCmd.Flags().IntVarP(&tablesLimit, "limit", "n", 10, "rows to show (max 1000)")
}

func runTables(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer store.Close()

	if len(args) == 0 {
		tables, err := store.ListTables(ctx)
		if err != nil {
			return err
		}
		if len(tables) == 0 {
			pterm.Info.Println("No generated tables")
			return nil
		}
		pterm.DefaultSection.Printf("%d tables (%s)\n", len(tables), store.Driver())
		for _, t := range tables {
			pterm.Println("  " + t)
		}
		return nil
	}

	table := args[0]
	cols, err := store.TableColumns(ctx, table)
	if err != nil {
		return err
	}
	rows, err := store.TableRows(ctx, table, tablesLimit)
	if err != nil {
		return err
	}

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Name
	}
	data := pterm.TableData{header}
	for _, row := range rows {
		line := make([]string, len(cols))
		for i, c := range cols {
			line[i] = fmt.Sprint(row[c.Name])
		}
		data = append(data, line)
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
