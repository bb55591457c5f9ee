package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vipertrack/vipertrack/internal/presentation/formatter"
	"github.com/vipertrack/vipertrack/internal/store"
	"github.com/vipertrack/vipertrack/internal/util"
)

var (
	queryFrom   string
	queryTo     string
	queryLabel  string
	queryWindow string
	queryLimit  int
	queryOutput string

	queryCmd = &cobra.Command{
		Use:   "query",
		Short: "Query the recorded timeline",
		Long: `query reads the local timeline database and prints matching buckets.

Examples:
  vipertrack query --from 2024-03-01 --to 2024-03-02
  vipertrack query --label coding --output summary
  vipertrack query --window editor --limit 20 --output csv`,
		RunE: runQuery,
	}
)

func init() {
	queryCmd.Flags().StringVar(&queryFrom, "from", "",
		"Start of the query range (2006-01-02 or RFC3339)")
	queryCmd.Flags().StringVar(&queryTo, "to", "",
		"End of the query range, exclusive (2006-01-02 or RFC3339)")
	queryCmd.Flags().StringVar(&queryLabel, "label", "",
		"Only buckets where this label id was active")
	queryCmd.Flags().StringVar(&queryWindow, "window", "",
		"Only buckets whose dominant process or title contains this text")
	queryCmd.Flags().IntVar(&queryLimit, "limit", 0,
		"Limit result count (0 = unlimited)")
	queryCmd.Flags().StringVarP(&queryOutput, "output", "o", "table",
		"Output format (table, json, csv, summary)")

	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	filter := store.QueryFilter{
		Label:  queryLabel,
		Window: queryWindow,
		Limit:  queryLimit,
	}

	var err error
	if filter.From, err = parseQueryTime(queryFrom); err != nil {
		return fmt.Errorf("invalid --from: %w", err)
	}
	if filter.To, err = parseQueryTime(queryTo); err != nil {
		return fmt.Errorf("invalid --to: %w", err)
	}

	db, err := store.Open(expandPath(cfg.Timeline.DatabasePath))
	if err != nil {
		return fmt.Errorf("open timeline store: %w", err)
	}
	defer db.Close()

	records, err := db.Query(cmd.Context(), filter)
	if err != nil {
		return err
	}
	rows := formatter.RowsFromRecords(records)

	switch queryOutput {
	case "table":
		return formatter.NewTableFormatter().Format(rows)
	case "json":
		return formatter.NewJSONFormatter().Format(rows)
	case "csv":
		return formatter.NewCSVFormatter().Format(rows)
	case "summary":
		return formatter.NewSummaryFormatter().Format(rows)
	default:
		return fmt.Errorf("unknown output format %q (want table, json, csv or summary)", queryOutput)
	}
}

// parseQueryTime accepts a plain date or a full RFC3339 timestamp, both
// interpreted in the configured timezone.
func parseQueryTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	loc := util.GetTimeProvider().GetLocation()
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	return time.ParseInLocation(time.RFC3339, s, loc)
}
