package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"mercator-hq/callisto/pkg/audit"
	"mercator-hq/callisto/pkg/audit/storage"
	"mercator-hq/callisto/pkg/cli"
	"mercator-hq/callisto/pkg/config"
)

var auditFlags struct {
	backend   string
	timeRange string
	ruleSet   string
	rule      string
	outcome   string
	limit     int
	offset    int
	format    string
	output    string
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit database",
	Long: `Query and analyze recorded rule evaluations.

The audit command provides access to the audit database for querying,
exporting, and summarizing evaluation records.

Subcommands:
  query   - Query audit records with filters
  report  - Generate a summary report

Examples:
  # Query a time range
  callisto audit query --time-range "2026-08-01T00:00:00Z/2026-08-02T00:00:00Z"

  # Filter by deciding rule set and outcome
  callisto audit query --rule-set access-control --outcome deny

  # Export to JSON file
  callisto audit query --format json --output audit.json`,
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query audit records",
	Long: `Query audit records with various filters.

Time Range Format:
  RFC3339 interval format: "start/end"
  Example: "2026-08-01T00:00:00Z/2026-08-02T00:00:00Z"`,
	RunE: queryAudit,
}

var auditReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate an audit report",
	Long:  `Generate an audit report with outcome and rule set statistics.`,
	RunE:  reportAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditQueryCmd, auditReportCmd)

	auditQueryCmd.Flags().StringVar(&auditFlags.backend, "backend", "", "backend: sqlite, memory (uses config if not specified)")
	auditQueryCmd.Flags().StringVar(&auditFlags.timeRange, "time-range", "", "time range (RFC3339 interval: start/end)")
	auditQueryCmd.Flags().StringVar(&auditFlags.ruleSet, "rule-set", "", "filter by deciding rule set")
	auditQueryCmd.Flags().StringVar(&auditFlags.rule, "rule", "", "filter by deciding rule")
	auditQueryCmd.Flags().StringVar(&auditFlags.outcome, "outcome", "", "filter by outcome (allow, deny, error)")
	auditQueryCmd.Flags().IntVar(&auditFlags.limit, "limit", 100, "max results")
	auditQueryCmd.Flags().IntVar(&auditFlags.offset, "offset", 0, "pagination offset")
	auditQueryCmd.Flags().StringVar(&auditFlags.format, "format", "text", "output format: text, json, csv")
	auditQueryCmd.Flags().StringVarP(&auditFlags.output, "output", "o", "", "output file (default: stdout)")

	auditReportCmd.Flags().StringVar(&auditFlags.backend, "backend", "", "backend: sqlite, memory")
	auditReportCmd.Flags().StringVar(&auditFlags.timeRange, "time-range", "", "time range (RFC3339 interval)")
}

// openAuditStorage creates the storage backend from the flag or config.
func openAuditStorage() (audit.Storage, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	backendType := auditFlags.backend
	if backendType == "" {
		backendType = cfg.Audit.Backend
	}

	switch backendType {
	case "sqlite":
		return storage.NewSQLite(&storage.SQLiteConfig{
			Path:         cfg.Audit.SQLite.Path,
			MaxOpenConns: cfg.Audit.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.Audit.SQLite.MaxIdleConns,
			WALMode:      cfg.Audit.SQLite.WALMode,
			BusyTimeout:  cfg.Audit.SQLite.BusyTimeout,
		})
	case "memory":
		return storage.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported backend: %s (supported: sqlite, memory)", backendType)
	}
}

// buildAuditQuery translates the flags into a storage query.
func buildAuditQuery(withPagination bool) (*audit.Query, error) {
	query := &audit.Query{
		RuleSet: auditFlags.ruleSet,
		Rule:    auditFlags.rule,
		Outcome: audit.Outcome(auditFlags.outcome),
	}
	if withPagination {
		query.Limit = auditFlags.limit
		query.Offset = auditFlags.offset
	}

	if auditFlags.timeRange != "" {
		parts := strings.Split(auditFlags.timeRange, "/")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid time range format (expected: start/end)")
		}
		startTime, err := time.Parse(time.RFC3339, parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid start time: %w", err)
		}
		query.StartTime = &startTime

		endTime, err := time.Parse(time.RFC3339, parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid end time: %w", err)
		}
		query.EndTime = &endTime
	}
	return query, nil
}

func queryAudit(cmd *cobra.Command, args []string) error {
	store, err := openAuditStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	query, err := buildAuditQuery(true)
	if err != nil {
		return err
	}

	records, err := store.Query(cmd.Context(), query)
	if err != nil {
		return cli.NewCommandError("audit", fmt.Errorf("query failed: %w", err))
	}

	output := os.Stdout
	if auditFlags.output != "" {
		output, err = os.Create(auditFlags.output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	}

	switch auditFlags.format {
	case "json":
		return outputAuditJSON(output, records)
	case "csv":
		formatter := cli.NewFormatter(cli.FormatCSV)
		return formatter.FormatTo(output, auditRecordRows(records))
	default:
		return outputAuditText(output, records, query)
	}
}

// auditRecordRows renders audit records as CSV rows.
type auditRecordRows []*audit.Record

func (auditRecordRows) CSVHeader() []string {
	return []string{"id", "time", "outcome", "rule_set", "rule", "reason", "tags", "duration"}
}

func (rows auditRecordRows) CSVRows() [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.ID,
			r.Time.Format(time.RFC3339Nano),
			string(r.Outcome),
			r.RuleSet,
			r.Rule,
			r.Reason,
			strings.Join(r.Tags, ";"),
			r.Duration.String(),
		})
	}
	return out
}

func outputAuditText(output *os.File, records []*audit.Record, query *audit.Query) error {
	if query.StartTime != nil && query.EndTime != nil {
		fmt.Fprintf(output, "Time range: %s to %s\n",
			query.StartTime.Format(time.RFC3339),
			query.EndTime.Format(time.RFC3339))
	}
	fmt.Fprintf(output, "Total records: %d\n", len(records))
	fmt.Fprintln(output)

	if len(records) == 0 {
		fmt.Fprintln(output, "No records found.")
		return nil
	}

	for i, record := range records {
		if i > 0 {
			fmt.Fprintln(output)
		}

		fmt.Fprintf(output, "Record ID: %s\n", record.ID)
		fmt.Fprintf(output, "Timestamp: %s\n", record.Time.Format(time.RFC3339))
		fmt.Fprintf(output, "Outcome: %s\n", record.Outcome)
		if record.RuleSet != "" {
			fmt.Fprintf(output, "Rule: %s/%s\n", record.RuleSet, record.Rule)
		}
		if record.Expression != "" {
			fmt.Fprintf(output, "Expression: %s\n", record.Expression)
		}
		if record.Reason != "" {
			fmt.Fprintf(output, "Reason: %s\n", record.Reason)
		}
		if len(record.Tags) > 0 {
			fmt.Fprintf(output, "Tags: %s\n", strings.Join(record.Tags, ", "))
		}
		if record.Error != "" {
			fmt.Fprintf(output, "Error: %s\n", record.Error)
		}
		fmt.Fprintf(output, "Duration: %s\n", record.Duration)

		// Show limited output for large result sets
		if i >= 9 && len(records) > 10 {
			fmt.Fprintln(output)
			fmt.Fprintf(output, "... and %d more records\n", len(records)-10)
			fmt.Fprintf(output, "Use --limit and --offset for pagination.\n")
			break
		}
	}
	return nil
}

func outputAuditJSON(output *os.File, records []*audit.Record) error {
	encoder := json.NewEncoder(output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(map[string]any{
		"total_records": len(records),
		"records":       records,
	})
}

func reportAudit(cmd *cobra.Command, args []string) error {
	store, err := openAuditStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	query, err := buildAuditQuery(false)
	if err != nil {
		return err
	}

	records, err := store.Query(cmd.Context(), query)
	if err != nil {
		return cli.NewCommandError("audit", fmt.Errorf("query failed: %w", err))
	}

	output := os.Stdout
	fmt.Fprintln(output, "Audit Report")
	fmt.Fprintln(output, "============")
	if query.StartTime != nil && query.EndTime != nil {
		fmt.Fprintf(output, "Time Range: %s to %s\n",
			query.StartTime.Format("2006-01-02"),
			query.EndTime.Format("2006-01-02"))
	}
	fmt.Fprintf(output, "Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintln(output)

	if len(records) == 0 {
		fmt.Fprintln(output, "No records found.")
		return nil
	}

	outcomeCounts := make(map[audit.Outcome]int)
	setCounts := make(map[string]int)
	var totalDuration time.Duration
	for _, record := range records {
		outcomeCounts[record.Outcome]++
		if record.RuleSet != "" {
			setCounts[record.RuleSet]++
		}
		totalDuration += record.Duration
	}

	fmt.Fprintln(output, "Summary:")
	fmt.Fprintln(output, "--------")
	fmt.Fprintf(output, "Total Evaluations: %d\n", len(records))
	fmt.Fprintf(output, "Mean Duration: %s\n", (totalDuration / time.Duration(len(records))).Round(time.Microsecond))
	fmt.Fprintln(output)

	fmt.Fprintln(output, "By Outcome:")
	for _, outcome := range []audit.Outcome{audit.OutcomeAllow, audit.OutcomeDeny, audit.OutcomeError} {
		count := outcomeCounts[outcome]
		if count == 0 {
			continue
		}
		pct := float64(count) / float64(len(records)) * 100
		fmt.Fprintf(output, "  %s: %d (%.0f%%)\n", outcome, count, pct)
	}
	fmt.Fprintln(output)

	fmt.Fprintln(output, "By Deciding Rule Set:")
	for set, count := range setCounts {
		pct := float64(count) / float64(len(records)) * 100
		fmt.Fprintf(output, "  %s: %d (%.0f%%)\n", set, count, pct)
	}
	return nil
}
