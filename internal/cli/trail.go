package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/sanctum"
	"github.com/roach88/sanctum/internal/audit"
)

// TrailOptions holds flags for the trail command.
type TrailOptions struct {
	*RootOptions
	Database string
	Type     string
	Attr     string
	Object   string
	Op       string
	Denied   bool
	Limit    int
}

// TrailEvent is the JSON shape of one audit event.
type TrailEvent struct {
	Seq      int64  `json:"seq"`
	At       string `json:"at"`
	Op       string `json:"op"`
	Type     string `json:"type"`
	Attr     string `json:"attr,omitempty"`
	Object   string `json:"object,omitempty"`
	Key      string `json:"key,omitempty"`
	Decision string `json:"decision"`
	Via      string `json:"via,omitempty"`
	Unit     string `json:"unit,omitempty"`
}

// TrailResult holds the complete trail output.
type TrailResult struct {
	Events []TrailEvent `json:"events"`
	Shown  int          `json:"shown"`
	Stored int          `json:"stored"`
}

// NewTrailCommand creates the trail command.
func NewTrailCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TrailOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trail",
		Short: "Query the audit trail",
		Long: `Query recorded access events from an audit database.

Every guarded attribute access lands in the audit log, including
denied and not-found attempts. Filters narrow by type, attribute,
object identity, operation, or decision.

Examples:
  sanctum trail --db ./sanctum.db
  sanctum trail --db ./sanctum.db --attr balance --object acct-1
  sanctum trail --db ./sanctum.db --denied
  sanctum trail --db ./sanctum.db --op set --limit 20 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrail(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite audit database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Type, "type", "", "filter by guarded type reference (exact)")
	cmd.Flags().StringVar(&opts.Attr, "attr", "", "filter by attribute name")
	cmd.Flags().StringVar(&opts.Object, "object", "", "filter by object identity")
	cmd.Flags().StringVar(&opts.Op, "op", "", "filter by operation (get, set, delete, ...)")
	cmd.Flags().BoolVar(&opts.Denied, "denied", false, "only denied accesses")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum events to show (0 for all)")

	return cmd
}

func runTrail(opts *TrailOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	// Open would create an empty database at a mistyped path; require
	// the file to exist first.
	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("audit database not found: %s", opts.Database))
	}

	log, err := audit.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open audit database", err)
	}
	defer log.Close()

	decision := ""
	if opts.Denied {
		decision = "denied"
	}

	events, err := log.Trail(ctx, audit.Filter{
		Type:     opts.Type,
		Attr:     opts.Attr,
		Object:   opts.Object,
		Op:       opts.Op,
		Decision: decision,
		Limit:    opts.Limit,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read audit trail", err)
	}

	stored, err := log.Len(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count audit events", err)
	}

	result := TrailResult{
		Events: make([]TrailEvent, 0, len(events)),
		Shown:  len(events),
		Stored: stored,
	}
	for _, ev := range events {
		result.Events = append(result.Events, TrailEvent{
			Seq:      ev.Seq,
			At:       ev.Time.UTC().Format(time.RFC3339Nano),
			Op:       ev.Op,
			Type:     ev.Type,
			Attr:     ev.Attr,
			Object:   ev.Object,
			Key:      ev.Key,
			Decision: ev.Decision,
			Via:      ev.Via,
			Unit:     ev.Unit,
		})
	}

	if opts.Format == "json" {
		return outputTrailJSON(cmd, result)
	}

	return outputTrailText(cmd, opts, result)
}

// outputTrailJSON outputs the trail result as JSON.
func outputTrailJSON(cmd *cobra.Command, result TrailResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputTrailText outputs the trail result as text.
func outputTrailText(cmd *cobra.Command, opts *TrailOptions, result TrailResult) error {
	w := cmd.OutOrStdout()

	if len(result.Events) == 0 {
		fmt.Fprintln(w, "No events match the filter.")
		return nil
	}

	fmt.Fprintf(w, "Audit Trail: %s\n", opts.Database)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Events ===")
	denied := 0
	for _, ev := range result.Events {
		formatTrailEvent(w, ev, opts.Verbose)
		if ev.Decision != sanctum.DecisionGranted {
			denied++
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Shown:   %d\n", result.Shown)
	fmt.Fprintf(w, "  Stored:  %d\n", result.Stored)
	fmt.Fprintf(w, "  Refused: %d\n", denied)

	return nil
}

// formatTrailEvent formats a single audit event for text output.
func formatTrailEvent(w interface{ Write([]byte) (int, error) }, ev TrailEvent, verbose bool) {
	subject := shortType(ev.Type)
	if ev.Attr != "" {
		subject += "." + ev.Attr
	}
	fmt.Fprintf(w, "  [%d] %s %s -> %s\n", ev.Seq, strings.ToUpper(ev.Op), subject, ev.Decision)

	if !verbose {
		return
	}
	fmt.Fprintf(w, "       Type: %s\n", ev.Type)
	if ev.Object != "" {
		fmt.Fprintf(w, "       Object: %s\n", ev.Object)
	}
	if ev.Via != "" {
		fmt.Fprintf(w, "       Via: %s\n", ev.Via)
	}
	if ev.Key != "" {
		fmt.Fprintf(w, "       Key: %s\n", ev.Key)
	}
	if ev.Unit != "" {
		fmt.Fprintf(w, "       Unit: %s\n", ev.Unit)
	}
}

// shortType trims the import path prefix from a type reference for
// display. "github.com/acme/bank/ledger.Account" becomes
// "ledger.Account".
func shortType(ref string) string {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}
