package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/sanctum/internal/audit"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Database string
}

// VerifyResult holds the outcome of a chain verification.
type VerifyResult struct {
	Intact   bool   `json:"intact"`
	Verified int    `json:"verified"`
	Head     string `json:"head,omitempty"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify audit trail integrity",
		Long: `Recompute the audit log hash chain from the first event.

Each stored event carries a hash over its payload and the previous
event's hash. Verification detects rows that were edited, deleted,
or reordered after recording.

Exit codes:
  0 - Chain intact
  1 - Chain broken
  2 - Command error (database not found, etc.)

Examples:
  sanctum verify --db ./sanctum.db
  sanctum verify --db ./sanctum.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite audit database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runVerify(opts *VerifyOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		msg := fmt.Sprintf("audit database not found: %s", opts.Database)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	log, err := audit.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open audit database", err)
	}
	defer log.Close()

	verified, err := log.Verify(ctx)
	if err != nil {
		result := VerifyResult{Intact: false, Verified: verified}
		if formatter.Format == "json" {
			_ = formatter.Error(ErrCodeChain, err.Error(), result)
		} else {
			fmt.Fprintf(formatter.Writer, "✗ Chain broken after %d event(s)\n", verified)
			fmt.Fprintf(formatter.Writer, "  %v\n", err)
		}
		return WrapExitError(ExitFailure, "audit chain verification failed", err)
	}

	result := VerifyResult{Intact: true, Verified: verified, Head: log.Head()}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Chain intact (%d events)\n", verified)
	if opts.Verbose && result.Head != "" {
		fmt.Fprintf(formatter.Writer, "  Head: %s\n", result.Head)
	}
	return nil
}
