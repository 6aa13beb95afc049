package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/sanctum/internal/contract"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Errors []contract.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <contracts-dir>",
		Short: "Validate guard contracts",
		Long: `Validate CUE guard contracts without binding them to a realm.

Performs syntax checking, schema validation, and extends-chain
resolution across the whole contract set. Errors are collected
per guard rather than stopping at the first failure.

Exit codes:
  0 - All contracts valid
  1 - One or more contracts invalid
  2 - Command error (directory not found, no CUE files, etc.)

Examples:
  sanctum validate ./contracts
  sanctum validate ./contracts --format json
  sanctum validate ./contracts --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, contractsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	// Path checks first so the error codes distinguish a missing
	// directory from a broken contract.
	info, err := os.Stat(contractsDir)
	if os.IsNotExist(err) {
		return outputValidateError(formatter, ErrCodeNotFound, fmt.Sprintf("contracts directory not found: %s", contractsDir))
	}
	if err != nil {
		return outputValidateError(formatter, ErrCodeNotFound, fmt.Sprintf("error accessing contracts directory: %v", err))
	}
	if !info.IsDir() {
		return outputValidateError(formatter, ErrCodeNotFound, fmt.Sprintf("not a directory: %s", contractsDir))
	}

	files, err := contract.FindCUEFiles(contractsDir)
	if err != nil {
		return outputValidateError(formatter, ErrCodeScan, fmt.Sprintf("error scanning directory: %v", err))
	}
	if len(files) == 0 {
		return outputValidateError(formatter, ErrCodeNoFiles, fmt.Sprintf("no CUE files found in %s", contractsDir))
	}

	value, fileCount, err := contract.BuildDir(contractsDir)
	if err != nil {
		return outputValidateError(formatter, ErrCodeLoad, err.Error())
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", fileCount, contractsDir)

	validationErrors := validateAll(value, formatter)
	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors)
	}

	return outputValidateSuccess(formatter)
}

// validateAll validates every guard in the built CUE value.
// Compile errors are collected per guard; schema and extends checks run
// on the whole set once every guard compiles.
func validateAll(value cue.Value, formatter *OutputFormatter) []contract.ValidationError {
	var allErrors []contract.ValidationError

	guardsVal := value.LookupPath(cue.ParsePath("guard"))
	if !guardsVal.Exists() {
		return []contract.ValidationError{{
			Field:   "guard",
			Message: "no guard block found",
			Code:    ErrCodeGeneric,
		}}
	}

	iter, err := guardsVal.Fields()
	if err != nil {
		return []contract.ValidationError{{
			Field:   "guard",
			Message: fmt.Sprintf("iterating guards: %v", err),
			Code:    ErrCodeGeneric,
		}}
	}

	guardCount := 0
	for iter.Next() {
		guardName := iter.Label()
		guardCount++
		formatter.VerboseLog("Validating guard: %s", guardName)

		if _, compileErr := contract.CompileContract(iter.Value()); compileErr != nil {
			// Convert compile error to validation error
			var cErr *contract.CompileError
			if errors.As(compileErr, &cErr) {
				allErrors = append(allErrors, contract.ValidationError{
					Field:   fmt.Sprintf("guard.%s.%s", guardName, cErr.Field),
					Message: cErr.Message,
					Code:    mapCompileErrorToCode(cErr.Field),
					Line:    lineFromPos(cErr.Pos),
				})
			} else {
				allErrors = append(allErrors, contract.ValidationError{
					Field:   "guard." + guardName,
					Message: compileErr.Error(),
					Code:    ErrCodeGeneric,
				})
			}
		}
	}

	if guardCount == 0 {
		return append(allErrors, contract.ValidationError{
			Field:   "guard",
			Message: "guard block is empty",
			Code:    ErrCodeGeneric,
		})
	}

	// Schema checks and extends resolution need the full set, which only
	// exists once every guard compiled.
	if len(allErrors) == 0 {
		set, err := contract.FromValue(value)
		if err != nil {
			return append(allErrors, contract.ValidationError{
				Field:   "guard",
				Message: err.Error(),
				Code:    ErrCodeGeneric,
			})
		}
		allErrors = append(allErrors, contract.Validate(set)...)
	}

	return allErrors
}

// mapCompileErrorToCode maps a compile error field to a validation error code.
func mapCompileErrorToCode(field string) string {
	switch field {
	case "attrs":
		return contract.ErrNoAttrs
	case "defaults":
		return contract.ErrFloatDefault
	default:
		return ErrCodeGeneric
	}
}

// lineFromPos extracts the line number from a CUE token position.
func lineFromPos(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter) error {
	if formatter.Format == "json" {
		result := ValidationResult{Valid: true}
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, "✓ All contracts valid")
	return nil
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []contract.ValidationError) error {
	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:  false,
			Errors: errs,
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
