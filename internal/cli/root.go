// Package cli implements the spacerestore command tree.
package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/spacerestore/internal/config"
	"github.com/ALT-F4-LLC/spacerestore/internal/db"
	"github.com/ALT-F4-LLC/spacerestore/internal/logging"
	"github.com/ALT-F4-LLC/spacerestore/internal/output"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

type contextKey string

const (
	dbKey     contextKey = "db"
	cfgKey    contextKey = "cfg"
	closerKey contextKey = "logCloser"
)

// ledgerAnnotation declares how a command uses the run ledger. Commands
// without it never open the database.
const (
	ledgerAnnotation = "ledger"
	ledgerCreate     = "create"
	ledgerExisting   = "existing"
)

// CmdError wraps an error with a machine-readable code. Data and Message,
// when set, carry a partial result that is still reported.
type CmdError struct {
	Err     error
	Code    output.ErrorCode
	Data    any
	Message string
}

func (e *CmdError) Error() string { return e.Err.Error() }

func (e *CmdError) Unwrap() error { return e.Err }

func cmdErr(err error, code output.ErrorCode) *CmdError {
	return &CmdError{Err: err, Code: code}
}

var rootCmd = &cobra.Command{
	Use:     "spacerestore",
	Short:   "Restore a content space from a backup",
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Resolve()
		if err != nil {
			return cmdErr(err, output.ErrValidation)
		}
		applyPersistentFlags(cmd, cfg)

		verbose, _ := cmd.Flags().GetBool("verbose")
		closer, err := logging.Configure(logging.Options{
			Level:   cfg.LogLevel,
			Verbose: verbose,
			File:    cfg.LogFile,
		})
		if err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		ctx := context.WithValue(cmd.Context(), cfgKey, cfg)
		ctx = context.WithValue(ctx, closerKey, closer)

		switch cmd.Annotations[ledgerAnnotation] {
		case ledgerExisting:
			if _, err := os.Stat(cfg.DBPath()); errors.Is(err, os.ErrNotExist) {
				return cmdErr(
					fmt.Errorf("no run ledger at %s, run 'spacerestore restore' first", cfg.DBPath()),
					output.ErrNotFound,
				)
			}
			fallthrough
		case ledgerCreate:
			conn, err := db.OpenLedger(cfg.StateDir)
			if err != nil {
				return fmt.Errorf("failed to open run ledger: %w", err)
			}
			ctx = context.WithValue(ctx, dbKey, conn)
		}

		cmd.SetContext(ctx)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeResources(cmd.Context())
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.Bool("json", false, "Output in JSON format")
	flags.BoolP("quiet", "q", false, "Suppress non-essential output")
	flags.BoolP("verbose", "v", false, "Log requests and per-resource progress")
	flags.String("log-level", "", "Log level (trace, debug, info, warn, error)")
	flags.String("log-file", "", "Append JSON logs to this file")
	flags.String("state-dir", "", "Directory holding the run ledger")
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}

// applyPersistentFlags lets explicit flags win over file and environment
// settings.
func applyPersistentFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-file") {
		cfg.LogFile, _ = flags.GetString("log-file")
	}
	if flags.Changed("state-dir") {
		cfg.StateDir, _ = flags.GetString("state-dir")
	}
}

func closeResources(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	var errs []error
	if conn, ok := ctx.Value(dbKey).(*sql.DB); ok && conn != nil {
		errs = append(errs, conn.Close())
	}
	if closer, ok := ctx.Value(closerKey).(io.Closer); ok && closer != nil {
		errs = append(errs, closer.Close())
	}
	return errors.Join(errs...)
}

func getWriter(cmd *cobra.Command) *output.Writer {
	jsonMode, _ := cmd.Flags().GetBool("json")
	quietMode, _ := cmd.Flags().GetBool("quiet")
	return output.New(jsonMode, quietMode)
}

func getCfg(cmd *cobra.Command) *config.Config {
	cfg, _ := cmd.Context().Value(cfgKey).(*config.Config)
	return cfg
}

func getDB(cmd *cobra.Command) *sql.DB {
	conn, _ := cmd.Context().Value(dbKey).(*sql.DB)
	return conn
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	cmd, err := rootCmd.ExecuteC()
	if err == nil {
		return output.ExitSuccess
	}

	// PersistentPostRunE does not run after a failed RunE.
	if cmd != nil {
		_ = closeResources(cmd.Context())
	}

	jsonMode, _ := rootCmd.PersistentFlags().GetBool("json")
	quietMode, _ := rootCmd.PersistentFlags().GetBool("quiet")
	w := output.New(jsonMode, quietMode)

	var ce *CmdError
	if errors.As(err, &ce) {
		if ce.Data != nil || ce.Message != "" {
			return w.Partial(ce.Data, ce.Message, ce.Err, ce.Code)
		}
		return w.Error(ce.Err, ce.Code)
	}
	return w.Error(err, output.ErrGeneral)
}
