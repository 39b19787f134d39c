package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	humanize "github.com/dustin/go-humanize"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/spacerestore/internal/api"
	"github.com/ALT-F4-LLC/spacerestore/internal/db"
	"github.com/ALT-F4-LLC/spacerestore/internal/output"
	"github.com/ALT-F4-LLC/spacerestore/internal/render"
)

type configInfo struct {
	ConfigFile        string  `json:"config_file"`
	ConfigFileLoaded  bool    `json:"config_file_loaded"`
	Token             string  `json:"token"`
	SpaceID           string  `json:"space_id"`
	Region            string  `json:"region"`
	BaseURL           string  `json:"base_url"`
	BackupPath        string  `json:"backup_path"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	MaxRetries        int     `json:"max_retries"`
	LogLevel          string  `json:"log_level"`
	LogFile           string  `json:"log_file,omitempty"`
	LedgerPath        string  `json:"ledger_path"`
	LedgerExists      bool    `json:"ledger_exists"`
	LedgerSizeBytes   int64   `json:"ledger_size_bytes"`
	SchemaVersion     int     `json:"schema_version"`
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display resolved spacerestore configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		cfg := getCfg(cmd)

		info := configInfo{
			ConfigFile:        cfg.FilePath,
			ConfigFileLoaded:  cfg.FileLoaded,
			Token:             cfg.MaskedToken(),
			SpaceID:           cfg.SpaceID,
			Region:            cfg.Region,
			BaseURL:           cfg.BaseURL,
			BackupPath:        cfg.BackupPath,
			RequestsPerSecond: cfg.RequestsPerSecond,
			MaxRetries:        cfg.MaxRetries,
			LogLevel:          cfg.LogLevel,
			LogFile:           cfg.LogFile,
			LedgerPath:        cfg.DBPath(),
		}
		if info.BaseURL == "" {
			base, err := api.BaseURLForRegion(cfg.Region)
			if err != nil {
				return cmdErr(err, output.ErrValidation)
			}
			info.BaseURL = base
		}

		stat, err := os.Stat(cfg.DBPath())
		switch {
		case errors.Is(err, os.ErrNotExist):
			w.Warn("No run ledger yet. It is created by the first restore.")
		case err != nil:
			return cmdErr(fmt.Errorf("reading run ledger: %w", err), output.ErrGeneral)
		default:
			info.LedgerExists = true
			info.LedgerSizeBytes = stat.Size()

			conn, err := db.Open(cfg.DBPath())
			if err != nil {
				return cmdErr(fmt.Errorf("opening run ledger: %w", err), output.ErrGeneral)
			}
			defer conn.Close()

			if info.SchemaVersion, err = db.SchemaVersion(conn); err != nil {
				return cmdErr(fmt.Errorf("reading schema version: %w", err), output.ErrGeneral)
			}
		}

		w.Success(info, formatConfigHuman(info))
		return nil
	},
}

func notSet(val string) string {
	if val == "" {
		return "(not set)"
	}
	return val
}

func configRows(info configInfo) [][2]string {
	file := info.ConfigFile
	if !info.ConfigFileLoaded {
		file += " (not found)"
	}
	ledger := info.LedgerPath
	if !info.LedgerExists {
		ledger += " (not created)"
	}

	rows := [][2]string{
		{"Config file:", file},
		{"Token:", notSet(info.Token)},
		{"Space id:", notSet(info.SpaceID)},
		{"Region:", info.Region},
		{"API:", info.BaseURL},
		{"Backup path:", notSet(info.BackupPath)},
		{"Rate limit:", fmt.Sprintf("%g req/s", info.RequestsPerSecond)},
		{"Max retries:", fmt.Sprint(info.MaxRetries)},
		{"Log level:", info.LogLevel},
		{"Log file:", notSet(info.LogFile)},
		{"Run ledger:", ledger},
	}
	if info.LedgerExists {
		rows = append(rows,
			[2]string{"Ledger size:", humanize.Bytes(uint64(info.LedgerSizeBytes))},
			[2]string{"Schema version:", fmt.Sprint(info.SchemaVersion)},
		)
	}
	return rows
}

func formatConfigHuman(info configInfo) string {
	rows := configRows(info)

	if !render.ColorsEnabled() {
		lines := make([]string, len(rows))
		for i, r := range rows {
			lines[i] = fmt.Sprintf("%-16s %s", r[0], r[1])
		}
		return strings.Join(lines, "\n")
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(16)
	valStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))

	lines := []string{headerStyle.Render("spacerestore configuration"), ""}
	for _, r := range rows {
		lines = append(lines, "  "+keyStyle.Render(r[0])+" "+valStyle.Render(r[1]))
	}
	return strings.Join(lines, "\n")
}

func init() {
	rootCmd.AddCommand(configCmd)
}

