package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SafeerAbbas624/lead-management-system/internal/session"
)

var (
	processFile     string
	processSupplier int64
	processCost     float64
	processCostMode string
	processTags     []string
	processMapping  []string
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run a lead sheet through the full processing pipeline",
	Long:  "Parses a CSV or XLSX file, runs every processing step in order (mapping, cleaning, deduplication, DNC check), and uploads the clean leads as a batch.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if processSupplier == 0 {
			return eris.New("supplier id is required (--supplier)")
		}

		data, err := os.ReadFile(processFile)
		if err != nil {
			return eris.Wrap(err, "read file")
		}

		manual := map[string]string{}
		for _, pair := range processMapping {
			field, header, ok := strings.Cut(pair, "=")
			if !ok {
				return eris.Errorf("invalid --map value %q, want field=header", pair)
			}
			manual[field] = header
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		s, err := env.Pipeline.Start(ctx, filepath.Base(processFile), data)
		if err != nil {
			return eris.Wrap(err, "start session")
		}
		zap.S().Infow("session started", "session_id", s.ID, "rows", s.RowCount)

		params := session.StepParams{
			ManualMapping: manual,
			Tags:          processTags,
			SupplierID:    processSupplier,
			CostAmount:    processCost,
			CostMode:      processCostMode,
		}
		for _, step := range session.Steps() {
			r, err := env.Pipeline.ExecuteStep(ctx, s.ID, step, params)
			if err != nil {
				return err
			}
			if r.Status == session.StatusError {
				return eris.Errorf("step %s failed: %s", step, r.Message)
			}
			zap.S().Infow("step completed", "step", step, "message", r.Message)
		}

		s, err = env.Pipeline.Get(s.ID)
		if err != nil {
			return err
		}
		zap.S().Infow("processing complete", "batch_id", s.BatchID, "total_rows", s.RowCount)
		return nil
	},
}

func init() {
	processCmd.Flags().StringVar(&processFile, "file", "", "path to CSV or XLSX file (required)")
	processCmd.Flags().Int64Var(&processSupplier, "supplier", 0, "supplier id (required)")
	processCmd.Flags().Float64Var(&processCost, "cost", 0, "buying cost")
	processCmd.Flags().StringVar(&processCostMode, "cost-mode", "total_sheet", "cost mode: total_sheet or per_lead")
	processCmd.Flags().StringSliceVar(&processTags, "tag", nil, "tag applied to every lead (repeatable)")
	processCmd.Flags().StringSliceVar(&processMapping, "map", nil, "manual field mapping as field=header (repeatable)")
	_ = processCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(processCmd)
}
