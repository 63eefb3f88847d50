package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SafeerAbbas624/lead-management-system/internal/distribution"
)

var (
	distName    string
	distBatches []string
	distClients []int64
	distPrice   float64
	distBlend   bool
	distExport  string
)

var distributeCmd = &cobra.Command{
	Use:   "distribute",
	Short: "Allocate leads from completed batches to clients",
	Long:  "Samples a percentage of each selected batch, optionally blends the samples, filters leads already sold to any selected client, and records the allocation.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		selections := make([]distribution.BatchSelection, 0, len(distBatches))
		for _, sel := range distBatches {
			idStr, pctStr, ok := strings.Cut(sel, ":")
			if !ok {
				return eris.Errorf("invalid --batch value %q, want id:percentage", sel)
			}
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				return eris.Wrapf(err, "invalid batch id %q", idStr)
			}
			pct, err := strconv.ParseFloat(pctStr, 64)
			if err != nil {
				return eris.Wrapf(err, "invalid percentage %q", pctStr)
			}
			selections = append(selections, distribution.BatchSelection{BatchID: id, Percentage: pct})
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		dist, err := env.Allocator.Distribute(ctx, distribution.Request{
			Name:       distName,
			Batches:    selections,
			ClientIDs:  distClients,
			SheetPrice: distPrice,
			Blend:      distBlend,
		})
		if err != nil {
			return err
		}

		zap.S().Infow("distribution complete",
			"distribution_id", dist.ID,
			"leads_allocated", dist.LeadsAllocated,
			"price_per_lead", dist.PricePerLead,
			"filename", dist.ExportedFilename,
		)

		if distExport != "" {
			f, err := os.Create(distExport)
			if err != nil {
				return eris.Wrap(err, "create export file")
			}
			defer f.Close()
			if _, err := env.Allocator.ExportCSV(ctx, dist.ID, f); err != nil {
				return err
			}
			zap.S().Infow("export written", "path", distExport)
		}
		return nil
	},
}

func init() {
	distributeCmd.Flags().StringVar(&distName, "name", "", "distribution name (default timestamped)")
	distributeCmd.Flags().StringSliceVar(&distBatches, "batch", nil, "batch selection as id:percentage (repeatable, required)")
	distributeCmd.Flags().Int64SliceVar(&distClients, "client", nil, "client id (repeatable, required)")
	distributeCmd.Flags().Float64Var(&distPrice, "price", 0, "selling price for the whole sheet")
	distributeCmd.Flags().BoolVar(&distBlend, "blend", false, "blend and shuffle leads across batches")
	distributeCmd.Flags().StringVar(&distExport, "export", "", "write the distribution CSV to this path")
	_ = distributeCmd.MarkFlagRequired("batch")
	_ = distributeCmd.MarkFlagRequired("client")
	rootCmd.AddCommand(distributeCmd)
}
