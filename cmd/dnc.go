package main

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SafeerAbbas624/lead-management-system/internal/dnc"
)

var (
	dncFile string
	dncList string
)

var dncCmd = &cobra.Command{
	Use:   "dnc",
	Short: "Manage do-not-contact lists",
}

var dncUploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Load emails and phone numbers from a file into a DNC list",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(dncFile)
		if err != nil {
			return eris.Wrap(err, "read file")
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := dnc.IngestFile(ctx, env.Store, dncList, filepath.Base(dncFile), data)
		if err != nil {
			return err
		}

		zap.S().Infow("dnc upload complete",
			"list_id", res.ListID,
			"emails", res.Emails,
			"phones", res.Phones,
			"skipped", res.Skipped,
			"inserted", res.Inserted,
		)
		return nil
	},
}

func init() {
	dncUploadCmd.Flags().StringVar(&dncFile, "file", "", "path to CSV file of emails and phones (required)")
	dncUploadCmd.Flags().StringVar(&dncList, "list", "", "DNC list name (default the shared upload list)")
	_ = dncUploadCmd.MarkFlagRequired("file")
	dncCmd.AddCommand(dncUploadCmd)
	rootCmd.AddCommand(dncCmd)
}
