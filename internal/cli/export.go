package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tatradocs/contractmeta/internal/metadata"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the metadata artifact as an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		objects, _, err := newObjectStore(ctx)
		if err != nil {
			return err
		}

		store := metadata.NewStore(cfg.ArtifactName)
		if err := store.Load(ctx, objects); err != nil {
			return err
		}

		if store.Len() == 0 {
			fmt.Println("No processed documents yet, nothing to export.")
			return nil
		}

		if err := store.ExportXLSX(exportOutput); err != nil {
			return err
		}
		fmt.Printf("Exported %d record(s) to %s.\n", store.Len(), exportOutput)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "documents_metadata.xlsx", "output workbook path")
}
