package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tatradocs/contractmeta/internal/metadata"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List documents already present in the metadata artifact",
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

		records := store.Records()
		if len(records) == 0 {
			fmt.Println("No processed documents yet.")
			return nil
		}

		for _, record := range records {
			fmt.Printf("%s\t%s\n", record.FileName, record.ContractingParty)
		}
		fmt.Printf("\n%d document(s) processed.\n", len(records))
		return nil
	},
}
