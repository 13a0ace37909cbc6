package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/tatradocs/contractmeta/internal/batch"
	"github.com/tatradocs/contractmeta/internal/docintel"
	"github.com/tatradocs/contractmeta/internal/metadata"
)

var plainOutput bool

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Analyze new contract documents and update the metadata artifact",
	Long: `Extract lists the configured document location, skips files already
present in the metadata artifact, sends each new PDF through the
document-analysis model, and uploads the updated artifact. Failed
documents are reported and retried on the next run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		ctx := cmd.Context()

		objects, destination, err := newObjectStore(ctx)
		if err != nil {
			return err
		}
		lister := newLister(objects)

		analyzer, err := docintel.New(docintel.Config{
			Endpoint:        cfg.DocintelEndpoint,
			APIKey:          cfg.DocintelAPIKey,
			ModelID:         cfg.DocintelModelID,
			APIVersion:      cfg.DocintelAPIVersion,
			PollInterval:    cfg.PollInterval,
			MaxPollAttempts: cfg.MaxPollAttempts,
		})
		if err != nil {
			return err
		}

		store := metadata.NewStore(cfg.ArtifactName)
		orch := batch.New(lister, analyzer, store, objects, batch.Config{
			MaxInFlight: cfg.MaxInFlight,
		})

		var summary *batch.Summary
		if plainOutput {
			summary, err = orch.Run(ctx)
		} else {
			summary, err = runWithProgress(ctx, orch)
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Println("Run cancelled, nothing was persisted.")
				return nil
			}
			// A persist failure still carries a summary worth showing.
			if summary != nil {
				printSummary(summary, destination)
			}
			return err
		}

		printSummary(summary, destination)
		return nil
	},
}

func printSummary(summary *batch.Summary, destination string) {
	if summary.NewFiles == 0 {
		fmt.Println("No new documents to process.")
		return
	}

	fmt.Printf("Processed %d new document(s): %d succeeded, %d failed.\n",
		summary.NewFiles, summary.Succeeded, summary.Failed)

	names := make([]string, 0, len(summary.Outcomes))
	for name := range summary.Outcomes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		outcome := summary.Outcomes[name]
		if outcome.Err != nil {
			fmt.Printf("  ✗ %s: %v\n", name, outcome.Err)
			continue
		}
		fmt.Printf("  ✓ %s: %s\n", name, outcome.Metadata.ContractingParty)
	}

	if summary.Uploaded {
		fmt.Printf("Metadata artifact uploaded to %s.\n", destination)
	}
}

func init() {
	extractCmd.Flags().BoolVar(&plainOutput, "plain", false, "disable the interactive progress display")
}
