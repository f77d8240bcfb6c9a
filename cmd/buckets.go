package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/bloemhof/grocer-cli/internal/catalog"
	"github.com/bloemhof/grocer-cli/internal/recommend"
	anthropicpkg "github.com/bloemhof/grocer-cli/pkg/anthropic"
)

var (
	bucketsJSON        bool
	bucketsKeywordOnly bool
)

var bucketsCmd = &cobra.Command{
	Use:   "buckets",
	Short: "Group the catalog into meal-planning buckets",
	Long:  "Classifies catalog entries into keyword buckets (dairy, meat, produce, ...) for meal planning and prompt construction.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		mode := "buckets"
		if bucketsKeywordOnly {
			// The keyword path never touches the model, so no key is needed.
			mode = "catalog"
		}
		if err := cfg.Validate(mode); err != nil {
			return err
		}

		index, err := catalog.NewLoader(cfg.Catalog).Load()
		if err != nil {
			return eris.Wrap(err, "load catalog")
		}

		classifier := recommend.NewClassifier(cfg.Buckets)
		var buckets []recommend.Bucket
		if bucketsKeywordOnly {
			buckets = classifier.Classify(index)
		} else {
			rec := recommend.New(anthropicpkg.NewClient(cfg.Anthropic.Key), cfg.Anthropic, index)
			buckets = rec.GenerateBuckets(cmd.Context(), classifier)
		}

		if bucketsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(buckets)
		}

		for _, b := range buckets {
			fmt.Printf("%s (%d)\n", b.Name, len(b.Titles))
			for _, t := range b.Titles {
				fmt.Printf("  - %s\n", t)
			}
		}
		return nil
	},
}

func init() {
	bucketsCmd.Flags().BoolVar(&bucketsJSON, "json", false, "emit buckets as JSON")
	bucketsCmd.Flags().BoolVar(&bucketsKeywordOnly, "keywords-only", false, "skip the model and use the keyword classifier")
	rootCmd.AddCommand(bucketsCmd)
}
