package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/eventdex/internal/adapters/source"
	"github.com/okian/eventdex/internal/bootstrap"
	"github.com/okian/eventdex/internal/domain/normalize"
)

func newNormalizeCmd(e *env) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "normalize <file>",
		Short: "Print the record a post document would produce",
		Long: `Normalize runs one YAML post document through extraction, time
resolution and geocoding without touching the index.

Examples:
  eventdex normalize data/posts/1234.yaml
  eventdex normalize --offline post.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := source.ReadDocumentFile(args[0])
			if err != nil {
				return err
			}

			cfg := *e.cfg
			if offline {
				cfg.Geocode.GoogleAPIKey = ""
				cfg.Geocode.NominatimEnabled = false
			}
			norm, _, err := bootstrap.NewNormalizer(&cfg, e.log)
			if err != nil {
				return err
			}

			rec, err := norm.Normalize(cmd.Context(), doc)
			if errors.Is(err, normalize.ErrRejected) {
				fmt.Fprintf(cmd.OutOrStdout(), "rejected: %s\n", normalize.Reason(err))
				return nil
			}
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "skip geocoding")
	return cmd
}
