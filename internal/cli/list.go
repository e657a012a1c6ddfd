package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/eventdex/internal/adapters/http/api"
	"github.com/okian/eventdex/internal/adapters/repository"
	"github.com/okian/eventdex/internal/bootstrap"
	"github.com/okian/eventdex/internal/domain/model"
)

func newListCmd(e *env) *cobra.Command {
	var (
		limit   int
		after   string
		format  string
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List indexed public events in start order",
		Long: `List prints the events currently in the configured index.

Examples:
  eventdex list
  eventdex list --after 2025-06-01T00:00:00Z --limit 20
  eventdex list --format ics > events.ics
  eventdex list --refresh`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			q := repository.Query{Visibility: model.VisibilityPublic, Limit: limit}
			if after != "" {
				t, err := time.Parse(time.RFC3339, after)
				if err != nil {
					return fmt.Errorf("--after must be RFC3339: %w", err)
				}
				q.After = &t
			}

			p, err := e.open(ctx)
			if err != nil {
				return err
			}
			if refresh {
				if _, err := bootstrap.NewService(p, e.cfg, e.log).ReindexAll(ctx); err != nil {
					return fmt.Errorf("refresh index: %w", err)
				}
			}
			recs, err := p.Store.Query(ctx, q)
			if err != nil {
				return fmt.Errorf("query events: %w", err)
			}

			out := cmd.OutOrStdout()
			switch format {
			case "ics":
				_, err = fmt.Fprint(out, api.Calendar(recs).Serialize())
				return err
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(recs)
			case "text":
				if len(recs) == 0 {
					fmt.Fprintln(out, "No events found.")
					return nil
				}
				fmt.Fprintf(out, "Events (%d):\n\n", len(recs))
				for _, r := range recs {
					fmt.Fprintf(out, "- %s  %s [%d]\n", r.StartsAt.Format("2006-01-02 15:04 MST"), r.Title, r.PostID)
					if e.verbose && r.City != "" {
						fmt.Fprintf(out, "  %s, %s\n", r.City, r.State)
					}
				}
				return nil
			default:
				return fmt.Errorf("unknown format %q (text, json, ics)", format)
			}
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "max results")
	cmd.Flags().StringVar(&after, "after", "", "only events starting at or after this RFC3339 time")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or ics")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "reindex every candidate post before listing")
	return cmd
}
