package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/eventdex/internal/bootstrap"
)

func newReindexCmd(e *env) *cobra.Command {
	var id int64

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Reindex one post or every candidate post",
		Long: `Reindex rebuilds index records from the document source.

Examples:
  eventdex reindex
  eventdex reindex --id 1234`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := e.open(ctx)
			if err != nil {
				return err
			}
			svc := bootstrap.NewService(p, e.cfg, e.log)
			out := cmd.OutOrStdout()

			if id != 0 {
				outcome, err := svc.Reindex(ctx, id)
				if err != nil {
					return fmt.Errorf("reindex post %d: %w", id, err)
				}
				fmt.Fprintf(out, "post %d: %s\n", id, outcome)
				return nil
			}

			report, err := svc.ReindexAll(ctx)
			if err != nil {
				return fmt.Errorf("bulk reindex: %w", err)
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "reindex only this post id")
	return cmd
}
