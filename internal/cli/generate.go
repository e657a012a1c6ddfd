package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/eventdex/internal/fixtures"
)

func newGenerateCmd(e *env) *cobra.Command {
	var (
		count   int
		startID int64
		seed    uint64
		dir     string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write synthetic post documents for local runs",
		Long: `Generate writes a deterministic mix of public, private, virtual and
deleted event posts into the source directory.

Examples:
  eventdex generate --count 500
  eventdex generate --dir /tmp/posts --seed 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = e.cfg.SourceDir
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", dir, err)
			}
			docs := fixtures.Generate(fixtures.Config{Count: count, StartID: startID, Seed: seed})
			if err := fixtures.WriteDir(cmd.Context(), dir, docs, e.log); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d posts to %s\n", len(docs), dir)
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 100, "number of posts")
	cmd.Flags().Int64Var(&startID, "start-id", 1, "first post id")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "random seed")
	cmd.Flags().StringVar(&dir, "dir", "", "output directory (default: source_dir)")
	return cmd
}
