package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"bcfreq/internal/store"
	"bcfreq/internal/ui/colorize"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [file]",
		Short: "List recorded scans",
		Long: `List scans recorded with --db, newest first. With a file argument only
scans of files with identical contents are listed. --show prints the report
of one scan.`,
		Example: `
# List every recorded scan
bcfreq history --db scans.db

# Show the report of scan 3
bcfreq history --db scans.db --show 3
  `,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.DB == "" {
				return errors.New("--db is required")
			}
			s, err := store.Open(cmd.Context(), a.cfg.DB)
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			if show, _ := cmd.Flags().GetInt64("show"); show > 0 {
				counts, err := s.Counts(cmd.Context(), show)
				if err != nil {
					return err
				}
				if len(counts) == 0 {
					return fmt.Errorf("no scan with id %d", show)
				}
				for _, c := range counts {
					line := fmt.Sprintf("%d x %s", c.Count, c.Text)
					if colorize.Enabled() {
						line = colorize.Line(line)
					}
					fmt.Fprintln(out, line)
				}
				return nil
			}

			var digest string
			if len(args) == 1 {
				if digest, err = fileDigest(args[0]); err != nil {
					return fmt.Errorf("digest: %w", err)
				}
			}
			limit, _ := cmd.Flags().GetInt("limit")
			scans, err := s.Scans(cmd.Context(), digest, limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSCANNED\tTOTAL\tDISTINCT\tDIGEST\tFILE")
			for _, sc := range scans {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%.12s\t%s\n",
					sc.ID, sc.ScannedAt.Format("2006-01-02 15:04:05"), sc.Total, sc.Distinct, sc.Digest, sc.File)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int64("show", 0, "Print the report of the scan with this id")
	cmd.Flags().Int("limit", 20, "Maximum number of scans to list (0 for all)")
	return cmd
}
