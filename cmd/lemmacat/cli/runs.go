package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cognicore/lemmacat/pkg/lemmacat/internalerr"
	"github.com/cognicore/lemmacat/pkg/lemmacat/store"
)

func NewRunsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect stored classification runs",
	}
	cmd.AddCommand(newRunsListCommand(a))
	cmd.AddCommand(newRunsShowCommand(a))
	return cmd
}

func (a *app) requireStore(cmd *cobra.Command) (store.Store, error) {
	st, err := a.openStore(cmd.Context())
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("%w: runs need --store sqlite or bolt", internalerr.ErrInvalidConfig)
	}
	return st, nil
}

func newRunsListCommand(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.requireStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tSTARTED\tTAXONOMY")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.StartedAt.Format(time.RFC3339), shortDigest(r.TaxonomyDigest))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs")
	return cmd
}

func newRunsShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the stored results and failures of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.format()
			if err != nil {
				return err
			}
			st, err := a.requireStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			id := args[0]
			run, ok, err := st.GetRun(ctx, id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
			}

			records, err := st.ListResults(ctx, id)
			if err != nil {
				return err
			}
			failures, err := st.ListFailures(ctx, id)
			if err != nil {
				return err
			}

			if format == formatTable {
				fmt.Fprintf(cmd.OutOrStdout(), "run %s started %s taxonomy %s\n",
					run.ID, run.StartedAt.Format(time.RFC3339), shortDigest(run.TaxonomyDigest))
			}
			if err := writeRecords(cmd.OutOrStdout(), format, records); err != nil {
				return err
			}
			for _, f := range failures {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed %d %s: %s\n", f.Position, f.DocumentID, f.Error)
			}
			return nil
		},
	}
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
