package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cognicore/lemmacat/internal/docs"
)

func NewClassifyCommand(a *app) *cobra.Command {
	var (
		input   string
		explain bool
	)

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify a JSONL batch of documents",
		Long: `Classify every document of a JSONL file ("-" reads stdin). Each line is an
object with "id", "subject", "body" and optional "content_type" and "meta".
Documents that cannot be normalized are reported and skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.format()
			if err != nil {
				return err
			}

			var items []docs.Item
			if input == "-" {
				items, err = docs.ReadJSONL(cmd.InOrStdin(), "stdin")
			} else {
				items, err = docs.LoadFromJSONL(input)
			}
			if err != nil {
				return err
			}

			eng, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			defer eng.Close()

			col, err := eng.ClassifyBatch(cmd.Context(), docs.Documents(items))
			if err != nil {
				return err
			}

			w := newResultWriter(cmd.OutOrStdout(), format, explain)
			for _, res := range col.Results() {
				if err := w.Write(res); err != nil {
					return err
				}
			}
			if err := w.Flush(); err != nil {
				return err
			}

			for _, f := range col.Failures() {
				log.Warn().Int("position", f.Position).Str("id", f.Document.ID).Err(f.Err).Msg("not classified")
			}
			writeSummary(cmd.ErrOrStderr(), col.Run(), col.Summary())
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "JSONL file of documents, or - for stdin")
	cmd.Flags().BoolVar(&explain, "explain", false, "show every category's score")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}
