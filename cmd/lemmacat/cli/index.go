package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type keywordJSON struct {
	Raw        string `json:"raw"`
	Normalized string `json:"normalized"`
}

type categoryJSON struct {
	Position int           `json:"position"`
	Name     string        `json:"name"`
	Keywords []keywordJSON `json:"keywords"`
}

func NewIndexCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Print the normalized taxonomy in tie-break order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.format()
			if err != nil {
				return err
			}
			comp, err := a.components()
			if err != nil {
				return err
			}
			idx := comp.Index
			out := cmd.OutOrStdout()

			if format == formatJSONL {
				enc := json.NewEncoder(out)
				for i := 0; i < idx.Len(); i++ {
					cat := idx.Category(i)
					kws := make([]keywordJSON, 0, cat.Len())
					for _, kw := range cat.Keywords() {
						kws = append(kws, keywordJSON{Raw: kw.Raw, Normalized: kw.Normalized})
					}
					if err := enc.Encode(categoryJSON{Position: i + 1, Name: cat.Name, Keywords: kws}); err != nil {
						return err
					}
				}
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tCATEGORY\tKEYWORD\tNORMALIZED")
			for i := 0; i < idx.Len(); i++ {
				cat := idx.Category(i)
				for _, kw := range cat.Keywords() {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, cat.Name, kw.Raw, kw.Normalized)
				}
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%d categories, %d keywords, digest %s\n", idx.Len(), idx.KeywordCount(), idx.Digest())
			return nil
		},
	}
}
