package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func NewNormalizeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize [text...]",
		Short: "Show the lemmas and haystack of a text",
		Long:  `Normalize text the way documents are normalized before matching. Without arguments the text is read from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.format()
			if err != nil {
				return err
			}
			n, err := a.normalizer()
			if err != nil {
				return err
			}

			text := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				text = string(data)
			}

			doc, err := n.Document(text)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == formatJSONL {
				return json.NewEncoder(out).Encode(struct {
					Lemmas   []string `json:"lemmas"`
					Haystack string   `json:"haystack"`
				}{doc.Lemmas, doc.Haystack})
			}
			fmt.Fprintf(out, "lemmas:   %s\n", strings.Join(doc.Lemmas, " | "))
			fmt.Fprintf(out, "haystack: %s\n", doc.Haystack)
			return nil
		},
	}
}
