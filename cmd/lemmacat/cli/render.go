package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/cognicore/lemmacat/pkg/lemmacat/classify"
	"github.com/cognicore/lemmacat/pkg/lemmacat/collect"
	"github.com/cognicore/lemmacat/pkg/lemmacat/store"
)

// resultWriter renders results one at a time so watch can stream them.
type resultWriter struct {
	format  string
	explain bool
	tw      *tabwriter.Writer
	enc     *json.Encoder
	header  bool
}

func newResultWriter(out io.Writer, format string, explain bool) *resultWriter {
	w := &resultWriter{format: format, explain: explain}
	if format == formatJSONL {
		w.enc = json.NewEncoder(out)
		w.enc.SetEscapeHTML(false)
	} else {
		w.tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	}
	return w
}

func (w *resultWriter) Write(res classify.Result) error {
	if w.enc != nil {
		if !w.explain {
			res.Scores = nil
		}
		return w.enc.Encode(res)
	}

	if !w.header {
		fmt.Fprintln(w.tw, "ID\tCATEGORY\tSCORE\tMATCHED\tSUBJECT")
		w.header = true
	}
	fmt.Fprintf(w.tw, "%s\t%s\t%d\t%s\t%s\n",
		res.Document.ID, res.Category, res.Score, joinMatched(res.Matched), res.Document.Subject)
	if w.explain {
		for _, s := range res.Scores {
			fmt.Fprintf(w.tw, "\t  %s\t%d\t%s\t\n", s.Category, s.Score, joinMatched(s.Matched))
		}
	}
	return nil
}

// Flush writes buffered table rows.
func (w *resultWriter) Flush() error {
	if w.tw != nil {
		return w.tw.Flush()
	}
	return nil
}

func joinMatched(m []string) string {
	if len(m) == 0 {
		return "-"
	}
	return strings.Join(m, ", ")
}

func writeSummary(out io.Writer, run collect.Run, sum collect.Summary) {
	fmt.Fprintf(out, "run %s: %d documents, %d classified, %d unknown, %d failed\n",
		run.ID, sum.Total, sum.Classified, sum.Unknown, sum.Failed)
}

func writeRecords(out io.Writer, format string, records []store.Record) error {
	if format == formatJSONL {
		enc := json.NewEncoder(out)
		enc.SetEscapeHTML(false)
		for _, r := range records {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "POS\tID\tCATEGORY\tSCORE\tMATCHED")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", r.Position, r.DocumentID, r.Category, r.Score, joinMatched(r.Matched))
	}
	return tw.Flush()
}
