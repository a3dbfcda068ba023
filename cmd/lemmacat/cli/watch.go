package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cognicore/lemmacat/internal/docs"
	"github.com/cognicore/lemmacat/internal/watch"
	"github.com/cognicore/lemmacat/pkg/lemmacat"
	"github.com/cognicore/lemmacat/pkg/lemmacat/collect"
)

func NewWatchCommand(a *app) *cobra.Command {
	var (
		dir      string
		existing bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Classify documents as they arrive in a directory",
		Long: `Watch a directory and classify each .txt, .eml, .html, .htm or .json file
when it is created or changes. All files of one session belong to one run.
The taxonomy is loaded once at start; restart to pick up changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.format()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			eng, err := a.engine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			w, err := watch.New(docs.Extensions, *a.logger())
			if err != nil {
				return err
			}
			defer w.Close()

			events, err := w.Watch(ctx, dir)
			if err != nil {
				return err
			}

			col, err := eng.StartRun(ctx)
			if err != nil {
				return err
			}
			log.Info().Str("dir", dir).Str("run", col.Run().ID).Msg("watching")

			in := newInbox(eng, col, newResultWriter(cmd.OutOrStdout(), format, false))

			if existing {
				paths, err := w.Existing(dir)
				if err != nil {
					return err
				}
				for _, path := range paths {
					if err := in.handle(ctx, path); err != nil {
						return err
					}
				}
			}

			for ev := range events {
				log.Debug().Str("path", ev.Path).Stringer("op", ev.Op).Msg("file event")
				if err := in.handle(ctx, ev.Path); err != nil {
					return err
				}
			}

			writeSummary(cmd.ErrOrStderr(), col.Run(), col.Summary())
			if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "inbox directory to watch")
	cmd.Flags().BoolVar(&existing, "existing", false, "also classify files already in the directory")
	_ = cmd.MarkFlagRequired("dir")

	return cmd
}

// inbox classifies files of one watch session into one run. Positions count
// only files that could be read.
type inbox struct {
	eng  *lemmacat.Engine
	col  *collect.Collector
	out  *resultWriter
	seen *watch.Seen
	pos  int
}

func newInbox(eng *lemmacat.Engine, col *collect.Collector, out *resultWriter) *inbox {
	return &inbox{eng: eng, col: col, out: out, seen: watch.NewSeen()}
}

// handle classifies path unless it is unchanged since it was last handled.
// Unreadable files are logged and skipped; only store and output errors
// are returned.
func (in *inbox) handle(ctx context.Context, path string) error {
	changed, err := in.seen.Changed(path)
	if err != nil {
		log.Warn().Str("path", path).Err(err).Msg("cannot stat document")
		return nil
	}
	if !changed {
		log.Debug().Str("path", path).Msg("unchanged, skipped")
		return nil
	}

	item, err := docs.LoadFile(path)
	if err != nil {
		log.Warn().Str("path", path).Err(err).Msg("cannot read document")
		return nil
	}

	entry, err := in.eng.ClassifyInto(ctx, in.col, in.pos, item.Document())
	in.pos++
	if err != nil || entry == nil {
		return err
	}
	if err := in.out.Write(entry.Result); err != nil {
		return err
	}
	return in.out.Flush()
}
