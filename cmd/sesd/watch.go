package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/nihei9/sesd/driver"
	"github.com/nihei9/sesd/lexer"
	"github.com/nihei9/sesd/spec"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
)

func init() {
	cmd := &cobra.Command{
		Use:     "watch <grammar file path> <source file path>",
		Short:   "Reparse a source file whenever it changes",
		Example: `  sesd watch grammar.json src.txt --max-repair 64`,
		Args:    cobra.ExactArgs(2),
		RunE:    runWatch,
	}
	rootCmd.AddCommand(cmd)
}

func runWatch(cmd *cobra.Command, args []string) (retErr error) {
	defer handleError(&retErr)

	lang, err := readLanguage(cmd, args[0])
	if err != nil {
		return err
	}
	path := filepath.Clean(args[1])

	w, err := newWatcher(lang, os.Stdout)
	if err != nil {
		return err
	}
	src, err := readSource(path)
	if err != nil {
		return err
	}
	if err := w.update(src); err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	// Editors often save by renaming a new file over the old one, which
	// drops a watch on the file itself.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || (!ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create)) {
				continue
			}
			src, err := os.ReadFile(path)
			if err != nil {
				w.logger.Warningf("%v", err)
				continue
			}
			if err := w.update(src); err != nil {
				return err
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Errorf("%v", err)
		}
	}
}

// watcher keeps a session in step with the successive contents of a file.
type watcher struct {
	lang    *spec.Language
	session *driver.Session[lexer.Token]
	toks    []lexer.Token
	out     io.Writer
	logger  commonlog.Logger
}

func newWatcher(lang *spec.Language, out io.Writer) (*watcher, error) {
	logger := commonlog.GetLogger("sesd.watch")
	s, err := lang.NewSession(driver.Logger(logger))
	if err != nil {
		return nil, err
	}
	return &watcher{
		lang:    lang,
		session: s,
		out:     out,
		logger:  logger,
	}, nil
}

// update replaces the tokens that differ from the previous contents and
// reports the repair and the state of the parse.
func (w *watcher) update(src []byte) error {
	toks, err := w.lang.Tokenize(string(src))
	var tokErr *lexer.TokenError
	if err != nil && !errors.As(err, &tokErr) {
		return err
	}

	pos, del, ins := lexer.Diff(w.toks, toks)
	w.toks = toks
	if del == 0 && len(ins) == 0 {
		w.logger.Debug("no token changed")
	} else {
		err = w.session.Replace(pos, del, ins...)
		if errors.Is(err, driver.ErrRepairTooLarge) {
			fmt.Fprintf(w.out, "suspended: %v\n", w.session.LastRepair())
			err = w.session.Resume()
		}
		if err != nil && !errors.Is(err, driver.ErrUnrecoverable) {
			return err
		}
		fmt.Fprintf(w.out, "repaired: %v\n", w.session.LastRepair())
	}

	if tokErr != nil {
		fmt.Fprintf(w.out, "%v\n", tokErr)
	}
	st := w.session.Status()
	fmt.Fprintf(w.out, "%v tokens: %v\n", len(w.toks), st.Verdict)
	writeSyntaxErrors(w.out, w.session, w.toks)
	return nil
}
