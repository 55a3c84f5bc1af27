package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Keep a folder indexed and answer questions typed on stdin",
	Long: `Indexes every supported file in the folder, then re-indexes files as they
are created, changed or removed. Each line read from stdin is asked as a
question in one ongoing chat session.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	ws, err := newWorkspace(loadConfig(), dir, newLogger())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if e.IsDir() || !supported(path) {
			continue
		}
		doc, err := ws.ingest(ctx, path)
		if err != nil {
			faint.Fprintf(out, "%s: %v\n", e.Name(), err)
			continue
		}
		printDocument(out, doc)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return err
	}

	go watchLoop(ctx, ws, watcher, out)

	heading.Fprintf(out, "\nWatching %s. Type a question, Ctrl-D to quit.\n", dir)
	return questionLoop(ctx, ws, cmd.InOrStdin(), out)
}

// changeKind classifies a watcher event for a supported file.
type changeKind int

const (
	changeNone changeKind = iota
	changeUpdated
	changeDeleted
)

func classify(event fsnotify.Event) changeKind {
	if !supported(event.Name) {
		return changeNone
	}
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return changeDeleted
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		return changeUpdated
	default:
		return changeNone
	}
}

func watchLoop(ctx context.Context, ws *workspace, watcher *fsnotify.Watcher, out io.Writer) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			switch classify(event) {
			case changeUpdated:
				doc, err := ws.ingest(ctx, event.Name)
				if err != nil {
					faint.Fprintf(out, "\n%s: %v\n", filepath.Base(event.Name), err)
					continue
				}
				fmt.Fprintln(out)
				printDocument(out, doc)
			case changeDeleted:
				if err := ws.forget(ctx, event.Name); err != nil {
					faint.Fprintf(out, "\n%s: %v\n", filepath.Base(event.Name), err)
					continue
				}
				faint.Fprintf(out, "\n%s removed from the index\n", filepath.Base(event.Name))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			faint.Fprintf(out, "\nwatch error: %v\n", err)
		}
	}
}

func questionLoop(ctx context.Context, ws *workspace, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		res, err := ws.ask(ctx, question, 0)
		if err != nil {
			return err
		}
		printAnswer(out, res)
		if ctx.Err() != nil {
			return nil
		}
	}
}
