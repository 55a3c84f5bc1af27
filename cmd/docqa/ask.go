package main

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	askQuestion string
	askTopK     int
)

var askCmd = &cobra.Command{
	Use:   "ask [file...]",
	Short: "Index files and answer one question about them",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question to answer (required)")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "chunks to retrieve (default from RAG_TOP_K)")
	_ = askCmd.MarkFlagRequired("question")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if askQuestion == "" {
		return errors.New("--question must not be empty")
	}

	ws, err := newWorkspace(loadConfig(), string(filepath.Separator), newLogger())
	if err != nil {
		return err
	}

	ctx := context.Background()
	out := cmd.OutOrStdout()
	for _, arg := range args {
		path, err := filepath.Abs(arg)
		if err != nil {
			return err
		}
		doc, err := ws.ingest(ctx, path)
		if err != nil {
			return err
		}
		printDocument(out, doc)
	}

	res, err := ws.ask(ctx, askQuestion, askTopK)
	if err != nil {
		return err
	}
	printAnswer(out, res)
	return nil
}
