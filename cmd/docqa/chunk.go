package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"ai-docqa-be/internal/bootstrap"
	"ai-docqa-be/pkg/chunker"
	"ai-docqa-be/pkg/normalizer"
	vmemory "ai-docqa-be/pkg/vectorindex/memory"

	"github.com/spf13/cobra"
)

var (
	chunkJSON    bool
	chunkPreview int
)

var chunkCmd = &cobra.Command{
	Use:   "chunk [file]",
	Short: "Show how a file would be chunked",
	Long: `Normalizes the file and runs the chunk assembler on it, printing every
chunk with its strategy. Nothing is indexed.`,
	Args: cobra.ExactArgs(1),
	RunE: runChunk,
}

func init() {
	chunkCmd.Flags().BoolVar(&chunkJSON, "json", false, "output chunks as JSON")
	chunkCmd.Flags().IntVar(&chunkPreview, "preview", 160, "characters of each chunk to print (0 for all)")
	rootCmd.AddCommand(chunkCmd)
}

func runChunk(cmd *cobra.Command, args []string) error {
	path := args[0]
	fileType, ok := normalizer.CanonicalType(filepath.Ext(path))
	if !ok {
		return fmt.Errorf("%s: unsupported file type", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	pipeline, err := bootstrap.NewPipeline(loadConfig(), vmemory.NewStore(), newLogger())
	if err != nil {
		return err
	}

	ctx := context.Background()
	text, err := pipeline.Normalizer.Normalize(data, filepath.Base(path), fileType)
	if err != nil {
		return err
	}
	chunks, err := pipeline.Assembler.Assemble(ctx, text, fileType)
	if err != nil {
		return err
	}

	if chunkJSON {
		return outputChunksJSON(cmd, chunks)
	}

	out := cmd.OutOrStdout()
	heading.Fprintf(out, "%s: %d chunks\n\n", filepath.Base(path), len(chunks))
	for _, c := range chunks {
		body := c.Text
		if chunkPreview > 0 {
			body = preview(body, chunkPreview)
		}
		heading.Fprintf(out, "[%d] ", c.Index)
		faint.Fprintf(out, "%s, %d chars\n", c.Strategy, len([]rune(c.Text)))
		fmt.Fprintf(out, "    %s\n\n", body)
	}
	return nil
}

func outputChunksJSON(cmd *cobra.Command, chunks []chunker.Chunk) error {
	data, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal chunks: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
