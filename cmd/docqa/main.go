// Command docqa runs the document pipeline locally: inspect chunking, ask
// questions about files, or keep a folder indexed while chatting with it.
package main

import (
	"os"

	"ai-docqa-be/internal/config"
	"ai-docqa-be/internal/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
)

var (
	offline bool
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:           "docqa",
	Short:         "Ask questions about local documents",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "use local hashing embeddings and extractive answers")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline details to stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig applies the persistent flags on top of the environment.
func loadConfig() *config.Config {
	cfg := config.Load()
	if offline {
		cfg.Ai.EmbeddingProvider = "local"
		cfg.Ai.LLMProvider = "none"
		cfg.Rag.AddPause = 0
		cfg.Rag.BatchPause = 0
	}
	return cfg
}

func newLogger() logger.ILogger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	return logger.NewConsoleLogger(level)
}
