package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/docsift/internal/batch"
	"github.com/platinummonkey/docsift/internal/cache"
	"github.com/platinummonkey/docsift/internal/config"
	"github.com/platinummonkey/docsift/internal/layout"
	"github.com/platinummonkey/docsift/internal/logger"
	"github.com/platinummonkey/docsift/internal/recognize"
	"github.com/platinummonkey/docsift/internal/sink"
	"github.com/platinummonkey/docsift/internal/source"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process a directory of documents",
	Long: `Recognize every supported document in the input directory and write
structured results to the output directory.

This command:
1. Enumerates PDF and image files in the input directory
2. Skips documents whose content is already in the result cache
3. Sends each document to the recognition provider (with rate limiting,
   retries, and large-PDF splitting)
4. Reconstructs columns, reading order, and tables per page
5. Writes one JSON result per document plus a batch report

Interrupting the run (Ctrl-C) lets in-flight documents finish; documents
not yet started are reported as skipped.

Examples:
  # Process the current directory with a local Ollama model
  docsift run

  # Process a scan folder with OpenAI at higher concurrency
  docsift run --input-dir ~/scans --output-dir ~/scans-out \
    --provider openai --concurrency 4

  # Reuse results across runs via an on-disk cache
  docsift run --input-dir ~/scans --cache-dir ~/.docsift-cache`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("input-dir", ".", "directory of documents to process")
	runCmd.Flags().String("output-dir", "docsift-out", "directory for results and the batch report")
	runCmd.Flags().String("cache-dir", "", "directory for the on-disk result cache (empty = in-memory only)")
	runCmd.Flags().StringSlice("languages", []string{}, "language hints for recognition (comma-separated)")
	runCmd.Flags().Int("concurrency", batch.DefaultConcurrency, "number of documents processed in parallel")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	runCmd.Flags().String("log-format", "console", "log format (console, json)")
	runCmd.Flags().String("provider", "ollama", "recognition provider (ollama, openai, anthropic, gemini)")
	runCmd.Flags().String("model", "", "model name (defaults per provider)")
	runCmd.Flags().String("endpoint", "http://localhost:11434", "provider endpoint (Ollama)")
	runCmd.Flags().Float64("temperature", 0.0, "sampling temperature")
	runCmd.Flags().String("prompt-file", "", "YAML file overriding the extraction prompt")
	runCmd.Flags().Int("max-attempts", recognize.DefaultMaxAttempts, "attempts per recognition call, including the first")
	runCmd.Flags().Duration("base-delay", recognize.DefaultBaseDelay, "initial retry backoff")
	runCmd.Flags().Duration("max-delay", recognize.DefaultMaxDelay, "retry backoff cap")
	runCmd.Flags().Duration("max-total-wait", recognize.DefaultMaxTotalWait, "cumulative backoff budget per call")
	runCmd.Flags().Float64("requests-per-second", recognize.DefaultRequestsPerSecond, "outbound request rate shared by all workers")
	runCmd.Flags().Int("max-pages-per-call", recognize.DefaultMaxPagesPerCall, "page limit per recognition call")
}

func runBatch(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var prompt *recognize.PromptConfig
	if cfg.Provider.PromptFile != "" {
		prompt, err = recognize.LoadPromptConfig(cfg.Provider.PromptFile)
		if err != nil {
			return fmt.Errorf("failed to load prompt file: %w", err)
		}
	}

	recognizer, err := recognize.NewRecognizer(ctx, &recognize.ProviderConfig{
		Provider:    recognize.ProviderType(cfg.Provider.Name),
		Model:       cfg.Provider.Model,
		Endpoint:    cfg.Provider.Endpoint,
		APIKey:      cfg.Provider.APIKey,
		Temperature: cfg.Provider.Temperature,
		Prompt:      prompt,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to create recognizer: %w", err)
	}
	if closer, ok := recognizer.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	gateway, err := recognize.NewGateway(&recognize.GatewayConfig{
		Recognizer:        recognizer,
		Logger:            log,
		MaxAttempts:       cfg.Gateway.MaxAttempts,
		BaseDelay:         cfg.Gateway.BaseDelay,
		MaxDelay:          cfg.Gateway.MaxDelay,
		MaxTotalWait:      cfg.Gateway.MaxTotalWait,
		RequestsPerSecond: cfg.Gateway.RequestsPerSecond,
		MaxPagesPerCall:   cfg.Gateway.MaxPagesPerCall,
	})
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}

	analyzer := layout.New(layout.Config{
		ColumnGapRatio:   cfg.Layout.ColumnGapRatio,
		LineOverlapRatio: cfg.Layout.LineOverlapRatio,
		TableFillRatio:   cfg.Layout.TableFillRatio,
	})

	var store cache.Store
	if cfg.CacheDir != "" {
		store, err = cache.NewFileStore(cfg.CacheDir)
		if err != nil {
			return fmt.Errorf("failed to open cache directory: %w", err)
		}
	} else {
		store = cache.NewMemoryStore()
	}

	enumerator, err := source.NewDirEnumerator(cfg.InputDir)
	if err != nil {
		return fmt.Errorf("failed to enumerate input directory: %w", err)
	}
	if enumerator.Len() == 0 {
		fmt.Printf("No supported documents found in %s\n", cfg.InputDir)
		return nil
	}

	outputSink, err := sink.NewDirSink(cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to prepare output directory: %w", err)
	}

	orch, err := batch.New(&batch.Config{
		Gateway:       gateway,
		Analyzer:      analyzer,
		Cache:         store,
		Sink:          outputSink,
		Logger:        log,
		Concurrency:   cfg.Concurrency,
		LanguageHints: cfg.Languages,
	})
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	log.WithFields("input_dir", cfg.InputDir, "documents", enumerator.Len(), "provider", cfg.Provider.Name).
		Info("Starting batch")

	report, err := orch.Run(ctx, enumerator)
	if err != nil {
		return fmt.Errorf("batch run failed: %w", err)
	}

	fmt.Println()
	fmt.Println(report.String())

	if report.Failed > 0 {
		return fmt.Errorf("batch completed with %d failed document(s)", report.Failed)
	}
	return nil
}
