package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/specforge/testgen/internal/config"
	"github.com/specforge/testgen/internal/intent"
	"github.com/specforge/testgen/internal/pipeline"
	"github.com/specforge/testgen/internal/render"
	"github.com/specforge/testgen/pkg/ir"
)

var version = "dev"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd := &cobra.Command{
		Use:     "qtestgen",
		Short:   "qtestgen - deterministic test generation compiler",
		Long:    `qtestgen compiles HTTP contracts, dynamic-language source, and typed source into golden and mutated test files.`,
		Version: version,
	}

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(jobCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// generateCmd runs the full pipeline synchronously in-process, the same
// pipeline.Driver.Run the API server and the generation worker call.
func generateCmd() *cobra.Command {
	var (
		filePath    string
		dialect     string
		framework   string
		baseURL     string
		outputDir   string
		intentsFlag []string
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate test files from a spec source",
		Long: `Generate test files for a single spec source file.

Examples:
  qtestgen generate --file contract.yaml --dialect http-contract --framework http-sync
  qtestgen generate --file types.ts --dialect typed-source --framework function-direct --output ./tests`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := validateFilePath(filePath)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			outDir, err := validateDirPath(outputDir)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if verbose {
				log.Debug().
					Str("database_url", maskConnectionString(cfg.DatabaseURL)).
					Str("nats_url", maskConnectionString(cfg.NATSURL)).
					Msg("loaded configuration")
			}

			source, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read spec file: %w", err)
			}

			if !isSupportedExt(filepath.Ext(path)) && dialect == "typed-source" {
				log.Warn().Str("ext", filepath.Ext(path)).Msg("unrecognized extension for typed-source dialect")
			}

			targetIntents := make([]intent.ID, 0, len(intentsFlag))
			for _, id := range intentsFlag {
				targetIntents = append(targetIntents, intent.ID(id))
			}

			jobID := uuid.NewString()
			driver := pipeline.NewDriver(pipeline.NewFileStore(outDir))
			sink := pipeline.NewMemorySink()

			req := &pipeline.Request{
				JobID:           jobID,
				SpecSource:      source,
				SourceDialect:   ir.Dialect(dialect),
				TargetFramework: render.Target(framework),
				BaseURL:         baseURL,
				TargetIntents:   targetIntents,
			}

			ctx := context.Background()
			result, err := driver.Run(ctx, req, sink)
			if err != nil {
				return fmt.Errorf("generation failed: %w", err)
			}

			writtenDir := filepath.Join(outDir, jobID, "tests")
			if err := os.MkdirAll(writtenDir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			for opID, rendered := range result.Files {
				fname := filepath.Join(writtenDir, sanitizeFilename(opID)+renderExtension(render.Target(framework)))
				if err := os.WriteFile(fname, []byte(rendered), 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", fname, err)
				}
			}

			fmt.Printf("Generated %d test file(s) in %s\n", len(result.Files), writtenDir)
			for _, failure := range result.Failures {
				fmt.Fprintf(os.Stderr, "  failed: %s: %v\n", failure.OperationID, failure.Err)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Spec source file (required)")
	cmd.Flags().StringVar(&dialect, "dialect", "http-contract", "Source dialect (http-contract, dynamic-source, typed-source)")
	cmd.Flags().StringVar(&framework, "framework", "http-sync", "Target test framework")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Base URL for HTTP contract targets")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "./artifacts", "Output directory for generated tests and stage artifacts")
	cmd.Flags().StringSliceVar(&intentsFlag, "intents", nil, "Restrict generation to specific intent IDs")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log the resolved configuration before running")
	cmd.MarkFlagRequired("file")

	return cmd
}

// parseCmd prints the IR a dialect parser produces from a spec source. It
// runs the full pipeline against a store in the OS temp directory and
// prints only the parsed specification, so a failure in a later stage also
// fails the command.
func parseCmd() *cobra.Command {
	var (
		filePath string
		dialect  string
	)

	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse a spec source file and print the resulting IR",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := validateFilePath(filePath)
			if err != nil {
				return err
			}

			source, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read spec file: %w", err)
			}

			driver := pipeline.NewDriver(pipeline.NewFileStore(os.TempDir()))
			req := &pipeline.Request{
				JobID:           "parse-" + uuid.NewString(),
				SpecSource:      source,
				SourceDialect:   ir.Dialect(dialect),
				TargetFramework: render.TargetHTTPSync,
			}

			result, err := driver.Run(context.Background(), req, pipeline.NewMemorySink())
			if err != nil {
				return fmt.Errorf("failed to parse spec: %w", err)
			}

			encoded, err := json.MarshalIndent(result.Spec, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode IR: %w", err)
			}

			fmt.Println(string(encoded))
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Spec source file to parse")
	cmd.Flags().StringVar(&dialect, "dialect", "http-contract", "Source dialect (http-contract, dynamic-source, typed-source)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func renderExtension(target render.Target) string {
	switch target {
	case render.TargetHTTPSync:
		return ".go"
	case render.TargetFunctionDirect:
		return ".go"
	default:
		return ".txt"
	}
}

func sanitizeFilename(opID string) string {
	replacer := strings.NewReplacer("/", "_", " ", "_", ":", "_")
	return replacer.Replace(strings.ToLower(opID))
}

func isSupportedExt(ext string) bool {
	switch ext {
	case ".go", ".py", ".js", ".jsx", ".ts", ".tsx", ".java":
		return true
	default:
		return false
	}
}

// maskConnectionString hides the password segment of a URL-shaped
// connection string before it reaches a log line.
func maskConnectionString(s string) string {
	if s == "" {
		return s
	}
	schemeSep := strings.Index(s, "://")
	if schemeSep == -1 {
		return s
	}
	rest := s[schemeSep+3:]
	at := strings.Index(rest, "@")
	if at == -1 {
		return s
	}
	userinfo := rest[:at]
	colon := strings.Index(userinfo, ":")
	if colon == -1 {
		return s
	}
	user := userinfo[:colon]
	return s[:schemeSep+3] + user + ":****@" + rest[at+1:]
}

func validateFilePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("file path is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("cannot access %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory, expected a file", path)
	}
	return path, nil
}

func validateDirPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("directory path is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("cannot access %s: %w", path, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", path)
	}
	return path, nil
}
