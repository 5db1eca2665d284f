package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"quizforge/internal/api"
	"quizforge/internal/explain"
	appI18n "quizforge/internal/i18n"
	"quizforge/internal/llm"
	"quizforge/internal/llm/prompts"
	"quizforge/internal/model"
	"quizforge/internal/store"
	"quizforge/internal/textproc"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "quizforge",
		Short: "Local quiz platform with AI-generated questions",
	}

	serve := serveCmd()
	root.AddCommand(serve, generateCmd(), exportCmd(), importCmd(), statsCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `quizforge --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the quiz API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "quizforge.db", "SQLite database path")
	f.String("llm-url", llm.GeminiBaseURL, "OpenAI-compatible API base URL")
	f.String("llm-key", "", "API key for the AI service (or set QUIZFORGE_LLM_KEY)")
	f.String("llm-model", llm.DefaultModel, "Model name")
	f.StringP("lang", "l", "en", "Default response language (en, ru)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [FILE]",
		Short: "Generate questions from a text file (or stdin) and print them as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runGenerate,
	}
	f := cmd.Flags()
	f.String("db", "quizforge.db", "SQLite database path (for the stored API key)")
	f.IntP("count", "n", llm.DefaultQuestions, "Number of questions to generate")
	f.StringSlice("types", nil, "Question types (SINGLE_CHOICE, MULTI_CHOICE, FREE_TEXT)")
	f.String("difficulty", string(prompts.DifficultyMixed), "Difficulty (easy, medium, hard, mixed)")
	f.Bool("no-explanations", false, "Skip per-question explanations")
	f.String("llm-url", llm.GeminiBaseURL, "OpenAI-compatible API base URL")
	f.String("llm-key", "", "API key for the AI service (or set QUIZFORGE_LLM_KEY)")
	f.String("llm-model", llm.DefaultModel, "Model name")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all quizzes, results, and preferences as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "quizforge.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a previously exported snapshot",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
	f := cmd.Flags()
	f.String("db", "quizforge.db", "SQLite database path")
	f.Bool("overwrite", false, "Replace entities that already exist")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print storage statistics",
		RunE:  runStats,
	}
	f := cmd.Flags()
	f.String("db", "quizforge.db", "SQLite database path")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("QUIZFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("quizforge")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/quizforge")
	v.AddConfigPath("/etc/quizforge")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// llmKey resolves the API key: flag and environment first, stored
// preferences second.
func llmKey(v *viper.Viper, db *store.Store) string {
	if key := v.GetString("llm-key"); key != "" {
		return key
	}
	if prefs, err := db.GetPreferences(); err == nil && prefs != nil {
		return prefs.APIKeys.GeminiKey
	}
	return ""
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db := store.New(v.GetString("db"))
	defer db.Close()

	health := db.HealthCheck()
	if !health.Initialized {
		return fmt.Errorf("open database %s", v.GetString("db"))
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	transport := llm.NewOpenAITransport(
		v.GetString("llm-url"),
		llmKey(v, db),
		v.GetString("llm-model"),
		slog.Default(),
	)

	kv, err := db.KVStore()
	if err != nil {
		return fmt.Errorf("open kv store: %w", err)
	}

	h := api.New(api.Config{
		Store:   db,
		Gen:     llm.NewService(transport, slog.Default()),
		Explain: explain.New(transport, kv),
		Logger:  slog.Default(),
		Lang:    lang,
	})

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"db", v.GetString("db"),
		"model", v.GetString("llm-model"),
		"llm_url", v.GetString("llm-url"),
		"lang", lang,
	)
	return http.ListenAndServe(addr, r)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	var raw []byte
	var err error
	if len(args) == 1 && args[0] != "-" {
		raw, err = os.ReadFile(args[0])
	} else {
		raw, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("read source text: %w", err)
	}

	difficulty := v.GetString("difficulty")
	if !prompts.IsValidDifficulty(difficulty) {
		return fmt.Errorf("unknown difficulty %q", difficulty)
	}

	processed := textproc.Process(string(raw), textproc.ChunkOptions{})
	if !processed.OK {
		return fmt.Errorf("source text rejected: %s", strings.Join(processed.Validation.Reasons, "; "))
	}

	var types []model.QuestionType
	for _, t := range v.GetStringSlice("types") {
		types = append(types, model.QuestionType(strings.ToUpper(t)))
	}
	includeExplanations := !v.GetBool("no-explanations")

	db := store.New(v.GetString("db"))
	defer db.Close()

	transport := llm.NewOpenAITransport(
		v.GetString("llm-url"),
		llmKey(v, db),
		v.GetString("llm-model"),
		slog.Default(),
	)
	svc := llm.NewService(transport, slog.Default())

	generated, err := svc.GenerateQuestions(cmd.Context(), processed.Text, llm.GenerateOptions{
		Count:               v.GetInt("count"),
		Types:               types,
		Difficulty:          prompts.Difficulty(difficulty),
		IncludeExplanations: &includeExplanations,
	})
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	data, err := json.MarshalIndent(generated, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db := store.New(v.GetString("db"))
	defer db.Close()

	snap, err := db.Export()
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)

	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	db := store.New(v.GetString("db"))
	defer db.Close()

	summary, err := db.Import(snap, v.GetBool("overwrite"))
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	slog.Info("import finished",
		"quizzes_imported", summary.Quizzes.Imported,
		"quizzes_skipped", summary.Quizzes.Skipped,
		"results_imported", summary.Results.Imported,
		"results_skipped", summary.Results.Skipped,
	)
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db := store.New(v.GetString("db"))
	defer db.Close()

	stats, err := db.Stats()
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
