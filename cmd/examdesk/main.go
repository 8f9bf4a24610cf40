package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/pavelanni/examdesk/internal/correction"
	"github.com/pavelanni/examdesk/internal/examgen"
	"github.com/pavelanni/examdesk/internal/handler"
	appI18n "github.com/pavelanni/examdesk/internal/i18n"
	"github.com/pavelanni/examdesk/internal/llm"
	"github.com/pavelanni/examdesk/internal/llm/prompts"
	"github.com/pavelanni/examdesk/internal/model"
	"github.com/pavelanni/examdesk/internal/report"
	"github.com/pavelanni/examdesk/internal/scoring"
	"github.com/pavelanni/examdesk/internal/store"
)

const sessionCleanupInterval = time.Hour

func main() {
	// A missing .env file is fine; real environment variables still apply.
	_ = godotenv.Load()

	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "examdesk",
		Short: "Exam authoring, submission and grading server",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), reportCmd(), setupPasswordCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `examdesk --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

// addStoreFlags registers the flags every command needs to reach the database.
func addStoreFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("db-driver", string(store.DriverSQLite), "Database driver (sqlite, postgres)")
	f.String("db", "examdesk.db", "SQLite path or PostgreSQL connection URL")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	addStoreFlags(cmd)
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.StringSliceP("exams", "e", nil, "Paths to exam JSON files to import at startup (repeatable)")
	f.StringP("lang", "l", "en", "Message language (en, pt)")
	f.String("llm-url", "", "OpenAI-compatible API base URL (empty disables the LLM)")
	f.String("llm-key", "", "API key for LLM")
	f.String("llm-model", "gpt-4o-mini", "LLM model name")
	f.Duration("llm-timeout", 30*time.Second, "Timeout for a single LLM call")
	f.String("essay-evaluator", "llm", "Essay evaluator (llm, keyword)")
	f.Bool("essay-fallback", true, "Score essays by keyword overlap when the LLM fails")
	f.String("prompt-variant", string(prompts.PromptStandard), "Grading prompt variant (strict, standard, lenient)")
	f.Bool("manual-bounds", false, "Reject manual points outside 0 to the question's points")
	f.StringSlice("cors-origins", nil, "Allowed CORS origins (empty disables CORS)")
	f.Bool("require-auth", false, "Require a grader login for authoring and correction routes")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.Int("top-students", 0, "Students listed on the dashboard (0 = all)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export corrections as JSON",
		RunE:  runExport,
	}
	addStoreFlags(cmd)
	f := cmd.Flags()
	f.String("since", "", "Only corrections made on or after this date (YYYY-MM-DD)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the grading dashboard as JSON",
		RunE:  runReport,
	}
	addStoreFlags(cmd)
	f := cmd.Flags()
	f.StringP("lang", "l", "en", "Message language (en, pt)")
	f.Int("top-students", 0, "Students listed (0 = all)")
	f.Int("trend-window", report.DefaultTrendWindow, "Days in the moving average")
	return cmd
}

func setupPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup-password",
		Short: "Set the grader password",
		RunE:  runSetupPassword,
	}
	addStoreFlags(cmd)
	cmd.Flags().String("password", "", "Grader password (or set EXAMDESK_PASSWORD; prompts when empty)")
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

	v.SetEnvPrefix("EXAMDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("examdesk")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/examdesk")
	v.AddConfigPath("/etc/examdesk")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func openStore(ctx context.Context, v *viper.Viper) (*store.Store, error) {
	driver := store.Driver(strings.ToLower(v.GetString("db-driver")))
	db, err := store.Open(ctx, driver, v.GetString("db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func initI18n(v *viper.Viper) (string, error) {
	lang := v.GetString("lang")
	if lang == "" {
		lang = "en"
	}
	if err := appI18n.Init(lang); err != nil {
		return "", fmt.Errorf("init i18n: %w", err)
	}
	if !appI18n.Supported(lang) {
		slog.Warn("no messages for language, using English", "lang", lang)
	}
	return lang, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	defer db.Close()

	lang, err := initI18n(v)
	if err != nil {
		return err
	}

	if err := importExams(ctx, db, v.GetStringSlice("exams")); err != nil {
		return fmt.Errorf("import exams: %w", err)
	}

	llmClient, err := newLLMClient(ctx, v)
	if err != nil {
		return err
	}

	evaluator, err := essayEvaluator(v, llmClient)
	if err != nil {
		return err
	}
	engine := scoring.NewEngine(evaluator, scoring.WithFeedback(scoring.FeedbackText{
		Correct:   appI18n.Message(lang, "AnswerCorrect"),
		Incorrect: appI18n.Message(lang, "AnswerIncorrect"),
	}))

	cfg := model.Config{
		Lang:               lang,
		RequireAuth:        v.GetBool("require-auth"),
		SecureCookies:      v.GetBool("secure-cookies"),
		EnforceManualBound: v.GetBool("manual-bounds"),
		CORSOrigins:        v.GetStringSlice("cors-origins"),
		TopStudents:        v.GetInt("top-students"),
	}

	corrections := correction.NewService(db, engine,
		correction.WithManualOptions(scoring.ManualOptions{EnforceBounds: cfg.EnforceManualBound}))

	// A nil client keeps the generator on its deterministic template.
	var source examgen.QuestionSource
	if llmClient != nil {
		source = llmClient
	}
	h, err := handler.New(db, corrections, examgen.NewService(source), cfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(handler.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	corsMW, err := corsMiddleware(cfg.CORSOrigins, cfg.RequireAuth)
	if err != nil {
		return err
	}
	if corsMW != nil {
		r.Use(corsMW)
	}
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	go cleanupSessions(ctx, db)

	addr := v.GetString("addr")
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown", "error", err)
		}
	}()

	slog.Info("starting server",
		"addr", addr,
		"db_driver", v.GetString("db-driver"),
		"lang", lang,
		"essay_evaluator", v.GetString("essay-evaluator"),
		"llm", llmClient != nil,
		"require_auth", cfg.RequireAuth,
		"manual_bounds", cfg.EnforceManualBound,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// corsMiddleware returns nil when no origins are configured. A wildcard
// origin is refused when credentials are allowed.
func corsMiddleware(origins []string, credentials bool) (func(http.Handler) http.Handler, error) {
	var allowed []string
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			allowed = append(allowed, o)
		}
	}
	if len(allowed) == 0 {
		return nil, nil
	}
	if credentials && slices.Contains(allowed, "*") {
		return nil, errors.New("cors-origins must list explicit origins when require-auth is enabled")
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: credentials,
		MaxAge:           300,
	}), nil
}

// newLLMClient returns nil when no API URL is configured.
func newLLMClient(ctx context.Context, v *viper.Viper) (*llm.Client, error) {
	url := v.GetString("llm-url")
	if url == "" {
		slog.Info("no LLM configured, essays and generated exams use local fallbacks")
		return nil, nil
	}

	variant := strings.ToLower(strings.TrimSpace(v.GetString("prompt-variant")))
	if !prompts.IsValidVariant(variant) {
		slog.Warn("invalid prompt-variant, using standard", "variant", variant)
		variant = string(prompts.PromptStandard)
	}
	client, err := llm.New(url, v.GetString("llm-key"), v.GetString("llm-model"),
		llm.WithVariant(prompts.PromptVariant(variant)),
		llm.WithTimeout(v.GetDuration("llm-timeout")),
	)
	if err != nil {
		return nil, fmt.Errorf("create LLM client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		slog.Warn("LLM health check failed, continuing", "url", url, "error", err)
	} else {
		slog.Info("LLM endpoint OK", "url", url, "model", v.GetString("llm-model"))
	}
	return client, nil
}

func essayEvaluator(v *viper.Viper, client *llm.Client) (scoring.EssayEvaluator, error) {
	switch name := strings.ToLower(v.GetString("essay-evaluator")); name {
	case "keyword":
		return scoring.KeywordEvaluator{}, nil
	case "llm":
		if client == nil {
			return scoring.KeywordEvaluator{}, nil
		}
		if v.GetBool("essay-fallback") {
			return scoring.FallbackEvaluator{Primary: client, Secondary: scoring.KeywordEvaluator{}}, nil
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown essay evaluator %q", name)
	}
}

func cleanupSessions(ctx context.Context, db *store.Store) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := db.CleanupExpiredSessions(ctx); err != nil {
				slog.Warn("session cleanup failed", "error", err)
			}
		}
	}
}

func importExams(ctx context.Context, db *store.Store, paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		res, err := examgen.Import(ctx, db, path, data, "Teacher")
		if err != nil {
			return err
		}
		if res.Duplicate {
			slog.Info("exams file unchanged, skipping", "path", path)
		}
	}
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()

	var since time.Time
	if s := v.GetString("since"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return fmt.Errorf("parse --since: %w", err)
		}
		since = t
	}

	db, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	defer db.Close()

	list, err := db.ExportCorrections(ctx, since)
	if err != nil {
		return fmt.Errorf("export corrections: %w", err)
	}
	return writeJSONOutput(v.GetString("output"), list)
}

func runReport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()

	lang, err := initI18n(v)
	if err != nil {
		return err
	}

	db, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	defer db.Close()

	list, err := db.ListCorrections(ctx)
	if err != nil {
		return fmt.Errorf("list corrections: %w", err)
	}
	dash := report.Build(list, report.Options{
		TopStudents: v.GetInt("top-students"),
		TrendWindow: v.GetInt("trend-window"),
	})

	locCtx := appI18n.WithLocalizer(ctx, appI18n.NewLocalizer(lang))
	fmt.Fprintln(os.Stderr, appI18n.Tp(locCtx, "CorrectionsCount", dash.Total))
	return writeJSONOutput("-", dash)
}

func runSetupPassword(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()

	password := v.GetString("password")
	if password == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprint(os.Stderr, "Grader password: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		password = string(raw)
	}
	if len(password) < 6 {
		return errors.New("password must be at least 6 characters: set --password or EXAMDESK_PASSWORD")
	}

	db, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := db.SetPasswordHash(ctx, string(hash)); err != nil {
		if errors.Is(err, model.ErrConflict) {
			return errors.New("a password has already been set")
		}
		return fmt.Errorf("store password: %w", err)
	}
	slog.Info("grader password set")
	return nil
}

func writeJSONOutput(outPath string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

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
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)
	return nil
}
