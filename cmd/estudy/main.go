package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
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
	"golang.org/x/crypto/bcrypt"

	"github.com/shacademia/estudy/internal/handler"
	appI18n "github.com/shacademia/estudy/internal/i18n"
	"github.com/shacademia/estudy/internal/llm"
	"github.com/shacademia/estudy/internal/mailer"
	"github.com/shacademia/estudy/internal/model"
	"github.com/shacademia/estudy/internal/store"
	"github.com/shacademia/estudy/internal/token"
	"github.com/shacademia/estudy/internal/upload"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "estudy",
		Short: "Exam platform with question bank, rankings and role-based access",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `estudy --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "estudy.db", "SQLite database path")
	f.String("jwt-secret", "", "Session token signing secret, at least 32 characters (or set ESTUDY_JWT_SECRET)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.StringP("lang", "l", "en", "Default language for messages and email (en, hi)")
	f.String("upload-dir", "uploads", "Directory for uploaded images")
	f.StringSliceP("questions", "q", nil, "Paths to question JSON files to import on startup (repeatable)")
	f.String("admin-email", "admin@localhost", "Initial admin email")
	f.String("admin-password", "", "Initial admin password (or set ESTUDY_ADMIN_PASSWORD)")
	f.String("smtp-host", "", "SMTP host (empty disables email delivery)")
	f.Int("smtp-port", 587, "SMTP port")
	f.String("smtp-username", "", "SMTP username")
	f.String("smtp-password", "", "SMTP password")
	f.String("smtp-from", "no-reply@localhost", "From address for outgoing email")
	f.String("smtp-from-name", "eStudy", "From name for outgoing email")
	f.String("llm-url", "", "OpenAI-compatible API base URL for question drafting (empty disables)")
	f.String("llm-key", "", "API key for the drafting endpoint")
	f.String("llm-model", "llama3.2", "Model name for question drafting")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export exam results as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "estudy.db", "SQLite database path")
	f.Int64("exam-id", 0, "Exam ID to export (required)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("exam-id")

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

	v.SetEnvPrefix("ESTUDY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("estudy")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/estudy")
	v.AddConfigPath("/etc/estudy")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	codec, err := token.NewCodec(v.GetString("jwt-secret"))
	if err != nil {
		return fmt.Errorf("token codec: %w", err)
	}

	// Seed default admin account if no users exist.
	if err := seedAdmin(db, v.GetString("admin-email"), v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	if err := loadQuestions(db, v.GetStringSlice("questions")); err != nil {
		return fmt.Errorf("load questions: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	mail := mailer.New(mailer.Config{
		Host:        v.GetString("smtp-host"),
		Port:        v.GetInt("smtp-port"),
		Username:    v.GetString("smtp-username"),
		Password:    v.GetString("smtp-password"),
		FromAddress: v.GetString("smtp-from"),
		FromName:    v.GetString("smtp-from-name"),
	})
	if !mail.Enabled() {
		slog.Warn("SMTP host not configured, email delivery disabled")
	}

	// Question drafting is optional; the API returns 503 when disabled.
	var llmClient *llm.Client
	if url := v.GetString("llm-url"); url != "" {
		llmClient = llm.New(url, v.GetString("llm-key"), v.GetString("llm-model"))
		if err := llmClient.Ping(context.Background()); err != nil {
			return fmt.Errorf("LLM health check: %w", err)
		}
		slog.Info("LLM endpoint OK", "url", url, "model", v.GetString("llm-model"))
	}

	uploads, err := upload.New(v.GetString("upload-dir"))
	if err != nil {
		return fmt.Errorf("upload store: %w", err)
	}

	h := handler.New(db, codec, mail, llmClient, uploads, handler.Config{
		SecureCookies: v.GetBool("secure-cookies"),
	})

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))

	r.Route("/api", func(api chi.Router) {
		api.Use(h.EdgeGate)
		h.Routes(api)
	})

	fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploads.Dir())))
	r.Get("/uploads/*", fs.ServeHTTP)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"db", v.GetString("db"),
		"lang", lang,
		"upload_dir", uploads.Dir(),
		"mail_enabled", mail.Enabled(),
		"drafting_enabled", llmClient != nil,
	)
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.ExportExamResults(v.GetInt64("exam-id"))
	if err != nil {
		return fmt.Errorf("export exam results: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
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

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}

// loadQuestions imports question files at startup, skipping any file whose
// content hash matches a previous import.
func loadQuestions(db *store.Store, paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		hash := sha256sum(data)
		storedHash, err := db.GetImportedFileHash(path)
		if err != nil {
			return fmt.Errorf("check import status for %s: %w", path, err)
		}

		if storedHash == hash {
			slog.Info("questions file unchanged, skipping", "path", path)
			continue
		}
		if storedHash != "" {
			slog.Warn("questions file changed since last import, skipping to avoid duplicates", "path", path)
			continue
		}

		var questions []model.QuestionImport
		if err := json.Unmarshal(data, &questions); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		imported := 0
		for i, qi := range questions {
			if qi.Content == "" || len(qi.Options) < 2 || qi.CorrectOption < 0 || qi.CorrectOption >= len(qi.Options) {
				slog.Warn("skipping malformed question", "path", path, "index", i)
				continue
			}
			if _, err := db.InsertQuestion(model.Question{
				Content:       qi.Content,
				Options:       qi.Options,
				CorrectOption: qi.CorrectOption,
				Difficulty:    qi.Difficulty,
				Subject:       qi.Subject,
				Topic:         qi.Topic,
				Tags:          qi.Tags,
			}); err != nil {
				return fmt.Errorf("insert question from %s: %w", path, err)
			}
			imported++
		}

		if err := db.SetImportedFileHash(path, hash); err != nil {
			return fmt.Errorf("record import for %s: %w", path, err)
		}
		slog.Info("imported questions", "path", path, "count", imported)
	}

	return nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func seedAdmin(db *store.Store, email, password string) error {
	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or ESTUDY_ADMIN_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateUser(model.User{
		Email:         strings.ToLower(email),
		Name:          "Administrator",
		PasswordHash:  string(hash),
		Role:          model.RoleAdmin,
		Active:        true,
		EmailVerified: true,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "email", email)
	return nil
}
