package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/contentsync"
	"github.com/fwojciec/contentsync/clone"
	"github.com/fwojciec/contentsync/gemini"
	"github.com/fwojciec/contentsync/goquery"
	"github.com/fwojciec/contentsync/htmltomarkdown"
	"github.com/fwojciec/contentsync/prometheus"
	csslog "github.com/fwojciec/contentsync/slog"
	"github.com/fwojciec/contentsync/sqlite"
	"github.com/fwojciec/contentsync/wordpress"
	"github.com/joho/godotenv"
	"google.golang.org/genai"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A missing .env file is fine.
	_ = godotenv.Load()

	m := NewMain()
	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Database path used when --db is not given. Set before calling Run().
	DBPath string

	// SQLite database used by the sqlite backend.
	DB *sqlite.DB

	// Translators for end-to-end testing. When Translator is set, Gemini
	// is not used.
	Translator contentsync.Translator
	Fragments  contentsync.FragmentTranslator
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		DBPath: defaultDBPath(),
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
		Schema: contentsync.DefaultSchema(),
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("contentsync"),
		kong.Description("Clone page-builder content into other languages."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'contentsync --help' to see available commands")
	}
	if args[0] == "help" {
		args = []string{"--help"}
	}
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			_, _ = parser.Parse(args)
			return nil
		}
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cmd := strings.Fields(kongCtx.Command())[0]

	deps.Logger = newLogger(stderr, cli.Verbose)
	deps.Converter = htmltomarkdown.NewConverter()
	deps.Metrics = prometheus.NewMetrics(nil)
	deps.Progress = deps.Metrics.Progress(csslog.ProgressLogger(deps.Logger))

	store, err := m.openStore(cli, deps)
	if err != nil {
		return err
	}
	defer m.Close()
	deps.Store = csslog.NewLoggingContentStore(store, deps.Logger)

	switch cmd {
	case "clone", "sync", "serve":
		translator, fragments, err := m.translators(ctx, cli, deps)
		if err != nil {
			return err
		}
		deps.Cloner = &clone.Cloner{
			Store:      deps.Store,
			Translator: translator,
			Fragments:  fragments,
			Schema:     deps.Schema,
		}
	}

	return kongCtx.Run(deps)
}

// openStore opens the content store selected by --backend.
func (m *Main) openStore(cli *CLI, deps *Dependencies) (contentsync.ContentStore, error) {
	switch cli.Backend {
	case backendWordPress:
		if cli.WPURL == "" {
			fmt.Fprintln(deps.Stderr, "Hint: Set WP_URL or pass --wp-url")
			return nil, contentsync.Errorf(contentsync.EINVALID, "WordPress site URL required")
		}
		opts := []wordpress.Option{
			wordpress.WithPostType(cli.PostType),
			wordpress.WithLogger(deps.Logger),
		}
		if cli.WPUser != "" {
			opts = append(opts, wordpress.WithCredentials(cli.WPUser, cli.WPPassword))
		}
		store, err := wordpress.NewStore(cli.WPURL, opts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		path := cli.DB
		if path == "" {
			path = m.DBPath
		}
		m.DB = sqlite.NewDB(path)
		if err := m.DB.Open(); err != nil {
			fmt.Fprintf(deps.Stderr, "Hint: Set CONTENTSYNC_DB to use a different database path\n")
			return nil, fmt.Errorf("failed to open database at %q: %w", path, err)
		}
		svc := sqlite.NewContentService(m.DB)
		deps.Creator = svc
		return svc, nil
	}
}

// translators returns the translators used by the cloner, decorated with
// logging and metrics. Fragments without visible text are never sent.
func (m *Main) translators(ctx context.Context, cli *CLI, deps *Dependencies) (contentsync.Translator, contentsync.FragmentTranslator, error) {
	translator, fragments := m.Translator, m.Fragments
	if translator == nil {
		if cli.GeminiAPIKey == "" {
			fmt.Fprintln(deps.Stderr, "GEMINI_API_KEY environment variable not set. Get an API key at https://aistudio.google.com/apikey")
			return nil, nil, errors.New("GEMINI_API_KEY not set")
		}

		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cli.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			fmt.Fprintln(deps.Stderr, "Hint: Check your GEMINI_API_KEY is valid")
			return nil, nil, fmt.Errorf("failed to connect to Gemini API: %w", err)
		}

		var opts []gemini.Option
		if counter, err := gemini.NewTokenCounter(cli.Model); err == nil {
			opts = append(opts, gemini.WithTokenCounter(counter), gemini.WithMaxBatchTokens(cli.BatchTokens))
		} else {
			deps.Logger.Warn("token counting disabled", "model", cli.Model, "err", err)
		}

		t := gemini.NewTranslator(client.Models, cli.Model, opts...)
		translator, fragments = t, t
	}

	translator = prometheus.NewInstrumentedTranslator(csslog.NewLoggingTranslator(translator, deps.Logger), deps.Metrics)
	if fragments != nil {
		fragments = prometheus.NewInstrumentedFragmentTranslator(csslog.NewLoggingFragmentTranslator(fragments, deps.Logger), deps.Metrics)
		fragments = goquery.NewTextFilter(fragments)
	}
	return translator, fragments, nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "contentsync.db"
	}
	dir := filepath.Join(home, ".contentsync")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "contentsync.db")
}
