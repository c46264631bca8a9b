package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/fwojciec/contentsync"
	"github.com/fwojciec/contentsync/clone"
	"github.com/fwojciec/contentsync/prometheus"
)

const backendWordPress = "wordpress"

// ContentCreator creates content items. Only the sqlite backend provides one.
type ContentCreator interface {
	CreateContent(ctx context.Context, content *contentsync.Content) error
}

// MarkdownConverter converts HTML bodies and fragments to Markdown.
type MarkdownConverter interface {
	contentsync.Converter
	ConvertFragments(fragments []string) []string
}

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx       context.Context
	Stdout    io.Writer
	Stderr    io.Writer
	Logger    *slog.Logger
	Store     contentsync.ContentStore
	Creator   ContentCreator
	Cloner    *clone.Cloner
	Schema    *contentsync.Schema
	Converter MarkdownConverter
	Metrics   *prometheus.Metrics
	Progress  clone.ProgressFunc
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Backend      string `default:"sqlite" enum:"sqlite,wordpress" env:"CONTENTSYNC_BACKEND" help:"Content store backend (sqlite or wordpress)"`
	DB           string `name:"db" env:"CONTENTSYNC_DB" help:"SQLite database path"`
	WPURL        string `name:"wp-url" env:"WP_URL" help:"WordPress site URL"`
	WPUser       string `name:"wp-user" env:"WP_USER" help:"WordPress user name"`
	WPPassword   string `name:"wp-password" env:"WP_PASSWORD" help:"WordPress application password"`
	PostType     string `name:"post-type" default:"posts" env:"WP_POST_TYPE" help:"WordPress REST collection, e.g. posts or pages"`
	GeminiAPIKey string `name:"gemini-api-key" env:"GEMINI_API_KEY" help:"Gemini API key"`
	Model        string `default:"gemini-2.5-flash" env:"CONTENTSYNC_MODEL" help:"Gemini model used for translation"`
	BatchTokens  int    `default:"8000" env:"CONTENTSYNC_BATCH_TOKENS" help:"Token budget per fragment request (0 sends one request per item)"`
	Verbose      bool   `short:"v" help:"Enable debug logging"`

	Clone  CloneCmd  `cmd:"" help:"Clone content and translate the clones"`
	Sync   SyncCmd   `cmd:"" help:"Re-translate every sibling in a translation group"`
	Show   ShowCmd   `cmd:"" help:"Show a content item"`
	Import ImportCmd `cmd:"" help:"Import content from a JSON file (sqlite only)"`
	Serve  ServeCmd  `cmd:"" help:"Serve the HTTP API"`
}

// CloneCmd is the "clone" subcommand.
type CloneCmd struct {
	IDs         []int  `arg:"" name:"ids" help:"Source content IDs"`
	Lang        string `short:"l" required:"" help:"Target language code"`
	Concurrency int    `short:"c" default:"1" help:"Items translated at once"`
	JSON        bool   `help:"Print the report as JSON"`
}

// SyncCmd is the "sync" subcommand.
type SyncCmd struct {
	ID    int  `arg:"" help:"Source content ID"`
	Force bool `short:"f" help:"Re-translate siblings that are already up to date"`
	JSON  bool `help:"Print the report as JSON"`
}

// ShowCmd is the "show" subcommand.
type ShowCmd struct {
	ID        int  `arg:"" help:"Content ID"`
	Markdown  bool `short:"m" help:"Convert HTML to Markdown"`
	Fragments bool `help:"List the translatable fragments of the page-builder document"`
}

// ImportCmd is the "import" subcommand.
type ImportCmd struct {
	File string `arg:"" type:"existingfile" help:"JSON file holding a content item or an array of items"`
}

// ServeCmd is the "serve" subcommand.
type ServeCmd struct {
	Addr string `default:":8080" env:"CONTENTSYNC_ADDR" help:"Listen address"`
}
