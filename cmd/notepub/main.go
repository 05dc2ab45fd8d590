// Command notepub publishes a rendered document as a share link.
//
// Usage:
//
//	notepub -config notepub.yaml -doc my-note -page http://localhost:8080/render
//	notepub -config notepub.yaml -doc my-note -page ... -dry-run   # markdown preview
//	notepub -config notepub.yaml -mcp                              # serve MCP tools on stdio
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/go-rod/rod"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/notepub/publish"
	"github.com/hazyhaar/notepub/remote"
	"github.com/hazyhaar/notepub/renderwatch"
	"github.com/hazyhaar/notepub/store"
	"github.com/hazyhaar/notepub/transform"
)

func main() {
	configPath := flag.String("config", "notepub.yaml", "path to config file")
	docID := flag.String("doc", "", "document identifier")
	title := flag.String("title", "", "document title")
	pageURL := flag.String("page", "", "URL of the rendered document page")
	browserURL := flag.String("browser", "", "remote browser devtools URL (empty launches headless)")
	cssFile := flag.String("css", "", "path to the aggregated stylesheet text")
	vaultDir := flag.String("vault", ".", "directory local asset references resolve against")
	dryRun := flag.Bool("dry-run", false, "print the markdown preview, publish nothing")
	forceTheme := flag.Bool("force-theme", false, "re-upload the theme stylesheet")
	plain := flag.Bool("plain", false, "publish unencrypted")
	serveMCP := flag.Bool("mcp", false, "serve MCP tools on stdio")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, options{
		configPath: *configPath,
		docID:      *docID,
		title:      *title,
		pageURL:    *pageURL,
		browserURL: *browserURL,
		cssFile:    *cssFile,
		vaultDir:   *vaultDir,
		dryRun:     *dryRun,
		forceTheme: *forceTheme,
		plain:      *plain,
		serveMCP:   *serveMCP,
	}); err != nil {
		logger.Error("notepub: fatal", "error", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	docID      string
	title      string
	pageURL    string
	browserURL string
	cssFile    string
	vaultDir   string
	dryRun     bool
	forceTheme bool
	plain      bool
	serveMCP   bool
}

func run(ctx context.Context, logger *slog.Logger, opts options) error {
	cfg, err := publish.LoadFile(opts.configPath)
	if err != nil {
		return err
	}
	if cfg.StorePath == "" {
		cfg.StorePath = "notepub.db"
	}

	meta, err := store.Open(cfg.StorePath)
	if err != nil {
		return err
	}
	defer meta.Close()

	transport := remote.NewClient(remote.ClientConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Logger:  logger,
	})

	pub := publish.New(cfg, publish.Deps{
		Transport: transport,
		Store:     meta,
		Status: func(state publish.State, msg string) {
			logger.Info("notepub: "+msg, "state", string(state))
		},
		OnAuthNeeded: func() {
			fmt.Fprintln(os.Stderr, "no api key configured; set api_key in "+opts.configPath)
		},
		Logger: logger,
	})

	if opts.serveMCP {
		srv := mcp.NewServer(&mcp.Implementation{
			Name:    "notepub",
			Version: "1.0.0",
		}, nil)
		pub.RegisterMCP(srv)
		logger.Info("notepub: serving MCP on stdio")
		return srv.Run(ctx, &mcp.StdioTransport{})
	}

	if opts.docID == "" {
		return errors.New("notepub: -doc is required")
	}
	if opts.pageURL == "" {
		return errors.New("notepub: -page is required")
	}

	page, cleanup, err := renderwatch.OpenPage(ctx, opts.browserURL, opts.pageURL, renderwatch.RodConfig{})
	if err != nil {
		return err
	}
	defer cleanup()

	css := ""
	if opts.cssFile != "" {
		raw, err := os.ReadFile(opts.cssFile)
		if err != nil {
			return fmt.Errorf("notepub: read css: %w", err)
		}
		css = string(raw)
	}

	req := publish.Request{
		DocID:       opts.docID,
		Title:       opts.title,
		Source:      renderwatch.NewRodSource(page, renderwatch.RodConfig{}),
		CSS:         css,
		Styles:      captureStyles(page),
		Vault:       dirVault{root: opts.vaultDir},
		ForceTheme:  opts.forceTheme,
		Unencrypted: opts.plain,
	}

	if opts.dryRun {
		md, err := pub.Preview(ctx, req)
		if err != nil {
			return err
		}
		fmt.Println(md)
		return nil
	}

	res, err := pub.Run(ctx, req)
	if err != nil {
		return err
	}
	fmt.Println(res.Link)
	return nil
}

// captureStyles snapshots the presentation of the page's structural elements.
// Best effort: a missing element just contributes nothing.
func captureStyles(page *rod.Page) []transform.ElementStyle {
	var styles []transform.ElementStyle
	for _, sel := range []string{"html", "body"} {
		el, err := page.Element(sel)
		if err != nil {
			continue
		}
		es := transform.ElementStyle{Element: sel}
		if class, err := el.Attribute("class"); err == nil && class != nil {
			es.Classes = append(es.Classes, strings.Fields(*class)...)
		}
		if style, err := el.Attribute("style"); err == nil && style != nil {
			es.Style = *style
		}
		styles = append(styles, es)
	}
	return styles
}

// dirVault resolves local asset references inside a root directory.
type dirVault struct {
	root string
}

func (v dirVault) ReadAsset(locator string) ([]byte, error) {
	if !filepath.IsLocal(locator) {
		return nil, fmt.Errorf("notepub: locator escapes vault: %s", locator)
	}
	return os.ReadFile(filepath.Join(v.root, locator))
}
