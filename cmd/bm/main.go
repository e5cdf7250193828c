package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/golang/glog"
	"github.com/nikbrunner/bm/internal/culler"
	"github.com/nikbrunner/bm/internal/exporter"
	"github.com/nikbrunner/bm/internal/fetch"
	"github.com/nikbrunner/bm/internal/importer"
	"github.com/nikbrunner/bm/internal/model"
	"github.com/nikbrunner/bm/internal/picker"
	"github.com/nikbrunner/bm/internal/search"
	"github.com/nikbrunner/bm/internal/storage"
	"github.com/nikbrunner/bm/internal/thumbnail"
	"github.com/nikbrunner/bm/internal/tui"
	"github.com/nikbrunner/bm/internal/updater"
)

var sourceFlag = flag.String("source", "", "read bookmarks from a Netscape HTML file instead of the local store")

func main() {
	flag.Usage = printHelp
	flag.Parse()
	defer glog.Flush()

	args := flag.Args()
	if len(args) >= 1 {
		switch args[0] {
		case "help", "--help", "-h":
			printHelp()
			return
		case "import":
			if len(args) < 2 {
				fatalf("Usage: bm import <file.html>\n")
			}
			runImport(args[1])
			return
		case "export":
			// Export with optional path
			var outputPath string
			if len(args) >= 2 {
				outputPath = args[1]
			}
			runExport(outputPath)
			return
		case "tags":
			runTags()
			return
		case "list":
			runList(args[1:])
			return
		case "cull":
			runCull(args[1:])
			return
		case "prefetch":
			runPrefetch()
			return
		default:
			// Treat as search query (join all remaining args)
			query := strings.Join(args, " ")
			runQuickSearch(query)
			return
		}
	}

	// No args - run full TUI
	runTUI()
}

func printHelp() {
	help := `bm - terminal bookmark browser with thumbnails

Usage:
  bm [-source file.html]   Open interactive browser
  bm <query>               Quick search → select → open
  bm list [-t tag] [text]  Print bookmarks matching tag and search text
  bm tags                  List tags with bookmark counts
  bm import <file>         Import bookmarks from HTML
  bm export [path]         Export bookmarks to HTML
  bm cull [-remove]        Check for dead links
  bm prefetch              Download thumbnails for all bookmarks
  bm help                  Show this help

Browser Keybindings:
  j/k         Move down/up
  gg/G        Jump to top/bottom
  /           Search title, URL and tags
  Tab/S-Tab   Cycle tag filter
  Esc         Clear search and tag
  Enter/o     Open bookmark in browser
  Y           Share (copy URL to clipboard)
  r           Refresh from source
  ?           Show help overlay
  q           Quit

Logging flags (glog): -v=N, -logtostderr, -log_dir=DIR

Data Storage:
  ~/.config/bm/bookmarks.db or ~/.config/bm/bookmarks.json
  ~/.config/bm/config.json
`
	fmt.Print(help)
}

// fatalf prints to stderr, flushes logs and exits with status 1.
func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
	glog.Flush()
	os.Exit(1)
}

// loadConfig loads the app config, falling back to defaults on error.
func loadConfig() storage.Config {
	path, err := storage.DefaultConfigFilePath()
	if err != nil {
		glog.Warningf("config path: %v\n", err)
		return storage.DefaultConfig()
	}
	cfg, err := storage.LoadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid config %s: %v (using defaults)\n", path, err)
		return storage.DefaultConfig()
	}
	return *cfg
}

// openStore opens the storage backend and loads its items into a store.
func openStore() (storage.Storage, *model.Store) {
	st, err := storage.OpenStorage()
	if err != nil {
		fatalf("Error opening storage: %v\n", err)
	}

	items, err := st.Load()
	if err != nil {
		fatalf("Error loading bookmarks: %v\n", err)
	}
	return st, model.NewStore(items...)
}

// newThumbnailCache wires the fetch pipeline behind a thumbnail cache.
func newThumbnailCache(cfg storage.Config) *thumbnail.Cache {
	var fetcher thumbnail.Fetcher = fetch.NewHTTPFetcher(fetch.HTTPParams{
		Timeout:     cfg.FetchTimeout(),
		Concurrency: cfg.FetchConcurrency,
		Size:        cfg.ThumbnailSize,
	})
	if cfg.ShouldPersistThumbnails() && cfg.ThumbnailDir != "" {
		fetcher = fetch.NewDiskCache(cfg.ThumbnailDir, fetcher)
	}
	return thumbnail.NewCache(thumbnail.CacheParams{
		Fetcher:  fetcher,
		Capacity: cfg.ThumbnailCacheSize,
	})
}

// runTUI runs the full interactive browser.
func runTUI() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := loadConfig()

	var source updater.Source
	if *sourceFlag != "" {
		source = updater.HTMLFileSource{Path: *sourceFlag}
	} else {
		st, err := storage.OpenStorage()
		if err != nil {
			fatalf("Error opening storage: %v\n", err)
		}
		if c, ok := st.(interface{ Close() error }); ok {
			defer c.Close()
		}
		source = updater.StorageSource{Storage: st}
	}

	store := model.NewStore()
	u := updater.New(store, source)
	if err := u.Refresh(ctx); err != nil {
		fatalf("Error loading bookmarks: %v\n", err)
	}

	cache := newThumbnailCache(cfg)
	defer cache.Close()

	app := tui.NewApp(tui.AppParams{
		Store:   store,
		Cache:   cache,
		Updater: u,
		Context: ctx,
	})
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Error running app: %v\n", err)
	}
	u.Wait()
}

// runQuickSearch performs a fuzzy search and opens the selected bookmark.
func runQuickSearch(query string) {
	_, store := openStore()

	results := search.FuzzySearch(store.Items(), query)

	if len(results) == 0 {
		fmt.Printf("No bookmarks found for '%s'\n", query)
		return
	}

	var selected model.Item

	if len(results) == 1 {
		// Single result - select it directly
		selected = results[0].Item
		fmt.Printf("Opening: %s\n", selected.DisplayTitle())
	} else {
		// Multiple results - show picker
		p := picker.New(results, query)
		program := tea.NewProgram(p)
		finalModel, err := program.Run()
		if err != nil {
			fatalf("Error running picker: %v\n", err)
		}

		var ok bool
		selected, ok = finalModel.(picker.Picker).Selected()
		if !ok {
			return
		}
	}

	if err := tui.OpenURL(selected.URL); err != nil {
		fatalf("Error opening URL: %v\n", err)
	}
}

// runImport handles the import subcommand.
func runImport(filePath string) {
	st, store := openStore()

	file, err := os.Open(filePath)
	if err != nil {
		fatalf("Error opening file: %v\n", err)
	}
	defer file.Close()

	items, err := importer.ParseHTMLBookmarks(file)
	if err != nil {
		fatalf("Error parsing HTML: %v\n", err)
	}

	added, skipped := store.Merge(items)

	if err := st.Save(store.Items()); err != nil {
		fatalf("Error saving bookmarks: %v\n", err)
	}

	fmt.Printf("Imported %d bookmarks", added)
	if skipped > 0 {
		fmt.Printf(" (%d duplicates skipped)", skipped)
	}
	fmt.Println()
}

// runExport handles the export subcommand.
func runExport(outputPath string) {
	// Determine output path
	if outputPath == "" {
		var err error
		outputPath, err = exporter.DefaultExportPath()
		if err != nil {
			fatalf("Error getting default export path: %v\n", err)
		}
	}

	_, store := openStore()
	items := store.Items()

	// Write to file
	if err := os.WriteFile(outputPath, []byte(exporter.ExportHTML(items)), 0644); err != nil {
		fatalf("Error writing file: %v\n", err)
	}

	fmt.Printf("Exported %d bookmarks to %s\n", len(items), outputPath)
}

// runTags prints every tag with the number of bookmarks carrying it.
func runTags() {
	_, store := openStore()

	for _, tag := range store.Tags() {
		n := 0
		for range store.Query(model.Query{Tag: tag}) {
			n++
		}
		fmt.Printf("%-24s %d\n", tag, n)
	}
}

// runList prints bookmarks matching an optional tag and search text.
func runList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	tag := fs.String("t", "", "only list bookmarks with this tag")
	_ = fs.Parse(args)

	_, store := openStore()

	q := model.Query{Tag: *tag, Search: strings.Join(fs.Args(), " ")}
	n := 0
	for it := range store.Query(q) {
		line := it.DisplayTitle() + "\t" + it.URL
		if len(it.Tags) > 0 {
			line += "\t#" + strings.Join(it.Tags, " #")
		}
		fmt.Println(line)
		n++
	}
	if n == 0 {
		fmt.Fprintln(os.Stderr, "No bookmarks match")
	}
}

// runCull checks every bookmark URL and reports dead links.
func runCull(args []string) {
	fs := flag.NewFlagSet("cull", flag.ExitOnError)
	remove := fs.Bool("remove", false, "remove dead bookmarks from the store")
	exclude := fs.String("exclude", "github.com,gitlab.com", "comma-separated domains where 404 means private, not dead")
	_ = fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st, store := openStore()
	cfg := loadConfig()

	var domains []string
	for _, d := range strings.Split(*exclude, ",") {
		if d = strings.TrimSpace(d); d != "" {
			domains = append(domains, d)
		}
	}

	results := culler.CheckURLs(ctx, store.Items(), culler.Params{
		Concurrency:    cfg.FetchConcurrency * 2,
		Timeout:        cfg.FetchTimeout(),
		ExcludeDomains: domains,
		OnProgress: func(completed, total int) {
			fmt.Fprintf(os.Stderr, "\rChecked %d/%d", completed, total)
		},
	})
	fmt.Fprintln(os.Stderr)

	var dead, unreachable int
	for _, r := range results {
		switch r.Status {
		case culler.Dead:
			dead++
			fmt.Printf("dead         %d  %s  %s\n", r.StatusCode, r.Item.DisplayTitle(), r.Item.URL)
		case culler.Unreachable:
			unreachable++
			fmt.Printf("unreachable  %s  %s  %s\n", r.Error, r.Item.DisplayTitle(), r.Item.URL)
		}
	}
	fmt.Printf("%d dead, %d unreachable, %d checked\n", dead, unreachable, len(results))

	if *remove && dead > 0 {
		if ctx.Err() != nil {
			fatalf("Interrupted, not removing anything\n")
		}
		store.Apply(culler.DeadDelta(results))
		if err := st.Save(store.Items()); err != nil {
			fatalf("Error saving bookmarks: %v\n", err)
		}
		fmt.Printf("Removed %d dead bookmarks\n", dead)
	}
}

// runPrefetch downloads thumbnails for every bookmark into the disk cache.
func runPrefetch() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := loadConfig()
	if !cfg.ShouldPersistThumbnails() {
		fatalf("Thumbnail persistence is disabled in config; nothing to prefetch into\n")
	}

	_, store := openStore()
	cache := newThumbnailCache(cfg)
	defer cache.Close()

	items := store.Items()
	n, err := fetch.Prefetch(ctx, cache, items, cfg.FetchConcurrency)
	fmt.Printf("Prefetched %d/%d thumbnails\n", n, len(items))
	if err != nil {
		fatalf("Interrupted: %v\n", err)
	}
}
