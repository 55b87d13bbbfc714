package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fitfind/fitfind/internal/app"
	"github.com/fitfind/fitfind/internal/config"
	"github.com/fitfind/fitfind/internal/directlinks"
	"github.com/fitfind/fitfind/internal/llm"
	"github.com/fitfind/fitfind/internal/pipeline"
	"github.com/fitfind/fitfind/internal/storage"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

func main() {
	os.Exit(run())
}

func run() int {
	imagePath := flag.String("image", "", "Path to the outfit image (required)")
	country := flag.String("country", "", "Search country, e.g. us")
	language := flag.String("language", "", "Search language, e.g. en")
	output := flag.String("output", "", "Output base path for artifacts (default results/<image name>)")
	links := flag.Bool("links", true, "Extract direct retailer links")
	progressFile := flag.String("progress-file", "", "Write direct link progress snapshots to this JSON file")
	noCache := flag.Bool("no-cache", false, "Skip the extraction cache")
	rawJSON := flag.Bool("json", false, "Print the result as JSON")
	interactive := flag.Bool("interactive", true, "Offer to redo the search with feedback")
	flag.Parse()

	if *imagePath == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -image <path> [flags]\n\n", os.Args[0])
		flag.PrintDefaults()
		return 2
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	config.LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		return fail(err)
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	if missing := config.CheckRequired(); len(missing) > 0 {
		return fail(fmt.Errorf("missing required config: %s", strings.Join(missing, ", ")))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var cache llm.ExtractionCache
	if !*noCache {
		store, err := storage.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return fail(err)
		}
		defer store.Close()
		cache = store
	}

	var observer directlinks.Observer
	if *progressFile != "" {
		snap := directlinks.NewFileSnapshotter(*progressFile, 0)
		defer snap.Close()
		observer = snap
	}

	p, err := app.NewPipeline(ctx, cfg, cache, observer)
	if err != nil {
		return fail(err)
	}

	base := *output
	if base == "" {
		name := strings.TrimSuffix(filepath.Base(*imagePath), filepath.Ext(*imagePath))
		base = filepath.Join(cfg.ResultsDir, name)
	}
	locale := app.Locale(cfg)
	if *country != "" {
		locale.Country = *country
	}
	if *language != "" {
		locale.Language = *language
	}

	opts := pipeline.Options{
		Locale:              locale,
		IncludeConversation: true,
		OutputBase:          base,
		SaveRaw:             true,
		SaveCleaned:         true,
		SaveCSV:             true,
		ExtractDirectLinks:  *links,
		Progress: func(stage pipeline.Stage, msg string) {
			fmt.Fprintln(os.Stderr, dimStyle.Render(fmt.Sprintf("[%s] %s", stage, msg)))
		},
	}

	show := func(res *pipeline.Result) {
		switch {
		case res.Failure != nil:
			printFailure(res.Failure)
		case *rawJSON:
			printJSON(res)
		default:
			printSummary(res)
		}
	}
	ask := askRedo
	if !*interactive || !config.IsInteractiveTerminal() {
		ask = func() (string, bool, error) { return "", false, nil }
	}

	res := p.Run(ctx, pipeline.Request{ImagePath: *imagePath, Options: opts})
	res = redoLoop(ctx, p, res, opts, ask, show)
	if res.Failure != nil {
		return 1
	}
	return 0
}

type continuer interface {
	Continue(ctx context.Context, conv llm.Conversation, feedback string, opts pipeline.Options) *pipeline.Result
}

// redoLoop shows res and keeps offering redo rounds. A failed round is
// shown but the last good result and its conversation stay current. It
// returns the last good result, or res when no round succeeded.
func redoLoop(ctx context.Context, p continuer, res *pipeline.Result, opts pipeline.Options, ask func() (string, bool, error), show func(*pipeline.Result)) *pipeline.Result {
	best := res
	conv := res.Conversation
	show(res)

	for conv != nil && ctx.Err() == nil {
		feedback, again, err := ask()
		if err != nil || !again {
			break
		}
		next := p.Continue(ctx, *conv, feedback, opts)
		show(next)
		if next.Failure != nil {
			continue
		}
		best = next
		if next.Conversation != nil {
			conv = next.Conversation
		}
	}
	return best
}

// askRedo asks whether to refine the queries. An empty feedback string
// uses the default redo prompt.
func askRedo() (string, bool, error) {
	var again bool
	if err := huh.NewConfirm().
		Title("Redo the search with feedback?").
		Affirmative("Yes").
		Negative("No").
		Value(&again).
		Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", false, nil
		}
		return "", false, err
	}
	if !again {
		return "", false, nil
	}

	var feedback string
	err := huh.NewInput().
		Title("What should change?").
		Description("Leave empty to just ask for a fresh look").
		Value(&feedback).
		Run()
	return strings.TrimSpace(feedback), err == nil, err
}

func printSummary(res *pipeline.Result) {
	fmt.Println()
	fmt.Println(titleStyle.Render(fmt.Sprintf("%d items identified, %d products found", res.ItemsIdentified, res.ProductsFound)))
	if res.Cached {
		fmt.Println(dimStyle.Render("(queries from cache)"))
	}
	for i, q := range res.Queries {
		fmt.Printf("  %d. %s\n", i+1, q)
	}

	if res.CleanedData != nil {
		fmt.Println()
		for _, item := range res.CleanedData.ClothingItems {
			line := fmt.Sprintf("%s (%s): %d products", item.Query, item.ItemType, item.TotalProducts)
			if item.PriceRange != nil {
				line += fmt.Sprintf(", $%.2f - $%.2f", item.PriceRange.Min, item.PriceRange.Max)
			}
			fmt.Println("  " + line)
		}
		for _, e := range res.CleanedData.Summary.ErrorItems {
			fmt.Println(errStyle.Render(fmt.Sprintf("  %s: %s", e.Query, e.Error)))
		}
	}

	if res.DirectLinks != nil {
		fmt.Println(dimStyle.Render(fmt.Sprintf("  direct links: %d/%d pages resolved, %d rate limited",
			res.DirectLinks.Successful, res.DirectLinks.TotalURLs, res.DirectLinks.RateLimitHits)))
	}
	if res.DirectLinksError != "" {
		fmt.Println(errStyle.Render("  direct links failed: " + res.DirectLinksError))
	}

	fmt.Println()
	for _, path := range []string{res.CSVPath, res.RawPath, res.CleanedPath} {
		if path != "" {
			fmt.Println(dimStyle.Render("  saved " + path))
		}
	}
	fmt.Println()
}

func printFailure(f *pipeline.Failure) {
	fmt.Fprintln(os.Stderr, errStyle.Render(fmt.Sprintf("Error (%s): %s", f.Kind, f.Message)))
	if f.RawResponse != "" {
		fmt.Fprintln(os.Stderr, dimStyle.Render("Raw response: "+f.RawResponse))
	}
}

func printJSON(res *pipeline.Result) {
	out := *res
	out.Conversation = nil
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		fail(err)
		return
	}
	fmt.Println(string(data))
}

func fail(err error) int {
	fmt.Fprintln(os.Stderr, errStyle.Render("Error: "+err.Error()))
	return 1
}
