package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docchat/internal/app"
	"docchat/internal/logger"
)

var ingestWatch bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Ingest a PDF file or every PDF under a directory",
	Long: `Ingest extracts text from PDF files, splits it into chunks, embeds
them, and appends them to the vector index.

Examples:
  docchat ingest manual.pdf
  docchat ingest ./docs
  docchat ingest ./docs --watch   # keep ingesting new PDFs as they appear`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().BoolVar(&ingestWatch, "watch", false, "watch the directory and ingest new PDFs")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := app.New(ctx, cfg, rootDir)
	if err != nil {
		return err
	}
	defer a.Close()

	target := args[0]
	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", target, err)
	}

	if !info.IsDir() {
		result, err := a.Ingestor.Ingest(ctx, target)
		if err != nil {
			return err
		}
		printIngestResult(result.Document.Filename, result.Pages, result.ChunksCreated, result.ChunksSkipped)
		return nil
	}

	paths, err := a.Scanner.Scan(target)
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", target, err)
	}
	if len(paths) == 0 && !ingestWatch {
		fmt.Println("no PDF files found")
		return nil
	}

	if len(paths) > 0 {
		bar := progressbar.Default(int64(len(paths)), "ingesting")
		var failed int
		for _, path := range paths {
			result, err := a.Ingestor.Ingest(ctx, path)
			if err != nil {
				failed++
				logger.Error("failed to ingest %s: %v", path, err)
			} else {
				logger.Debug("ingested %s: %d chunks", result.Document.Filename, result.ChunksCreated)
			}
			bar.Add(1)
		}
		fmt.Printf("ingested %d of %d files\n", len(paths)-failed, len(paths))
		if failed > 0 {
			color.Yellow("%d files failed, see log for details", failed)
		}
	}

	if ingestWatch {
		return watchAndIngest(ctx, a, target)
	}
	return nil
}

// watchSettle is how long a file must go without events before it is
// considered fully written and safe to ingest.
const watchSettle = 500 * time.Millisecond

// watchAndIngest keeps the process alive and ingests PDFs as they land
// in the watched directory. Uploaders write files in several steps, so
// each path is ingested only after its events have settled for a while.
func watchAndIngest(ctx context.Context, a *app.App, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	fmt.Printf("watching %s for new PDFs (ctrl-c to stop)\n", dir)

	pending := make(map[string]time.Time)
	tick := time.NewTicker(watchSettle)
	defer tick.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".pdf") {
				continue
			}
			pending[event.Name] = time.Now()

		case <-tick.C:
			for _, path := range settled(pending, time.Now(), watchSettle) {
				result, err := a.Ingestor.Ingest(ctx, path)
				if err != nil {
					logger.Error("failed to ingest %s: %v", path, err)
					continue
				}
				printIngestResult(result.Document.Filename, result.Pages, result.ChunksCreated, result.ChunksSkipped)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)

		case <-sig:
			fmt.Println("\nstopping watch")
			return nil
		}
	}
}

// settled removes and returns the paths whose last event is at least
// settle old. Paths still receiving writes stay pending.
func settled(pending map[string]time.Time, now time.Time, settle time.Duration) []string {
	var ready []string
	for path, last := range pending {
		if now.Sub(last) >= settle {
			ready = append(ready, path)
			delete(pending, path)
		}
	}
	sort.Strings(ready)
	return ready
}

func printIngestResult(filename string, pages, created, skipped int) {
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("%s %s: %d pages, %d chunks indexed", green("ok"), filename, pages, created)
	if skipped > 0 {
		fmt.Printf(", %d duplicates skipped", skipped)
	}
	fmt.Println()
}
