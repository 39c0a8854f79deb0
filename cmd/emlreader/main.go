// Command emlreader processes RFC 5322 .eml files from the command line:
// single-file inspection, concurrent batch analysis of a directory tree,
// and running the HTTP server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/schollz/progressbar/v3"

	"github.com/thegeek/eml-reader/internal/config"
	"github.com/thegeek/eml-reader/internal/eml"
	"github.com/thegeek/eml-reader/internal/logger"
	"github.com/thegeek/eml-reader/internal/server"
	"github.com/thegeek/eml-reader/internal/thread"
)

const usage = `Usage: emlreader <command> [options]

Commands:
  process <file>   Parse and classify a single .eml file
  analyze <dir>    Analyze all .eml files under a directory tree
  serve            Run the HTTP API server
  status           Query a running server's status endpoint

Run 'emlreader <command> -h' for command options.`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "process":
		err = runProcess(os.Args[2:])
	case "analyze":
		err = runAnalyze(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "status":
		err = runStatus(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Println(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runProcess(args []string) error {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	pretty := fs.Bool("pretty", false, "indent JSON output")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("process requires exactly one file argument")
	}
	path := fs.Arg(0)

	parser := eml.NewParser()
	rec, err := parser.ParseFile(path)
	if err != nil {
		return err
	}

	classifier := thread.NewClassifier()
	out := struct {
		File           string                `json:"file"`
		Summary        eml.RecordSummary     `json:"summary"`
		Classification thread.Classification `json:"classification"`
		Record         *eml.Record           `json:"record"`
	}{
		File:           path,
		Summary:        eml.Summarize(rec),
		Classification: classifier.Classify(rec),
		Record:         rec,
	}

	return writeJSON(os.Stdout, out, *pretty)
}

// analyzeReport is the batch analysis result printed (or dumped as JSON)
// by the analyze command.
type analyzeReport struct {
	Directory   string           `json:"directory"`
	FilesFound  int              `json:"files_found"`
	Processed   int              `json:"processed"`
	Failed      int              `json:"failed"`
	ThreadCount int              `json:"thread_count"`
	Elapsed     string           `json:"elapsed"`
	Threads     []thread.Summary `json:"threads"`
}

func runAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	workers := fs.Int("w", runtime.GOMAXPROCS(0), "number of parallel workers")
	outPath := fs.String("o", "", "write the full JSON report to this file")
	pretty := fs.Bool("pretty", false, "indent JSON output")
	maxThreads := fs.Int("max-threads", 0, "evict oldest threads beyond this count (0 = unlimited)")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("analyze requires exactly one directory argument")
	}
	dir := fs.Arg(0)

	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.EqualFold(filepath.Ext(path), ".eml") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cannot read directory %s: %w", dir, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no .eml files found under %s", dir)
	}

	log := logger.New(logger.DefaultConfig())
	registry := thread.NewRegistry(thread.RegistryConfig{MaxThreads: *maxThreads})
	parser := eml.NewParser()

	start := time.Now()
	wp := workerpool.New(*workers)
	bar := progressbar.Default(int64(len(files)))

	var mu sync.Mutex
	var failed int

	for _, path := range files {
		path := path
		wp.Submit(func() {
			defer bar.Add(1)

			rec, err := parser.ParseFile(path)
			if err != nil {
				log.Warn("cannot process file",
					slog.String("path", path),
					slog.String("error", err.Error()),
				)
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			registry.Ingest(rec)
		})
	}
	wp.StopWait()

	summaries := registry.AllSummaries()
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].MessageCount != summaries[j].MessageCount {
			return summaries[i].MessageCount > summaries[j].MessageCount
		}
		return summaries[i].ThreadID < summaries[j].ThreadID
	})

	report := analyzeReport{
		Directory:   dir,
		FilesFound:  len(files),
		Processed:   len(files) - failed,
		Failed:      failed,
		ThreadCount: len(summaries),
		Elapsed:     time.Since(start).Round(time.Millisecond).String(),
		Threads:     summaries,
	}

	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := writeJSON(f, report, *pretty); err != nil {
			return err
		}
	}

	printReport(report)
	return nil
}

func printReport(report analyzeReport) {
	fmt.Printf("\nProcessed %d/%d files (%d failed) in %s\n",
		report.Processed, report.FilesFound, report.Failed, report.Elapsed)
	fmt.Printf("Threads: %d\n\n", report.ThreadCount)

	top := report.Threads
	if len(top) > 5 {
		top = top[:5]
	}
	for _, s := range top {
		subject := s.Subject
		if subject == "" {
			subject = "(no subject)"
		}
		fmt.Printf("  %s  %3d msgs  depth %2d  %-11s  %s\n",
			s.ThreadID, s.MessageCount, s.MaxDepth,
			s.Engagement.ActivityLevel, subject)
	}
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	host := fs.String("host", "", "listen host (overrides SERVER_HOST)")
	port := fs.String("port", "", "listen port (overrides SERVER_PORT)")
	fs.Parse(args)

	cfg := config.Load()
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	log := logger.New(logger.DefaultConfig())
	slog.SetDefault(log)

	return server.Run(cfg, log)
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8080", "server base URL")
	fs.Parse(args)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(strings.TrimRight(*addr, "/") + "/api/status")
	if err != nil {
		return fmt.Errorf("cannot reach server: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	fmt.Println(strings.TrimSpace(string(body)))
	return nil
}

func writeJSON(w io.Writer, v interface{}, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
