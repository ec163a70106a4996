// Package main is the inquest CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/casefile/inquest/internal/agent"
	"github.com/casefile/inquest/internal/bates"
	"github.com/casefile/inquest/internal/cli"
	"github.com/casefile/inquest/internal/config"
	"github.com/casefile/inquest/internal/corpus"
	"github.com/casefile/inquest/internal/dedup"
	"github.com/casefile/inquest/internal/extract"
	"github.com/casefile/inquest/internal/indexer"
	"github.com/casefile/inquest/internal/models"
	"github.com/casefile/inquest/internal/server"
	"github.com/casefile/inquest/internal/storage"
	"github.com/casefile/inquest/internal/tooling"
	"github.com/casefile/inquest/internal/verify"
	"github.com/casefile/inquest/internal/watcher"
	"github.com/casefile/inquest/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/inquest/config.yaml"

	// defaultServerURL must agree with the port config.ApplyDefaults assigns,
	// so out-of-the-box subcommands reach an out-of-the-box server.
	defaultServerURL = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, a config.yaml
// in the current directory takes precedence, so running from the project dir
// uses the project's config.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "init":
		runInit()
	case "server":
		runServer()
	case "ask":
		runAsk()
	case "search":
		runSearch()
	case "ingest":
		runIngest()
	case "delete":
		runDelete()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("inquest version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "where to write the starter config")
	_ = fs.Parse(os.Args[2:])

	if err := writeStarterConfig(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Init failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote starter config to %s\n", *configPath)
}

// writeStarterConfig writes a config file populated with defaults. Refuses to
// overwrite an existing file.
func writeStarterConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return config.Save(path, cfg)
}

// Components holds initialized services.
type Components struct {
	Storage storage.Storage
	Index   *corpus.BleveIndex
	Corpus  corpus.Adapter
	Scheme  *bates.Scheme
	Indexer *indexer.Indexer
}

func (c *Components) Close() {
	if c.Index != nil {
		_ = c.Index.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	index, err := corpus.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	detector := dedup.NewDetector(dedup.NewPrefixFingerprinter())
	adapter := corpus.New(index, store, detector, cfg.Search, cfg.Corpus.LinkBaseURL)
	scheme := bates.NewScheme(cfg.Corpus.BatesPrefix, cfg.Corpus.BatesDigits)
	idx := indexer.NewIndexer(store, index, extract.NewExtractor(), scheme, logger)

	return &Components{
		Storage: store,
		Index:   index,
		Corpus:  adapter,
		Scheme:  scheme,
		Indexer: idx,
	}, nil
}

// newInvestigator wires the model client, loop, and citation verifier.
func newInvestigator(ctx context.Context, cfg *config.Config, adapter corpus.Adapter, scheme *bates.Scheme, logger *zap.Logger) (*agent.Service, *agent.GeminiClient, error) {
	model, err := agent.NewGeminiClient(ctx, cfg.Model)
	if err != nil {
		return nil, nil, err
	}
	validator := tooling.NewValidator(cfg.Search, cfg.Agent)
	loop := agent.NewLoop(model, adapter, validator, scheme, cfg.Agent, logger)
	evaluator := verify.NewModelEvaluator(model.Generate)
	verifier := verify.New(evaluator, logger)
	return agent.NewService(loop, verifier, logger), model, nil
}

// unavailableInvestigator serves /api/v1/ask when no model client could be
// built (typically a missing API key); every question fails with the cause.
type unavailableInvestigator struct{ err error }

func (u *unavailableInvestigator) Investigate(ctx context.Context, question string) (*models.Session, error) {
	return nil, u.err
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode))

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	var investigator server.Investigator
	service, model, err := newInvestigator(ctx, cfg, components.Corpus, components.Scheme, logger)
	if err != nil {
		logger.Warn("model client unavailable; /api/v1/ask will fail", zap.Error(err))
		investigator = &unavailableInvestigator{err: err}
	} else {
		defer model.Close()
		investigator = service
	}

	watchCtx, watchCancel := context.WithCancel(ctx)
	defer watchCancel()
	watchSvc := watcher.New(
		cfg.Watch.Directories,
		cfg.Watch.Extensions,
		cfg.Watch.RecursiveOrDefault(),
		components.Indexer,
		logger,
	)
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	defer watchSvc.Stop()
	watchSvc.SyncExistingFiles(watchCtx)

	srv := server.NewServer(investigator, components.Corpus, components.Storage, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = run the investigation in-process)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: inquest ask [flags] <question>")
		os.Exit(1)
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		fmt.Println("Usage: inquest ask [flags] <question>")
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *serverURL != "" {
		session, err := askViaHTTP(*serverURL, question)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteSession(os.Stdout, session, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	service, model, err := newInvestigator(ctx, cfg, components.Corpus, components.Scheme, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Model unavailable: %v\n", err)
		os.Exit(1)
	}
	defer model.Close()

	session, err := service.Investigate(ctx, question)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Investigation failed: %v\n", err)
		os.Exit(1)
	}
	if err := components.Storage.SaveSession(ctx, session); err != nil {
		logger.Warn("failed to persist session", zap.Error(err))
	}
	if err := cli.WriteSession(os.Stdout, session, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage when server is not running)")
	limit := fs.Int("limit", 0, "number of results (0 = config default)")
	fuzzy := fs.Bool("fuzzy", false, "tolerate spelling variants and OCR errors")
	cooccur := fs.Bool("cooccur", false, "require all terms in the same document")
	exclude := fs.String("exclude", "", "comma-separated terms that disqualify a document")
	minPages := fs.Int("min-pages", 0, "minimum page count")
	maxPages := fs.Int("max-pages", 0, "maximum page count")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: inquest search [flags] <term> [term...]")
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	req := corpus.SearchRequest{
		Terms:    fs.Args(),
		Limit:    *limit,
		Fuzzy:    *fuzzy,
		Cooccur:  *cooccur,
		MinPages: *minPages,
		MaxPages: *maxPages,
	}
	if *exclude != "" {
		for _, term := range strings.Split(*exclude, ",") {
			if t := strings.TrimSpace(term); t != "" {
				req.Exclude = append(req.Exclude, t)
			}
		}
	}

	if *serverURL != "" {
		// Use the HTTP API when the server is running (avoids the Bleve/SQLite
		// lock conflict).
		results, err := searchViaHTTP(*serverURL, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteSearchResults(os.Stdout, results, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	results, err := components.Corpus.Search(context.Background(), req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, results, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: inquest ingest [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Failed to stat path: %v\n", err)
		os.Exit(1)
	}
	if info.IsDir() {
		n, err := components.Indexer.IndexDirectory(ctx, path, cfg.Watch.Extensions)
		if err != nil {
			fmt.Printf("Ingesting directory failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Ingested %d file(s) from %s\n", n, path)
		return
	}
	// Single file: no extension filter.
	if err := components.Indexer.IndexFile(ctx, path, nil); err != nil {
		fmt.Printf("Ingesting failed: %v\n", err)
		os.Exit(1)
	}
	absPath, _ := filepath.Abs(path)
	fmt.Printf("Document ingested: %s\n", components.Scheme.DocID(absPath))
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: inquest delete [flags] <document-id-or-path>")
		os.Exit(1)
	}
	target := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	// Accept a file path in place of an ID when the argument is not a
	// well-formed Bates number.
	docID := target
	if !components.Scheme.Matches(target) {
		if _, statErr := os.Stat(target); statErr == nil {
			abs, _ := filepath.Abs(target)
			docID = components.Scheme.DocID(abs)
		}
	}

	if err := components.Indexer.DeleteDocument(context.Background(), docID); err != nil {
		fmt.Printf("Deletion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Document deleted: %s\n", docID)
}

// statusResponse is the shape of GET /api/v1/status.
type statusResponse struct {
	Documents      int64          `json:"documents"`
	DiskUsageBytes *int64         `json:"disk_usage_bytes,omitempty"`
	Config         map[string]any `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()

		docCount, err := components.Storage.CountDocuments(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count documents failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			Documents: docCount,
			Config: map[string]any{
				"bates_prefix":     cfg.Corpus.BatesPrefix,
				"bates_digits":     cfg.Corpus.BatesDigits,
				"model":            cfg.Model.Name,
				"database_path":    cfg.Storage.DatabasePath,
				"bleve_index_path": cfg.Storage.BleveIndexPath,
			},
		}
		if diskBytes, err := storage.DiskUsageBytes(cfg.Storage.DatabasePath, cfg.Storage.BleveIndexPath); err == nil {
			status.DiskUsageBytes = &diskBytes
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("documents:        %d\n", status.Documents)
		if status.DiskUsageBytes != nil {
			fmt.Printf("disk_usage_bytes: %d\n", *status.DiskUsageBytes)
		}
		if len(status.Config) > 0 {
			fmt.Println()
			fmt.Println("# configuration")
			for _, key := range []string{"bates_prefix", "bates_digits", "model", "database_path", "bleve_index_path"} {
				if v, ok := status.Config[key]; ok {
					fmt.Printf("%-18s%v\n", key+":", v)
				}
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func askViaHTTP(serverURL, question string) (*models.Session, error) {
	body, err := json.Marshal(map[string]string{"question": question})
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: 20 * time.Minute}
	resp, err := client.Post(serverURL+"/api/v1/ask", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var session models.Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &session, nil
}

func searchViaHTTP(serverURL string, req corpus.SearchRequest) (*models.SearchResults, error) {
	body, err := json.Marshal(map[string]any{
		"terms":     req.Terms,
		"limit":     req.Limit,
		"fuzzy":     req.Fuzzy,
		"cooccur":   req.Cooccur,
		"exclude":   req.Exclude,
		"min_pages": req.MinPages,
		"max_pages": req.MaxPages,
	})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var results models.SearchResults
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &results, nil
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func printUsage() {
	fmt.Println(`inquest - evidence-disciplined corpus investigation

Usage:
  inquest init [flags]              Write a starter config file with defaults
  inquest server [flags]            Start the HTTP server (API + file watcher)
  inquest ask [flags] <question>    Investigate a question with cited evidence
  inquest search [flags] <terms>    Direct keyword search (no agent)
  inquest ingest [flags] <path>     Ingest a file or directory into the corpus
  inquest delete [flags] <id>       Delete a document by Bates number or path
  inquest status [flags]            Show corpus and storage status
  inquest version                   Show version
  inquest help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/inquest/config.yaml)
  --debug            Enable debug logging

Ask Flags:
  --config string    Config file path (for in-process mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to run in-process.
  --output string    Output format: text or json (default: text)

Search Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct storage.
  --limit int        Number of results (0 = config default)
  --fuzzy            Tolerate spelling variants and OCR errors
  --cooccur          Require all terms in the same document
  --exclude string   Comma-separated disqualifying terms
  --min-pages int    Minimum page count
  --max-pages int    Maximum page count
  --output string    Output format: text or json (default: text)

Examples:
  inquest server
  inquest ask "Who approved the March wire transfer?"
  inquest search --cooccur wire transfer
  inquest search --fuzzy --exclude "privilege log" kickback
  inquest ingest /data/production
  inquest status --output json`)
}
