package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"folio/internal/chunker"
	"folio/internal/config"
	"folio/internal/embedding"
	"folio/internal/enhancer"
	"folio/internal/eval"
	"folio/internal/ingest"
	"folio/internal/llm/openai"
	"folio/internal/log"
	"folio/internal/retriever"
	"folio/internal/server"
	"folio/internal/vectorstore"
	"folio/internal/version"
)

func main() {
	_ = godotenv.Load()
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "serve":
		serveCmd(os.Args[2:])
	case "ingest":
		ingestCmd(os.Args[2:])
	case "query":
		queryCmd(os.Args[2:])
	case "enhance":
		enhanceCmd(os.Args[2:])
	case "eval":
		evalCmd(os.Args[2:])
	case "version":
		fmt.Println(version.String())
	case "help", "-h", "--help":
		usage()
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("folio - reading companion retrieval service")
	fmt.Println("usage:")
	fmt.Println("  folio serve [--config folio.yaml] [--books ./books]")
	fmt.Println("  folio ingest --book <id> [--chapters N]")
	fmt.Println("  folio query --book <id> [--limit 5] [--threshold 0.7] [--chapter N] \"<query>\"")
	fmt.Println("  folio enhance --book <id> [--category concept] \"<selection>\"")
	fmt.Println("  folio eval [--target-size 600] [--overlap 150] [--threshold 0.1]")
	fmt.Println("  folio version")
}

func serverURL() string {
	if v := os.Getenv("FOLIO_SERVER_URL"); v != "" {
		return v
	}
	return "http://localhost:8089"
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func newStore(cfg *config.AppConfig) (vectorstore.VectorStore, error) {
	switch cfg.Store.Provider {
	case "", "memory":
		return vectorstore.NewMemory(), nil
	case "sqlite":
		return vectorstore.OpenSQLite(cfg.Store.SQLitePath)
	case "pgvector":
		return vectorstore.OpenPgVector(cfg.Store.PgDSN, cfg.Embedding.Dim)
	default:
		return nil, fmt.Errorf("unknown vector provider %q", cfg.Store.Provider)
	}
}

func serveCmd(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", config.DefaultPath, "config file")
	booksDir := fs.String("books", "books", "directory holding <bookID>/chapter-NNN.txt files")
	_ = fs.Parse(args)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fatal(err)
	}
	logger := log.New()

	client := openai.New(openai.Config{
		BaseURL:   cfg.Provider.BaseURL,
		APIKey:    cfg.APIKey(),
		ChatModel: cfg.Provider.ChatModel,
		Timeout:   time.Duration(cfg.Provider.TimeoutSecs) * time.Second,
	})
	adapter, err := embedding.New(client, cfg.Embedding.Model, cfg.Embedding.Dim,
		embedding.WithBatchSize(cfg.Embedding.BatchSize),
		embedding.WithBatchGap(time.Duration(cfg.Embedding.BatchGapMs)*time.Millisecond),
		embedding.WithDeadline(time.Duration(cfg.Embedding.DeadlineSec)*time.Second),
		embedding.WithLogger(logger))
	if err != nil {
		fatal(err)
	}
	store, err := newStore(cfg)
	if err != nil {
		fatal(err)
	}

	pipeline := ingest.New(ingest.DirSource{Root: *booksDir}, adapter, store,
		cfg.Chunking, logger)
	retr := retriever.New(adapter, store)
	enh := enhancer.New(retr, client, cfg.Provider.ChatModel, logger)
	bench := eval.NewBenchLog(0)

	api := server.New(pipeline, retr, enh, bench, logger)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := api.Serve(ctx, cfg.Addr); err != nil {
		fatal(err)
	}
}

func ingestCmd(args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	book := fs.String("book", "", "book ID")
	chapters := fs.Int("chapters", 0, "chapter count (0 = autodetect from the serve-side books dir)")
	booksDir := fs.String("books", "books", "books directory, used for autodetect")
	_ = fs.Parse(args)
	if *book == "" {
		fatal(fmt.Errorf("ingest: --book is required"))
	}
	n := *chapters
	if n <= 0 {
		var err error
		n, err = ingest.DirSource{Root: *booksDir}.Chapters(*book)
		if err != nil {
			fatal(err)
		}
		if n == 0 {
			fatal(fmt.Errorf("ingest: no chapters found for %s under %s", *book, *booksDir))
		}
	}
	body, _ := json.Marshal(map[string]int{"chapters": n})
	resp, err := http.Post(serverURL()+"/books/"+url.PathEscape(*book)+"/ingest",
		"application/json", bytes.NewReader(body))
	if err != nil {
		fatal(err)
	}
	defer resp.Body.Close()
	var st ingest.Stats
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		fatal(fmt.Errorf("ingest: server returned %d", resp.StatusCode))
	}
	fmt.Printf("ingested %d chapters, %d chunks (%d fallback vectors)\n",
		st.Chapters, st.Chunks, st.Fallbacks)
}

func queryCmd(args []string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	book := fs.String("book", "", "book ID")
	limit := fs.Int("limit", 0, "max results")
	threshold := fs.Float64("threshold", 0, "similarity threshold")
	chapter := fs.Int("chapter", -1, "chapter to prioritize")
	_ = fs.Parse(args)
	rest := fs.Args()
	if *book == "" || len(rest) == 0 {
		fatal(fmt.Errorf("query: usage: folio query --book <id> \"<query>\""))
	}

	q := url.Values{}
	q.Set("q", rest[0])
	if *limit > 0 {
		q.Set("limit", strconv.Itoa(*limit))
	}
	if *threshold > 0 {
		q.Set("threshold", strconv.FormatFloat(*threshold, 'f', -1, 64))
	}
	if *chapter >= 0 {
		q.Set("chapter", strconv.Itoa(*chapter))
	}
	resp, err := http.Get(serverURL() + "/books/" + url.PathEscape(*book) + "/query?" + q.Encode())
	if err != nil {
		fatal(err)
	}
	defer resp.Body.Close()
	var res struct {
		Results []struct {
			Content      string  `json:"content"`
			ChapterIndex int     `json:"chapterIndex"`
			Similarity   float64 `json:"similarity"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		fatal(err)
	}
	if len(res.Results) == 0 {
		fmt.Println("no matches")
		return
	}
	for _, r := range res.Results {
		fmt.Printf("chapter %d  score=%.3f\n  %s\n", r.ChapterIndex, r.Similarity, r.Content)
	}
}

func enhanceCmd(args []string) {
	fs := flag.NewFlagSet("enhance", flag.ExitOnError)
	book := fs.String("book", "", "book ID")
	category := fs.String("category", "general", "concept | historical | cultural | general")
	_ = fs.Parse(args)
	rest := fs.Args()
	if *book == "" || len(rest) == 0 {
		fatal(fmt.Errorf("enhance: usage: folio enhance --book <id> \"<selection>\""))
	}
	body, _ := json.Marshal(map[string]string{
		"bookID":    *book,
		"selection": rest[0],
		"category":  *category,
	})
	resp, err := http.Post(serverURL()+"/enhance", "application/json", bytes.NewReader(body))
	if err != nil {
		fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		fatal(fmt.Errorf("enhance: %s", apiErr.Message))
	}
	// SSE stream: print each event as it arrives
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	event := ""
	for sc.Scan() {
		line := sc.Text()
		switch {
		case len(line) > 7 && line[:7] == "event: ":
			event = line[7:]
		case len(line) > 6 && line[:6] == "data: ":
			printEnhanceEvent(event, line[6:])
		}
	}
}

func printEnhanceEvent(event, data string) {
	switch event {
	case "sources":
		var p struct {
			Sources []struct {
				ChapterIndex int     `json:"chapterIndex"`
				Similarity   float64 `json:"similarity"`
			} `json:"sources"`
		}
		if json.Unmarshal([]byte(data), &p) == nil {
			fmt.Printf("sources: %d context chunks\n", len(p.Sources))
		}
	case "enhancement":
		var p struct {
			Summary    string  `json:"summary"`
			Confidence float64 `json:"confidence"`
			Data       struct {
				Concepts    []string `json:"concepts"`
				Historical  []string `json:"historical"`
				Cultural    []string `json:"cultural"`
				Connections []string `json:"connections"`
			} `json:"data"`
		}
		if json.Unmarshal([]byte(data), &p) != nil {
			return
		}
		fmt.Printf("\n%s\n", p.Summary)
		sections := []struct {
			label string
			items []string
		}{
			{"concepts", p.Data.Concepts},
			{"historical", p.Data.Historical},
			{"cultural", p.Data.Cultural},
			{"connections", p.Data.Connections},
		}
		for _, s := range sections {
			for _, it := range s.items {
				fmt.Printf("  [%s] %s\n", s.label, it)
			}
		}
		fmt.Printf("confidence: %.2f\n", p.Confidence)
	case "usage":
		var p struct {
			Usage struct {
				TotalTokens int `json:"totalTokens"`
			} `json:"usage"`
			CostEstimate float64 `json:"costEstimate"`
		}
		if json.Unmarshal([]byte(data), &p) == nil {
			fmt.Printf("tokens: %d  est. cost: $%.5f\n", p.Usage.TotalTokens, p.CostEstimate)
		}
	case "error":
		var p struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal([]byte(data), &p)
		fmt.Fprintln(os.Stderr, "enhance failed:", p.Message)
	}
}

var (
	evalTitleStyle = lipgloss.NewStyle().Bold(true)
	evalDimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	evalGoodStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	evalBadStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func evalCmd(args []string) {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	targetSize := fs.Int("target-size", 600, "candidate chunk target size")
	overlap := fs.Int("overlap", 150, "candidate chunk overlap")
	threshold := fs.Float64("threshold", 0.10, "candidate similarity threshold")
	limit := fs.Int("limit", 5, "candidate result limit")
	_ = fs.Parse(args)

	candidate := eval.Config{
		Name:      "candidate",
		Chunking:  chunker.Config{TargetSize: *targetSize, Overlap: *overlap},
		Threshold: *threshold,
		Limit:     *limit,
	}
	h := eval.NewHarness(eval.NewBenchLog(0))
	cmp, err := h.Compare(context.Background(), eval.DefaultBaseline(), candidate)
	if err != nil {
		fatal(err)
	}
	printComparison(cmp)
}

func printComparison(cmp eval.Comparison) {
	fmt.Println(evalTitleStyle.Render("retrieval quality — corpus " + cmp.Baseline.Version))
	fmt.Println(evalDimStyle.Render(fmt.Sprintf("%-12s %10s %10s", "metric", "baseline", "candidate")))
	row := func(name string, b, c float64) {
		fmt.Printf("%-12s %10.3f %10.3f\n", name, b, c)
	}
	row("precision", cmp.Baseline.Precision, cmp.Candidate.Precision)
	row("recall", cmp.Baseline.Recall, cmp.Candidate.Recall)
	row("f1", cmp.Baseline.F1, cmp.Candidate.F1)
	row("relevance", cmp.Baseline.Relevance, cmp.Candidate.Relevance)
	row("latency ms", cmp.Baseline.AvgLatencyMs, cmp.Candidate.AvgLatencyMs)
	fmt.Printf("%-12s %10d %10d\n", "chunks", cmp.Baseline.ChunkCount, cmp.Candidate.ChunkCount)
	row("overall", cmp.Baseline.OverallScore, cmp.Candidate.OverallScore)

	delta := cmp.Delta()
	verdict := fmt.Sprintf("delta %+.3f", delta)
	if delta >= 0 {
		fmt.Println(evalGoodStyle.Render(verdict))
	} else {
		fmt.Println(evalBadStyle.Render(verdict))
	}
}
