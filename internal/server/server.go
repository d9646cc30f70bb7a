package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"folio/internal/enhancer"
	"folio/internal/eval"
	"folio/internal/ingest"
	"folio/internal/log"
	"folio/internal/models"
	"folio/internal/retriever"
)

// Ingester runs book ingestion.
type Ingester interface {
	IngestBook(ctx context.Context, bookID string, chapters int) (ingest.Stats, error)
}

// ContextRetriever answers ranked retrieval queries.
type ContextRetriever interface {
	Retrieve(ctx context.Context, bookID, queryText string, p retriever.Params) ([]models.RetrievalResult, error)
}

// Enhancing streams knowledge enhancements.
type Enhancing interface {
	Enhance(ctx context.Context, bookID, selection string, cat models.EnhancementCategory) (<-chan enhancer.Event, error)
}

// API is the HTTP surface over the reading pipeline.
type API struct {
	ingester Ingester
	retr     ContextRetriever
	enh      Enhancing
	bench    *eval.BenchLog
	logger   *log.Logger
}

func New(ingester Ingester, retr ContextRetriever, enh Enhancing, bench *eval.BenchLog, logger *log.Logger) *API {
	if logger == nil {
		logger = log.New()
	}
	if bench == nil {
		bench = eval.NewBenchLog(0)
	}
	return &API{ingester: ingester, retr: retr, enh: enh, bench: bench, logger: logger}
}

// Handler builds the route table.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/books/", a.handleBooks)
	mux.HandleFunc("/enhance", a.handleEnhance)
	mux.HandleFunc("/benchmarks", a.handleBenchmarks)
	return a.logRequests(mux)
}

func (a *API) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		a.logger.Info("http request",
			"method", r.Method, "path", r.URL.Path,
			"durMs", time.Since(start).Milliseconds())
	})
}

// Serve runs the API until the context is cancelled.
func (a *API) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: a.Handler()}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	a.logger.Info("server listening", "addr", addr)
	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// handleBooks routes /books/{id}/ingest and /books/{id}/query.
func (a *API) handleBooks(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/books/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not_found", "expected /books/{id}/ingest or /books/{id}/query")
		return
	}
	bookID, action := parts[0], parts[1]
	switch action {
	case "ingest":
		a.handleIngest(w, r, bookID)
	case "query":
		a.handleQuery(w, r, bookID)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown book action "+action)
	}
}

type ingestRequest struct {
	Chapters int `json:"chapters"`
}

func (a *API) handleIngest(w http.ResponseWriter, r *http.Request, bookID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "bad json: "+err.Error())
		return
	}
	if req.Chapters <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "chapters must be positive")
		return
	}
	st, err := a.ingester.IngestBook(r.Context(), bookID, req.Chapters)
	if err != nil {
		a.logger.Error("ingest failed", "book", bookID, "err", err.Error())
		writeError(w, http.StatusInternalServerError, "ingest_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) handleQuery(w http.ResponseWriter, r *http.Request, bookID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "q required")
		return
	}
	p := retriever.Params{}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		p.Limit = n
	}
	if v := r.URL.Query().Get("threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			writeError(w, http.StatusBadRequest, "invalid_request", "threshold must be in [0,1]")
			return
		}
		p.Threshold = f
	}
	if v := r.URL.Query().Get("chapter"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "chapter must be a non-negative integer")
			return
		}
		p.ChapterPriority = &n
	}
	start := time.Now()
	results, err := a.retr.Retrieve(r.Context(), bookID, q, p)
	if err != nil {
		a.logger.Error("query failed", "book", bookID, "err", err.Error())
		writeError(w, http.StatusInternalServerError, "query_failed", err.Error())
		return
	}
	a.bench.Record(models.BenchmarkSample{
		QueryType:      "query",
		Parameters:     map[string]string{"book": bookID},
		ResponseTimeMs: float64(time.Since(start).Microseconds()) / 1000,
		ResultCount:    len(results),
	})
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

type enhanceRequest struct {
	BookID    string `json:"bookID"`
	Selection string `json:"selection"`
	Category  string `json:"category"`
}

// handleEnhance streams the enhancement over SSE: sources, then
// enhancement, then usage, then done. Model failures arrive as an error
// event so the client always gets a terminal signal.
func (a *API) handleEnhance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	var req enhanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "bad json: "+err.Error())
		return
	}
	cat := models.EnhancementCategory(req.Category)
	if req.Category == "" {
		cat = models.CategoryGeneral
	}
	events, err := a.enh.Enhance(r.Context(), req.BookID, req.Selection, cat)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	fl, _ := w.(http.Flusher)
	send := func(event string, v any) {
		data, err := json.Marshal(v)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "event: %s\n", event)
		fmt.Fprintf(w, "data: %s\n\n", data)
		if fl != nil {
			fl.Flush()
		}
	}

	start := time.Now()
	sourceCount := 0
	for ev := range events {
		switch ev.Type {
		case enhancer.EventSources:
			sourceCount = len(ev.Sources)
			send("sources", map[string]any{"sources": ev.Sources})
		case enhancer.EventEnhancement:
			send("enhancement", ev.Enhancement)
		case enhancer.EventUsage:
			send("usage", map[string]any{"usage": ev.Usage, "costEstimate": ev.Cost})
		case enhancer.EventError:
			a.logger.Warn("enhance failed", "book", req.BookID, "err", ev.Err.Error())
			send("error", map[string]string{"message": ev.Err.Error()})
			return
		}
	}
	a.bench.Record(models.BenchmarkSample{
		QueryType:      "enhance",
		Parameters:     map[string]string{"book": req.BookID, "category": string(cat)},
		ResponseTimeMs: float64(time.Since(start).Microseconds()) / 1000,
		ResultCount:    sourceCount,
	})
	send("done", map[string]string{"status": "completed"})
}

func (a *API) handleBenchmarks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"samples": a.bench.Snapshot()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func writeError(w http.ResponseWriter, status int, errStr, message string) {
	writeJSON(w, status, apiError{Error: errStr, Message: message, Code: status})
}
