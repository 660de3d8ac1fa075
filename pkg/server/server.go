package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/japaniel/jplevel/pkg/db"
	"github.com/japaniel/jplevel/pkg/level"
	"github.com/japaniel/jplevel/pkg/source"
)

// MaxRequestSize caps the JSON body of an analysis request.
const MaxRequestSize = 1 << 20

// Request is the body of POST /wanikani/.
type Request struct {
	Input string `json:"input"`
}

// Response is returned by POST /wanikani/.
type Response struct {
	Kanji level.Profile `json:"kanji"`
	Vocab level.Profile `json:"vocab"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server exposes an Analyzer over HTTP. The Analyzer is shared by all
// requests; it needs no locking because it is never modified.
type Server struct {
	Analyzer *level.Analyzer
	// DB stores each request as an analysis when set.
	DB *sql.DB
	// Origins allowed by CORS. Empty disables CORS headers.
	Origins []string
	// Logger is used for request errors. nil means no logging.
	Logger *log.Logger
}

// New creates a Server with the default development origin.
func New(a *level.Analyzer) *Server {
	return &Server{Analyzer: a, Origins: []string{"http://localhost:5173"}}
}

// Handler returns the HTTP routes of the service.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/wanikani/", s.handleWaniKani)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	return s.cors(mux)
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) cors(next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(s.Origins))
	for _, o := range s.Origins {
		allowed[o] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allowed[origin] || allowed["*"]) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWaniKani(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/wanikani/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	var req Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestSize))
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return
	}

	res := s.Analyzer.Analyze(req.Input)
	if s.DB != nil {
		if err := s.save(req.Input, res); err != nil && s.Logger != nil {
			s.Logger.Printf("Warning: failed to store analysis: %v", err)
		}
	}
	writeJSON(w, http.StatusOK, Response{Kanji: res.Kanji, Vocab: res.Vocab})
}

func (s *Server) save(input string, res level.Result) error {
	sourceID, err := db.CreateOrGetSource(s.DB, source.KindInput, "", "")
	if err != nil {
		return err
	}
	_, err = db.SaveAnalysis(s.DB, sourceID, res, len([]rune(input)))
	return err
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
