package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ikonstantinov/document-research-assistant/internal/config"
	"github.com/ikonstantinov/document-research-assistant/internal/core/domain"
	"github.com/ikonstantinov/document-research-assistant/internal/core/ports"
	"github.com/ikonstantinov/document-research-assistant/internal/observability/metrics"
)

const (
	maxUploadBytes   = 64 << 20
	backpressureWait = 100 * time.Millisecond
)

type Router struct {
	ingest    ports.DocumentIngestor
	directory ports.DocumentDirectory
	query     ports.QueryService
	themes    ports.ThemeService
	metrics   *metrics.HTTPServerMetrics
	cfg       config.Config
	logger    *slog.Logger
}

func NewRouter(
	ingest ports.DocumentIngestor,
	directory ports.DocumentDirectory,
	query ports.QueryService,
	themes ports.ThemeService,
	serverMetrics *metrics.HTTPServerMetrics,
	cfg config.Config,
	logger *slog.Logger,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		ingest:    ingest,
		directory: directory,
		query:     query,
		themes:    themes,
		metrics:   serverMetrics,
		cfg:       cfg,
		logger:    logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents", rt.documentsCollection)
	mux.HandleFunc("/v1/documents/", rt.documentByID)
	mux.HandleFunc("/v1/query", rt.answerQuery)
	mux.HandleFunc("/v1/query/themes", rt.answerQueryWithThemes)
	mux.HandleFunc("/v1/themes", rt.themesCollection)
	mux.HandleFunc("/v1/themes/analyze", rt.analyzeThemes)
	mux.HandleFunc("/v1/themes/", rt.themeByID)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("api", handler)
	}
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, backpressureWait)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) documentsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		rt.uploadDocuments(w, r)
	case http.MethodGet:
		rt.listDocuments(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

type uploadFailure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

func (rt *Router) uploadDocuments(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	headers := append(r.MultipartForm.File["file"], r.MultipartForm.File["files"]...)
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}

	var (
		accepted []domain.Document
		failures []uploadFailure
		lastErr  error
	)
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			lastErr = err
			failures = append(failures, uploadFailure{Filename: header.Filename, Error: err.Error()})
			continue
		}

		doc, err := rt.ingest.Upload(r.Context(), ports.UploadRequest{
			Filename:  header.Filename,
			MediaType: header.Header.Get("Content-Type"),
			Name:      r.FormValue("name"),
			Category:  r.FormValue("category"),
			Author:    r.FormValue("author"),
			Date:      r.FormValue("date"),
			Body:      file,
		})
		file.Close()
		if err != nil {
			lastErr = err
			failures = append(failures, uploadFailure{Filename: header.Filename, Error: err.Error()})
			continue
		}
		accepted = append(accepted, *doc)
	}

	if len(headers) == 1 {
		if lastErr != nil {
			rt.respondError(w, r, lastErr)
			return
		}
		writeJSON(w, http.StatusAccepted, accepted[0])
		return
	}

	status := http.StatusAccepted
	if len(accepted) == 0 {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]any{
		"documents": accepted,
		"failures":  failures,
	})
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.DocumentFilter{
		Status:    domain.DocumentStatus(q.Get("status")),
		MediaType: q.Get("media_type"),
		Author:    q.Get("author"),
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	docs, err := rt.directory.List(r.Context(), filter)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (rt *Router) documentByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		doc, err := rt.directory.GetByID(r.Context(), id)
		if err != nil {
			rt.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	case http.MethodDelete:
		if err := rt.directory.Delete(r.Context(), id); err != nil {
			rt.respondError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

type queryRequest struct {
	Query       string   `json:"query"`
	DocumentIDs []string `json:"document_ids"`
}

func (rt *Router) answerQuery(w http.ResponseWriter, r *http.Request) {
	rt.runQuery(w, r, "/v1/query", rt.query.Answer)
}

func (rt *Router) answerQueryWithThemes(w http.ResponseWriter, r *http.Request) {
	rt.runQuery(w, r, "/v1/query/themes", rt.query.AnswerWithThemes)
}

func (rt *Router) runQuery(
	w http.ResponseWriter,
	r *http.Request,
	endpoint string,
	answer func(ctx context.Context, query string, documentIDs []string) (*domain.QueryResponse, error),
) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	start := time.Now()
	resp, err := answer(r.Context(), req.Query, req.DocumentIDs)
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		if rt.metrics != nil {
			if domain.IsKind(err, domain.ErrNoValidResponses) {
				rt.metrics.RecordNoValidResponses("api", endpoint)
			}
			rt.metrics.RecordQuery("api", endpoint, strconv.Itoa(status), 0, 0, time.Since(start))
		}
		rt.respondErrorStatus(w, r, status, err)
		return
	}

	if rt.metrics != nil {
		imageDocs := len(resp.Documents) - 1
		if imageDocs < 0 {
			imageDocs = 0
		}
		textDocs := len(req.DocumentIDs) - imageDocs
		if textDocs < 0 {
			textDocs = 0
		}
		rt.metrics.RecordQuery("api", endpoint, strconv.Itoa(http.StatusOK), textDocs, imageDocs, time.Since(start))
		if resp.Synthesized != nil {
			rt.metrics.RecordThemesIdentified("api", endpoint, len(resp.Synthesized.Themes))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) themesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var theme domain.Theme
		if err := json.NewDecoder(r.Body).Decode(&theme); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
		created, err := rt.themes.Create(r.Context(), theme)
		if err != nil {
			rt.respondError(w, r, err)
			return
		}
		w.Header().Set("ETag", themeETag(created.Version))
		writeJSON(w, http.StatusCreated, created)
	case http.MethodGet:
		list, err := rt.themes.List(r.Context())
		if err != nil {
			rt.respondError(w, r, err)
			return
		}
		if list == nil {
			list = []domain.Theme{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"themes": list})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

type analyzeRequest struct {
	DocumentIDs   []string `json:"document_ids"`
	MinConfidence float64  `json:"min_confidence"`
	MaxThemes     int      `json:"max_themes"`
}

func (rt *Router) analyzeThemes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.MinConfidence <= 0 {
		req.MinConfidence = rt.cfg.ThemeMinConfidence
	}
	if req.MaxThemes <= 0 {
		req.MaxThemes = rt.cfg.ThemeMaxCount
	}

	themes, err := rt.themes.Analyze(r.Context(), req.DocumentIDs, req.MinConfidence, req.MaxThemes)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	if themes == nil {
		themes = []domain.Theme{}
	}
	if rt.metrics != nil {
		rt.metrics.RecordThemesIdentified("api", "/v1/themes/analyze", len(themes))
	}
	writeJSON(w, http.StatusOK, map[string]any{"themes": themes})
}

func (rt *Router) themeByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/themes/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		theme, err := rt.themes.GetByID(r.Context(), id)
		if err != nil {
			rt.respondError(w, r, err)
			return
		}
		w.Header().Set("ETag", themeETag(theme.Version))
		writeJSON(w, http.StatusOK, theme)
	case http.MethodPut:
		rt.updateTheme(w, r, id)
	case http.MethodDelete:
		if err := rt.themes.Delete(r.Context(), id); err != nil {
			rt.respondError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) updateTheme(w http.ResponseWriter, r *http.Request, id string) {
	expectedVersion, ok := parseExpectedVersion(r.Header.Get("If-Match"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "If-Match header with the current theme version is required"})
		return
	}

	var patch domain.ThemePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	theme, err := rt.themes.Update(r.Context(), id, patch, expectedVersion)
	if err != nil {
		if domain.IsKind(err, domain.ErrVersionConflict) && rt.metrics != nil {
			rt.metrics.RecordThemeConflict("api")
		}
		rt.respondError(w, r, err)
		return
	}
	w.Header().Set("ETag", themeETag(theme.Version))
	writeJSON(w, http.StatusOK, theme)
}

// parseExpectedVersion reads a theme version from an If-Match value,
// accepting both bare integers and quoted ETag form.
func parseExpectedVersion(value string) (int, bool) {
	value = strings.TrimSpace(value)
	value = strings.Trim(value, `"`)
	if value == "" {
		return 0, false
	}
	version, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return version, true
}

func themeETag(version int) string {
	return `"` + strconv.Itoa(version) + `"`
}

func (rt *Router) respondError(w http.ResponseWriter, r *http.Request, err error) {
	rt.respondErrorStatus(w, r, mapErrorToHTTPStatus(err), err)
}

func (rt *Router) respondErrorStatus(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		rt.logger.Error("request failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
