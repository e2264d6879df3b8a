package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nsmelov/exam-insights/internal/core/domain"
	"github.com/nsmelov/exam-insights/internal/core/ports"
)

const userIDHeader = "X-User-Id"

type RouterConfig struct {
	MaxFilesPerJob int
	MaxUploadBytes int64
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	MetricsHandler http.Handler
	MetricsWrap    func(http.Handler) http.Handler
}

type Router struct {
	analysis ports.AnalysisController
	results  ports.ResultBrowser
	sessions ports.SessionBrowser
	files    ports.FileStore
	cfg      RouterConfig
	logger   *slog.Logger
}

func NewRouter(
	analysis ports.AnalysisController,
	results ports.ResultBrowser,
	sessions ports.SessionBrowser,
	files ports.FileStore,
	cfg RouterConfig,
	logger *slog.Logger,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		analysis: analysis,
		results:  results,
		sessions: sessions,
		files:    files,
		cfg:      cfg,
		logger:   logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	if rt.cfg.MetricsHandler != nil {
		mux.Handle("/metrics", rt.cfg.MetricsHandler)
	}
	mux.HandleFunc("/v1/analysis", rt.analysisRoot)
	mux.HandleFunc("/v1/analysis/", rt.analysisAction)
	mux.HandleFunc("/v1/results", rt.listResults)
	mux.HandleFunc("/v1/results/", rt.resultByID)
	mux.HandleFunc("/v1/sessions", rt.listSessions)

	var handler http.Handler = mux
	if rt.cfg.MetricsWrap != nil {
		handler = rt.cfg.MetricsWrap(handler)
	}
	handler = trafficControlMiddleware(handler, trafficControlConfig{
		rps:         rt.cfg.RateLimitRPS,
		burst:       rt.cfg.RateLimitBurst,
		maxInFlight: rt.cfg.MaxInFlight,
	})
	handler = accessLogMiddleware(rt.logger, handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) analysisRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		rt.startAnalysis(w, r)
	case http.MethodGet:
		writeJSON(w, http.StatusOK, rt.analysis.Snapshot())
	default:
		writeMethodNotAllowed(w)
	}
}

func (rt *Router) startAnalysis(w http.ResponseWriter, r *http.Request) {
	if rt.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "http.startAnalysis", err))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("multipart field 'files' is required"))
		return
	}
	if rt.cfg.MaxFilesPerJob > 0 && len(headers) > rt.cfg.MaxFilesPerJob {
		writeJSON(w, http.StatusBadRequest, errorBody("too many files in one request"))
		return
	}

	staged := make([]domain.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			rt.removeStaged(r, staged)
			writeError(w, domain.WrapError(domain.ErrInvalidInput, "http.startAnalysis", err))
			return
		}
		uploaded, err := rt.files.Stage(r.Context(), fh.Filename, f)
		_ = f.Close()
		if err != nil {
			rt.removeStaged(r, staged)
			writeError(w, err)
			return
		}
		staged = append(staged, uploaded)
	}

	rejected, err := rt.analysis.Start(r.Context(), userID(r), staged)
	if err != nil {
		rt.removeStaged(r, staged)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":         domain.StatusUploading,
		"accepted_files": len(staged) - rejected,
		"rejected_files": rejected,
	})
}

func (rt *Router) analysisAction(w http.ResponseWriter, r *http.Request) {
	action := strings.TrimPrefix(r.URL.Path, "/v1/analysis/")

	if r.Method == http.MethodGet && action == "filtered" {
		rt.filteredView(w, r)
		return
	}
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var err error
	switch action {
	case "pause":
		err = rt.analysis.Pause()
	case "resume":
		err = rt.analysis.Resume()
	case "cancel":
		err = rt.analysis.Cancel()
	case "reset":
		err = rt.analysis.Reset()
	default:
		writeJSON(w, http.StatusNotFound, errorBody("unknown action"))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.analysis.Snapshot())
}

func (rt *Router) filteredView(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := domain.Filters{
		Year:    strings.TrimSpace(q.Get("year")),
		Topic:   strings.TrimSpace(q.Get("topic")),
		Keyword: strings.TrimSpace(q.Get("keyword")),
	}
	writeJSON(w, http.StatusOK, rt.analysis.FilteredView(filters))
}

func (rt *Router) listResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	results, err := rt.results.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (rt *Router) resultByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/results/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusNotFound, errorBody("result not found"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		result, err := rt.results.GetByID(r.Context(), userID(r), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	case http.MethodPatch:
		var req struct {
			Filename string `json:"filename"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid json"))
			return
		}
		if err := rt.results.Rename(r.Context(), id, req.Filename); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": id, "filename": strings.TrimSpace(req.Filename)})
	case http.MethodDelete:
		if err := rt.results.Delete(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w)
	}
}

func (rt *Router) listSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	sessions, err := rt.sessions.ListForUser(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (rt *Router) removeStaged(r *http.Request, files []domain.UploadedFile) {
	for _, f := range files {
		if err := rt.files.Remove(r.Context(), f); err != nil {
			rt.logger.Warn("staged file cleanup failed", "file", f.Path, "error", err)
		}
	}
}

func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(userIDHeader))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), errorBody(err.Error()))
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}
