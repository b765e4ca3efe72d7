package logsapi

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mercator-hq/apigate/pkg/config"
	"mercator-hq/apigate/pkg/proxy"
	"mercator-hq/apigate/pkg/proxy/types"
	"mercator-hq/apigate/pkg/requestlog"
	"mercator-hq/apigate/pkg/requestlog/export"
)

// maxIngestBytes bounds a single ingested log.
const maxIngestBytes = 5 * 1024 * 1024

// ListResponse is the body of GET /{projectId}.
type ListResponse struct {
	Logs   []*requestlog.RequestLog `json:"logs"`
	Total  int64                    `json:"total"`
	Limit  int                      `json:"limit"`
	Offset int                      `json:"offset"`
}

// Handler serves the logs API over a Storage.
type Handler struct {
	storage requestlog.Storage
	config  config.LogsConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewHandler creates a logs API handler.
func NewHandler(storage requestlog.Storage, cfg config.LogsConfig) *Handler {
	return &Handler{
		storage: storage,
		config:  cfg,
		logger:  slog.Default().With("component", "logsapi"),
		now:     time.Now,
	}
}

// Routes returns the router for the logs API.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(h.requireToken).Post("/{projectId}", h.ingest)
	r.Get("/{projectId}", h.list)
	r.Get("/{projectId}/export", h.export)
	r.Get("/{projectId}/{id}", h.get)
	return r
}

// requireToken rejects calls without the configured ingest token. With no
// token configured ingestion is open.
func (h *Handler) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.config.Token == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, err := proxy.ExtractBearerToken(r)
		if err != nil {
			proxy.WriteErrorResponse(w, proxy.HandleError(err))
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(h.config.Token)) != 1 {
			proxy.WriteErrorResponse(w, types.NewUnauthorizedError("invalid logs token"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) ingest(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectId")

	body, err := proxy.ReadBody(r, maxIngestBytes)
	if err != nil {
		proxy.WriteErrorResponse(w, proxy.HandleError(err))
		return
	}

	var log requestlog.RequestLog
	if err := json.Unmarshal(body, &log); err != nil {
		proxy.WriteErrorResponse(w, types.NewInvalidRequestError(types.CodeInvalidJSON, "request body must be a JSON request log"))
		return
	}
	if log.Method == "" || log.StatusCode == 0 {
		proxy.WriteErrorResponse(w, types.NewInvalidRequestError("", "method and statusCode are required"))
		return
	}
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = h.now()
	}
	log.ProjectID = projectID

	if err := h.storage.Store(r.Context(), &log); err != nil {
		h.logger.Error("failed to store ingested log", "project_id", projectID, "error", err)
		proxy.WriteErrorResponse(w, proxy.HandleError(err))
		return
	}

	proxy.WriteJSONResponse(w, http.StatusCreated, map[string]string{"id": log.ID})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	query, err := h.parseQuery(r)
	if err != nil {
		proxy.WriteErrorResponse(w, proxy.HandleError(err))
		return
	}

	logs, err := h.storage.Query(r.Context(), query)
	if err != nil {
		proxy.WriteErrorResponse(w, proxy.HandleError(err))
		return
	}
	total, err := h.storage.Count(r.Context(), query)
	if err != nil {
		proxy.WriteErrorResponse(w, proxy.HandleError(err))
		return
	}
	if logs == nil {
		logs = []*requestlog.RequestLog{}
	}

	proxy.WriteJSONResponse(w, http.StatusOK, &ListResponse{
		Logs:   logs,
		Total:  total,
		Limit:  query.Limit,
		Offset: query.Offset,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	log, err := h.storage.Get(r.Context(), chi.URLParam(r, "projectId"), chi.URLParam(r, "id"))
	if err != nil {
		proxy.WriteErrorResponse(w, proxy.HandleError(err))
		return
	}
	proxy.WriteJSONResponse(w, http.StatusOK, log)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	query, err := h.parseQuery(r)
	if err != nil {
		proxy.WriteErrorResponse(w, proxy.HandleError(err))
		return
	}

	if r.URL.Query().Get("limit") == "" {
		query.Limit = h.config.Query.MaxLimit
		if query.Limit <= 0 {
			query.Limit = requestlog.MaxLimit
		}
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	exporter, err := export.ForFormat(format, false)
	if err != nil {
		proxy.WriteErrorResponse(w, types.NewInvalidRequestError("", err.Error()))
		return
	}

	contentType := "application/json"
	if format == "csv" {
		contentType = "text/csv"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="requestlogs-%s.%s"`, query.ProjectID, format))
	w.WriteHeader(http.StatusOK)

	// Headers are already sent, so failures can only be logged.
	if err := export.Stream(r.Context(), h.storage, query, exporter, w); err != nil {
		h.logger.Error("log export failed", "project_id", query.ProjectID, "error", err)
	}
}

// parseQuery builds a validated Query from the URL. Bad values are
// QueryErrors.
func (h *Handler) parseQuery(r *http.Request) (*requestlog.Query, error) {
	values := r.URL.Query()
	query := &requestlog.Query{
		ProjectID: chi.URLParam(r, "projectId"),
		ClientID:  values.Get("client_id"),
		Method:    values.Get("method"),
		Status:    values.Get("status"),
		SortOrder: values.Get("sort"),
	}

	var errs []error
	intParam := func(name string, dst *int) {
		if v := values.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s must be an integer", name))
				return
			}
			*dst = n
		}
	}
	timeParam := func(name string) *time.Time {
		v := values.Get(name)
		if v == "" {
			return nil
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s must be an RFC 3339 timestamp", name))
			return nil
		}
		return &t
	}

	intParam("limit", &query.Limit)
	intParam("offset", &query.Offset)
	intParam("status_code", &query.StatusCode)
	query.StartTime = timeParam("start_time")
	query.EndTime = timeParam("end_time")

	if v := values.Get("cache_hit"); v != "" {
		hit, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, errors.New("cache_hit must be a boolean"))
		} else {
			query.CacheHit = &hit
		}
	}

	if len(errs) > 0 {
		return nil, requestlog.NewQueryError(query, errors.Join(errs...))
	}
	if err := query.Validate(h.config.Query.MaxLimit); err != nil {
		return nil, err
	}
	query.ApplyDefaults(h.config.Query.DefaultLimit)
	return query, nil
}
