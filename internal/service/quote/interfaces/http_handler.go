// internal/service/quote/interfaces/http_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"tablecover/internal/pkg/logger"
	"tablecover/internal/service/quote/application"
	"tablecover/internal/service/quote/domain"
)

const (
	SessionHeader = "X-Session-ID"
	SessionCookie = "session"
)

// QuoteHandler 封装了计价下单组件的 HTTP 处理器
type QuoteHandler struct {
	service    *application.QuoteApplicationService
	sessionTTL time.Duration
}

func NewQuoteHandler(service *application.QuoteApplicationService, sessionTTL time.Duration) *QuoteHandler {
	return &QuoteHandler{service: service, sessionTTL: sessionTTL}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *QuoteHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/options", h.options)
	mux.HandleFunc("GET /api/v1/quote", h.quote)
	mux.HandleFunc("POST /api/v1/sessions", h.createSession)

	mux.HandleFunc("GET /api/v1/widget", h.snapshot)
	mux.HandleFunc("PUT /api/v1/widget/shape", h.setShape)
	mux.HandleFunc("PUT /api/v1/widget/thickness", h.setThickness)
	mux.HandleFunc("PUT /api/v1/widget/dimensions/{field}", h.setDimension)
	mux.HandleFunc("POST /api/v1/widget/basket", h.commitItem)
	mux.HandleFunc("DELETE /api/v1/widget/basket/{id}", h.removeItem)
	mux.HandleFunc("POST /api/v1/widget/orders", h.submitOrder)
	mux.HandleFunc("POST /api/v1/widget/orders/reset", h.resetSubmission)
}

type valueRequest struct {
	Value string `json:"value"`
}

type errorResponse struct {
	Error    string                `json:"error"`
	Fields   []string              `json:"fields,omitempty"`
	Snapshot *application.Snapshot `json:"snapshot,omitempty"`
}

func (h *QuoteHandler) options(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Options())
}

func (h *QuoteHandler) quote(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	q := r.URL.Query()
	resp, err := h.service.Quote(ctx, &application.QuoteRequest{
		Shape:     q.Get("shape"),
		Thickness: q.Get("thickness"),
		Dimensions: domain.Dimensions{
			Length:   q.Get("length"),
			Width:    q.Get("width"),
			Diameter: q.Get("diameter"),
		},
	})
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *QuoteHandler) createSession(w http.ResponseWriter, r *http.Request) {
	snap := h.service.CreateSession(extract(r))
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    snap.SessionID,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set(SessionHeader, snap.SessionID)
	writeJSON(w, http.StatusCreated, snap)
}

func (h *QuoteHandler) snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(extract(r), sessionID(r))
	respond(w, r, snap, err)
}

func (h *QuoteHandler) setShape(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if !decode(w, r, &req) {
		return
	}
	snap, err := h.service.SetShape(extract(r), sessionID(r), req.Value)
	respond(w, r, snap, err)
}

func (h *QuoteHandler) setThickness(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if !decode(w, r, &req) {
		return
	}
	snap, err := h.service.SetThickness(extract(r), sessionID(r), req.Value)
	respond(w, r, snap, err)
}

func (h *QuoteHandler) setDimension(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if !decode(w, r, &req) {
		return
	}
	snap, err := h.service.SetDimension(extract(r), sessionID(r), r.PathValue("field"), req.Value)
	respond(w, r, snap, err)
}

func (h *QuoteHandler) commitItem(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.CommitItem(extract(r), sessionID(r))
	respond(w, r, snap, err)
}

func (h *QuoteHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.RemoveItem(extract(r), sessionID(r), r.PathValue("id"))
	respond(w, r, snap, err)
}

func (h *QuoteHandler) submitOrder(w http.ResponseWriter, r *http.Request) {
	var contact domain.Contact
	if !decode(w, r, &contact) {
		return
	}
	snap, err := h.service.SubmitOrder(extract(r), sessionID(r), contact)
	respond(w, r, snap, err)
}

func (h *QuoteHandler) resetSubmission(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.ResetSubmission(extract(r), sessionID(r))
	respond(w, r, snap, err)
}

// sessionID 优先读取请求头，其次读取 cookie
func sessionID(r *http.Request) string {
	if id := r.Header.Get(SessionHeader); id != "" {
		return id
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// extract 从请求头恢复上游的追踪上下文，并给请求日志加上 session_id
func extract(r *http.Request) context.Context {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	if id := sessionID(r); id != "" {
		ctx = logger.With(ctx, map[string]string{"session_id": id})
	}
	return ctx
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func respond(w http.ResponseWriter, r *http.Request, snap *application.Snapshot, err error) {
	if err != nil {
		writeError(w, r, err, snap)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// statusFor 把领域错误映射为 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, application.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSubmissionInFlight), errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrIntakeRejected), errors.Is(err, domain.ErrIntakeUnreachable):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrInvalidShape),
		errors.Is(err, domain.ErrInvalidThickness),
		errors.Is(err, domain.ErrInvalidDimension),
		errors.Is(err, domain.ErrPriceNotReady),
		errors.Is(err, domain.ErrDuplicateItem),
		errors.Is(err, domain.ErrEmptyBasket),
		errors.Is(err, domain.ErrMissingContact):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error, snap *application.Snapshot) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error(), Snapshot: snap}

	var missing *domain.MissingContactError
	if errors.As(err, &missing) {
		resp.Fields = missing.Fields
	}
	// 远端失败时返回面向用户的提示，而不是内部错误链
	if status == http.StatusBadGateway {
		resp.Error = domain.UserMessage(err)
	}
	if status == http.StatusInternalServerError {
		logger.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("unhandled widget error")
		resp.Error = http.StatusText(status)
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
