package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/gogpu/halftone"
	"github.com/gogpu/halftone/internal/cache"
	imageio "github.com/gogpu/halftone/internal/image"
	"github.com/gogpu/halftone/ledger"
	"github.com/gogpu/halftone/suggest"
)

// userHeader carries the authenticated account ID. Authentication itself
// happens in front of this service.
const userHeader = "X-User-ID"

var (
	errMissingUser = errors.New("missing " + userHeader + " header")
	errForbidden   = errors.New("forbidden")
	errBadQuery    = errors.New("invalid settings")
	errBadBody     = errors.New("invalid request body")
)

type serverOptions struct {
	ledger   ledger.Ledger
	advisor  suggest.Advisor
	defaults halftone.Settings
	config   Config
	logger   *log.Logger
}

// server implements the HTTP API.
type server struct {
	serverOptions
	decoder  imageio.Decoder
	previews *cache.LRU[cache.Key]
}

func newServer(opts serverOptions) *server {
	if opts.logger == nil {
		opts.logger = log.Default()
	}
	if opts.advisor == nil {
		opts.advisor = suggest.Fallback(nil)
	}
	if opts.config.Server.MaxUploadBytes <= 0 {
		opts.config.Server.MaxUploadBytes = DefaultConfig().Server.MaxUploadBytes
	}
	return &server{
		serverOptions: opts,
		previews:      cache.New[cache.Key](opts.config.Server.PreviewCacheBytes),
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/preview", s.handlePreview)
		r.Post("/export", s.handleExport)
		r.Post("/suggest", s.handleSuggest)
		r.Get("/users/{id}", s.handleUser)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Get("/users", s.handleUsers)
			r.Post("/users/{id}/credits", s.handleGrant)
			r.Put("/users/{id}/status", s.handleStatus)
		})
	})
	return r
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("Request",
			"id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start).Round(time.Microsecond))
	})
}

func (s *server) handlePreview(w http.ResponseWriter, r *http.Request) {
	settings, err := settingsFromQuery(r.URL.Query(), s.defaults)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	key := cache.KeyFor(data, settings)
	if png, ok := s.previews.Get(key); ok {
		w.Header().Set("X-Cache", "hit")
		writePNGBytes(w, png)
		return
	}

	img, _, err := s.decoder.DecodeBytes(data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// Full size first so the stamp mesh matches the export, then scale down.
	out := imageio.Fit(halftone.Transform(img, settings).ToImage(), s.config.Server.PreviewMaxDim)

	var buf bytes.Buffer
	if err := imageio.EncodePNG(&buf, out); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.previews.Add(key, buf.Bytes())
	w.Header().Set("X-Cache", "miss")
	writePNGBytes(w, buf.Bytes())
}

func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userHeader)
	if userID == "" {
		s.writeError(w, r, errMissingUser)
		return
	}
	settings, err := settingsFromQuery(r.URL.Query(), s.defaults)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	img, err := s.readImage(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	left, err := s.ledger.Deduct(r.Context(), userID, s.config.Ledger.ExportCost)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	exportID := uuid.NewString()
	s.logger.Info("Export", "id", exportID, "user", userID, "credits_left", left)

	w.Header().Set("X-Export-ID", exportID)
	w.Header().Set("X-Credits-Remaining", strconv.Itoa(left))
	s.writePNG(w, r, halftone.Transform(img, settings), exportFileName)
}

func (s *server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	img, err := s.readImage(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sg, err := s.advisor.Suggest(r.Context(), imageio.Fit(img, analysisMaxDim))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sg)
}

// caller resolves the account named by the user header. An unknown
// account is forbidden rather than missing.
func (s *server) caller(r *http.Request) (ledger.User, error) {
	id := r.Header.Get(userHeader)
	if id == "" {
		return ledger.User{}, errMissingUser
	}
	u, err := s.ledger.User(r.Context(), id)
	if errors.Is(err, ledger.ErrUnknownUser) {
		return ledger.User{}, errForbidden
	}
	return u, err
}

func (s *server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := s.caller(r)
		if err == nil && u.Role != ledger.RoleAdmin {
			err = errForbidden
		}
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) handleUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := s.caller(r)
	if err == nil && c.ID != id && c.Role != ledger.RoleAdmin {
		err = errForbidden
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeUser(w, r, id)
}

func (s *server) handleUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.ledger.Users(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *server) handleGrant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount int `json:"amount"`
	}
	if err := s.readJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	balance, err := s.ledger.Grant(r.Context(), id, req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("Credits granted", "user", id, "amount", req.Amount, "balance", balance,
		"by", r.Header.Get(userHeader))
	s.writeUser(w, r, id)
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status ledger.Status `json:"status"`
	}
	if err := s.readJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.ledger.SetStatus(r.Context(), id, req.Status); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("Status changed", "user", id, "status", req.Status, "by", r.Header.Get(userHeader))
	s.writeUser(w, r, id)
}

func (s *server) writeUser(w http.ResponseWriter, r *http.Request, id string) {
	u, err := s.ledger.User(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *server) readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.config.Server.MaxUploadBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errBadBody, err)
	}
	return nil
}

func (s *server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.Server.MaxUploadBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}

func (s *server) readImage(w http.ResponseWriter, r *http.Request) (image.Image, error) {
	data, err := s.readBody(w, r)
	if err != nil {
		return nil, err
	}
	img, _, err := s.decoder.DecodeBytes(data)
	return img, err
}

func (s *server) writePNG(w http.ResponseWriter, r *http.Request, img image.Image, filename string) {
	w.Header().Set("Content-Type", "image/png")
	if filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	if err := imageio.EncodePNG(w, img); err != nil {
		s.logger.Error("Write PNG", "id", middleware.GetReqID(r.Context()), "err", err)
	}
}

func writePNGBytes(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

// statusOf maps an error to its HTTP status code.
func statusOf(err error) int {
	var tooBig *http.MaxBytesError
	switch {
	case errors.Is(err, errMissingUser):
		return http.StatusUnauthorized
	case errors.Is(err, ledger.ErrInsufficientCredits):
		return http.StatusPaymentRequired
	case errors.Is(err, ledger.ErrNotApproved), errors.Is(err, errForbidden):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrUnknownUser):
		return http.StatusNotFound
	case errors.Is(err, imageio.ErrTooLarge), errors.As(err, &tooBig):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, imageio.ErrUnsupportedFormat),
		errors.Is(err, imageio.ErrEmptyData),
		errors.Is(err, errBadQuery),
		errors.Is(err, errBadBody),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidStatus):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		s.logger.Error("Request failed", "id", middleware.GetReqID(r.Context()), "err", err)
		msg = http.StatusText(code)
	}
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// settingsFromQuery overrides base with the query parameters threshold,
// grid, shape, colorMode, monoColor, intensity and invert, then clamps.
func settingsFromQuery(q url.Values, base halftone.Settings) (halftone.Settings, error) {
	s := base
	bad := func(name string, err error) error {
		return fmt.Errorf("%w: %s: %v", errBadQuery, name, err)
	}

	if v := q.Get("threshold"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return s, bad("threshold", err)
		}
		s.BlackThreshold = n
	}
	if v := q.Get("grid"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return s, bad("grid", err)
		}
		s.GridSize = f
	}
	if v := q.Get("shape"); v != "" {
		shape, err := halftone.ParseShape(v)
		if err != nil {
			return s, bad("shape", err)
		}
		s.Shape = shape
	}
	if v := q.Get("colorMode"); v != "" {
		mode, err := halftone.ParseColorMode(v)
		if err != nil {
			return s, bad("colorMode", err)
		}
		s.ColorMode = mode
	}
	if v, ok := q["monoColor"]; ok && len(v) > 0 {
		s.MonoColor = v[0]
	}
	if v := q.Get("intensity"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return s, bad("intensity", err)
		}
		s.Intensity = f
	}
	if v := q.Get("invert"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return s, bad("invert", err)
		}
		s.Invert = b
	}
	return s.Clamp(), nil
}
