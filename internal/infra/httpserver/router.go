package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appanalyses "github.com/bryanwahyu/rightsdesk/internal/application/analyses"
	appauth "github.com/bryanwahyu/rightsdesk/internal/application/auth"
	"github.com/bryanwahyu/rightsdesk/internal/application/licensing"
	apprequests "github.com/bryanwahyu/rightsdesk/internal/application/requests"
	appuploads "github.com/bryanwahyu/rightsdesk/internal/application/uploads"
	"github.com/bryanwahyu/rightsdesk/internal/domain"
	domainanalyses "github.com/bryanwahyu/rightsdesk/internal/domain/analyses"
	domainrequests "github.com/bryanwahyu/rightsdesk/internal/domain/requests"
	domainuploads "github.com/bryanwahyu/rightsdesk/internal/domain/uploads"
	"github.com/bryanwahyu/rightsdesk/internal/middleware"
)

// multipart overhead allowed on top of the file size limit
const formOverhead = 1 << 20

type Deps struct {
	Auth     *appauth.Service
	Uploads  *appuploads.Service
	Analyses *appanalyses.Service
	Requests *apprequests.Service

	Limiter        middleware.Limiter
	HealthCheckers map[string]middleware.HealthChecker
	AllowedOrigins []string
	MaxUploadBytes int64
	Metrics        *middleware.Counters
	Log            *zap.Logger
}

type Router struct {
	authSvc     *appauth.Service
	uploadsSvc  *appuploads.Service
	analysesSvc *appanalyses.Service
	requestsSvc *apprequests.Service
	maxUpload   int64
	metrics     *middleware.Counters
	log         *zap.Logger
}

func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	metrics := d.Metrics
	if metrics == nil {
		metrics = middleware.NewCounters()
	}
	r := &Router{
		authSvc:     d.Auth,
		uploadsSvc:  d.Uploads,
		analysesSvc: d.Analyses,
		requestsSvc: d.Requests,
		maxUpload:   d.MaxUploadBytes,
		metrics:     metrics,
		log:         log,
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.Logging(log))
	mux.Use(metrics.Track)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	mux.Get("/health", middleware.HealthHandler(d.HealthCheckers))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", metrics.Handler)

	mux.Route("/api", func(api chi.Router) {
		// public
		api.Group(func(pub chi.Router) {
			if d.Limiter != nil {
				pub.Use(middleware.RateLimit(d.Limiter, log))
			}
			pub.Post("/auth/register", r.wrap(r.handleRegister))
			pub.Post("/auth/login", r.wrap(r.handleLogin))
		})

		api.Group(func(rt chi.Router) {
			rt.Use(middleware.JWTAuth(d.Auth))
			if d.Limiter != nil {
				rt.Use(middleware.RateLimit(d.Limiter, log))
			}

			rt.Get("/auth/profile", r.wrap(r.handleProfile))

			rt.Post("/uploads", r.wrap(r.handleUpload))
			rt.Get("/uploads", r.wrap(r.handleUploadList))
			rt.Get("/uploads/{id}", r.wrap(r.handleUploadGet))
			rt.Delete("/uploads/{id}", r.wrap(r.handleUploadDelete))

			// {id} is the upload id for POST, the analysis id otherwise
			rt.Post("/analyses/{id}", r.wrap(r.handleAnalyze))
			rt.Get("/analyses", r.wrap(r.handleAnalysisList))
			rt.Get("/analyses/{id}", r.wrap(r.handleAnalysisGet))
			rt.Delete("/analyses/{id}", r.wrap(r.handleAnalysisDelete))

			rt.Post("/requests", r.wrap(r.handleAsk))
			rt.Get("/requests", r.wrap(r.handleRequestList))
			rt.Get("/requests/{id}", r.wrap(r.handleRequestGet))
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

var statusBySentinel = []struct {
	err    error
	status int
}{
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrForbidden, http.StatusForbidden},
	{domain.ErrUnauthorized, http.StatusUnauthorized},
	{domain.ErrInvalidInput, http.StatusBadRequest},
	{domain.ErrConflict, http.StatusBadRequest},
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		for _, m := range statusBySentinel {
			if errors.Is(err, m.err) {
				middleware.WriteError(w, m.status, clientMessage(err, m.status))
				return
			}
		}
		r.log.Error("request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.String("request_id", chimw.GetReqID(req.Context())),
			zap.Error(err),
		)
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// clientMessage is the text of the first *domain.ClientError in the chain,
// or the plain status text when a bare sentinel got through.
func clientMessage(err error, status int) string {
	var ce *domain.ClientError
	if errors.As(err, &ce) {
		return ce.Message
	}
	return http.StatusText(status)
}

func decodeJSON(req *http.Request, dst any) error {
	dec := json.NewDecoder(req.Body)
	if err := dec.Decode(dst); err != nil {
		return domain.NewClientError(domain.ErrInvalidInput, "Invalid request body")
	}
	return nil
}

func currentUser(req *http.Request) (string, error) {
	p, ok := middleware.PrincipalFromContext(req.Context())
	if !ok {
		return "", domain.NewClientError(domain.ErrUnauthorized, "Authentication required")
	}
	return string(p.UserID), nil
}

func pathID(req *http.Request) (string, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateID(id); err != nil {
		return "", domain.NewClientError(domain.ErrInvalidInput, "%s", err)
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	middleware.WriteJSON(w, status, v)
	return nil
}

//
// ==== AUTH ====
//

// POST /api/auth/register
func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := decodeJSON(req, &body); err != nil {
		return err
	}
	res, err := r.authSvc.Register(req.Context(), appauth.RegisterCommand{
		Email:    body.Email,
		Password: body.Password,
		Name:     middleware.SanitizeString(body.Name),
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, res)
}

// POST /api/auth/login
func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(req, &body); err != nil {
		return err
	}
	res, err := r.authSvc.Login(req.Context(), appauth.LoginCommand{Email: body.Email, Password: body.Password})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, res)
}

// GET /api/auth/profile
func (r *Router) handleProfile(w http.ResponseWriter, req *http.Request) error {
	p, ok := middleware.PrincipalFromContext(req.Context())
	if !ok {
		return domain.NewClientError(domain.ErrUnauthorized, "Authentication required")
	}
	u, err := r.authSvc.Profile(req.Context(), p.UserID)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, u)
}

//
// ==== UPLOADS ====
//

// POST /api/uploads (multipart: file, fileType)
func (r *Router) handleUpload(w http.ResponseWriter, req *http.Request) error {
	userID, err := currentUser(req)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/form-data") {
		return domain.NewClientError(domain.ErrInvalidInput, "Content-Type must be multipart/form-data")
	}

	if r.maxUpload > 0 {
		req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload+formOverhead)
	}
	if err := req.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.NewClientError(domain.ErrInvalidInput, "File too large")
		}
		return domain.NewClientError(domain.ErrInvalidInput, "Error parsing form data")
	}
	defer req.MultipartForm.RemoveAll()

	file, hdr, err := req.FormFile("file")
	if err != nil || req.FormValue("fileType") == "" {
		return domain.NewClientError(domain.ErrInvalidInput, "File and fileType are required")
	}
	defer file.Close()

	ft, err := middleware.ValidateFileType(req.FormValue("fileType"))
	if err != nil {
		return domain.NewClientError(domain.ErrInvalidInput, "%s", err)
	}

	u, err := r.uploadsSvc.Upload(req.Context(), appuploads.UploadCommand{
		UserID:      userID,
		FileType:    ft,
		FileName:    middleware.SanitizeFileName(hdr.Filename),
		ContentType: hdr.Header.Get("Content-Type"),
		Size:        hdr.Size,
		Body:        file,
	})
	if err != nil {
		return err
	}
	r.metrics.RecordUpload()
	return writeJSON(w, http.StatusCreated, map[string]any{"upload": u})
}

// GET /api/uploads
func (r *Router) handleUploadList(w http.ResponseWriter, req *http.Request) error {
	userID, err := currentUser(req)
	if err != nil {
		return err
	}
	list, err := r.uploadsSvc.List(req.Context(), userID)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"uploads": list})
}

// GET /api/uploads/{id}
func (r *Router) handleUploadGet(w http.ResponseWriter, req *http.Request) error {
	userID, err := currentUser(req)
	if err != nil {
		return err
	}
	id, err := pathID(req)
	if err != nil {
		return err
	}
	v, err := r.uploadsSvc.Get(req.Context(), userID, domainuploads.UploadID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"upload": v})
}

// DELETE /api/uploads/{id}
func (r *Router) handleUploadDelete(w http.ResponseWriter, req *http.Request) error {
	userID, err := currentUser(req)
	if err != nil {
		return err
	}
	id, err := pathID(req)
	if err != nil {
		return err
	}
	if err := r.uploadsSvc.Delete(req.Context(), userID, domainuploads.UploadID(id)); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"message": "Upload deleted successfully", "id": id})
}

//
// ==== ANALYSES ====
//

// POST /api/analyses/{uploadId}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	userID, err := currentUser(req)
	if err != nil {
		return err
	}
	uploadID, err := pathID(req)
	if err != nil {
		return err
	}
	a, err := r.analysesSvc.AnalyzeUpload(req.Context(), userID, domainuploads.UploadID(uploadID))
	if err != nil {
		return err
	}
	r.metrics.RecordAnalysis(licensing.IsDegradedResult(a.Result))
	return writeJSON(w, http.StatusCreated, a)
}

// GET /api/analyses
func (r *Router) handleAnalysisList(w http.ResponseWriter, req *http.Request) error {
	userID, err := currentUser(req)
	if err != nil {
		return err
	}
	list, err := r.analysesSvc.List(req.Context(), userID)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /api/analyses/{id}
func (r *Router) handleAnalysisGet(w http.ResponseWriter, req *http.Request) error {
	userID, err := currentUser(req)
	if err != nil {
		return err
	}
	id, err := pathID(req)
	if err != nil {
		return err
	}
	a, err := r.analysesSvc.Get(req.Context(), userID, domainanalyses.AnalysisID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, a)
}

// DELETE /api/analyses/{id}
func (r *Router) handleAnalysisDelete(w http.ResponseWriter, req *http.Request) error {
	userID, err := currentUser(req)
	if err != nil {
		return err
	}
	id, err := pathID(req)
	if err != nil {
		return err
	}
	if err := r.analysesSvc.Delete(req.Context(), userID, domainanalyses.AnalysisID(id)); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]string{"message": "Analysis deleted successfully"})
}

//
// ==== LEGAL QUESTIONS ====
//

type askBody struct {
	Question string `json:"question" validate:"required,min=5"`
	UploadID string `json:"uploadId" validate:"omitempty,uuid"`
}

// POST /api/requests
func (r *Router) handleAsk(w http.ResponseWriter, req *http.Request) error {
	userID, err := currentUser(req)
	if err != nil {
		return err
	}
	var body askBody
	if err := decodeJSON(req, &body); err != nil {
		return err
	}
	body.Question = middleware.SanitizeString(body.Question)
	if err := middleware.ValidateStruct(body); err != nil {
		return domain.NewClientError(domain.ErrInvalidInput, "%s", err)
	}

	res, err := r.requestsSvc.Ask(req.Context(), apprequests.AskCommand{
		UserID:   userID,
		Question: body.Question,
		UploadID: body.UploadID,
	})
	if err != nil {
		return err
	}
	r.metrics.RecordQuestion(res.Fallback)
	return writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Question submitted and answered",
		"request": res.Request,
	})
}

// GET /api/requests
func (r *Router) handleRequestList(w http.ResponseWriter, req *http.Request) error {
	userID, err := currentUser(req)
	if err != nil {
		return err
	}
	list, err := r.requestsSvc.List(req.Context(), userID)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"requests": list})
}

// GET /api/requests/{id}
func (r *Router) handleRequestGet(w http.ResponseWriter, req *http.Request) error {
	userID, err := currentUser(req)
	if err != nil {
		return err
	}
	id, err := pathID(req)
	if err != nil {
		return err
	}
	q, err := r.requestsSvc.Get(req.Context(), userID, domainrequests.RequestID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"request": q})
}
