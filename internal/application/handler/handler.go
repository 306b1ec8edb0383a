package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"intake/internal/application/models"
	applicationService "intake/internal/application/service"
	"intake/internal/payment"
	"intake/internal/platform/metrics"
	"intake/internal/platform/middleware"
	"intake/internal/transport/http/shared"
	id "intake/pkg/domain"
	dErrors "intake/pkg/domain-errors"
)

// sessionTTL bounds how long an applicant session stays valid. Resuming with
// the code issues a fresh one.
const sessionTTL = 12 * time.Hour

// Resume is the only endpoint worth brute-forcing: codes are high entropy
// but the limiter keeps online guessing impractical anyway.
const (
	resumeAttemptLimit  = 10
	resumeAttemptWindow = time.Minute
)

// Service defines the draft lifecycle operations the handler exposes.
type Service interface {
	Create(ctx context.Context, req models.CreateApplicationRequest) (*applicationService.CreateResult, error)
	Update(ctx context.Context, appID id.ApplicationID, req models.UpdateDraftRequest) (*models.Record, error)
	Fetch(ctx context.Context, appID id.ApplicationID) (*models.Record, error)
	Resume(ctx context.Context, req models.ResumeRequest) (*models.Record, error)
	Submit(ctx context.Context, appID id.ApplicationID) (*models.Record, error)
}

// DocumentService defines the attachment operations the handler exposes.
type DocumentService interface {
	Upload(ctx context.Context, appID id.ApplicationID, rawType, fileName string, content []byte) (models.Document, error)
	Delete(ctx context.Context, appID id.ApplicationID, docID id.DocumentID) error
	List(ctx context.Context, appID id.ApplicationID) ([]models.Document, error)
	Download(ctx context.Context, appID id.ApplicationID, docID id.DocumentID) (models.Document, []byte, error)
}

// PaymentService defines the pricing operations the handler exposes.
type PaymentService interface {
	Quote(ctx context.Context, appID id.ApplicationID) (models.PriceQuote, error)
	Initialize(ctx context.Context, appID id.ApplicationID) (payment.Intent, error)
	Complete(ctx context.Context, appID id.ApplicationID, reference string) (models.PriceQuote, error)
}

// TokenIssuer mints applicant session tokens.
type TokenIssuer interface {
	GenerateSessionToken(applicationID uuid.UUID, expiresIn time.Duration) (string, error)
}

// Handler handles application intake endpoints.
type Handler struct {
	logger       *slog.Logger
	applications Service
	documents    DocumentService
	payments     PaymentService
	issuer        TokenIssuer
	validator     middleware.TokenValidator
	metrics       *metrics.Metrics
	resumeLimiter *middleware.RateLimiter
}

// New creates a new intake Handler.
func New(
	applications Service,
	documents DocumentService,
	payments PaymentService,
	issuer TokenIssuer,
	validator middleware.TokenValidator,
	logger *slog.Logger,
	m *metrics.Metrics) *Handler {
	return &Handler{
		logger:        logger,
		applications:  applications,
		documents:     documents,
		payments:      payments,
		issuer:        issuer,
		validator:     validator,
		metrics:       m,
		resumeLimiter: middleware.NewRateLimiter(resumeAttemptLimit, resumeAttemptWindow),
	}
}

// Register registers the intake routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.ClientMetadata)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.LatencyMiddleware(h.metrics))

	// Session issuance happens here, so these two stay unauthenticated.
	// The limiter slows resume-code guessing; creation is not limited.
	router.Post("/applications", h.handleCreate)
	router.With(h.resumeLimiter.Limit).Post("/applications/resume", h.handleResume)

	router.Group(func(auth chi.Router) {
		auth.Use(middleware.RequireAuth(h.validator, h.logger))
		auth.Get("/applications/{applicationID}", h.handleFetch)
		auth.Put("/applications/{applicationID}/draft", h.handleUpdateDraft)
		auth.Post("/applications/{applicationID}/submit", h.handleSubmit)

		auth.Get("/applications/{applicationID}/documents", h.handleListDocuments)
		auth.Post("/applications/{applicationID}/documents", h.handleUploadDocument)
		auth.Get("/applications/{applicationID}/documents/{documentID}", h.handleDownloadDocument)
		auth.Delete("/applications/{applicationID}/documents/{documentID}", h.handleDeleteDocument)

		auth.Get("/applications/{applicationID}/quote", h.handleQuote)
		auth.Post("/applications/{applicationID}/payment", h.handleInitializePayment)
		auth.Post("/applications/{applicationID}/payment/complete", h.handleCompletePayment)
	})

	r.Mount("/", router)
}

// createResponse carries the one-time resume code alongside the session.
type createResponse struct {
	Application *models.Record `json:"application"`
	ResumeCode  string         `json:"resume_code"`
	AccessToken string         `json:"access_token"`
}

type resumeResponse struct {
	Application *models.Record `json:"application"`
	AccessToken string         `json:"access_token"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.CreateApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.warn(ctx, "invalid create request", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		h.warn(ctx, "create request failed validation", err)
		shared.WriteError(w, err)
		return
	}

	result, err := h.applications.Create(ctx, req)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to create application", err)
		return
	}

	token, err := h.issuer.GenerateSessionToken(uuid.UUID(result.Record.ID), sessionTTL)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue session token",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to open session"))
		return
	}

	shared.WriteJSON(w, http.StatusCreated, createResponse{
		Application: result.Record,
		ResumeCode:  result.ResumeCode,
		AccessToken: token,
	})
}

func (h *Handler) handleResume(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.ResumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.warn(ctx, "invalid resume request", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		h.warn(ctx, "resume request failed validation", err)
		shared.WriteError(w, err)
		return
	}

	rec, err := h.applications.Resume(ctx, req)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to resume application", err)
		return
	}

	token, err := h.issuer.GenerateSessionToken(uuid.UUID(rec.ID), sessionTTL)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue session token",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to open session"))
		return
	}

	shared.WriteJSON(w, http.StatusOK, resumeResponse{
		Application: rec,
		AccessToken: token,
	})
}

func (h *Handler) handleFetch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.authorizedApplicationID(w, r)
	if !ok {
		return
	}

	rec, err := h.applications.Fetch(ctx, appID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to fetch application", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.authorizedApplicationID(w, r)
	if !ok {
		return
	}

	var req models.UpdateDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.warn(ctx, "invalid draft update request", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		h.warn(ctx, "draft update failed validation", err)
		shared.WriteError(w, err)
		return
	}

	rec, err := h.applications.Update(ctx, appID, req)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to update draft", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.authorizedApplicationID(w, r)
	if !ok {
		return
	}

	rec, err := h.applications.Submit(ctx, appID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to submit application", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.authorizedApplicationID(w, r)
	if !ok {
		return
	}

	docs, err := h.documents.List(ctx, appID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to list documents", err)
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}
	shared.WriteJSON(w, http.StatusOK, docs)
}

func (h *Handler) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.authorizedApplicationID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, models.MaxUploadBytes+4096)
	if err := r.ParseMultipartForm(models.MaxUploadBytes); err != nil {
		h.warn(ctx, "invalid multipart upload", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid multipart body"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "file part is required"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "could not read file"))
		return
	}

	doc, err := h.documents.Upload(ctx, appID, r.FormValue("type"), header.Filename, content)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to upload document", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, doc)
}

func (h *Handler) handleDownloadDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.authorizedApplicationID(w, r)
	if !ok {
		return
	}
	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	doc, content, err := h.documents.Download(ctx, appID, docID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to download document", err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.FileName+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

func (h *Handler) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.authorizedApplicationID(w, r)
	if !ok {
		return
	}
	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.documents.Delete(ctx, appID, docID); err != nil {
		h.writeServiceError(ctx, w, "failed to delete document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.authorizedApplicationID(w, r)
	if !ok {
		return
	}

	quote, err := h.payments.Quote(ctx, appID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to price application", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, quote)
}

func (h *Handler) handleInitializePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.authorizedApplicationID(w, r)
	if !ok {
		return
	}

	intent, err := h.payments.Initialize(ctx, appID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to initialize payment", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, intent)
}

func (h *Handler) handleCompletePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.authorizedApplicationID(w, r)
	if !ok {
		return
	}

	var req models.CompletePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.warn(ctx, "invalid payment completion request", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		h.warn(ctx, "payment completion failed validation", err)
		shared.WriteError(w, err)
		return
	}

	quote, err := h.payments.Complete(ctx, appID, req.Reference)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to complete payment", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, quote)
}

// authorizedApplicationID parses the path ID and checks it against the
// session. A valid token for another application gets not found, never a
// confirmation the ID exists.
func (h *Handler) authorizedApplicationID(w http.ResponseWriter, r *http.Request) (id.ApplicationID, bool) {
	ctx := r.Context()

	sessionAppID := middleware.GetApplicationID(ctx)
	if sessionAppID == "" {
		h.logger.ErrorContext(ctx, "application ID missing from context despite auth middleware",
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return id.ApplicationID{}, false
	}

	appID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		shared.WriteError(w, err)
		return id.ApplicationID{}, false
	}
	if appID.String() != sessionAppID {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "application not found"))
		return id.ApplicationID{}, false
	}
	return appID, true
}

func (h *Handler) warn(ctx context.Context, message string, err error) {
	h.logger.WarnContext(ctx, message,
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, message string, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) && dErrors.CodeOf(err) != dErrors.CodeInternal {
		h.warn(ctx, message, err)
		shared.WriteError(w, err)
		return
	}
	h.logger.ErrorContext(ctx, message,
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	)
	shared.WriteError(w, dErrors.New(dErrors.CodeInternal, message))
}
