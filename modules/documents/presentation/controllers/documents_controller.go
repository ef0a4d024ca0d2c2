package controllers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-faster/errors"
	"github.com/go-playground/form"
	"github.com/gorilla/mux"

	"github.com/fieldops/opsboard/modules/documents/domain/document"
	"github.com/fieldops/opsboard/modules/documents/presentation/controllers/dtos"
	"github.com/fieldops/opsboard/modules/documents/services"
	"github.com/fieldops/opsboard/modules/jobs/domain/jobtype"
	"github.com/fieldops/opsboard/pkg/application"
	"github.com/fieldops/opsboard/pkg/composables"
	"github.com/fieldops/opsboard/pkg/httpapi"
)

// allowedUploadTypes are matched against the sniffed content, not the client's Content-Type.
var allowedUploadTypes = []string{
	"application/pdf",
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"image/heic",
	"text/plain",
	"text/csv",
	"application/zip",
	"application/msword",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.google-earth.kml+xml",
	"application/vnd.google-earth.kmz",
}

type UploadLimits struct {
	MaxSize   int64
	MaxMemory int64
}

type DocumentsController struct {
	app      application.Application
	docs     *services.DocumentService
	limits   UploadLimits
	decoder  *form.Decoder
	basePath string
}

func NewDocumentsController(app application.Application, limits UploadLimits) application.Controller {
	if limits.MaxSize <= 0 {
		limits.MaxSize = 32 << 20
	}
	if limits.MaxMemory <= 0 || limits.MaxMemory > limits.MaxSize {
		limits.MaxMemory = min(8<<20, limits.MaxSize)
	}
	return &DocumentsController{
		app:      app,
		docs:     app.Service(services.DocumentService{}).(*services.DocumentService),
		limits:   limits,
		decoder:  form.NewDecoder(),
		basePath: "/documents",
	}
}

func (c *DocumentsController) Key() string {
	return c.basePath
}

func (c *DocumentsController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("/tree", c.Tree).Methods(http.MethodGet)
	router.HandleFunc("/tree/{type}/{job}", c.Expand).Methods(http.MethodGet)
	router.HandleFunc("/signed-url", c.SignedURL).Methods(http.MethodGet)
	router.HandleFunc("/upload", c.Upload).Methods(http.MethodPost)
}

func (c *DocumentsController) Tree(w http.ResponseWriter, r *http.Request) {
	q, err := composables.UseQuery(&dtos.TreeQuery{}, r)
	if err != nil {
		httpapi.WriteRequestError(w, r, http.StatusBadRequest, "DOCUMENTS_INVALID_QUERY", "invalid query")
		return
	}
	if fields, ok := q.Ok(); !ok {
		httpapi.WriteValidationError(w, r, "DOCUMENTS_INVALID_QUERY", "client_id is required", fields)
		return
	}
	tree, err := c.docs.Tree(r.Context(), q.ClientID, q.Reload)
	if err != nil {
		httpapi.WriteUpstreamError(w, r, "DOCUMENTS", err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, tree.Apply(document.Filter{
		Query:    q.Query,
		JobType:  q.JobType,
		Category: q.Category,
	}))
}

func (c *DocumentsController) Expand(w http.ResponseWriter, r *http.Request) {
	q, err := composables.UseQuery(&dtos.ExpandQuery{}, r)
	if err != nil {
		httpapi.WriteRequestError(w, r, http.StatusBadRequest, "DOCUMENTS_INVALID_QUERY", "invalid query")
		return
	}
	vars := mux.Vars(r)
	docs, err := c.docs.Expand(r.Context(), q.ClientID, vars["type"], vars["job"])
	if err != nil {
		if errors.Is(err, jobtype.ErrUnknownJobType) {
			httpapi.WriteRequestError(w, r, http.StatusNotFound, "DOCUMENTS_UNKNOWN_JOB_TYPE", err.Error())
			return
		}
		httpapi.WriteUpstreamError(w, r, "DOCUMENTS", err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{
		"jobType":   vars["type"],
		"jobId":     vars["job"],
		"documents": document.ByCategory(docs, q.Category),
	})
}

func (c *DocumentsController) SignedURL(w http.ResponseWriter, r *http.Request) {
	q, err := composables.UseQuery(&dtos.SignedURLQuery{}, r)
	if err != nil {
		httpapi.WriteRequestError(w, r, http.StatusBadRequest, "DOCUMENTS_INVALID_QUERY", "invalid query")
		return
	}
	if fields, ok := q.Ok(); !ok {
		httpapi.WriteValidationError(w, r, "DOCUMENTS_INVALID_QUERY", services.ErrExpiryOutOfRange.Error(), fields)
		return
	}
	link, err := c.docs.SignedURL(r.Context(), q.ID, time.Duration(q.Expires)*time.Second)
	if err != nil {
		httpapi.WriteUpstreamError(w, r, "DOCUMENTS", err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]string{"url": link})
}

func (c *DocumentsController) Upload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > c.limits.MaxSize {
		httpapi.WriteRequestError(w, r, http.StatusRequestEntityTooLarge, "DOCUMENTS_TOO_LARGE", "file is too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, c.limits.MaxSize)
	if err := r.ParseMultipartForm(c.limits.MaxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpapi.WriteRequestError(w, r, http.StatusRequestEntityTooLarge, "DOCUMENTS_TOO_LARGE", "file is too large")
			return
		}
		httpapi.WriteRequestError(w, r, http.StatusBadRequest, "DOCUMENTS_INVALID_FORM", "invalid multipart form")
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			composables.UseLogger(r.Context()).WithError(err).Debug("failed to remove multipart temp files")
		}
	}()

	var dto dtos.UploadDTO
	if err := c.decoder.Decode(&dto, r.MultipartForm.Value); err != nil {
		httpapi.WriteRequestError(w, r, http.StatusBadRequest, "DOCUMENTS_INVALID_FORM", "invalid multipart form")
		return
	}
	if fields, ok := dto.Ok(); !ok {
		httpapi.WriteValidationError(w, r, "DOCUMENTS_INVALID_FORM", "missing upload fields", fields)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httpapi.WriteValidationError(w, r, "DOCUMENTS_INVALID_FORM", "file is required", map[string]string{"file": "required"})
		return
	}
	defer file.Close()

	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		httpapi.WriteRequestError(w, r, http.StatusBadRequest, "DOCUMENTS_INVALID_FILE", "could not read file")
		return
	}
	if !allowedUpload(mtype) {
		httpapi.WriteRequestError(w, r, http.StatusUnsupportedMediaType, "DOCUMENTS_UNSUPPORTED_TYPE", "unsupported file type "+mtype.String())
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		httpapi.WriteRequestError(w, r, http.StatusInternalServerError, "DOCUMENTS_INTERNAL", "could not rewind file")
		return
	}

	fileName := dto.FileName
	if fileName == "" {
		fileName = header.Filename
	}
	out, err := c.docs.Upload(r.Context(), services.UploadParams{
		FileName:   fileName,
		MimeType:   mtype.String(),
		ClientID:   dto.ClientID,
		ClientName: dto.ClientName,
		JobType:    dto.JobType,
		JobID:      dto.JobID,
		Category:   dto.Category,
	}, file)
	if err != nil {
		if errors.Is(err, jobtype.ErrUnknownJobType) {
			httpapi.WriteValidationError(w, r, "DOCUMENTS_INVALID_FORM", err.Error(), map[string]string{"job_type": "invalid"})
			return
		}
		httpapi.WriteUpstreamError(w, r, "DOCUMENTS", err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, out)
}

func allowedUpload(mtype *mimetype.MIME) bool {
	if strings.HasPrefix(mtype.String(), "image/") {
		return true
	}
	for _, allowed := range allowedUploadTypes {
		if mtype.Is(allowed) {
			return true
		}
	}
	return false
}
