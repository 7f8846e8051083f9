package v1

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oncolab/leukoflow/internal/domain/submission"
	"github.com/oncolab/leukoflow/internal/service"
	"github.com/oncolab/leukoflow/pkg/metrics"
)

type SubmissionHandler struct {
	submissionService *service.SubmissionService
	collector         *metrics.Collector
}

func NewSubmissionHandler(submissionService *service.SubmissionService, collector *metrics.Collector) *SubmissionHandler {
	return &SubmissionHandler{submissionService: submissionService, collector: collector}
}

// Create accepts a pathology batch: a multipart form with patientId,
// doctorId, comment, and up to ten image files under "images".
func (h *SubmissionHandler) Create(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	cmd := &submission.CreateSubmissionCommand{
		Comment: c.PostForm("comment"),
	}

	// Malformed ids fall through as uuid.Nil and fail validation with
	// the other field errors rather than short-circuiting.
	if raw := c.PostForm("patientId"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			cmd.PatientID = id
		}
	}
	if raw := c.PostForm("doctorId"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			cmd.DoctorID = id
		}
	}

	for _, fh := range form.File["images"] {
		f, err := fh.Open()
		if err != nil {
			respondError(c, http.StatusBadRequest, "reading upload "+fh.Filename+": "+err.Error())
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			respondError(c, http.StatusBadRequest, "reading upload "+fh.Filename+": "+err.Error())
			return
		}
		cmd.Images = append(cmd.Images, submission.ImagePayload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	view, err := h.submissionService.CreateSubmission(c.Request.Context(), cmd)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.collector.SubmissionsTotal.Inc()
	h.collector.ImagesUploadedTotal.Add(float64(len(view.Images)))
	respondCreated(c, view)
}

func (h *SubmissionHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	view, err := h.submissionService.GetSubmission(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, view)
}

func (h *SubmissionHandler) List(c *gin.Context) {
	q := &submission.ListSubmissionsQuery{}

	if raw := c.Query("patientId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid patientId: must be a valid UUID")
			return
		}
		q.PatientID = &id
	}
	if raw := c.Query("doctorId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid doctorId: must be a valid UUID")
			return
		}
		q.DoctorID = &id
	}

	views, err := h.submissionService.ListSubmissions(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, views)
}
