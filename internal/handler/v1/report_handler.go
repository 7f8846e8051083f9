package v1

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oncolab/leukoflow/internal/domain/report"
	"github.com/oncolab/leukoflow/internal/service"
	"github.com/oncolab/leukoflow/internal/storage"
	"github.com/oncolab/leukoflow/pkg/metrics"
)

type ReportHandler struct {
	reportService *service.ReportService
	store         storage.ImageStore
	collector     *metrics.Collector
}

func NewReportHandler(reportService *service.ReportService, store storage.ImageStore, collector *metrics.Collector) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		store:         store,
		collector:     collector,
	}
}

// Create is the direct-creation path: a multipart form naming the
// (patient, doctor) pair by email with one or more image files. Images
// upload to the object store before the report is written.
func (h *ReportHandler) Create(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	urls, err := h.uploadFiles(c, form.File["images"])
	if err != nil {
		respondServiceError(c, err)
		return
	}

	r, err := h.reportService.CreateReport(c.Request.Context(), &report.CreateReportCommand{
		PatientEmail: c.PostForm("patientEmail"),
		DoctorEmail:  c.PostForm("doctorEmail"),
		Type:         c.PostForm("type"),
		Diagnosis:    c.PostForm("diagnosis"),
		Stage:        c.PostForm("stage"),
		DoctorNotes:  c.PostForm("doctorNotes"),
		Images:       urls,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.collector.ReportsCreatedTotal.WithLabelValues("direct").Inc()
	respondCreated(c, r)
}

type saveAnalysisRequest struct {
	Class string `json:"class"`
	// Pointer so an absent confidence is distinguished from 0.0.
	Confidence    *float64 `json:"confidence"`
	SaliencyImage string   `json:"saliencyImage"`
	GradcamImage  string   `json:"gradcamImage"`
	DoctorRemarks string   `json:"doctorRemarks"`
}

type saveReportRequest struct {
	PatientID  uuid.UUID            `json:"patient"`
	DoctorID   uuid.UUID            `json:"doctor"`
	Type       string               `json:"type"`
	Status     string               `json:"status"`
	Stage      string               `json:"stage"`
	Images     []string             `json:"images"`
	AIAnalysis *saveAnalysisRequest `json:"aiAnalysis"`
}

type saveReportResponse struct {
	Report *report.Report `json:"report"`
	Linked bool           `json:"linked"`
}

// Save is the save-after-analysis path: image URLs already exist and an
// optional AI analysis block rides along. The patient record is
// reconciled after the report persists.
func (h *ReportHandler) Save(c *gin.Context) {
	var req saveReportRequest
	if !bindJSON(c, &req) {
		return
	}

	var aiAnalysis *report.AIAnalysis
	if req.AIAnalysis != nil {
		if req.AIAnalysis.Confidence == nil {
			c.JSON(http.StatusBadRequest, ValidationErrorResponse{
				Error:  "validation failed",
				Fields: []string{"aiAnalysis.confidence is required"},
			})
			return
		}
		aiAnalysis = &report.AIAnalysis{
			Class:         req.AIAnalysis.Class,
			Confidence:    *req.AIAnalysis.Confidence,
			SaliencyImage: req.AIAnalysis.SaliencyImage,
			GradcamImage:  req.AIAnalysis.GradcamImage,
			DoctorRemarks: req.AIAnalysis.DoctorRemarks,
		}
	}

	result, err := h.reportService.SaveReport(c.Request.Context(), &report.SaveReportCommand{
		PatientID:  req.PatientID,
		DoctorID:   req.DoctorID,
		Type:       req.Type,
		Status:     report.Status(req.Status),
		Stage:      req.Stage,
		Images:     req.Images,
		AIAnalysis: aiAnalysis,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.collector.ReportsCreatedTotal.WithLabelValues("save").Inc()

	msg := ""
	if !result.Linked {
		msg = "report saved; patient record not found, so it was not linked"
	}
	c.JSON(http.StatusCreated, APIResponse[any]{
		Data:    saveReportResponse{Report: result.Report, Linked: result.Linked},
		Message: msg,
	})
}

func (h *ReportHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	r, err := h.reportService.GetReport(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, r)
}

func (h *ReportHandler) List(c *gin.Context) {
	reports, err := h.reportService.ListReports(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, reports)
}

type updateReportRequest struct {
	Type        *string `json:"type"`
	Diagnosis   *string `json:"diagnosis"`
	Stage       *string `json:"stage"`
	DoctorNotes *string `json:"doctorNotes"`
	Status      *string `json:"status"`
}

func (h *ReportHandler) Update(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req updateReportRequest
	if !bindJSON(c, &req) {
		return
	}

	var status *report.Status
	if req.Status != nil {
		s := report.Status(*req.Status)
		status = &s
	}

	r, err := h.reportService.UpdateReport(c.Request.Context(), id, &report.UpdateReportCommand{
		Type:        req.Type,
		Diagnosis:   req.Diagnosis,
		Stage:       req.Stage,
		DoctorNotes: req.DoctorNotes,
		Status:      status,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, r)
}

func (h *ReportHandler) Delete(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.reportService.DeleteReport(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, gin.H{"deleted": true})
}

// DoctorReports lists the requesting doctor's reports.
func (h *ReportHandler) DoctorReports(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	reports, err := h.reportService.DoctorReports(c.Request.Context(), claims.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, reports)
}

func (h *ReportHandler) PatientReports(c *gin.Context) {
	patientID, ok := parseUUID(c, "patientId")
	if !ok {
		return
	}

	reports, err := h.reportService.PatientReports(c.Request.Context(), patientID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, reports)
}

type analyzeRequest struct {
	PredictedClass string `json:"predicted_class"`
}

// Analyze attaches a classifier verdict to the report. The label arrives
// from the client, which obtained it from the analysis endpoints.
func (h *ReportHandler) Analyze(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req analyzeRequest
	if !bindJSON(c, &req) {
		return
	}

	r, err := h.reportService.AttachVerdict(c.Request.Context(), id, req.PredictedClass)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.collector.ReportsAnalyzedTotal.Inc()
	respondOK(c, r)
}

func (h *ReportHandler) uploadFiles(c *gin.Context, files []*multipart.FileHeader) ([]string, error) {
	urls := make([]string, 0, len(files))
	for _, fh := range files {
		data, err := readUpload(fh)
		if err != nil {
			return nil, &service.UpstreamError{Op: "reading upload " + fh.Filename, Err: err}
		}
		url, err := h.store.Upload(c.Request.Context(), fh.Filename, fh.Header.Get("Content-Type"), data)
		if err != nil {
			if errors.Is(err, storage.ErrFileTooLarge) ||
				errors.Is(err, storage.ErrInvalidContentType) ||
				errors.Is(err, storage.ErrMissingFileName) {
				return nil, err
			}
			return nil, &service.UpstreamError{Op: "uploading image " + fh.Filename, Err: err}
		}
		h.collector.ImagesUploadedTotal.Inc()
		urls = append(urls, url)
	}
	return urls, nil
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
