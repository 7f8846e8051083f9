package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/oncolab/leukoflow/internal/domain/patient"
	"github.com/oncolab/leukoflow/internal/service"
)

type PatientHandler struct {
	patientService *service.PatientService
}

func NewPatientHandler(patientService *service.PatientService) *PatientHandler {
	return &PatientHandler{patientService: patientService}
}

type createPatientRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Age     int    `json:"age"`
	Gender  string `json:"gender"`
	Address string `json:"address"`
}

func (h *PatientHandler) Create(c *gin.Context) {
	var req createPatientRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.patientService.CreatePatient(c.Request.Context(), &patient.CreatePatientCommand{
		Name:    req.Name,
		Email:   req.Email,
		Age:     req.Age,
		Gender:  req.Gender,
		Address: req.Address,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, p)
}

// List returns all patients, or a single patient when ?email= is given.
func (h *PatientHandler) List(c *gin.Context) {
	if email := c.Query("email"); email != "" {
		p, err := h.patientService.GetPatientByEmail(c.Request.Context(), email)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		respondOK(c, p)
		return
	}

	patients, err := h.patientService.ListPatients(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, patients)
}

func (h *PatientHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	p, err := h.patientService.GetPatient(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, p)
}

type updatePatientRequest struct {
	Name   *string `json:"name"`
	Age    *int    `json:"age"`
	Gender *string `json:"gender"`
}

func (h *PatientHandler) Update(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req updatePatientRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.patientService.UpdatePatient(c.Request.Context(), id, &patient.UpdatePatientCommand{
		Name:   req.Name,
		Age:    req.Age,
		Gender: req.Gender,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, p)
}

func (h *PatientHandler) Delete(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.patientService.DeletePatient(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, gin.H{"deleted": true})
}

func (h *PatientHandler) Search(c *gin.Context) {
	patients, err := h.patientService.SearchPatients(c.Request.Context(), c.Query("query"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, patients)
}

// Assigned returns the requesting doctor's patients, recomputed from
// their reports.
func (h *PatientHandler) Assigned(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		respondError(c, 401, "authentication required")
		return
	}

	patients, err := h.patientService.AssignedPatients(c.Request.Context(), claims.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, patients)
}
