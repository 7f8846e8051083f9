package v1

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveReportRejectsAnalysisWithoutConfidence(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Rejection happens before any service call, so the handler needs
	// no wired dependencies here.
	h := NewReportHandler(nil, nil, nil)
	router := gin.New()
	router.POST("/api/reports/save", h.Save)

	body := `{
		"patient": "` + uuid.NewString() + `",
		"doctor": "` + uuid.NewString() + `",
		"type": "Blood Smear Analysis",
		"status": "Completed",
		"images": ["https://img.example/smear.png"],
		"aiAnalysis": {
			"class": "ALL",
			"saliencyImage": "https://img.example/saliency.png",
			"gradcamImage": "https://img.example/gradcam.png",
			"doctorRemarks": "review blasts"
		}
	}`

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/reports/save", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "aiAnalysis.confidence is required")
}
