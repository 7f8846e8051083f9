package v1

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oncolab/leukoflow/internal/analysis"
)

// AnalysisHandler proxies the external model service so browser clients
// never talk to it directly.
type AnalysisHandler struct {
	client *analysis.Client
}

func NewAnalysisHandler(client *analysis.Client) *AnalysisHandler {
	return &AnalysisHandler{client: client}
}

func (h *AnalysisHandler) Predict(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "an image file is required")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "reading uploaded image: "+err.Error())
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		respondError(c, http.StatusBadRequest, "reading uploaded image: "+err.Error())
		return
	}

	pred, err := h.client.Predict(c.Request.Context(), fileHeader.Filename, data)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, pred)
}

type deriveRequest struct {
	ImageURL string `json:"imageUrl"`
}

func (h *AnalysisHandler) Saliency(c *gin.Context) {
	h.derive(c, h.client.Saliency)
}

func (h *AnalysisHandler) GradCAM(c *gin.Context) {
	h.derive(c, h.client.GradCAM)
}

func (h *AnalysisHandler) derive(c *gin.Context, fn func(ctx context.Context, imageURL string) (string, error)) {
	var req deriveRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.ImageURL == "" {
		respondError(c, http.StatusBadRequest, "imageUrl is required")
		return
	}

	url, err := fn(c.Request.Context(), req.ImageURL)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, gin.H{"imageUrl": url})
}
