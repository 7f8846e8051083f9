// Package analysis is the HTTP client for the external AI image-analysis
// service. The service classifies a blood-smear image and derives
// saliency and Grad-CAM visualizations; this API never calls it inside a
// write path, so a failed analysis leaves stored state untouched.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/oncolab/leukoflow/internal/config"
)

var ErrModelUnavailable = errors.New("model service unavailable")

// Prediction is the classifier verdict for one image.
type Prediction struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	ImageURL   string  `json:"cloudinary_url"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(cfg config.ModelConfig) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// Predict submits an image for classification.
func (c *Client) Predict(ctx context.Context, filename string, image []byte) (*Prediction, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("building multipart body: %w", err)
	}
	if _, err := fw.Write(image); err != nil {
		return nil, fmt.Errorf("building multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("building multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var pred Prediction
	if err := c.do(req, &pred); err != nil {
		return nil, err
	}
	return &pred, nil
}

// Saliency derives a saliency heatmap from a previously uploaded image.
func (c *Client) Saliency(ctx context.Context, imageURL string) (string, error) {
	return c.derive(ctx, "/saliency", imageURL)
}

// GradCAM derives a Grad-CAM heatmap from a previously uploaded image.
func (c *Client) GradCAM(ctx context.Context, imageURL string) (string, error) {
	return c.derive(ctx, "/gradcam", imageURL)
}

func (c *Client) derive(ctx context.Context, path, imageURL string) (string, error) {
	payload, err := json.Marshal(map[string]string{"cloudinary_url": imageURL})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		URL string `json:"cloudinary_url"`
	}
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrModelUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%w: %s", ErrModelUnavailable, apiErr.Error)
		}
		return fmt.Errorf("%w: status %d", ErrModelUnavailable, resp.StatusCode)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrModelUnavailable, err)
	}
	return nil
}
