package storyverse

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/opd-ai/horde"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ImageClient is the external image-generation collaborator.
type ImageClient interface {
	ImageGenerate(ctx context.Context, prompt string) ([]byte, error)
}

// Placeholder refs shown instead of an image when rendering is unavailable.
const (
	PlaceholderMissingKey = "https://placehold.co/400x200/505050/FFFFFF?text=API+Key+Missing"
	PlaceholderFailed     = "https://placehold.co/400x200/FF0000/FFFFFF?text=Image+Gen+Failed"
	PlaceholderAPIError   = "https://placehold.co/400x200/FF0000/FFFFFF?text=API+Error"
)

// ImageRef is either a data URI holding the rendered image or one of the
// placeholder URLs.
type ImageRef string

func (r ImageRef) IsPlaceholder() bool {
	switch r {
	case PlaceholderMissingKey, PlaceholderFailed, PlaceholderAPIError:
		return true
	}
	return false
}

// Illustrator renders visual concepts. It never returns an error; failures
// come back as placeholder refs.
type Illustrator struct {
	client  ImageClient
	cache   *cache.Cache
	group   singleflight.Group
	timeout time.Duration
	logger  *zap.Logger
}

// NewIllustrator wraps client. A nil client yields PlaceholderMissingKey for
// every render.
func NewIllustrator(client ImageClient, logger *zap.Logger) *Illustrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Illustrator{
		client:  client,
		cache:   cache.New(6*time.Hour, 30*time.Minute),
		timeout: 5 * time.Minute,
		logger:  logger,
	}
}

// Render draws the concept described by a visual-concept suggestion.
func (il *Illustrator) Render(ctx context.Context, concept Suggestion) ImageRef {
	if il == nil || il.client == nil {
		imageRenders.WithLabelValues("unconfigured").Inc()
		return PlaceholderMissingKey
	}
	prompt := concept.ImagePrompt()
	if prompt == "" || concept.Fallback {
		imageRenders.WithLabelValues("skipped").Inc()
		return PlaceholderFailed
	}
	if ref, ok := il.cache.Get(prompt); ok {
		imageRenders.WithLabelValues("cached").Inc()
		return ref.(ImageRef)
	}

	// Concurrent renders of one prompt share a single call, which is not
	// bound to any one caller's context.
	ch := il.group.DoChan(prompt, func() (interface{}, error) {
		renderCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), il.timeout)
		defer cancel()
		data, err := il.client.ImageGenerate(renderCtx, prompt)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			return nil, errors.New("image generator returned no data")
		}
		ref := ImageRef("data:" + http.DetectContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data))
		il.cache.Set(prompt, ref, cache.DefaultExpiration)
		return ref, nil
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		res.Err = ctx.Err()
	}
	if res.Err != nil {
		il.logger.Warn("image generation failed", zap.String("prompt", prompt), zap.Error(res.Err))
		imageRenders.WithLabelValues("failed").Inc()
		if errors.Is(res.Err, context.DeadlineExceeded) || errors.Is(res.Err, context.Canceled) {
			return PlaceholderAPIError
		}
		return PlaceholderFailed
	}
	imageRenders.WithLabelValues("ok").Inc()
	return res.Val.(ImageRef)
}

// LocalClient renders through a Stable Diffusion WebUI instance.
type LocalClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewLocalClient(baseURL string, logger *zap.Logger) *LocalClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute, // SD generation can take a while
		},
		logger: logger,
	}
}

// SDWebUIRequest represents the request structure for the Stable Diffusion WebUI API
type SDWebUIRequest struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	Steps          int     `json:"steps"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	CFGScale       float64 `json:"cfg_scale,omitempty"`
	BatchSize      int     `json:"batch_size,omitempty"`
}

// SDWebUIResponse represents the response structure from the Stable Diffusion WebUI API
type SDWebUIResponse struct {
	Images []string `json:"images"`
	Info   string   `json:"info"`
	Error  string   `json:"error,omitempty"`
}

func (l *LocalClient) ImageGenerate(ctx context.Context, prompt string) ([]byte, error) {
	if l.baseURL == "" {
		return nil, errors.New("SD_WEBUI_URL not set")
	}
	requestData := SDWebUIRequest{
		Prompt:         prompt,
		NegativePrompt: "text, watermark, signature",
		Steps:          horde.DefaultSteps,
		Width:          horde.DefaultWidth,
		Height:         horde.DefaultHeight,
		CFGScale:       3.0,
		BatchSize:      1,
	}
	jsonData, err := json.Marshal(requestData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/sdapi/v1/txt2img", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	l.logger.Debug("sending request to SD-WebUI", zap.String("url", l.baseURL), zap.Int("steps", requestData.Steps))
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	}

	var sdResponse SDWebUIResponse
	if err := json.Unmarshal(body, &sdResponse); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if sdResponse.Error != "" {
		return nil, fmt.Errorf("sd-webui: %s", sdResponse.Error)
	}
	if len(sdResponse.Images) == 0 {
		return nil, errors.New("no images generated")
	}

	imageBytes, err := base64.StdEncoding.DecodeString(sdResponse.Images[0])
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return imageBytes, nil
}
