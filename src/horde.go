package storyverse

import (
	"context"
	"errors"
	"fmt"

	"github.com/opd-ai/horde"
	"go.uber.org/zap"
)

// HordeClient renders images through the AI Horde distributed cluster.
type HordeClient struct {
	*horde.Client
	logger *zap.Logger
}

func NewHordeClient(apiKey string, logger *zap.Logger) *HordeClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HordeClient{
		Client: horde.NewClient(apiKey),
		logger: logger,
	}
}

type hordeResult struct {
	data []byte
	err  error
}

// ImageGenerate submits prompt and waits for the result. The horde client
// polls without a context, so cancellation abandons the wait.
func (c *HordeClient) ImageGenerate(ctx context.Context, prompt string) ([]byte, error) {
	done := make(chan hordeResult, 1)
	go func() {
		data, err := c.generate(prompt)
		done <- hordeResult{data: data, err: err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.data, res.err
	}
}

func (c *HordeClient) generate(prompt string) ([]byte, error) {
	req := horde.GenerationRequest{
		Prompt: prompt,
		Params: horde.Params{
			Steps:     horde.DefaultSteps,
			Width:     horde.DefaultWidth,
			Height:    horde.DefaultHeight,
			ModelName: horde.DefaultModel,
		},
	}

	resp, err := c.RequestGeneration(req)
	if err != nil {
		return nil, fmt.Errorf("requesting generation: %w", err)
	}
	c.logger.Debug("horde request accepted", zap.String("id", resp.ID))

	status, err := c.WaitForCompletion(resp.ID)
	if err != nil {
		return nil, fmt.Errorf("waiting for completion: %w", err)
	}
	if len(status.Generation) == 0 {
		return nil, errors.New("no results returned")
	}

	imageData, err := c.DownloadImage(status.Generation[0].Image)
	if err != nil {
		return nil, fmt.Errorf("downloading image: %w", err)
	}
	c.logger.Debug("horde image downloaded", zap.String("id", resp.ID), zap.Int("bytes", len(imageData)))
	return imageData, nil
}
