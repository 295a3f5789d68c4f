package storyverse

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const (
	DefaultGeminiModel = "gemini-2.0-flash"
	DefaultImagenModel = "imagen-3.0-generate-002"
)

// GeminiClient serves both text generation and Imagen renders.
type GeminiClient struct {
	client     *genai.Client
	model      string
	imageModel string
}

func NewGeminiClient(ctx context.Context, apiKey, model, imageModel string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	if imageModel == "" {
		imageModel = DefaultImagenModel
	}
	return &GeminiClient{client: client, model: model, imageModel: imageModel}, nil
}

func (c *GeminiClient) SendMessage(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var cfg *genai.GenerateContentConfig
	if systemPrompt != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		}
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userPrompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("empty response from gemini")
	}
	return text, nil
}

func (c *GeminiClient) ImageGenerate(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := c.client.Models.GenerateImages(ctx, c.imageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("imagen generate images: %w", err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, errors.New("no images generated")
	}
	return resp.GeneratedImages[0].Image.ImageBytes, nil
}
