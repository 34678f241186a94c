// Package gemini is a VisionClient backed by the Gemini API.
package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/menta2k/roast-cam/pkg/client"
	"github.com/menta2k/roast-cam/pkg/types"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-3-pro-preview"

// ErrMissingAPIKey is returned when no API key is configured
var ErrMissingAPIKey = errors.New("API_KEY is missing")

// contentGenerator is the subset of *genai.Models the client needs
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client talks to Gemini through the genai SDK
type Client struct {
	models contentGenerator
}

// NewClient creates a Gemini API client
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Client{models: c.Models}, nil
}

func newWithGenerator(g contentGenerator) *Client {
	return &Client{models: g}
}

// SimpleQuery asks a free-form question about an image
func (c *Client) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	img, err := imagePart(imgB64, "image/jpeg")
	if err != nil {
		return "", err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{img, genai.NewPartFromText(prompt)}, genai.RoleUser),
	}

	resp, err := c.models.GenerateContent(ctx, modelOrDefault(model), contents, &genai.GenerateContentConfig{})
	if err != nil {
		return "", fmt.Errorf("gemini generate error: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("no text response from gemini")
	}
	return text, nil
}

// GenerateRoasts requests the three roasts as schema-constrained JSON
func (c *Client) GenerateRoasts(ctx context.Context, model string, req types.RoastRequest) (*types.Roasts, error) {
	img, err := imagePart(req.ImageB64, req.MimeType)
	if err != nil {
		return nil, err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{img, genai.NewPartFromText(req.Prompt)}, genai.RoleUser),
	}

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   RoastSchema(),
		Temperature:      genai.Ptr(req.Temperature),
	}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}

	resp, err := c.models.GenerateContent(ctx, modelOrDefault(model), contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate error: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("no text response from gemini")
	}
	return client.ParseRoasts(text)
}

// RoastSchema is the structured-output schema for the roast object
func RoastSchema() *genai.Schema {
	s := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(client.RoastFields)),
	}
	for _, f := range client.RoastFields {
		s.Properties[f.Name] = &genai.Schema{Type: genai.TypeString, Description: f.Description}
		s.Required = append(s.Required, f.Name)
		s.PropertyOrdering = append(s.PropertyOrdering, f.Name)
	}
	return s
}

// imagePart decodes b64, dropping any data URI prefix
func imagePart(b64, mimeType string) (*genai.Part, error) {
	if i := strings.Index(b64, ","); i >= 0 {
		b64 = b64[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image: %v", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image payload")
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return &genai.Part{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}}, nil
}

func modelOrDefault(model string) string {
	if model == "" {
		return DefaultModel
	}
	return model
}
