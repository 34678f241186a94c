package roaster

import (
	"context"
	"fmt"
	"strings"

	"github.com/menta2k/roast-cam/pkg/client"
	"github.com/menta2k/roast-cam/pkg/types"
)

// SimpleTestPrompt for testing if the model can see images
const SimpleTestPrompt = `What do you see in this image? Describe it briefly.`

// SystemInstruction is the comedian persona sent with every roast request
const SystemInstruction = `You are a sharp-witted Nigerian comedian roasting people in authentic Nigerian Pidgin English.
Your goal is to be funny, observant, and slightly savage (vawulence) but not cruel.

Rules for the Roast:
1. Language: MUST be in Nigerian Pidgin English.
2. Vibe: Use popular Nigerian slang appropriately (e.g., 'Sapa', 'Urgent 2k', 'Odogwu', 'Breakfast', 'Japa', 'Okrika', 'Bend-down-select', 'Lori iro', 'Dey play').
3. Visual Evidence: Focus strictly on the person's outfit, background, pose, or facial expression.
4. No Hate: Keep it fun. Roast the choices, not the genetics.
5. Length: SHORT AND PUNCHY. Maximum 20 words per roast. No long stories.

Styles:
1. Savage: Direct vawulence. No mercy. Emotional damage.
2. Friendly: Playful yabbing, like you are roasting your guy/paddy.
3. Compliment Sandwich: Sweet talk, then heavy roast, then sweet talk again.

Output must be valid JSON.`

// UserPrompt accompanies the photo
const UserPrompt = `Abeg, look this picture well well. Roast am for 3 styles using Nigerian Pidgin. Make e short and spicy.`

// DefaultTemperature keeps the comedy loose
const DefaultTemperature float32 = 1

// Roaster turns a photo into three roasts using any vision backend
type Roaster struct {
	client      client.VisionClient
	model       string
	temperature float32
}

// NewRoaster creates a roaster for model on client
func NewRoaster(client client.VisionClient, model string) *Roaster {
	return &Roaster{client: client, model: model, temperature: DefaultTemperature}
}

// WithTemperature returns a copy using t as the sampling temperature
func (r *Roaster) WithTemperature(t float32) *Roaster {
	cp := *r
	cp.temperature = t
	return &cp
}

// Model returns the configured model name
func (r *Roaster) Model() string {
	return r.model
}

// Request builds the inference request for an encoded image
func (r *Roaster) Request(imageB64, mimeType string) types.RoastRequest {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return types.RoastRequest{
		ImageB64:          imageB64,
		MimeType:          mimeType,
		SystemInstruction: SystemInstruction,
		Prompt:            UserPrompt,
		Temperature:       r.temperature,
	}
}

// Roast generates the three roasts for an encoded image. Every failure,
// whatever its cause, wraps types.ErrInference.
func (r *Roaster) Roast(ctx context.Context, imageB64, mimeType string) (*types.Roasts, error) {
	if r.client == nil {
		return nil, fmt.Errorf("%w: no vision client configured", types.ErrInference)
	}
	if imageB64 == "" {
		return nil, fmt.Errorf("%w: empty image", types.ErrInference)
	}

	result, err := r.client.GenerateRoasts(ctx, r.model, r.Request(imageB64, mimeType))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInference, err)
	}
	if err := validate(result); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInference, err)
	}
	return result, nil
}

// TestVision tests if the model can actually see the image with a simple prompt
func (r *Roaster) TestVision(ctx context.Context, imageB64 string) (string, error) {
	out, err := r.client.SimpleQuery(ctx, r.model, SimpleTestPrompt, imageB64)
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrInference, err)
	}
	return out, nil
}

// validate guards against backends that skip client.ParseRoasts
func validate(r *types.Roasts) error {
	if r == nil {
		return fmt.Errorf("%w: no result", client.ErrMalformedResponse)
	}
	var missing []string
	for _, s := range types.AllStyles() {
		if strings.TrimSpace(r.Text(s)) == "" {
			missing = append(missing, s.Key())
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", client.ErrMalformedResponse, strings.Join(missing, ", "))
	}
	return nil
}
