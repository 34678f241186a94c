package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/roast-cam/pkg/client"
	"github.com/menta2k/roast-cam/pkg/types"
)

var _ client.VisionClient = (*Client)(nil)

type chatBody struct {
	Model    string          `json:"model"`
	Stream   *bool           `json:"stream"`
	Format   json.RawMessage `json:"format"`
	Options  map[string]any  `json:"options"`
	Messages []struct {
		Role    string   `json:"role"`
		Content string   `json:"content"`
		Images  []string `json:"images"`
	} `json:"messages"`
}

func newServer(t *testing.T, content string, status int, seen *chatBody) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":"model not found"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":   "llava",
			"message": map[string]string{"role": "assistant", "content": content},
			"done":    true,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func roastRequest() types.RoastRequest {
	return types.RoastRequest{
		ImageB64:          base64.StdEncoding.EncodeToString([]byte("jpeg")),
		MimeType:          "image/jpeg",
		SystemInstruction: "persona",
		Prompt:            "roast am",
		Temperature:       1,
	}
}

func TestGenerateRoasts(t *testing.T) {
	var seen chatBody
	srv := newServer(t, `{"savage":"s","friendly":"f","compliment":"c"}`, http.StatusOK, &seen)

	c, err := NewClient(srv.URL + "/api/chat")
	require.NoError(t, err)

	r, err := c.GenerateRoasts(context.Background(), "llava", roastRequest())
	require.NoError(t, err)
	assert.Equal(t, "s", r.Savage)
	assert.Equal(t, "c", r.Compliment)

	assert.Equal(t, "llava", seen.Model)
	require.NotNil(t, seen.Stream)
	assert.False(t, *seen.Stream)
	assert.Contains(t, string(seen.Format), `"required"`)
	assert.EqualValues(t, 1, seen.Options["temperature"])
	require.Len(t, seen.Messages, 2)
	assert.Equal(t, "system", seen.Messages[0].Role)
	assert.Equal(t, "persona", seen.Messages[0].Content)
	assert.Equal(t, "user", seen.Messages[1].Role)
	require.Len(t, seen.Messages[1].Images, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("jpeg")), seen.Messages[1].Images[0])
}

func TestGenerateRoasts_BadOutput(t *testing.T) {
	srv := newServer(t, `I no fit see anything`, http.StatusOK, nil)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.GenerateRoasts(context.Background(), "llava", roastRequest())
	assert.ErrorIs(t, err, client.ErrMalformedResponse)
}

func TestGenerateRoasts_ServerError(t *testing.T) {
	srv := newServer(t, "", http.StatusNotFound, nil)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.GenerateRoasts(context.Background(), "missing", roastRequest())
	assert.Error(t, err)
}

func TestSimpleQuery(t *testing.T) {
	var seen chatBody
	srv := newServer(t, "a man in agbada", http.StatusOK, &seen)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	out, err := c.SimpleQuery(context.Background(), "llava", "describe", base64.StdEncoding.EncodeToString([]byte("x")))
	require.NoError(t, err)
	assert.Equal(t, "a man in agbada", out)
	assert.Empty(t, seen.Format)
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient("localhost")
	assert.Error(t, err)

	c, err := NewClient("")
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestModelOptions(t *testing.T) {
	opts := modelOptions("openbmb/minicpm-v4.5", 0.5)
	assert.Equal(t, float32(0.5), opts["temperature"])
	assert.Equal(t, 4096, opts["num_ctx"])

	opts = modelOptions("gemma3", 1)
	assert.NotContains(t, opts, "num_ctx")
}
