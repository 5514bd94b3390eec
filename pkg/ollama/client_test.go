package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/menta2k/smart-cropper/pkg/types"
)

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient("not a url")
	require.Error(t, err)

	c, err := NewClient("http://localhost:11434/api/chat")
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestRequestOptions(t *testing.T) {
	opts := RequestOptions(types.RegionQuery{Model: "llava"})
	require.Empty(t, opts)

	opts = RequestOptions(types.RegionQuery{Model: "llava", UsesCPUOnly: true, PreferBackgroundProcessing: true})
	require.Equal(t, 0, opts["num_gpu"])
	require.Equal(t, 1, opts["num_thread"])

	opts = RequestOptions(types.RegionQuery{Model: "openbmb/MiniCPM-V4"})
	require.Equal(t, 4096, opts["num_ctx"])
}

func TestDetectRegions(t *testing.T) {
	var got map[string]any
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&got)

		reply := `{"regions":[{"label":"cat","confidence":0.8,"box":{"x":0.1,"y":0.1,"w":0.5,"h":0.5}}]}`
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"model":   "llava",
			"message": map[string]any{"role": "assistant", "content": reply},
			"done":    true,
		})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	result, err := c.DetectRegions(context.Background(), types.RegionQuery{
		Model:       "llava",
		Prompt:      "find things",
		ImageB64:    base64.StdEncoding.EncodeToString([]byte("img")),
		UsesCPUOnly: true,
	})
	require.NoError(t, err)
	require.Len(t, result.Regions, 1)
	require.Equal(t, "cat", result.Regions[0].Label)

	require.Equal(t, "/api/chat", path)
	require.Equal(t, "llava", got["model"])
	options, ok := got["options"].(map[string]any)
	require.True(t, ok)
	require.EqualValues(t, 0, options["num_gpu"])
}

func TestDetectRegionsBadImage(t *testing.T) {
	c, err := NewClient("http://127.0.0.1:1")
	require.NoError(t, err)

	_, err = c.DetectRegions(context.Background(), types.RegionQuery{Model: "llava", ImageB64: "%%%"})
	require.Error(t, err)
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	require.NoError(t, c.Ping(context.Background()))

	srv.Close()
	require.Error(t, c.Ping(context.Background()))
}
