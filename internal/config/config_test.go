package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/menta2k/smart-cropper/pkg/vision"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	require.Equal(t, BackendLocal, c.Detector.Backend)

	ec, err := c.EngineConfig()
	require.NoError(t, err)
	require.Equal(t, []vision.AspectRatio{vision.Square}, ec.AspectRatios)
	require.Equal(t, vision.DefaultConfig(), ec.Subjects)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"backend", func(c *Config) { c.Detector.Backend = "vision-pro" }},
		{"model", func(c *Config) { c.Detector.Backend = BackendOllama; c.Detector.Model = "" }},
		{"analysis size", func(c *Config) { c.Detector.AnalysisMaxSide = 10 }},
		{"send quality", func(c *Config) { c.Detector.SendQuality = 0 }},
		{"ratio", func(c *Config) { c.Detector.AspectRatios = []string{"cinemascope"} }},
		{"no ratios", func(c *Config) { c.Detector.AspectRatios = nil }},
		{"edge threshold", func(c *Config) { c.Detector.Vision.EdgeThreshold = 2 }},
		{"nms", func(c *Config) { c.Detector.Vision.NMSThreshold = -1 }},
		{"concurrency", func(c *Config) { c.Pipeline.Concurrency = -2 }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			require.Error(t, c.Validate())
		})
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)

			c := Default()
			c.Detector.Backend = BackendLlamaCpp
			c.Detector.URL = "http://gpu-box:8080"
			c.Detector.AspectRatios = []string{"square", "story"}
			c.Pipeline.Concurrency = 3
			require.NoError(t, c.SaveToFile(path))

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)
			require.Equal(t, c, loaded)
		})
	}
}

func TestLoadFromFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yml")
	require.NoError(t, os.WriteFile(path, []byte("detector:\n  backend: ollama\n  url: http://localhost:11434\n"), 0o644))

	c, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, BackendOllama, c.Detector.Backend)
	require.Equal(t, 1024, c.Detector.AnalysisMaxSide)
	require.Equal(t, []string{"square"}, c.Detector.AspectRatios)
}

func TestLoadFromFileErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = LoadFromFile(bad)
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SMARTCROP_MODEL=from-file\nSMARTCROP_BACKEND=ollama\nSMARTCROP_CONCURRENCY=6\n"), 0o644))

	t.Setenv("SMARTCROP_BACKEND", "llamacpp")
	t.Setenv("SMARTCROP_ASPECT_RATIOS", "square,portrait")

	c := Default()
	require.NoError(t, c.ApplyEnv(envFile))
	require.Equal(t, BackendLlamaCpp, c.Detector.Backend)
	require.Equal(t, "from-file", c.Detector.Model)
	require.Equal(t, 6, c.Pipeline.Concurrency)
	require.Equal(t, []string{"square", "portrait"}, c.Detector.AspectRatios)
}

func TestApplyEnvMissingFileAndBadInt(t *testing.T) {
	c := Default()
	require.NoError(t, c.ApplyEnv(filepath.Join(t.TempDir(), "missing.env")))

	t.Setenv("SMARTCROP_CONCURRENCY", "many")
	require.Error(t, c.ApplyEnv(""))
}

func TestLoad(t *testing.T) {
	t.Setenv("SMARTCROP_OUTPUT_DIR", "/srv/crops")

	c, err := Load("", "")
	require.NoError(t, err)
	require.Equal(t, "/srv/crops", c.Pipeline.OutputDir)

	t.Setenv("SMARTCROP_BACKEND", "carrier-pigeon")
	_, err = Load("", "")
	require.Error(t, err)
}

func TestGetConfigPath(t *testing.T) {
	require.Contains(t, GetConfigPath(), "config.json")
}
