package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/menta2k/smart-cropper/internal/config"
	"github.com/menta2k/smart-cropper/pkg/client"
	"github.com/menta2k/smart-cropper/pkg/detection"
	"github.com/menta2k/smart-cropper/pkg/face"
	"github.com/menta2k/smart-cropper/pkg/llamacpp"
	"github.com/menta2k/smart-cropper/pkg/ollama"
)

// Server defaults used when no URL is configured
const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultLlamaCppURL = "http://localhost:8080"
)

// buildDetector creates the detection backend named in cfg. The returned
// remote is nil for the local backend.
func buildDetector(cfg *config.Config, logger *zap.Logger) (detection.Detector, *detection.Remote, error) {
	var (
		vc  client.VisionClient
		err error
	)

	switch cfg.Detector.Backend {
	case config.BackendLocal:
		engineCfg, err := cfg.EngineConfig()
		if err != nil {
			return nil, nil, err
		}
		engine := detection.NewEngine(engineCfg,
			detection.WithLogger(logger),
			detection.WithFaceDetector(face.NewCascadeDetector(cfg.Detector.Face)),
		)
		return engine, nil, nil

	case config.BackendOllama:
		url := cfg.Detector.URL
		if url == "" {
			url = defaultOllamaURL
		}
		if vc, err = ollama.NewClient(url); err != nil {
			return nil, nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}

	case config.BackendLlamaCpp:
		url := cfg.Detector.URL
		if url == "" {
			url = defaultLlamaCppURL
		}
		if vc, err = llamacpp.NewClient(url); err != nil {
			return nil, nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}

	default:
		return nil, nil, fmt.Errorf("unknown backend: %s (use %s, %s or %s)",
			cfg.Detector.Backend, config.BackendLocal, config.BackendOllama, config.BackendLlamaCpp)
	}

	remote := detection.NewRemote(vc, cfg.RemoteConfig(), detection.WithLogger(logger))
	return remote, remote, nil
}
