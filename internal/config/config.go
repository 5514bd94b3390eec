package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/menta2k/smart-cropper/internal/logging"
	"github.com/menta2k/smart-cropper/pkg/detection"
	"github.com/menta2k/smart-cropper/pkg/face"
	"github.com/menta2k/smart-cropper/pkg/vision"
)

// Backends understood by DetectorConfig.Backend
const (
	BackendLocal    = "local"
	BackendOllama   = "ollama"
	BackendLlamaCpp = "llamacpp"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "SMARTCROP_"

// Config holds the application configuration
type Config struct {
	Detector DetectorConfig `json:"detector" yaml:"detector"`
	Pipeline PipelineConfig `json:"pipeline" yaml:"pipeline"`
	Log      logging.Config `json:"log" yaml:"log"`
}

// DetectorConfig selects and tunes the detection backend
type DetectorConfig struct {
	Backend           string       `json:"backend" yaml:"backend"`
	URL               string       `json:"url" yaml:"url"`
	Model             string       `json:"model" yaml:"model"`
	AnalysisMaxSide   int          `json:"analysis_max_side" yaml:"analysis_max_side"`
	BackgroundMaxSide int          `json:"background_max_side" yaml:"background_max_side"`
	SendQuality       int          `json:"send_quality" yaml:"send_quality"`
	AspectRatios      []string     `json:"aspect_ratios" yaml:"aspect_ratios"`
	Vision            VisionConfig `json:"vision" yaml:"vision"`
	Face              face.Config  `json:"face" yaml:"face"`
}

// VisionConfig holds configuration for subject detection
type VisionConfig struct {
	EdgeThreshold   float64 `json:"edge_threshold" yaml:"edge_threshold"`
	ContrastWeight  float64 `json:"contrast_weight" yaml:"contrast_weight"`
	ColorWeight     float64 `json:"color_weight" yaml:"color_weight"`
	MinSubjectRatio float64 `json:"min_subject_ratio" yaml:"min_subject_ratio"`
	NMSThreshold    float64 `json:"nms_threshold" yaml:"nms_threshold"`
	MaxRegions      int     `json:"max_regions" yaml:"max_regions"`
}

// PipelineConfig holds configuration for writing crops
type PipelineConfig struct {
	OutputDir   string `json:"output_dir" yaml:"output_dir"`
	Concurrency int    `json:"concurrency" yaml:"concurrency"`
}

// Default returns a configuration with default values
func Default() *Config {
	v := vision.DefaultConfig()
	return &Config{
		Detector: DetectorConfig{
			Backend:           BackendLocal,
			Model:             detection.DefaultRemoteConfig().Model,
			AnalysisMaxSide:   1024,
			BackgroundMaxSide: 512,
			SendQuality:       85,
			AspectRatios:      []string{vision.Square.Name},
			Vision: VisionConfig{
				EdgeThreshold:   v.EdgeThreshold,
				ContrastWeight:  v.ContrastWeight,
				ColorWeight:     v.ColorWeight,
				MinSubjectRatio: v.MinSubjectRatio,
				NMSThreshold:    v.NMSThreshold,
				MaxRegions:      v.MaxRegions,
			},
			Face: face.DefaultConfig(),
		},
		Pipeline: PipelineConfig{
			OutputDir: os.TempDir(),
		},
		Log: logging.DefaultConfig(),
	}
}

// LoadFromFile loads configuration from a JSON or YAML file. Values missing
// from the file keep their defaults.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if isYAML(filename) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Load reads filename (defaults when empty), applies the environment and an
// optional dotenv file, then validates the result
func Load(filename, envFile string) (*Config, error) {
	config := Default()
	if filename != "" {
		var err error
		if config, err = LoadFromFile(filename); err != nil {
			return nil, err
		}
	}

	if err := config.ApplyEnv(envFile); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides fields from SMARTCROP_* variables. Variables set in the
// process environment win over those read from envFile; a missing envFile is
// ignored.
func (c *Config) ApplyEnv(envFile string) error {
	fileVals := map[string]string{}
	if envFile != "" {
		vals, err := godotenv.Read(envFile)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to read env file: %w", err)
		}
		if vals != nil {
			fileVals = vals
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok && v != "" {
			return v, true
		}
		v, ok := fileVals[EnvPrefix+key]
		return v, ok && v != ""
	}

	setString := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = n
		return nil
	}

	setString("BACKEND", &c.Detector.Backend)
	setString("URL", &c.Detector.URL)
	setString("MODEL", &c.Detector.Model)
	setString("FACE_CASCADE", &c.Detector.Face.CascadePath)
	setString("OUTPUT_DIR", &c.Pipeline.OutputDir)
	setString("LOG_LEVEL", &c.Log.Level)
	setString("LOG_FORMAT", &c.Log.Format)
	if v, ok := lookup("ASPECT_RATIOS"); ok {
		c.Detector.AspectRatios = strings.Split(v, ",")
	}

	if err := setInt("CONCURRENCY", &c.Pipeline.Concurrency); err != nil {
		return err
	}
	return setInt("ANALYSIS_MAX_SIDE", &c.Detector.AnalysisMaxSide)
}

// SaveToFile saves configuration as JSON, or YAML for .yaml/.yml names
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	var err error
	if isYAML(filename) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Detector.Backend {
	case BackendLocal, BackendOllama, BackendLlamaCpp:
	default:
		return fmt.Errorf("detector.backend must be one of %s, %s, %s", BackendLocal, BackendOllama, BackendLlamaCpp)
	}

	if c.Detector.Backend != BackendLocal && c.Detector.Model == "" {
		return fmt.Errorf("detector.model is required for the %s backend", c.Detector.Backend)
	}

	if c.Detector.AnalysisMaxSide < 64 {
		return fmt.Errorf("detector.analysis_max_side must be at least 64")
	}

	if c.Detector.BackgroundMaxSide < 0 {
		return fmt.Errorf("detector.background_max_side cannot be negative")
	}

	if c.Detector.SendQuality < 1 || c.Detector.SendQuality > 100 {
		return fmt.Errorf("detector.send_quality must be between 1 and 100")
	}

	if _, err := c.AspectRatios(); err != nil {
		return err
	}

	if c.Detector.Vision.EdgeThreshold < 0 || c.Detector.Vision.EdgeThreshold > 1 {
		return fmt.Errorf("detector.vision.edge_threshold must be between 0 and 1")
	}

	if c.Detector.Vision.MinSubjectRatio < 0 || c.Detector.Vision.MinSubjectRatio > 1 {
		return fmt.Errorf("detector.vision.min_subject_ratio must be between 0 and 1")
	}

	if c.Detector.Vision.NMSThreshold < 0 || c.Detector.Vision.NMSThreshold > 1 {
		return fmt.Errorf("detector.vision.nms_threshold must be between 0 and 1")
	}

	if c.Pipeline.Concurrency < 0 {
		return fmt.Errorf("pipeline.concurrency cannot be negative")
	}

	if c.Log.Format != "" && c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be console or json")
	}

	return nil
}

// AspectRatios resolves the configured ratio names
func (c *Config) AspectRatios() ([]vision.AspectRatio, error) {
	if len(c.Detector.AspectRatios) == 0 {
		return nil, fmt.Errorf("detector.aspect_ratios cannot be empty")
	}

	known := map[string]vision.AspectRatio{}
	for _, r := range vision.CommonAspectRatios() {
		known[r.Name] = r
	}

	ratios := make([]vision.AspectRatio, 0, len(c.Detector.AspectRatios))
	for _, name := range c.Detector.AspectRatios {
		r, ok := known[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("detector.aspect_ratios: unknown ratio %q", name)
		}
		ratios = append(ratios, r)
	}
	return ratios, nil
}

// EngineConfig returns the local engine settings
func (c *Config) EngineConfig() (detection.EngineConfig, error) {
	ratios, err := c.AspectRatios()
	if err != nil {
		return detection.EngineConfig{}, err
	}

	v := c.Detector.Vision
	return detection.EngineConfig{
		AnalysisMaxSide:   c.Detector.AnalysisMaxSide,
		BackgroundMaxSide: c.Detector.BackgroundMaxSide,
		AspectRatios:      ratios,
		Subjects: vision.DetectionConfig{
			EdgeThreshold:   v.EdgeThreshold,
			ContrastWeight:  v.ContrastWeight,
			ColorWeight:     v.ColorWeight,
			MinSubjectRatio: v.MinSubjectRatio,
			NMSThreshold:    v.NMSThreshold,
			MaxRegions:      v.MaxRegions,
		},
	}, nil
}

// RemoteConfig returns the model backed detector settings
func (c *Config) RemoteConfig() detection.RemoteConfig {
	return detection.RemoteConfig{
		Model:       c.Detector.Model,
		MaxSide:     c.Detector.AnalysisMaxSide,
		JPEGQuality: c.Detector.SendQuality,
	}
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "smart-cropper", "config.json")
}

func isYAML(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".yaml" || ext == ".yml"
}
