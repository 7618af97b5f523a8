// Package config loads the runtime configuration from YAML, an optional
// .env file and CALLSCOPE_ environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/vijay-svsk/call-summarizer/audio"
	"github.com/vijay-svsk/call-summarizer/extract"
	"github.com/vijay-svsk/call-summarizer/signal"
)

// EnvPrefix prefixes environment overrides: CALLSCOPE_SCORING_TEXT_WEIGHT.
const EnvPrefix = "CALLSCOPE"

type Service struct {
	URL string `mapstructure:"url" yaml:"url"`
}

type Services struct {
	ASR            Service       `mapstructure:"asr" yaml:"asr"`
	Diarization    Service       `mapstructure:"diarization" yaml:"diarization"`
	Denoise        Service       `mapstructure:"denoise" yaml:"denoise"`
	Sentiment      Service       `mapstructure:"sentiment" yaml:"sentiment"`
	AudioSentiment Service       `mapstructure:"audio_sentiment" yaml:"audio_sentiment"`
	Topics         Service       `mapstructure:"topics" yaml:"topics"`
	Noise          Service       `mapstructure:"noise" yaml:"noise"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gte=0"`
}

type Pipeline struct {
	Name    string `mapstructure:"name" yaml:"name"`
	Version string `mapstructure:"version" yaml:"version"`
	LogLvl  string `mapstructure:"log_level" yaml:"log_level"`
	// StageTimeout bounds each collaborator call.
	StageTimeout time.Duration `mapstructure:"stage_timeout" yaml:"stage_timeout" validate:"gt=0"`
	// WorkDir holds per-run temp files. Empty means the OS temp dir.
	WorkDir string `mapstructure:"work_dir" yaml:"work_dir"`
}

type Audio struct {
	SampleRate  int      `mapstructure:"sample_rate" yaml:"sample_rate" validate:"gte=0"`
	Formats     []string `mapstructure:"formats" yaml:"formats" validate:"min=1,dive,oneof=wav mp3 flac"`
	MaxUploadMB int      `mapstructure:"max_upload_mb" yaml:"max_upload_mb" validate:"gt=0"`
}

// MaxUploadBytes is the upload limit in bytes.
func (a Audio) MaxUploadBytes() int64 { return int64(a.MaxUploadMB) << 20 }

type LLM struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Provider string `mapstructure:"provider" yaml:"provider" validate:"omitempty,oneof=gemini"`
	Model    string `mapstructure:"model" yaml:"model"`
	APIKey   string `mapstructure:"api_key" yaml:"api_key"`
}

type Whisper struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	Model   string `mapstructure:"model" yaml:"model"`
}

type Scoring struct {
	signal.Weights `mapstructure:",squash" yaml:",inline"`
	Pitch          signal.PitchBand `mapstructure:"pitch" yaml:"pitch"`
}

type Extraction struct {
	extract.Markers `mapstructure:",squash" yaml:",inline"`
	Lenient         bool `mapstructure:"lenient_fallback" yaml:"lenient_fallback"`
	// Degraded keeps the record when extraction fails, falling back to an
	// extractive summary.
	Degraded bool `mapstructure:"degraded" yaml:"degraded"`
}

type Database struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path" validate:"required_if=Enabled true"`
}

type Encryption struct {
	Key                string `mapstructure:"key" yaml:"key" validate:"required_if=EncryptTranscripts true"`
	EncryptTranscripts bool   `mapstructure:"encrypt_transcripts" yaml:"encrypt_transcripts"`
}

type Paths struct {
	Outputs string `mapstructure:"outputs" yaml:"outputs"`
}

type Server struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
	Mode string `mapstructure:"mode" yaml:"mode" validate:"omitempty,oneof=debug release test"`
}

type Root struct {
	Pipeline   Pipeline   `mapstructure:"pipeline" yaml:"pipeline"`
	Audio      Audio      `mapstructure:"audio" yaml:"audio"`
	Services   Services   `mapstructure:"services" yaml:"services"`
	LLM        LLM        `mapstructure:"llm" yaml:"llm"`
	Whisper    Whisper    `mapstructure:"whisper" yaml:"whisper"`
	Scoring    Scoring    `mapstructure:"scoring" yaml:"scoring"`
	Extraction Extraction `mapstructure:"extraction" yaml:"extraction"`
	Database   Database   `mapstructure:"database" yaml:"database"`
	Encryption Encryption `mapstructure:"encryption" yaml:"encryption"`
	Paths      Paths      `mapstructure:"paths" yaml:"paths"`
	Server     Server     `mapstructure:"server" yaml:"server"`
}

// Default returns a complete configuration for local development.
func Default() *Root {
	return &Root{
		Pipeline: Pipeline{
			Name:         "call-summarizer",
			Version:      "0.1.0",
			LogLvl:       "info",
			StageTimeout: 2 * time.Minute,
		},
		Audio: Audio{
			SampleRate:  16000,
			Formats:     append([]string(nil), audio.DefaultFormats...),
			MaxUploadMB: 50,
		},
		Services: Services{Timeout: 60 * time.Second},
		LLM:      LLM{Provider: "gemini", Model: "gemini-1.5-pro"},
		Whisper:  Whisper{Model: "whisper-1"},
		Scoring: Scoring{
			Weights: signal.DefaultWeights,
			Pitch:   signal.DefaultPitchBand,
		},
		Extraction: Extraction{Markers: extract.DefaultMarkers, Degraded: true},
		Database:   Database{Enabled: true, Path: "calls.db"},
		Paths:      Paths{Outputs: "outputs"},
		Server:     Server{Addr: ":8080", Mode: "release"},
	}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// structValidator reports fields by their yaml names.
func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Validate checks the values the pipeline cannot run without.
func (c *Root) Validate() error {
	if err := structValidator().Struct(c); err != nil {
		var fields validator.ValidationErrors
		if !errors.As(err, &fields) {
			return err
		}
		msgs := make([]string, 0, len(fields))
		for _, fe := range fields {
			ns := fe.Namespace()
			if i := strings.IndexByte(ns, '.'); i >= 0 {
				ns = ns[i+1:]
			}
			rule := fe.Tag()
			if fe.Param() != "" {
				rule += "=" + fe.Param()
			}
			msgs = append(msgs, ns+" fails "+rule)
		}
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}
	if err := c.Scoring.Weights.Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	if c.Scoring.Pitch.SpanHz <= 0 {
		return fmt.Errorf("scoring: pitch span_hz must be positive")
	}
	if c.Extraction.Structured == "" {
		return fmt.Errorf("extraction: structured marker is empty")
	}
	return nil
}

// Redacted returns a copy with secrets masked, for display.
func (c *Root) Redacted() *Root {
	cp := *c
	cp.Audio.Formats = append([]string(nil), c.Audio.Formats...)
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "****"
	}
	cp.LLM.APIKey = mask(cp.LLM.APIKey)
	cp.Whisper.APIKey = mask(cp.Whisper.APIKey)
	cp.Encryption.Key = mask(cp.Encryption.Key)
	return &cp
}

// Options controls where Load looks.
type Options struct {
	// ConfigFile overrides the search path.
	ConfigFile string
	// EnvFile is loaded before environment overrides are read; ".env" is
	// tried when empty.
	EnvFile string
}

// candidates mirrors the lookup order: config/<env>/config.yaml selected by
// CONFIG_ENV, then config/config.yaml, then ./config.yaml.
func candidates() []string {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return []string{
		filepath.Join("config", env, "config.yaml"),
		filepath.Join("config", "config.yaml"),
		"config.yaml",
	}
}

// Load layers defaults, the config file, the .env file and the environment.
// A missing config file is not an error; an unreadable one is.
func Load(opts Options) (*Root, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	} else if opts.EnvFile != "" {
		return nil, fmt.Errorf("env file %s: %w", opts.EnvFile, err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	base, err := yaml.Marshal(Default())
	if err != nil {
		return nil, err
	}
	if err := v.ReadConfig(bytes.NewReader(base)); err != nil {
		return nil, fmt.Errorf("default config: %w", err)
	}

	file := opts.ConfigFile
	if file == "" {
		for _, p := range candidates() {
			if _, err := os.Stat(p); err == nil {
				file = p
				break
			}
		}
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Root
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
