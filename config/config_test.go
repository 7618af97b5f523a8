package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())
	c, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Scoring.Text != 0.6 || c.Scoring.Audio != 0.4 {
		t.Errorf("unexpected weights %+v", c.Scoring.Weights)
	}
	if c.Pipeline.StageTimeout != 2*time.Minute {
		t.Errorf("unexpected stage timeout %v", c.Pipeline.StageTimeout)
	}
	if c.Extraction.Structured != "[JSON]" || !c.Extraction.Degraded {
		t.Errorf("unexpected extraction %+v", c.Extraction)
	}
}

func TestLoad_FileEnvAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "config.yaml", `
pipeline:
  stage_timeout: 30s
services:
  asr:
    url: http://asr:9000
scoring:
  text_weight: 0.5
  audio_weight: 0.5
audio:
  formats: [wav]
`)
	envFile := writeFile(t, dir, ".env", "CALLSCOPE_LLM_API_KEY=from-dotenv\n")
	t.Setenv("CALLSCOPE_SERVICES_ASR_URL", "http://override:9000")
	t.Cleanup(func() { os.Unsetenv("CALLSCOPE_LLM_API_KEY") })

	c, err := Load(Options{ConfigFile: file, EnvFile: envFile})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Pipeline.StageTimeout != 30*time.Second {
		t.Errorf("expected 30s, got %v", c.Pipeline.StageTimeout)
	}
	if c.Services.ASR.URL != "http://override:9000" {
		t.Errorf("env override not applied: %q", c.Services.ASR.URL)
	}
	if c.LLM.APIKey != "from-dotenv" {
		t.Errorf(".env not applied: %q", c.LLM.APIKey)
	}
	if c.Scoring.Text != 0.5 || len(c.Audio.Formats) != 1 {
		t.Errorf("file values not applied: %+v %v", c.Scoring.Weights, c.Audio.Formats)
	}
	// Untouched sections keep their defaults.
	if c.Server.Addr != ":8080" {
		t.Errorf("expected default addr, got %q", c.Server.Addr)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	tests := []struct {
		name string
		body string
		want string
	}{
		{"weights", "scoring:\n  text_weight: 0.9\n  audio_weight: 0.4\n", "scoring"},
		{"formats", "audio:\n  formats: []\n", "formats"},
		{"encryption", "encryption:\n  encrypt_transcripts: true\n", "encryption"},
		{"unknown format", "audio:\n  formats: [wav, ogg]\n", "audio.formats[1] fails oneof"},
		{"stage timeout", "pipeline:\n  stage_timeout: 0s\n", "pipeline.stage_timeout fails gt=0"},
		{"server mode", "server:\n  mode: loud\n", "server.mode"},
		{"database path", "database:\n  enabled: true\n  path: \"\"\n", "database.path fails required_if"},
		{"syntax", "pipeline: [unclosed\n", "read config"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			file := writeFile(t, dir, tc.name+".yaml", tc.body)
			_, err := Load(Options{ConfigFile: file})
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoad_MissingEnvFile(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := Load(Options{EnvFile: "nope.env"}); err == nil {
		t.Error("expected an explicit env file to be required")
	}
}

func TestRedacted(t *testing.T) {
	c := Default()
	c.LLM.APIKey = "secret"
	c.Encryption.Key = "k"
	out, err := yaml.Marshal(c.Redacted())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(out), "secret") {
		t.Errorf("api key leaked:\n%s", out)
	}
	if c.LLM.APIKey != "secret" {
		t.Error("Redacted modified the receiver")
	}
}
