package config

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/studentcode/sandbox/test"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	work := t.TempDir()
	t.Setenv("HOME", home)
	test.Chdir(t, work)

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Scenario != defaultScenario {
		t.Fatalf("scenario = %q, want %q", cfg.Scenario, defaultScenario)
	}
	if cfg.MaxLines != defaultMaxLines {
		t.Fatalf("max_lines = %d, want %d", cfg.MaxLines, defaultMaxLines)
	}
	if cfg.TickInterval != defaultTickInterval {
		t.Fatalf("tick_interval = %s, want %s", cfg.TickInterval, defaultTickInterval)
	}
	if cfg.FrameRate != defaultFrameRate {
		t.Fatalf("frame_rate = %d, want %d", cfg.FrameRate, defaultFrameRate)
	}
	if cfg.MovementSpeed != defaultMovementSpeed || cfg.RotationSpeed != defaultRotationSpeed {
		t.Fatalf("speeds = %v/%v, want %v/%v", cfg.MovementSpeed, cfg.RotationSpeed, defaultMovementSpeed, defaultRotationSpeed)
	}
	if cfg.SceneWidth != defaultSceneWidth || cfg.SceneHeight != defaultSceneHeight {
		t.Fatalf("scene = %vx%v, want %vx%v", cfg.SceneWidth, cfg.SceneHeight, defaultSceneWidth, defaultSceneHeight)
	}
	if cfg.LogLevel != defaultLogLevel {
		t.Fatalf("log_level = %q, want %q", cfg.LogLevel, defaultLogLevel)
	}
	if cfg.LogMaxFiles != defaultLogMaxFiles {
		t.Fatalf("log_max_files = %d, want %d", cfg.LogMaxFiles, defaultLogMaxFiles)
	}
	if cfg.OTELEndpoint != "" {
		t.Fatalf("otel endpoint = %q, want empty", cfg.OTELEndpoint)
	}
	if len(cfg.Sources) != 0 {
		t.Fatalf("sources = %v, want none", cfg.Sources)
	}
	if cfg.FrameInterval() != time.Second/60 {
		t.Fatalf("frame interval = %s", cfg.FrameInterval())
	}
}

func TestLoadOverlayProjectOverHome(t *testing.T) {
	home := t.TempDir()
	work := t.TempDir()
	t.Setenv("HOME", home)

	test.WriteFile(t, home, filepath.Join(DirName, "config.toml"), `
scenario = "turtle"
max_lines = 40
tick_interval = "20ms"
movement_speed = 400.0
log_level = "debug"

[otel]
endpoint = "http://home-collector:4318"
	`)

	test.WriteFile(t, work, filepath.Join(DirName, "config.toml"), `
max_lines = 25
frame_rate = 30
rotation_speed = 180.0
scene_width = 500.0
log_max_files = 3

[otel]
endpoint = "http://project-collector:4318"
	`)
	test.Chdir(t, work)

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Scenario != "turtle" {
		t.Fatalf("scenario = %q, want turtle", cfg.Scenario)
	}
	if cfg.MaxLines != 25 {
		t.Fatalf("max_lines = %d, want 25", cfg.MaxLines)
	}
	if cfg.TickInterval != 20*time.Millisecond {
		t.Fatalf("tick_interval = %s, want 20ms", cfg.TickInterval)
	}
	if cfg.FrameRate != 30 {
		t.Fatalf("frame_rate = %d, want 30", cfg.FrameRate)
	}
	if cfg.MovementSpeed != 400 {
		t.Fatalf("movement_speed = %v, want 400", cfg.MovementSpeed)
	}
	if cfg.RotationSpeed != 180 {
		t.Fatalf("rotation_speed = %v, want 180", cfg.RotationSpeed)
	}
	if cfg.SceneWidth != 500 || cfg.SceneHeight != defaultSceneHeight {
		t.Fatalf("scene = %vx%v, want 500x%v", cfg.SceneWidth, cfg.SceneHeight, defaultSceneHeight)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log_level = %q, want debug", cfg.LogLevel)
	}
	if cfg.LogMaxFiles != 3 {
		t.Fatalf("log_max_files = %d, want 3", cfg.LogMaxFiles)
	}
	if cfg.OTELEndpoint != "http://project-collector:4318" {
		t.Fatalf("otel endpoint = %q, want project collector", cfg.OTELEndpoint)
	}
	if len(cfg.Sources) != 2 {
		t.Fatalf("sources = %v, want 2", cfg.Sources)
	}
}

func TestLoadFilesRejectsInvalidValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantKey string
	}{
		{name: "scenario", content: `scenario = "3d"`, wantKey: "scenario"},
		{name: "max lines", content: `max_lines = 0`, wantKey: "max_lines"},
		{name: "tick interval format", content: `tick_interval = "soon"`, wantKey: "tick_interval"},
		{name: "tick interval sign", content: `tick_interval = "-5ms"`, wantKey: "tick_interval"},
		{name: "frame rate", content: `frame_rate = 1000`, wantKey: "frame_rate"},
		{name: "movement speed", content: `movement_speed = -1.0`, wantKey: "movement_speed"},
		{name: "rotation speed", content: `rotation_speed = 0.0`, wantKey: "rotation_speed"},
		{name: "scene height", content: `scene_height = 0.0`, wantKey: "scene_height"},
		{name: "log level", content: `log_level = "trace"`, wantKey: "log_level"},
		{name: "log max files", content: `log_max_files = 0`, wantKey: "log_max_files"},
		{name: "unknown key", content: `wip_limit = 3`, wantKey: "wip_limit"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := test.WriteFile(t, test.TempDir(t), "config.toml", tt.content)

			_, err := LoadFiles(context.Background(), path)
			if err == nil {
				t.Fatalf("expected error for %s", tt.content)
			}
			if !strings.Contains(err.Error(), tt.wantKey) || !strings.Contains(err.Error(), path) {
				t.Fatalf("error %q should name key %q and file %q", err, tt.wantKey, path)
			}
		})
	}
}

func TestLoadFilesSkipsMissingAndHonorsContext(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFiles(context.Background(), filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("load missing: %v", err)
	}
	if cfg.Scenario != defaultScenario {
		t.Fatalf("scenario = %q, want default", cfg.Scenario)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := LoadFiles(ctx, "ignored.toml"); err == nil {
		t.Fatal("expected context error")
	}
}
