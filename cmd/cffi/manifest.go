package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

const manifestName = "cffi.toml"

type projectManifest struct {
	Path   string
	Root   string
	Config projectConfig
}

type projectConfig struct {
	Env   envConfig   `toml:"env"`
	Trace traceConfig `toml:"trace"`
}

type envConfig struct {
	Headers   []string `toml:"headers"`
	Libraries []string `toml:"libraries"`
}

type traceConfig struct {
	Level string `toml:"level"`
}

// activeConfig is set by loadConfig before any subcommand runs; nil when
// no manifest applies.
var activeConfig *projectManifest

func findManifest(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, manifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

func loadProjectManifest(startDir string) (*projectManifest, bool, error) {
	manifestPath, ok, err := findManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	m, err := readManifest(manifestPath)
	return m, true, err
}

func readManifest(path string) (*projectManifest, error) {
	cfg, err := loadProjectConfig(path)
	if err != nil {
		return nil, err
	}
	return &projectManifest{
		Path:   path,
		Root:   filepath.Dir(path),
		Config: cfg,
	}, nil
}

func loadProjectConfig(path string) (projectConfig, error) {
	var cfg projectConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return projectConfig{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("env") {
		return projectConfig{}, fmt.Errorf("%s: missing [env]", path)
	}
	if !meta.IsDefined("env", "headers") {
		return projectConfig{}, fmt.Errorf("%s: missing [env].headers", path)
	}
	for i, h := range cfg.Env.Headers {
		if strings.TrimSpace(h) == "" {
			return projectConfig{}, fmt.Errorf("%s: [env].headers[%d] is empty", path, i)
		}
	}
	for i, l := range cfg.Env.Libraries {
		if strings.TrimSpace(l) == "" {
			return projectConfig{}, fmt.Errorf("%s: [env].libraries[%d] is empty", path, i)
		}
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return projectConfig{}, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	return cfg, nil
}

// HeaderPaths resolves [env].headers against the manifest directory.
func (m *projectManifest) HeaderPaths() []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.Config.Env.Headers))
	for _, h := range m.Config.Env.Headers {
		p := filepath.FromSlash(h)
		if !filepath.IsAbs(p) {
			p = filepath.Join(m.Root, p)
		}
		out = append(out, p)
	}
	return out
}

// loadConfig applies --config / --no-config and falls back to discovery.
func loadConfig(cmd *cobra.Command) error {
	activeConfig = nil
	flags := cmd.Root().PersistentFlags()
	if off, _ := flags.GetBool("no-config"); off {
		return nil
	}
	if path, _ := flags.GetString("config"); path != "" {
		m, err := readManifest(path)
		if err != nil {
			return err
		}
		activeConfig = m
		return nil
	}
	m, _, err := loadProjectManifest(".")
	if err != nil {
		return err
	}
	activeConfig = m
	return nil
}
