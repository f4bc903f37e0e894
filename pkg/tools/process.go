package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/stanza/pkg/registry"
	"github.com/aretw0/stanza/pkg/schema"
)

// ProcessConfig describes one allow-listed external command.
type ProcessConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
}

// ConfigFile represents the structure of tools.yaml.
type ConfigFile struct {
	Tools []ProcessConfig `yaml:"tools" json:"tools"`
}

// LoadProcessConfigs reads a configuration file (YAML or JSON) and
// returns the declared tools. A missing file means no tools configured.
func LoadProcessConfigs(path string) ([]ProcessConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read tools config: %w", err)
	}

	var cfg ConfigFile
	ext := strings.ToLower(filepath.Ext(path))

	if ext == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse tools.json: %w", err)
		}
	} else {
		// Default to YAML
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse tools.yaml: %w", err)
		}
	}

	var tools []ProcessConfig
	for _, tool := range cfg.Tools {
		if tool.Name == "" || tool.Command == "" {
			continue
		}
		tools = append(tools, tool)
	}
	return tools, nil
}

// ProcessRunner turns configured commands into capabilities. Strict
// allow-list: only declared commands run, with their declared base
// arguments first.
type ProcessRunner struct {
	baseDir string
}

// RunnerOption configures the runner.
type RunnerOption func(*ProcessRunner)

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *ProcessRunner) {
		r.baseDir = dir
	}
}

// NewProcessRunner creates a process runner.
func NewProcessRunner(opts ...RunnerOption) *ProcessRunner {
	r := &ProcessRunner{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds one capability per configured tool.
func (r *ProcessRunner) Register(reg *registry.Registry, configs []ProcessConfig) error {
	for _, cfg := range configs {
		desc := cfg.Description
		if desc == "" {
			desc = fmt.Sprintf("Runs the %q command.", cfg.Command)
		}
		capability := registry.Capability{
			Name:        cfg.Name,
			Description: desc,
			Params: []registry.Param{
				{Name: "args", Description: "Extra command-line arguments (list of strings)"},
				{Name: "stdin", Description: "Text piped to the process on stdin"},
			},
			Schema: schema.Schema{
				"args":  schema.Slice(schema.String()),
				"stdin": schema.String(),
			},
			Handler: r.handler(cfg),
		}
		if err := reg.Register(capability); err != nil {
			return err
		}
	}
	return nil
}

type processArgs struct {
	Args  []string `mapstructure:"args"`
	Stdin string   `mapstructure:"stdin"`
}

// ProcessResult is the state entry payload of a process capability.
type ProcessResult struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

func (r *ProcessRunner) handler(cfg ProcessConfig) registry.HandlerFunc {
	return func(ctx context.Context, args map[string]any) (any, error) {
		var in processArgs
		if err := mapstructure.Decode(args, &in); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}

		cmdArgs := append(append([]string{}, cfg.Args...), in.Args...)
		cmd := exec.CommandContext(ctx, cfg.Command, cmdArgs...)
		cmd.Dir = r.baseDir
		if in.Stdin != "" {
			cmd.Stdin = strings.NewReader(in.Stdin)
		}
		if len(cfg.Environment) > 0 {
			cmd.Env = os.Environ()
			for k, v := range cfg.Environment {
				cmd.Env = append(cmd.Env, k+"="+v)
			}
		}

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			// Non-zero exit is a result, not a capability failure: the
			// agent can read the code and react.
			if _, isExit := err.(*exec.ExitError); !isExit {
				return nil, fmt.Errorf("failed to run %q: %w", cfg.Command, err)
			}
		}
		return ProcessResult{
			ExitCode: cmd.ProcessState.ExitCode(),
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
		}, nil
	}
}
