package tools

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/stanza/pkg/registry"
	"github.com/aretw0/stanza/pkg/schema"
)

// FileTools exposes a directory subtree as read/write capabilities.
// Paths are resolved relative to the root and may not escape it.
type FileTools struct {
	root string
}

// NewFileTools creates file capabilities rooted at dir.
func NewFileTools(dir string) (*FileTools, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	return &FileTools{root: abs}, nil
}

// Register adds read_files, write_file and list_files to the registry.
func (f *FileTools) Register(reg *registry.Registry) error {
	caps := []registry.Capability{
		{
			Name:        "read_files",
			Description: "Reads one or more files from the workspace and returns their contents keyed by path.",
			Params: []registry.Param{
				{Name: "paths", Description: "List of workspace-relative file paths", Required: true},
			},
			Schema:  schema.Schema{"paths": schema.Slice(schema.String())},
			Handler: f.readFiles,
		},
		{
			Name:        "write_file",
			Description: "Writes content to a workspace file, creating parent directories as needed.",
			Params: []registry.Param{
				{Name: "path", Description: "Workspace-relative file path", Required: true},
				{Name: "content", Description: "Full file content to write", Required: true},
			},
			Schema:  schema.Schema{"path": nonEmptyPath(), "content": schema.String()},
			Handler: f.writeFile,
		},
		{
			Name:        "list_files",
			Description: "Lists workspace files, optionally under a subdirectory.",
			Params: []registry.Param{
				{Name: "dir", Description: "Workspace-relative directory (default: root)"},
			},
			Schema:  schema.Schema{"dir": schema.String()},
			Handler: f.listFiles,
		},
	}
	for _, c := range caps {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// nonEmptyPath rejects empty paths up front, before the handler decodes
// its arguments.
func nonEmptyPath() schema.Type {
	return schema.Custom("non-empty string", func(v any) error {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
		if s == "" {
			return fmt.Errorf("must not be empty")
		}
		return nil
	})
}

// resolve maps a workspace-relative path onto the root, rejecting
// absolute paths and traversal outside the root.
func (f *FileTools) resolve(rel string) (string, error) {
	clean := filepath.Clean(rel)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the workspace", rel)
	}
	return filepath.Join(f.root, clean), nil
}

type readFilesArgs struct {
	Paths []string `mapstructure:"paths"`
}

func (f *FileTools) readFiles(ctx context.Context, args map[string]any) (any, error) {
	var in readFilesArgs
	if err := mapstructure.Decode(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if len(in.Paths) == 0 {
		return nil, fmt.Errorf("argument \"paths\" must name at least one file")
	}

	contents := make(map[string]string, len(in.Paths))
	for _, rel := range in.Paths {
		path, err := f.resolve(rel)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %q: %w", rel, err)
		}
		contents[rel] = string(data)
	}
	return contents, nil
}

type writeFileArgs struct {
	Path    string `mapstructure:"path"`
	Content string `mapstructure:"content"`
}

func (f *FileTools) writeFile(ctx context.Context, args map[string]any) (any, error) {
	var in writeFileArgs
	if err := mapstructure.Decode(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if in.Path == "" {
		return nil, fmt.Errorf("argument \"path\" is required")
	}

	path, err := f.resolve(in.Path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directories for %q: %w", in.Path, err)
	}
	if err := os.WriteFile(path, []byte(in.Content), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %q: %w", in.Path, err)
	}
	return map[string]any{"path": in.Path, "bytes": len(in.Content)}, nil
}

type listFilesArgs struct {
	Dir string `mapstructure:"dir"`
}

func (f *FileTools) listFiles(ctx context.Context, args map[string]any) (any, error) {
	var in listFilesArgs
	if err := mapstructure.Decode(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	base, err := f.resolve(in.Dir)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Hidden directories stay out of listings.
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, rerr := filepath.Rel(f.root, path)
		if rerr != nil {
			return rerr
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// ProjectFileList walks dir and returns its relative file paths. Useful
// as seed state for a fresh session.
func ProjectFileList(dir string) ([]string, error) {
	ft, err := NewFileTools(dir)
	if err != nil {
		return nil, err
	}
	result, err := ft.listFiles(context.Background(), map[string]any{})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}
