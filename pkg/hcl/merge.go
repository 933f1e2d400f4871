package hcl

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/leowmjw/go-walk-sync/pkg/config"
)

// MergeHCLFiles combines several HCL files into one body, the way Terraform
// loads the .tf files of a directory. Attributes may be set in one file only.
func MergeHCLFiles(filePaths []string) (*hcl.File, error) {
	parser := hclparse.NewParser()
	var merged bytes.Buffer

	for _, path := range filePaths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", path, err)
		}
		merged.Write(content)
		merged.WriteString("\n")
	}

	file, diags := parser.ParseHCL(merged.Bytes(), "merged.hcl")
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse merged HCL content: %s", diags.Error())
	}
	return file, nil
}

// ParseConfigFile parses one .hcl file, or every .hcl file of a directory.
func ParseConfigFile(path string) (*config.Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if info.IsDir() {
		return ParseConfigDirectory(path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return ParseConfig(string(content), filepath.Base(path))
}

// ParseConfigDirectory merges the .hcl files directly inside dirPath, in
// name order, into one configuration.
func ParseConfigDirectory(dirPath string) (*config.Config, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dirPath, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && IsHCLBasedOnExtension(e.Name()) {
			files = append(files, filepath.Join(dirPath, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no HCL files found in directory %s", dirPath)
	}
	sort.Strings(files)

	merged, err := MergeHCLFiles(files)
	if err != nil {
		return nil, err
	}
	return parseConfigFile(merged)
}

// LoadConfig loads run configuration from path. .hcl files and directories
// are parsed as HCL, anything else as YAML on top of the defaults. An empty
// path yields the validated defaults.
func LoadConfig(path string) (*config.Config, error) {
	if path != "" && IsHCLBasedOnExtension(path) {
		return ParseConfigFile(path)
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return ParseConfigDirectory(path)
	}
	cfg := config.NewDefaultConfig()
	if err := config.LoadOptional(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
