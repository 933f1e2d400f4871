// Package hcl reads run configuration and batch requests written in HCL.
package hcl

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/leowmjw/go-walk-sync/pkg/config"
	"github.com/leowmjw/go-walk-sync/pkg/temporal"
	"github.com/leowmjw/go-walk-sync/pkg/timeline"
)

// HCLConfig is the HCL form of config.Config. Unset attributes keep their
// defaults.
type HCLConfig struct {
	LogLevel   *string       `hcl:"log_level,optional"`
	HTTPPort   *int          `hcl:"http_port,optional"`
	Paths      *HCLPaths     `hcl:"paths,block"`
	Sync       *HCLSync      `hcl:"sync,block"`
	Modalities []HCLModality `hcl:"modality,block"`
	Videos     []HCLVideo    `hcl:"video,block"`
	Ledger     *HCLLedger    `hcl:"ledger,block"`
	Temporal   *HCLTemporal  `hcl:"temporal,block"`
}

// HCLPaths holds the session path templates.
type HCLPaths struct {
	Input    *string `hcl:"input,optional"`
	Output   *string `hcl:"output,optional"`
	EventLog *string `hcl:"event_log,optional"`
}

// HCLSync holds segmentation settings.
type HCLSync struct {
	TimeWindow     *string  `hcl:"time_window,optional"`
	FrameColumn    *string  `hcl:"frame_column,optional"`
	FPS            *float64 `hcl:"fps,optional"`
	Labels         []string `hcl:"labels,optional"`
	BinarySearch   *bool    `hcl:"binary_search,optional"`
	LegacyResample *bool    `hcl:"legacy_resample,optional"`
	Aggregation    *string  `hcl:"aggregation,optional"`
	DryRun         *bool    `hcl:"dry_run,optional"`
}

// HCLModality is a labeled modality block. A label naming a built-in
// modality starts from its defaults.
type HCLModality struct {
	Name        string   `hcl:"name,label"`
	Strategy    *string  `hcl:"strategy,optional"`
	SampleRate  *float64 `hcl:"sample_rate,optional"`
	MaxGap      *string  `hcl:"max_gap,optional"`
	Primary     *bool    `hcl:"primary,optional"`
	IndexColumn *string  `hcl:"index_column,optional"`
	File        *string  `hcl:"file,optional"`
	TimeFile    *string  `hcl:"time_file,optional"`
	Format      *string  `hcl:"format,optional"`
	Resample    *bool    `hcl:"resample,optional"`
	Optional    *bool    `hcl:"optional,optional"`
}

// HCLVideo is a labeled video block.
type HCLVideo struct {
	Name  string `hcl:"name,label"`
	File  string `hcl:"file"`
	Audio *bool  `hcl:"audio,optional"`
	Gate  *bool  `hcl:"gate,optional"`
}

// HCLLedger selects ledger writers.
type HCLLedger struct {
	CSV        *bool   `hcl:"csv,optional"`
	SQLitePath *string `hcl:"sqlite_path,optional"`
}

// HCLTemporal holds the Temporal client settings.
type HCLTemporal struct {
	HostPort  *string `hcl:"host_port,optional"`
	Namespace *string `hcl:"namespace,optional"`
	TaskQueue *string `hcl:"task_queue,optional"`
}

// HCLBatchRequest is the HCL form of temporal.BatchRequest. Grid blocks
// expand to every subject and walk combination; session blocks name one
// session each.
type HCLBatchRequest struct {
	DryRun   *bool        `hcl:"dry_run,optional"`
	Grids    []HCLGrid    `hcl:"grid,block"`
	Sessions []HCLSession `hcl:"session,block"`
}

// HCLGrid is a subjects by walks block.
type HCLGrid struct {
	Subjects []string `hcl:"subjects"`
	Walks    []string `hcl:"walks"`
}

// HCLSession names one session.
type HCLSession struct {
	Subject string `hcl:"subject"`
	Walk    string `hcl:"walk"`
	DryRun  *bool  `hcl:"dry_run,optional"`
}

// evalContext provides env("NAME") and timestamp(datenum) to expressions.
func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{},
		Functions: map[string]function.Function{
			"env": function.New(&function.Spec{
				Params: []function.Parameter{
					{
						Name: "name",
						Type: cty.String,
					},
				},
				Type: function.StaticReturnType(cty.String),
				Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
					return cty.StringVal(os.Getenv(args[0].AsString())), nil
				},
			}),
			"timestamp": function.New(&function.Spec{
				Params: []function.Parameter{
					{
						Name: "datenum",
						Type: cty.Number,
					},
				},
				Type: function.StaticReturnType(cty.String),
				Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
					f, _ := args[0].AsBigFloat().Float64()
					ts, err := timeline.Decode(f)
					if err != nil {
						return cty.NilVal, err
					}
					return cty.StringVal(ts.String()), nil
				},
			}),
		},
	}
}

// ParseConfig parses HCL content on top of the default configuration and
// validates the result.
func ParseConfig(content, filename string) (*config.Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL([]byte(content), filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL: %s", diags.Error())
	}
	return parseConfigFile(file)
}

func parseConfigFile(file *hcl.File) (*config.Config, error) {
	var hc HCLConfig
	if diags := gohcl.DecodeBody(file.Body, evalContext(), &hc); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL body: %s", diags.Error())
	}

	cfg := convertHCLConfig(&hc)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func convertHCLConfig(hc *HCLConfig) *config.Config {
	cfg := config.NewDefaultConfig()
	set(&cfg.App.LogLevel, hc.LogLevel)
	set(&cfg.App.HTTP.Port, hc.HTTPPort)

	if p := hc.Paths; p != nil {
		set(&cfg.Paths.Input, p.Input)
		set(&cfg.Paths.Output, p.Output)
		set(&cfg.Paths.EventLog, p.EventLog)
	}

	if s := hc.Sync; s != nil {
		set(&cfg.Sync.TimeWindow, s.TimeWindow)
		set(&cfg.Sync.FrameColumn, s.FrameColumn)
		set(&cfg.Sync.FPS, s.FPS)
		if s.Labels != nil {
			cfg.Sync.Labels = s.Labels
		}
		set(&cfg.Sync.BinarySearch, s.BinarySearch)
		set(&cfg.Sync.LegacyResample, s.LegacyResample)
		set(&cfg.Sync.Aggregation, s.Aggregation)
		set(&cfg.Sync.DryRun, s.DryRun)
	}

	if len(hc.Modalities) > 0 {
		defaults := make(map[string]config.ModalityConfig, len(cfg.Modalities))
		for _, m := range cfg.Modalities {
			defaults[m.Name] = m
		}
		cfg.Modalities = make([]config.ModalityConfig, 0, len(hc.Modalities))
		for _, hm := range hc.Modalities {
			m := defaults[hm.Name]
			m.Name = hm.Name
			set(&m.Strategy, hm.Strategy)
			set(&m.SampleRate, hm.SampleRate)
			set(&m.MaxGap, hm.MaxGap)
			set(&m.Primary, hm.Primary)
			set(&m.IndexColumn, hm.IndexColumn)
			set(&m.File, hm.File)
			set(&m.TimeFile, hm.TimeFile)
			set(&m.Format, hm.Format)
			set(&m.Resample, hm.Resample)
			set(&m.Optional, hm.Optional)
			cfg.Modalities = append(cfg.Modalities, m)
		}
	}

	if len(hc.Videos) > 0 {
		cfg.Videos = make([]config.VideoConfig, 0, len(hc.Videos))
		for _, hv := range hc.Videos {
			v := config.VideoConfig{Name: hv.Name, File: hv.File}
			set(&v.Audio, hv.Audio)
			set(&v.Gate, hv.Gate)
			cfg.Videos = append(cfg.Videos, v)
		}
	}

	if l := hc.Ledger; l != nil {
		set(&cfg.Ledger.CSV, l.CSV)
		set(&cfg.Ledger.SQLitePath, l.SQLitePath)
	}

	if t := hc.Temporal; t != nil {
		set(&cfg.Temporal.HostPort, t.HostPort)
		set(&cfg.Temporal.Namespace, t.Namespace)
		set(&cfg.Temporal.TaskQueue, t.TaskQueue)
	}
	return cfg
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// ParseBatchRequest parses an HCL batch body.
func ParseBatchRequest(content string) (*temporal.BatchRequest, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL([]byte(content), "batch.hcl")
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL: %s", diags.Error())
	}

	var hb HCLBatchRequest
	if diags := gohcl.DecodeBody(file.Body, evalContext(), &hb); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL body: %s", diags.Error())
	}

	req := &temporal.BatchRequest{}
	set(&req.DryRun, hb.DryRun)
	for _, g := range hb.Grids {
		req.Sessions = append(req.Sessions, temporal.SessionGrid(g.Subjects, g.Walks)...)
	}
	for _, s := range hb.Sessions {
		sr := temporal.SyncRequest{Subject: s.Subject, Walk: s.Walk}
		set(&sr.DryRun, s.DryRun)
		req.Sessions = append(req.Sessions, sr)
	}

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch request: %w", err)
	}
	return req, nil
}

// IsHCL reports whether content parses as HCL native syntax.
func IsHCL(content []byte) bool {
	_, diags := hclsyntax.ParseConfig(content, "", hcl.Pos{Line: 1, Column: 1})
	return !diags.HasErrors()
}
