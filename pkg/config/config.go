package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/leowmjw/go-walk-sync/pkg/modality"
	"github.com/leowmjw/go-walk-sync/pkg/segment"
	"github.com/leowmjw/go-walk-sync/pkg/timeline"
)

// Stream file formats understood by the session loader.
const (
	FormatNPY   = "npy"   // float64 matrix, optional float64 NTP-seconds time file
	FormatCSV   = "csv"   // CSV with header; first column dropped; needs a time file
	FormatPhone = "phone" // headerless CSV, first column a formatted timestamp
	FormatGPS   = "gps"   // phone CSV with "Lat: " and "Long: " prefixed columns
)

// Config is the full run configuration.
type Config struct {
	App        AppConfig        `yaml:"app"`
	Paths      PathsConfig      `yaml:"paths"`
	Sync       SyncConfig       `yaml:"sync"`
	Modalities []ModalityConfig `yaml:"modalities"`
	Videos     []VideoConfig    `yaml:"videos"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Temporal   TemporalConfig   `yaml:"temporal"`
}

// AppConfig holds process-level settings.
type AppConfig struct {
	LogLevel string     `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns the HTTP listen address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// PathsConfig holds per-session path templates. {subject} and {walk} are
// substituted.
type PathsConfig struct {
	Input    string `yaml:"input"`
	Output   string `yaml:"output"`
	EventLog string `yaml:"event_log"`
}

// SyncConfig controls segmentation.
type SyncConfig struct {
	TimeWindow     string   `yaml:"time_window"`
	FrameColumn    string   `yaml:"frame_column"`
	FPS            float64  `yaml:"fps"`
	Labels         []string `yaml:"labels"`
	BinarySearch   bool     `yaml:"binary_search"`
	LegacyResample bool     `yaml:"legacy_resample"`
	Aggregation    string   `yaml:"aggregation"`
	DryRun         bool     `yaml:"dry_run"`
}

// ModalityConfig describes one array stream and where it is loaded from.
type ModalityConfig struct {
	Name        string  `yaml:"name"`
	Strategy    string  `yaml:"strategy"`
	SampleRate  float64 `yaml:"sample_rate"`
	MaxGap      string  `yaml:"max_gap"`
	Primary     bool    `yaml:"primary"`
	IndexColumn string  `yaml:"index_column"`
	File        string  `yaml:"file"`
	TimeFile    string  `yaml:"time_file"`
	Format      string  `yaml:"format"`
	Resample    bool    `yaml:"resample"`
	Optional    bool    `yaml:"optional"`
}

// VideoConfig describes one video container.
type VideoConfig struct {
	Name  string `yaml:"name"`
	File  string `yaml:"file"`
	Audio bool   `yaml:"audio"`
	Gate  bool   `yaml:"gate"`
}

// LedgerConfig selects where ledgers are flushed. CSV files always go to
// the session output directory when CSV is set.
type LedgerConfig struct {
	CSV        bool   `yaml:"csv"`
	SQLitePath string `yaml:"sqlite_path"`
}

// TemporalConfig holds the Temporal client settings.
type TemporalConfig struct {
	HostPort  string `yaml:"host_port"`
	Namespace string `yaml:"namespace"`
	TaskQueue string `yaml:"task_queue"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.App,
		validation.Field(&c.App.LogLevel, validation.In("debug", "info", "warn", "error")),
	); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := validation.ValidateStruct(&c.App.HTTP,
		validation.Field(&c.App.HTTP.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	if err := validation.ValidateStruct(&c.Paths,
		validation.Field(&c.Paths.Input, validation.Required),
		validation.Field(&c.Paths.Output, validation.Required),
		validation.Field(&c.Paths.EventLog, validation.Required),
	); err != nil {
		return fmt.Errorf("paths: %w", err)
	}
	if err := validation.ValidateStruct(&c.Sync,
		validation.Field(&c.Sync.FrameColumn, validation.Required,
			validation.In(timeline.PupilFrameColumn, timeline.GoProFrameColumn, timeline.NPSampleColumn)),
		validation.Field(&c.Sync.FPS, validation.Min(0.0)),
		validation.Field(&c.Sync.Labels, validation.Required),
		validation.Field(&c.Sync.TimeWindow, validation.By(func(any) error {
			_, err := timeline.ParseWindow(c.Sync.TimeWindow)
			return err
		})),
		validation.Field(&c.Sync.Aggregation, validation.By(func(any) error {
			_, err := timeline.ParseAggregationType(c.Sync.Aggregation)
			return err
		})),
	); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	for i := range c.Modalities {
		m := &c.Modalities[i]
		if err := validation.ValidateStruct(m,
			validation.Field(&m.Name, validation.Required),
			validation.Field(&m.File, validation.Required),
			validation.Field(&m.Format, validation.Required, validation.In(FormatNPY, FormatCSV, FormatPhone, FormatGPS)),
			validation.Field(&m.SampleRate, validation.Min(0.0)),
			validation.Field(&m.TimeFile, validation.When(m.Format == FormatCSV, validation.Required)),
		); err != nil {
			return fmt.Errorf("modality %q: %w", m.Name, err)
		}
	}
	if _, err := c.Registry(); err != nil {
		return err
	}
	for i := range c.Videos {
		v := &c.Videos[i]
		if err := validation.ValidateStruct(v,
			validation.Field(&v.Name, validation.Required),
			validation.Field(&v.File, validation.Required),
		); err != nil {
			return fmt.Errorf("video %q: %w", v.Name, err)
		}
	}
	return nil
}

// Level maps the configured log level onto slog.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.App.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Window returns the fixed output duration; zero disables expansion.
func (c *Config) Window() time.Duration {
	d, _ := timeline.ParseWindow(c.Sync.TimeWindow)
	return d
}

// ResampleOptions returns the per-second collapsing options.
func (c *Config) ResampleOptions() timeline.ResampleOptions {
	agg, _ := timeline.ParseAggregationType(c.Sync.Aggregation)
	return timeline.ResampleOptions{Aggregation: agg, DropLastGroup: c.Sync.LegacyResample}
}

// Descriptor converts the modality entry into an extractor descriptor.
func (m ModalityConfig) Descriptor() (modality.Descriptor, error) {
	strategy, err := modality.ParseStrategy(m.Strategy)
	if err != nil {
		return modality.Descriptor{}, fmt.Errorf("modality %q: %w", m.Name, err)
	}
	var gap time.Duration
	if m.MaxGap != "" {
		if gap, err = timeline.ParseWindow(m.MaxGap); err != nil {
			return modality.Descriptor{}, fmt.Errorf("modality %q: max gap: %w", m.Name, err)
		}
	}
	return modality.Descriptor{
		Name:        m.Name,
		Strategy:    strategy,
		SampleRate:  m.SampleRate,
		MaxGap:      gap,
		IndexColumn: m.IndexColumn,
		Primary:     m.Primary,
	}, nil
}

// Registry builds the ordered modality table.
func (c *Config) Registry() (modality.Registry, error) {
	reg := make(modality.Registry, 0, len(c.Modalities))
	for _, m := range c.Modalities {
		d, err := m.Descriptor()
		if err != nil {
			return nil, err
		}
		reg = append(reg, d)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}

// VideoSpecs returns the videos in the driver's terms.
func (c *Config) VideoSpecs() []segment.VideoSpec {
	out := make([]segment.VideoSpec, len(c.Videos))
	for i, v := range c.Videos {
		out[i] = segment.VideoSpec{Name: v.Name, Audio: v.Audio, Gate: v.Gate}
	}
	return out
}

// Resolve substitutes the session identifiers into a path template.
func Resolve(template, subject, walk string) string {
	return strings.NewReplacer("{subject}", subject, "{walk}", walk).Replace(template)
}

// modalityFiles is the canonical extracted layout of the study rig.
var modalityFiles = map[string]ModalityConfig{
	"np":               {File: "data_np.npy", Format: FormatNPY},
	"chestphone_acc":   {File: "data_chest_phone_acc.csv", Format: FormatPhone},
	"chestphone_gyro":  {File: "data_chest_phone_gyro.csv", Format: FormatPhone},
	"chestphone_mag":   {File: "data_chest_phone_mag.csv", Format: FormatPhone},
	"chestphone_gps":   {File: "data_chest_phone_gps.csv", Format: FormatGPS, Resample: true},
	"chestphone_light": {File: "data_chest_phone_light.csv", Format: FormatPhone},
	"pupilphone_acc":   {File: "data_pupil_phone_acc.csv", Format: FormatPhone},
	"pupilphone_gyro":  {File: "data_pupil_phone_gyro.csv", Format: FormatPhone},
	"pupilphone_mag":   {File: "data_pupil_phone_mag.csv", Format: FormatPhone},
	"pupilphone_gps":   {File: "data_pupil_phone_gps.csv", Format: FormatGPS, Resample: true},
	"xs_CoM":           {File: "data_xs_Center-of-Mass.csv", TimeFile: "time_xs.npy", Format: FormatCSV},
}

// DefaultModalities returns the study rig's streams with their files.
func DefaultModalities() []ModalityConfig {
	reg := modality.DefaultRegistry()
	out := make([]ModalityConfig, 0, len(reg))
	for _, d := range reg {
		m := modalityFiles[d.Name]
		m.Name = d.Name
		m.Strategy = d.Strategy.String()
		m.SampleRate = d.SampleRate
		if d.MaxGap > 0 {
			m.MaxGap = d.MaxGap.String()
		}
		m.Primary = d.Primary
		m.Optional = !d.Primary
		out = append(out, m)
	}
	return out
}

// NewDefaultConfig returns the configuration used for the navigation study.
func NewDefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			LogLevel: "info",
			HTTP:     HTTPConfig{Port: 8080},
		},
		Paths: PathsConfig{
			Input:    "../RW{subject}/RW{subject}-Walk{walk}-extracted",
			Output:   "../synchronized/RW{subject}/RW{subject}-Walk{walk}-self-syncronize-split",
			EventLog: "../label_RWNApp_Output_Jan2024/evnts_RWNApp_RW{subject}_Walk{walk}.csv",
		},
		Sync: SyncConfig{
			TimeWindow:  "2s",
			FrameColumn: timeline.PupilFrameColumn,
			FPS:         30,
			Labels:      append([]string(nil), segment.DefaultLabels...),
			Aggregation: string(timeline.Avg),
		},
		Modalities: DefaultModalities(),
		Videos: []VideoConfig{
			{Name: "gopro", File: "data_video_gopro.mp4", Audio: true, Gate: true},
			{Name: "pupil", File: "data_video_pupil.mp4"},
		},
		Ledger: LedgerConfig{CSV: true},
		Temporal: TemporalConfig{
			HostPort:  "localhost:7233",
			Namespace: "default",
			TaskQueue: "walk-sync",
		},
	}
}
