package media

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Info describes a media container.
type Info struct {
	Duration  time.Duration
	FrameRate float64
	HasAudio  bool
}

// TotalFrames is the number of whole frames at fps.
func (i Info) TotalFrames(fps float64) int {
	return int(i.Duration.Seconds() * fps)
}

// Prober reports container length and frame rate.
type Prober interface {
	Probe(ctx context.Context, path string) (Info, error)
}

// Track selects what a cut writes.
type Track int

const (
	VideoOnly Track = iota
	AudioOnly
)

// Cut is one transcode of [Start, Start+Length) from Input into Output.
type Cut struct {
	Input  string
	Output string
	Start  time.Duration
	Length time.Duration
	Track  Track
}

// Transcoder writes cuts of a source container.
type Transcoder interface {
	Transcode(ctx context.Context, cut Cut) error
}

// FFmpeg implements Prober and Transcoder by running the ffprobe and ffmpeg
// executables.
type FFmpeg struct {
	FFprobePath string
	FFmpegPath  string
	VideoCodec  string
	logger      *slog.Logger
}

// NewFFmpeg uses the executables found on PATH unless overridden.
func NewFFmpeg(logger *slog.Logger) *FFmpeg {
	if logger == nil {
		logger = slog.Default()
	}
	return &FFmpeg{
		FFprobePath: "ffprobe",
		FFmpegPath:  "ffmpeg",
		VideoCodec:  "libx264",
		logger:      logger,
	}
}

type probe struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	Index      int    `json:"index"`
	CodecType  string `json:"codec_type"`
	RFrameRate string `json:"r_frame_rate"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

// Probe runs ffprobe and reads the first video stream's frame rate and the
// container duration.
func (f *FFmpeg) Probe(ctx context.Context, path string) (Info, error) {
	raw, err := run(ctx, f.FFprobePath, "-v", "error", "-print_format", "json", "-show_streams", "-show_format", path)
	if err != nil {
		return Info{}, err
	}
	return parseProbe(raw)
}

func parseProbe(raw []byte) (Info, error) {
	var p probe
	if err := json.Unmarshal(raw, &p); err != nil {
		return Info{}, fmt.Errorf("failed to decode ffprobe output: %w", err)
	}

	var info Info
	for _, s := range p.Streams {
		switch s.CodecType {
		case "video":
			if info.FrameRate == 0 {
				rate, err := parseFrameRate(s.RFrameRate)
				if err != nil {
					return Info{}, err
				}
				info.FrameRate = rate
			}
		case "audio":
			info.HasAudio = true
		}
	}
	if info.FrameRate == 0 {
		return Info{}, fmt.Errorf("no video stream found")
	}

	seconds, err := strconv.ParseFloat(p.Format.Duration, 64)
	if err != nil {
		return Info{}, fmt.Errorf("invalid container duration %q: %w", p.Format.Duration, err)
	}
	info.Duration = time.Duration(seconds * float64(time.Second))
	return info, nil
}

// parseFrameRate reads ffprobe's rational notation, e.g. 30000/1001.
func parseFrameRate(s string) (float64, error) {
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid frame rate %q: %w", s, err)
	}
	if !found {
		return n, nil
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0, fmt.Errorf("invalid frame rate %q", s)
	}
	return n / d, nil
}

// Transcode re-encodes the cut. Video cuts drop audio; audio cuts are
// written as PCM.
func (f *FFmpeg) Transcode(ctx context.Context, cut Cut) error {
	args := cutArgs(cut, f.VideoCodec)
	f.logger.Debug("Running ffmpeg", "output", cut.Output, "start", cut.Start, "length", cut.Length)
	if _, err := run(ctx, f.FFmpegPath, args...); err != nil {
		return err
	}
	return nil
}

func cutArgs(cut Cut, videoCodec string) []string {
	args := []string{
		"-y", "-v", "error",
		"-ss", formatSeconds(cut.Start),
		"-i", cut.Input,
		"-t", formatSeconds(cut.Length),
	}
	switch cut.Track {
	case AudioOnly:
		args = append(args, "-vn", "-c:a", "pcm_s16le")
	default:
		args = append(args, "-an", "-c:v", videoCodec)
	}
	return append(args, cut.Output)
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 6, 64)
}

func run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = os.Environ()
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%s failed: %v\n%s", name, err, string(out))
	}
	return out, nil
}
