package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/leowmjw/go-walk-sync/pkg/timeline"
)

// Slicer cuts frame ranges out of video containers, expanding short ranges
// to a fixed duration first.
type Slicer struct {
	prober     Prober
	transcoder Transcoder
	window     time.Duration
	fps        float64 // overrides the container frame rate when > 0
	logger     *slog.Logger

	mu    sync.Mutex
	infos map[string]Info
}

// NewSlicer creates a Slicer. A zero window disables expansion and a zero
// fps uses each container's own frame rate.
func NewSlicer(prober Prober, transcoder Transcoder, window time.Duration, fps float64, logger *slog.Logger) *Slicer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Slicer{
		prober:     prober,
		transcoder: transcoder,
		window:     window,
		fps:        fps,
		logger:     logger,
		infos:      make(map[string]Info),
	}
}

// ExtractVideo writes frames [r.Start, r.End) of src to out without audio and
// returns the range actually cut.
func (s *Slicer) ExtractVideo(ctx context.Context, src string, r timeline.Range, out string) (timeline.Range, error) {
	return s.extract(ctx, src, r, out, "")
}

// ExtractVideoAudio writes the video and the audio of the same range to two
// separate files.
func (s *Slicer) ExtractVideoAudio(ctx context.Context, src string, r timeline.Range, videoOut, audioOut string) (timeline.Range, error) {
	return s.extract(ctx, src, r, videoOut, audioOut)
}

func (s *Slicer) extract(ctx context.Context, src string, r timeline.Range, videoOut, audioOut string) (timeline.Range, error) {
	if err := checkRange(src, r); err != nil {
		return r, err
	}

	info, err := s.info(ctx, src)
	if err != nil {
		return r, fmt.Errorf("failed to probe %s: %w", src, err)
	}
	fps := info.FrameRate
	if s.fps > 0 {
		fps = s.fps
	}

	if s.window > 0 {
		r = timeline.Expand(r, s.window, fps, info.TotalFrames(fps))
		if r.Empty() {
			return r, &InvalidRangeError{Start: r.Start, End: r.End, Reason: "range lies past the end of the video"}
		}
	}

	start := frameOffset(r.Start, fps)
	length := frameOffset(r.End, fps) - start

	if err := s.transcoder.Transcode(ctx, Cut{Input: src, Output: videoOut, Start: start, Length: length, Track: VideoOnly}); err != nil {
		return r, fmt.Errorf("failed to cut video %s: %w", videoOut, err)
	}
	if audioOut != "" {
		if !info.HasAudio {
			return r, fmt.Errorf("failed to cut audio %s: source has no audio stream", audioOut)
		}
		if err := s.transcoder.Transcode(ctx, Cut{Input: src, Output: audioOut, Start: start, Length: length, Track: AudioOnly}); err != nil {
			return r, fmt.Errorf("failed to cut audio %s: %w", audioOut, err)
		}
	}

	s.logger.Debug("Video slice written", "source", src, "range", r.String(), "output", videoOut)
	return r, nil
}

// info returns the cached container description of path.
func (s *Slicer) info(ctx context.Context, path string) (Info, error) {
	s.mu.Lock()
	info, ok := s.infos[path]
	s.mu.Unlock()
	if ok {
		return info, nil
	}

	info, err := s.prober.Probe(ctx, path)
	if err != nil {
		return Info{}, err
	}

	s.mu.Lock()
	s.infos[path] = info
	s.mu.Unlock()
	return info, nil
}

func checkRange(src string, r timeline.Range) error {
	if _, err := os.Stat(src); err != nil {
		return &MissingFileError{Path: src}
	}
	if r.Start < 0 || r.End < 0 {
		return &InvalidRangeError{Start: r.Start, End: r.End, Reason: "frame indices must be non-negative"}
	}
	if r.Empty() {
		return &InvalidRangeError{Start: r.Start, End: r.End, Reason: "end frame must be greater than start frame"}
	}
	return nil
}

func frameOffset(frame int, fps float64) time.Duration {
	return time.Duration(float64(frame) / fps * float64(time.Second))
}

// NopTranscoder records cuts without running anything. Dry runs use it.
type NopTranscoder struct {
	mu   sync.Mutex
	Cuts []Cut
}

func (n *NopTranscoder) Transcode(_ context.Context, cut Cut) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Cuts = append(n.Cuts, cut)
	return nil
}
