// Package media holds the media sources and sinks used by the command line agents.
package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dkeye/Livecast/internal/core"
	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"github.com/rs/zerolog/log"
)

var ErrUnsupportedCodec = errors.New("unsupported ivf codec")

// IVFSource plays an IVF file into a video track, looping at end of file.
type IVFSource struct {
	track *webrtc.TrackLocalStaticSample
	file  *os.File
	frame time.Duration

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

var _ core.MediaSource = (*IVFSource)(nil)

func mimeForFourCC(fourcc string) (string, error) {
	switch fourcc {
	case "VP80":
		return webrtc.MimeTypeVP8, nil
	case "VP90":
		return webrtc.MimeTypeVP9, nil
	case "AV01":
		return webrtc.MimeTypeAV1, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedCodec, fourcc)
}

// OpenIVF opens path and starts pacing frames into the track right away.
// Frames written before the track is bound to a connection are dropped.
func OpenIVF(path string) (*IVFSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	_, header, err := ivfreader.NewWith(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("read ivf header: %w", err)
	}
	mime, err := mimeForFourCC(header.FourCC)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	frame := time.Second / 30
	if header.TimebaseDenominator > 0 && header.TimebaseNumerator > 0 {
		frame = time.Duration(float64(time.Second) * float64(header.TimebaseNumerator) / float64(header.TimebaseDenominator))
	}

	track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: mime}, "video", "livecast")
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	s := &IVFSource{
		track: track,
		file:  f,
		frame: frame,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	log.Info().Str("module", "app.media").Str("file", path).Str("codec", mime).
		Uint16("width", header.Width).Uint16("height", header.Height).Dur("frame", frame).Msg("ivf source opened")
	go s.play()
	return s, nil
}

func (s *IVFSource) Tracks() []webrtc.TrackLocal {
	return []webrtc.TrackLocal{s.track}
}

func (s *IVFSource) play() {
	defer close(s.done)
	reader, err := s.rewind()
	if err != nil {
		log.Error().Err(err).Str("module", "app.media").Msg("ivf rewind")
		return
	}
	ticker := time.NewTicker(s.frame)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}
		frame, _, err := reader.ParseNextFrame()
		if errors.Is(err, io.EOF) {
			if reader, err = s.rewind(); err != nil {
				log.Error().Err(err).Str("module", "app.media").Msg("ivf rewind")
				return
			}
			continue
		}
		if err != nil {
			log.Error().Err(err).Str("module", "app.media").Msg("ivf frame")
			return
		}
		if err := s.track.WriteSample(pionmedia.Sample{Data: frame, Duration: s.frame}); err != nil {
			log.Warn().Err(err).Str("module", "app.media").Msg("write sample")
		}
	}
}

func (s *IVFSource) rewind() (*ivfreader.IVFReader, error) {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	reader, _, err := ivfreader.NewWith(s.file)
	return reader, err
}

// Close stops playback and closes the file. Safe to call more than once.
func (s *IVFSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done
		err = s.file.Close()
	})
	return err
}
