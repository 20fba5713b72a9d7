// Package audio проигрывает звуки срабатываний через beep.
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"go.uber.org/zap"
)

// sampleRate — частота, на которой инициализируется динамик; потоки пересэмплируются под неё.
const sampleRate beep.SampleRate = 44100

var ErrSoundNotFound = errors.New("sound file not found")

type Config struct {
	Dir    string
	Ext    string
	Volume float64 // 0..1
	Muted  bool
}

type Service struct {
	cfg    Config
	logger *zap.SugaredLogger

	mu     sync.Mutex
	volume float64
	muted  bool

	gen      atomic.Int64
	live     map[*track]struct{} // играющие потоки; под mu
	initOnce sync.Once
	initErr  error
	ready    atomic.Bool
}

func New(cfg Config, logger *zap.SugaredLogger) *Service {
	if strings.TrimSpace(cfg.Ext) == "" {
		cfg.Ext = "mp3"
	}
	cfg.Ext = strings.TrimPrefix(cfg.Ext, ".")
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{cfg: cfg, logger: logger, volume: clamp(cfg.Volume), muted: cfg.Muted, live: map[*track]struct{}{}}
}

// track — открытый поток звука. Закрывается ровно один раз: по окончании или по Stop.
type track struct {
	once sync.Once
	c    io.Closer
}

func (t *track) close() { t.once.Do(func() { _ = t.c.Close() }) }

// hold регистрирует поток, чтобы Stop мог его закрыть. Возвращает функцию штатного закрытия.
func (s *Service) hold(c io.Closer) func() {
	t := &track{c: c}
	s.mu.Lock()
	s.live[t] = struct{}{}
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.live, t)
		s.mu.Unlock()
		t.close()
	}
}

// closeLive закрывает все потоки, которые speaker уже не доиграет.
func (s *Service) closeLive() {
	s.mu.Lock()
	tracks := make([]*track, 0, len(s.live))
	for t := range s.live {
		tracks = append(tracks, t)
	}
	clear(s.live)
	s.mu.Unlock()
	for _, t := range tracks {
		t.close()
	}
}

// Resolve находит файл звука по имени: сначала рядом с бинарём, затем от рабочей директории.
func (s *Service) Resolve(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrSoundNotFound
	}
	file := name
	if filepath.Ext(name) == "" {
		file = name + "." + s.cfg.Ext
	}
	var cands []string
	if filepath.IsAbs(s.cfg.Dir) {
		cands = append(cands, filepath.Join(s.cfg.Dir, file))
	} else {
		if exe, err := os.Executable(); err == nil {
			cands = append(cands, filepath.Join(filepath.Dir(exe), s.cfg.Dir, file))
		}
		cands = append(cands, filepath.Join(s.cfg.Dir, file))
	}
	for _, c := range cands {
		if st, err := os.Stat(c); err == nil && !st.IsDir() {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrSoundNotFound, file)
}

// Play запускает звук и сразу возвращается. Звуки могут накладываться; Stop гасит все начатые.
func (s *Service) Play(name string) error {
	gen := s.gen.Load()
	path, err := s.Resolve(name)
	if err != nil {
		return err
	}
	if err := s.init(); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	streamer, format, err := decode(ext, f)
	if err != nil {
		f.Close()
		return fmt.Errorf("decode %s: %w", path, err)
	}
	release := s.hold(streamer)
	// Stop пришёл, пока файл открывался
	if s.gen.Load() != gen {
		release()
		return nil
	}
	s.mu.Lock()
	vol := withVolume(beep.Resample(4, format.SampleRate, sampleRate, streamer), s.volume, s.muted)
	s.mu.Unlock()

	speaker.Play(beep.Seq(vol, beep.Callback(release)))
	s.logger.Debugw("Sound started", "name", name, "path", path)
	return nil
}

// Stop прерывает все играющие звуки и закрывает их файлы: speaker.Clear не вызывает Callback в конце Seq.
func (s *Service) Stop() {
	s.gen.Add(1)
	if s.ready.Load() {
		speaker.Clear()
	}
	s.closeLive()
}

// Unmute снимает собственный флаг тишины плеера.
func (s *Service) Unmute() {
	s.mu.Lock()
	s.muted = false
	s.mu.Unlock()
}

// SetVolume задаёт громкость для последующих звуков.
func (s *Service) SetVolume(v float64) {
	s.mu.Lock()
	s.volume = clamp(v)
	s.mu.Unlock()
}

func (s *Service) Volume() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume, s.muted
}

func (s *Service) init() error {
	s.initOnce.Do(func() {
		s.initErr = speaker.Init(sampleRate, sampleRate.N(time.Second/10))
		if s.initErr != nil {
			s.logger.Warnw("Speaker init failed", "error", s.initErr)
			return
		}
		s.ready.Store(true)
	})
	return s.initErr
}

func clamp(v float64) float64 { return max(0, min(1, v)) }
