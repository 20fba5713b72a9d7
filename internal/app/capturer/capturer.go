// Package capturer снимает кадр всех мониторов для фона эффекта оверлея.
package capturer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/kbinani/screenshot"
	"go.uber.org/zap"
)

// maxWidth — кадр шире этого масштабируется с сохранением пропорций.
const maxWidth = 1280

var ErrDisabled = errors.New("capturer is disabled")

type Config struct {
	Enabled bool
	Dir     string
	TTL     time.Duration
	Debug   bool
}

type Capturer struct {
	cfg     Config
	logger  *zap.SugaredLogger
	cleaner *Cleaner
	capture func() (*image.RGBA, error)
}

func New(cfg Config, logger *zap.SugaredLogger) *Capturer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Capturer{cfg: cfg, logger: logger, cleaner: NewCleaner(cfg.Dir, cfg.TTL, cfg.Debug, logger), capture: captureDisplays}
}

// Run периодически удаляет кадры старше TTL. Блокирующий метод.
func (c *Capturer) Run(ctx context.Context) {
	if !c.cfg.Enabled {
		c.logger.Infow("Capturer is disabled by config")
		return
	}
	interval := max(time.Second, c.cfg.TTL/2)
	t := time.NewTicker(interval)
	defer t.Stop()

	// Гарантируем, что директория существует
	if err := os.MkdirAll(c.cfg.Dir, 0o755); err != nil {
		c.logger.Errorw("Failed to create capture dir", "dir", c.cfg.Dir, "error", err)
	}
	c.logger.Infow("Capturer started", "ttl", c.cfg.TTL.String(), "outputDir", c.cfg.Dir)

	for {
		select {
		case <-ctx.Done():
			c.logger.Infow("Capturer stopped", "reason", ctx.Err())
			return
		case now := <-t.C:
			c.cleaner.Sweep(now)
		}
	}
}

// Grab снимает один кадр и возвращает путь к JPEG.
func (c *Capturer) Grab() (string, error) {
	if !c.cfg.Enabled {
		return "", ErrDisabled
	}
	canvas, err := c.capture()
	if err != nil {
		return "", err
	}
	out := image.Image(canvas)
	if w := canvas.Bounds().Dx(); w > maxWidth {
		h := canvas.Bounds().Dy()
		scale := float64(maxWidth) / float64(w)
		newW := max(1, int(math.Round(float64(w)*scale)))
		newH := max(1, int(math.Round(float64(h)*scale)))
		out = resizeNearest(canvas, newW, newH)
	}

	if err := os.MkdirAll(c.cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create capture dir: %w", err)
	}
	fullPath := filepath.Join(c.cfg.Dir, time.Now().Format("2006-01-02_15-04-05.000")+".jpg")
	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("create frame file: %w", err)
	}
	if err := jpeg.Encode(file, out, &jpeg.Options{Quality: 90}); err != nil {
		_ = file.Close()
		_ = os.Remove(fullPath)
		return "", fmt.Errorf("encode frame: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close frame file: %w", err)
	}
	c.logger.Debugw("Frame saved", "path", fullPath, "w", out.Bounds().Dx(), "h", out.Bounds().Dy())
	return fullPath, nil
}

// captureDisplays склеивает все активные мониторы в один холст.
func captureDisplays() (*image.RGBA, error) {
	n := screenshot.NumActiveDisplays()
	if n <= 0 {
		return nil, errors.New("no active displays")
	}

	// Вычисляем объединённые границы всех мониторов
	union := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		union = union.Union(screenshot.GetDisplayBounds(i))
	}

	canvas := image.NewRGBA(image.Rect(0, 0, union.Dx(), union.Dy()))
	for i := range n {
		b := screenshot.GetDisplayBounds(i)
		img, err := screenshot.CaptureRect(b)
		if err != nil {
			return nil, fmt.Errorf("capture display %d: %w", i, err)
		}
		// Копируем в холст со смещением
		dst := image.Pt(b.Min.X-union.Min.X, b.Min.Y-union.Min.Y)
		draw.Draw(canvas, image.Rectangle{Min: dst, Max: dst.Add(b.Size())}, img, img.Bounds().Min, draw.Src)
	}
	return canvas, nil
}

// resizeNearest выполняет масштабирование изображения методом ближайшего соседа
func resizeNearest(src image.Image, width int, height int) *image.RGBA {
	if width <= 0 || height <= 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}
	b := src.Bounds()
	srcW, srcH := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	if srcW == 0 || srcH == 0 {
		return dst
	}
	for y := range height {
		srcY := b.Min.Y + y*srcH/height
		for x := range width {
			srcX := b.Min.X + x*srcW/width
			dst.Set(x, y, src.At(srcX, srcY))
		}
	}
	return dst
}
