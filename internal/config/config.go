package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	DebugMode  bool   `env:"DEBUG_MODE"`  //Режим дебага
	StorePath  string `env:"STORE_PATH"`  // Файл SQLite с таблицами правил
	BufferSize int    `env:"BUFFER_SIZE"` // Сколько последних символов хранит буфер нажатий
	KeySource  string `env:"KEY_SOURCE"`  // hook|none — источник нажатий клавиатуры
	ScheduleTZ string `env:"SCHEDULE_TZ"` // Часовой пояс расписания ротации, Local по умолчанию
	// Ставить тестовое расписание при старте, если сохранённое не даёт активного слова
	InstallTestSchedule bool `env:"INSTALL_TEST_SCHEDULE"`

	// Медиа и звук
	MediaDir          string  `env:"MEDIA_DIR"`           // Папка с GIF и видео
	MediaDefaultGroup string  `env:"MEDIA_DEFAULT_GROUP"` // Папка для random без явной папки
	MediaFallback     string  `env:"MEDIA_FALLBACK"`      // GIF, если в папке random пусто
	SoundDir          string  `env:"SOUND_DIR"`           // Папка со звуками
	SoundExt          string  `env:"SOUND_EXT"`           // Расширение звуков по умолчанию
	SoundMuted        bool    `env:"SOUND_MUTED"`         // Стартовать без звука до первого unmute
	OutputVolume      float64 `env:"OUTPUT_VOLUME"`       // Громкость для ротационного слова, 0..1

	// Тайминги
	EffectDuration          time.Duration `env:"EFFECT_DURATION"`           // Длительность эффекта оверлея
	GifDelay                time.Duration `env:"GIF_DELAY"`                 // Задержка GIF после старта эффекта
	DefaultRotatingCooldown time.Duration `env:"DEFAULT_ROTATING_COOLDOWN"` // Кулдаун ротационного слова без явного значения

	// Пороги специальных клавиш в виде "код:порог;код:порог"
	SpecialKeyThresholds string `env:"SPECIAL_KEY_THRESHOLDS"`

	// Capture — фоновый кадр для эффекта
	CaptureEnabled    bool   `env:"CAPTURE_ENABLED"`
	CaptureDir        string `env:"CAPTURE_DIR"`
	CaptureTTLSeconds int    `env:"CAPTURE_TTL_SECONDS"` // Через сколько секунд кадры удаляются

	// ControlServer — WebSocket управления
	ControlServer ControlServerConfig

	// Watch — слежение за файлом хранилища
	WatchDebounce time.Duration `env:"WATCH_DEBOUNCE"`

	// Chat / Twitch
	TwitchEnabled    bool   `env:"TWITCH_ENABLED"`
	TwitchUsername   string `env:"TWITCH_USERNAME"`    // Имя пользователя Twitch (логин)
	TwitchOAuthToken string `env:"TWITCH_OAUTH_TOKEN"` // OAuth токен Twitch (может быть без префикса oauth:)
	TwitchChannel    string `env:"TWITCH_CHANNEL"`     // Канал Twitch (один), без #
}

// ControlServerConfig конфигурация сервера управления.
type ControlServerConfig struct {
	Enabled   bool   `env:"CONTROL_SERVER_ENABLED"`    // Главный флаг включения/выключения
	BindAddr  string `env:"CONTROL_SERVER_BIND_ADDR"`  // Адрес слушателя, напр. 127.0.0.1:8081
	Path      string `env:"CONTROL_SERVER_PATH"`       // Путь WebSocket, напр. "/ws"
	AuthToken string `env:"CONTROL_SERVER_AUTH_TOKEN"` // Токен авторизации (опционально)
}

// Defaults возвращает конфигурацию с предустановленными значениями по умолчанию.
// Эти значения перекрываются .env, переменными окружения и флагами CLI.
func Defaults() *Config {
	return &Config{
		DebugMode:           false,
		StorePath:           "data/xtion.db",
		BufferSize:          10,
		KeySource:           "hook",
		ScheduleTZ:          "Local",
		InstallTestSchedule: true,
		MediaDir:            "media",
		MediaDefaultGroup:   "GIFGroup",
		MediaFallback:       "test",
		SoundDir:            "Music",
		SoundExt:            "mp3",
		OutputVolume:        0.8,
		// Тайминги эффекта
		EffectDuration:          3 * time.Second,
		GifDelay:                2 * time.Second,
		DefaultRotatingCooldown: 1500 * time.Second,
		SpecialKeyThresholds:    "53:4;51:4;36:4;109:1;7:1",
		// Capture
		CaptureEnabled:    true,
		CaptureDir:        "images/capture",
		CaptureTTLSeconds: 60,
		ControlServer: ControlServerConfig{
			Enabled:  true,
			BindAddr: "127.0.0.1:8081",
			Path:     "/ws",
		},
		WatchDebounce: 200 * time.Millisecond,
	}
}

// NewConfig загружает конфигурацию приложения.
func NewConfig() *Config {
	_ = godotenv.Load()
	cfg, err := Load(flag.CommandLine, os.Args[1:])
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load стартует с дефолтов, затем перекрывает их окружением и флагами из args.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := Defaults()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fs.BoolVar(&cfg.DebugMode, "debug-mode", cfg.DebugMode, "включить режим дебага для отображения доп. инфы")
	fs.StringVar(&cfg.StorePath, "store-path", cfg.StorePath, "путь к файлу SQLite с правилами")
	fs.IntVar(&cfg.BufferSize, "buffer-size", cfg.BufferSize, "сколько последних символов хранит буфер нажатий")
	fs.StringVar(&cfg.KeySource, "key-source", cfg.KeySource, "источник нажатий: hook|none")
	fs.StringVar(&cfg.ScheduleTZ, "schedule-tz", cfg.ScheduleTZ, "часовой пояс расписания ротации (Local, UTC, Europe/Moscow)")
	fs.BoolVar(&cfg.InstallTestSchedule, "install-test-schedule", cfg.InstallTestSchedule, "ставить тестовое расписание, если нет активного слова")
	// Медиа и звук
	fs.StringVar(&cfg.MediaDir, "media-dir", cfg.MediaDir, "папка с GIF и видео")
	fs.StringVar(&cfg.MediaDefaultGroup, "media-default-group", cfg.MediaDefaultGroup, "папка для random без явной папки")
	fs.StringVar(&cfg.MediaFallback, "media-fallback", cfg.MediaFallback, "GIF, если в папке random пусто")
	fs.StringVar(&cfg.SoundDir, "sound-dir", cfg.SoundDir, "папка со звуками")
	fs.StringVar(&cfg.SoundExt, "sound-ext", cfg.SoundExt, "расширение звуков (mp3 или wav)")
	fs.BoolVar(&cfg.SoundMuted, "sound-muted", cfg.SoundMuted, "стартовать без звука до первого unmute")
	fs.Float64Var(&cfg.OutputVolume, "output-volume", cfg.OutputVolume, "громкость для ротационного слова, 0..1")
	// Тайминги
	fs.DurationVar(&cfg.EffectDuration, "effect-duration", cfg.EffectDuration, "длительность эффекта оверлея, напр. 3s")
	fs.DurationVar(&cfg.GifDelay, "gif-delay", cfg.GifDelay, "задержка GIF после старта эффекта, напр. 2s")
	fs.DurationVar(&cfg.DefaultRotatingCooldown, "default-rotating-cooldown", cfg.DefaultRotatingCooldown, "кулдаун ротационного слова без явного значения")
	fs.StringVar(&cfg.SpecialKeyThresholds, "special-key-thresholds", cfg.SpecialKeyThresholds, "пороги специальных клавиш \"код:порог;...\"")
	// Capture
	fs.BoolVar(&cfg.CaptureEnabled, "capture-enabled", cfg.CaptureEnabled, "снимать фоновый кадр для эффекта")
	fs.StringVar(&cfg.CaptureDir, "capture-dir", cfg.CaptureDir, "папка для кадров")
	fs.IntVar(&cfg.CaptureTTLSeconds, "capture-ttl-seconds", cfg.CaptureTTLSeconds, "через сколько секунд кадры удаляются")
	// ControlServer
	fs.BoolVar(&cfg.ControlServer.Enabled, "control-server-enabled", cfg.ControlServer.Enabled, "включить WebSocket управления")
	fs.StringVar(&cfg.ControlServer.BindAddr, "control-server-bind-addr", cfg.ControlServer.BindAddr, "адрес для прослушивания (напр. 127.0.0.1:8081)")
	fs.StringVar(&cfg.ControlServer.Path, "control-server-path", cfg.ControlServer.Path, "путь WebSocket (напр. /ws)")
	fs.StringVar(&cfg.ControlServer.AuthToken, "control-server-auth-token", cfg.ControlServer.AuthToken, "токен авторизации (опционально)")
	fs.DurationVar(&cfg.WatchDebounce, "watch-debounce", cfg.WatchDebounce, "пауза после записи в хранилище перед перезагрузкой правил")
	// Chat/Twitch
	fs.BoolVar(&cfg.TwitchEnabled, "twitch-enabled", cfg.TwitchEnabled, "печатать сообщения чата Twitch в движок")
	fs.StringVar(&cfg.TwitchUsername, "twitch-username", cfg.TwitchUsername, "логин Twitch для подключения к чату")
	fs.StringVar(&cfg.TwitchOAuthToken, "twitch-oauth-token", cfg.TwitchOAuthToken, "OAuth токен Twitch (может быть без префикса oauth:)")
	fs.StringVar(&cfg.TwitchChannel, "twitch-channel", cfg.TwitchChannel, "канал Twitch (без #)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if _, err := ParseThresholds(cfg.SpecialKeyThresholds); err != nil {
		return nil, err
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Location возвращает часовой пояс расписания.
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.ScheduleTZ)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("schedule tz %q: %w", tz, err)
	}
	return loc, nil
}

// ParseThresholds разбирает пороги специальных клавиш "53:4;7:1".
func ParseThresholds(v string) (map[uint16]int, error) {
	out := map[uint16]int{}
	for _, part := range parseListFlag(v, nil) {
		code, n, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("special key threshold %q: want code:threshold", part)
		}
		c, err := strconv.ParseUint(strings.TrimSpace(code), 10, 16)
		if err != nil {
			return nil, fmt.Errorf("special key code %q: %w", code, err)
		}
		t, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil || t < 1 {
			return nil, fmt.Errorf("special key threshold %q: want positive integer", n)
		}
		out[uint16(c)] = t
	}
	return out, nil
}

// parseListFlag разбирает значение флага со списком, разделённым ';'
func parseListFlag(v string, def []string) []string {
	// Пустая строка → дефолт
	if v == "" {
		return def
	}
	parts := strings.Split(v, ";")
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		return def
	}
	return cleaned
}
