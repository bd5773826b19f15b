package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"card-grader/internal/domain/entity"
)

// Транспорты контроллера подсветки
const (
	TransportSerial = "serial"
	TransportBLE    = "ble"
)

// Алгоритмы масштабирования
const (
	ResizerLanczos = "lanczos"
	ResizerGoCV    = "gocv"
)

type Config struct {
	TelegramToken  string
	AllowedChatIDs []int64

	ModelPath      string
	OnnxRuntimeLib string
	ModelWidth     int
	ModelHeight    int
	MaskBoost      uint8
	ScoreThreshold float32
	CompositeMode  entity.CompositeMode
	Resizer        string

	LightingTransport string
	SerialPort        string
	SerialBaud        int
	BLEScanTimeout    time.Duration

	CameraDevice   int
	RotateCaptures bool
	AckTimeout     time.Duration
	CaptureTimeout time.Duration
	SettleDelay    time.Duration
	PulseCommands  bool

	ReportDB      string
	ReportHistory int

	LogLevel string
}

// Load читает .env и переменные окружения
func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	return FromLookup(os.LookupEnv)
}

// FromLookup собирает конфигурацию из произвольного источника переменных
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	r := reader{lookup: lookup}

	cfg := &Config{
		TelegramToken:     r.str("TELEGRAM_TOKEN", ""),
		AllowedChatIDs:    r.ids("ALLOWED_CHAT_IDS"),
		ModelPath:         r.str("MODEL_PATH", "model/card_defects.onnx"),
		OnnxRuntimeLib:    r.str("ONNXRUNTIME_LIB", ""),
		ModelWidth:        r.integer("MODEL_WIDTH", 800),
		ModelHeight:       r.integer("MODEL_HEIGHT", 1120),
		MaskBoost:         uint8(r.intRange("MASK_BOOST", 100, 0, 255)),
		ScoreThreshold:    float32(r.number("SCORE_THRESHOLD", 0.5)),
		Resizer:           strings.ToLower(r.str("RESIZER", ResizerLanczos)),
		LightingTransport: strings.ToLower(r.str("LIGHTING_TRANSPORT", TransportSerial)),
		SerialPort:        r.str("SERIAL_PORT", ""),
		SerialBaud:        r.integer("SERIAL_BAUD", 115200),
		BLEScanTimeout:    r.duration("BLE_SCAN_TIMEOUT", 10*time.Second),
		CameraDevice:      r.integer("CAMERA_DEVICE", 0),
		RotateCaptures:    r.flag("ROTATE_CAPTURES", false),
		AckTimeout:        r.duration("ACK_TIMEOUT", 5*time.Second),
		CaptureTimeout:    r.duration("CAPTURE_TIMEOUT", 3*time.Second),
		SettleDelay:       r.duration("SETTLE_DELAY", 300*time.Millisecond),
		PulseCommands:     r.flag("PULSE_COMMANDS", false),
		ReportDB:          r.str("REPORT_DB", ""),
		ReportHistory:     r.integer("REPORT_HISTORY", 32),
		LogLevel:          strings.ToLower(r.str("LOG_LEVEL", "info")),
	}

	mode, err := entity.ParseCompositeMode(r.str("COMPOSITE_MODE", string(entity.CompositeOverlay)))
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("COMPOSITE_MODE: %w", err))
	}
	cfg.CompositeMode = mode

	if err := errors.Join(append(r.errs, cfg.validate()...)...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() []error {
	var errs []error
	if c.ModelWidth <= 0 || c.ModelHeight <= 0 {
		errs = append(errs, fmt.Errorf("model size %dx%d must be positive", c.ModelWidth, c.ModelHeight))
	}
	if c.ScoreThreshold < 0 || c.ScoreThreshold > 1 {
		errs = append(errs, fmt.Errorf("SCORE_THRESHOLD %v must be within [0, 1]", c.ScoreThreshold))
	}
	switch c.LightingTransport {
	case TransportSerial, TransportBLE:
	default:
		errs = append(errs, fmt.Errorf("LIGHTING_TRANSPORT %q: expected serial or ble", c.LightingTransport))
	}
	switch c.Resizer {
	case ResizerLanczos, ResizerGoCV:
	default:
		errs = append(errs, fmt.Errorf("RESIZER %q: expected lanczos or gocv", c.Resizer))
	}
	for key, d := range map[string]time.Duration{
		"ACK_TIMEOUT":      c.AckTimeout,
		"CAPTURE_TIMEOUT":  c.CaptureTimeout,
		"BLE_SCAN_TIMEOUT": c.BLEScanTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", key))
		}
	}
	if c.ReportHistory <= 0 {
		errs = append(errs, fmt.Errorf("REPORT_HISTORY %d must be positive", c.ReportHistory))
	}
	if c.SettleDelay < 0 {
		errs = append(errs, errors.New("SETTLE_DELAY must not be negative"))
	}
	return errs
}

// ChatAllowed сообщает, можно ли чату управлять станцией. Пустой список разрешает всех.
func (c *Config) ChatAllowed(chatID int64) bool {
	if len(c.AllowedChatIDs) == 0 {
		return true
	}
	for _, id := range c.AllowedChatIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

type reader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *reader) str(key, def string) string {
	if v, ok := r.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (r *reader) integer(key string, def int) int {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (r *reader) intRange(key string, def, lo, hi int) int {
	n := r.integer(key, def)
	if n < lo || n > hi {
		r.errs = append(r.errs, fmt.Errorf("%s %d must be within [%d, %d]", key, n, lo, hi))
		return def
	}
	return n
}

func (r *reader) number(key string, def float64) float64 {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func (r *reader) flag(key string, def bool) bool {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (r *reader) ids(key string) []int64 {
	v := r.str(key, "")
	if v == "" {
		return nil
	}
	var ids []int64
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
