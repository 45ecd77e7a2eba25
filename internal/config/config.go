// Package config loads settings from config.yaml, a .env file and COLORIZER_ environment variables.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"io/fs"
	"strings"
	"time"

	"gunpla-colorizer/internal/image"
	"gunpla-colorizer/internal/logging"
	"gunpla-colorizer/internal/service"
	"gunpla-colorizer/pkg/colorutil"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. COLORIZER_SERVICE_BASE_URL.
const EnvPrefix = "COLORIZER"

type Config struct {
	Service ServiceConfig `mapstructure:"service"`
	Overlay OverlayConfig `mapstructure:"overlay"`
	Log     LogConfig     `mapstructure:"log"`
	UI      UIConfig      `mapstructure:"ui"`
}

type ServiceConfig struct {
	BaseURL     string        `mapstructure:"base_url" validate:"required,url"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
	UploadPath  string        `mapstructure:"upload_path" validate:"required"`
	SegmentPath string        `mapstructure:"segment_path" validate:"required"`
	RecolorPath string        `mapstructure:"recolor_path" validate:"required"`
	ImagesPath  string        `mapstructure:"images_path" validate:"required"`
}

type OverlayConfig struct {
	DefaultColor  string  `mapstructure:"default_color" validate:"required,hexcolor"`
	RegistryAlpha float64 `mapstructure:"registry_alpha" validate:"gte=0,lte=1"`
	ProposalColor string  `mapstructure:"proposal_color" validate:"required,hexcolor"`
	ProposalAlpha float64 `mapstructure:"proposal_alpha" validate:"gte=0,lte=1"`
	HoverColor    string  `mapstructure:"hover_color" validate:"required,hexcolor"`
	HoverAlpha    float64 `mapstructure:"hover_alpha" validate:"gte=0,lte=1"`
	MarkerRadius  float32 `mapstructure:"marker_radius" validate:"gt=0"`
}

type LogConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
	MaxSizeMB   int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups  int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays  int    `mapstructure:"max_age_days" validate:"gte=0"`
	Compress    bool   `mapstructure:"compress"`
}

type UIConfig struct {
	WindowWidth  float32 `mapstructure:"window_width" validate:"gt=0"`
	WindowHeight float32 `mapstructure:"window_height" validate:"gt=0"`
	HotReload    bool    `mapstructure:"hot_reload"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.base_url", "http://127.0.0.1:8000")
	v.SetDefault("service.timeout", 120*time.Second)
	v.SetDefault("service.upload_path", "/upload-image/")
	v.SetDefault("service.segment_path", "/segment-image/")
	v.SetDefault("service.recolor_path", "/recolor-image/")
	v.SetDefault("service.images_path", "/uploaded_images/")

	v.SetDefault("overlay.default_color", "#ff0000")
	v.SetDefault("overlay.registry_alpha", 0.5)
	v.SetDefault("overlay.proposal_color", "#9e9e9e")
	v.SetDefault("overlay.proposal_alpha", 0.4)
	v.SetDefault("overlay.hover_color", "#00e5ff")
	v.SetDefault("overlay.hover_alpha", 0.75)
	v.SetDefault("overlay.marker_radius", 6)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", true)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 14)
	v.SetDefault("log.compress", true)

	v.SetDefault("ui.window_width", 1200)
	v.SetDefault("ui.window_height", 800)
	v.SetDefault("ui.hot_reload", false)
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := decode(newViper(false))
	if err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}

// Load reads path, overlaid with .env and environment variables. A missing file
// is not an error: defaults and the environment still apply.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := newViper(true)
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper(env bool) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	if env {
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	}
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and reports every violation at once.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// ClientConfig converts to the HTTP client settings.
func (c *Config) ClientConfig() service.Config {
	return service.Config{
		BaseURL:     c.Service.BaseURL,
		Timeout:     c.Service.Timeout,
		UploadPath:  c.Service.UploadPath,
		SegmentPath: c.Service.SegmentPath,
		RecolorPath: c.Service.RecolorPath,
		ImagesPath:  c.Service.ImagesPath,
	}
}

// LoggerConfig converts to the logger settings.
func (c *Config) LoggerConfig() logging.Config {
	return logging.Config{
		Level:       c.Log.Level,
		Development: c.Log.Development,
		File:        c.Log.File,
		MaxSizeMB:   c.Log.MaxSizeMB,
		MaxBackups:  c.Log.MaxBackups,
		MaxAgeDays:  c.Log.MaxAgeDays,
		Compress:    c.Log.Compress,
	}
}

// Palette converts the overlay section. Colors were validated by Load.
func (c *Config) Palette() image.Palette {
	return image.Palette{
		RegistryAlpha: c.Overlay.RegistryAlpha,
		Proposal:      image.Style{Color: colorOr(c.Overlay.ProposalColor, colorutil.Gray), Alpha: c.Overlay.ProposalAlpha},
		Hover:         image.Style{Color: colorOr(c.Overlay.HoverColor, colorutil.Cyan), Alpha: c.Overlay.HoverAlpha},
	}
}

// DefaultColor is the initial global color selection.
func (c *Config) DefaultColor() color.RGBA {
	return colorOr(c.Overlay.DefaultColor, colorutil.Red)
}

func colorOr(hex string, fallback color.RGBA) color.RGBA {
	c, err := colorutil.ParseHex(hex)
	if err != nil {
		return fallback
	}
	return c
}
