// Package config loads recognizer configuration from defaults, an optional
// YAML file, CARDREC_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"image"
	"image/color"
	"log/slog"
	"runtime"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	apperrors "github.com/wetcoding/cardrecognizer/internal/errors"
	"github.com/wetcoding/cardrecognizer/internal/hand"
	"github.com/wetcoding/cardrecognizer/internal/phash"
	"github.com/wetcoding/cardrecognizer/internal/region"
)

// EnvPrefix is prepended to every environment override, e.g. CARDREC_HASH_THRESHOLD.
const EnvPrefix = "CARDREC"

// Rect is an offset and size in image pixels.
type Rect struct {
	X      int `mapstructure:"x"`
	Y      int `mapstructure:"y"`
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

// Rectangle converts r to an image.Rectangle.
func (r Rect) Rectangle() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Layout describes the hand screenshot geometry.
type Layout struct {
	Width      int      `mapstructure:"width"`
	Height     int      `mapstructure:"height"`
	Value      Rect     `mapstructure:"value"`
	Suit       Rect     `mapstructure:"suit"`
	Spacing    int      `mapstructure:"spacing"`
	Slots      int      `mapstructure:"slots"`
	CardColors []string `mapstructure:"card_colors"` // #rrggbb
}

// Config is the resolved configuration shared by both commands.
type Config struct {
	Templates    string       `mapstructure:"templates"`
	Unrecognized string       `mapstructure:"unrecognized"`
	Workers      int          `mapstructure:"workers"`
	HTTPAddr     string       `mapstructure:"http_addr"`
	LogLevel     string       `mapstructure:"log_level"`
	Hash         phash.Config `mapstructure:"hash"`
	Layout       Layout       `mapstructure:"layout"`
}

// RegisterFlags adds the overridable settings to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file")
	fs.String("templates", "patterns", "template library directory")
	fs.String("unrecognized", "unrecognized", "directory for unrecognized regions (empty discards them)")
	fs.Int("workers", 0, "concurrent images in a batch run (0 = one per CPU)")
	fs.String("http-addr", ":8000", "HTTP listen address")
	fs.String("log-level", "info", "debug, info, warn or error")
	fs.String("algorithm", phash.AlgorithmDHash, "hash algorithm: dhash, ahash, phash or dhash64")
	fs.Float64("threshold", phash.DefaultThreshold, "similarity threshold in [0,1)")
}

var flagKeys = map[string]string{
	"templates":    "templates",
	"unrecognized": "unrecognized",
	"workers":      "workers",
	"http-addr":    "http_addr",
	"log-level":    "log_level",
	"algorithm":    "hash.algorithm",
	"threshold":    "hash.threshold",
}

func setDefaults(v *viper.Viper) {
	def := hand.DefaultLayout()
	hash := phash.DefaultConfig()

	v.SetDefault("templates", "patterns")
	v.SetDefault("unrecognized", "unrecognized")
	v.SetDefault("workers", 0)
	v.SetDefault("http_addr", ":8000")
	v.SetDefault("log_level", "info")

	v.SetDefault("hash.algorithm", hash.Algorithm)
	v.SetDefault("hash.size", hash.Size)
	v.SetDefault("hash.threshold", hash.Threshold)
	v.SetDefault("hash.resampler", hash.Resampler)

	v.SetDefault("layout.width", def.Size.X)
	v.SetDefault("layout.height", def.Size.Y)
	v.SetDefault("layout.value.x", def.Value.Min.X)
	v.SetDefault("layout.value.y", def.Value.Min.Y)
	v.SetDefault("layout.value.width", def.Value.Dx())
	v.SetDefault("layout.value.height", def.Value.Dy())
	v.SetDefault("layout.suit.x", def.Suit.Min.X)
	v.SetDefault("layout.suit.y", def.Suit.Min.Y)
	v.SetDefault("layout.suit.width", def.Suit.Dx())
	v.SetDefault("layout.suit.height", def.Suit.Dy())
	v.SetDefault("layout.spacing", def.Spacing)
	v.SetDefault("layout.slots", def.Slots)
	v.SetDefault("layout.card_colors", []string{"#ffffff", "#787878"})
}

// Load resolves the configuration. fs may be nil; when set it must already be parsed.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, apperrors.Wrapf(err, apperrors.CodeConfigInvalid, "bind flag %s", name)
				}
			}
		}
		if f := fs.Lookup("config"); f != nil {
			_ = v.BindPFlag("config", f)
		}
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeConfigInvalid, "read config file").WithMetadata("path", path)
		}
	} else {
		v.SetConfigName("cardrec")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		var notFound viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return nil, apperrors.Wrap(err, apperrors.CodeConfigInvalid, "read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfigInvalid, "decode config")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if c.Templates == "" {
		return apperrors.New(apperrors.CodeConfigInvalid, "templates directory is required")
	}
	if err := c.Hash.Validate(); err != nil {
		return err
	}
	if _, err := c.Layout.Hand(); err != nil {
		return err
	}
	_, err := c.SlogLevel()
	return err
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, apperrors.Wrapf(err, apperrors.CodeConfigInvalid, "log level %q", c.LogLevel)
	}
	return lvl, nil
}

// Hand converts l to a validated hand.Layout.
func (l Layout) Hand() (hand.Layout, error) {
	colors := make([]color.Color, 0, len(l.CardColors))
	for _, s := range l.CardColors {
		c, err := parseHex(s)
		if err != nil {
			return hand.Layout{}, err
		}
		colors = append(colors, c)
	}

	out := hand.Layout{
		Size:    image.Pt(l.Width, l.Height),
		Value:   l.Value.Rectangle(),
		Suit:    l.Suit.Rectangle(),
		Spacing: l.Spacing,
		Slots:   l.Slots,
		Card:    region.NewPalette(colors...),
	}
	if err := out.Validate(); err != nil {
		return hand.Layout{}, err
	}
	return out, nil
}

func parseHex(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return color.RGBA{}, apperrors.Newf(apperrors.CodeConfigInvalid, "color %q is not #rrggbb", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, apperrors.Wrapf(err, apperrors.CodeConfigInvalid, "color %q is not #rrggbb", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
