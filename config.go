package pptdeck

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/connctd/pptdeck/pptx"
)

// Box is a position and size on the slide, in inches.
type Box struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

func (b Box) frame() pptx.Frame {
	return pptx.Frame{X: pptx.Inch(b.X), Y: pptx.Inch(b.Y), W: pptx.Inch(b.W), H: pptx.Inch(b.H)}
}

type TextStyle struct {
	Font  string  `yaml:"font,omitempty"`
	Size  float64 `yaml:"size"`
	Bold  bool    `yaml:"bold,omitempty"`
	Color string  `yaml:"color,omitempty"`
	Fill  string  `yaml:"fill,omitempty"`
}

func (s TextStyle) font() pptx.Font {
	return pptx.Font{Face: s.Font, Size: s.Size, Bold: s.Bold, Color: s.Color}
}

// Layout places the elements of a slide. Content item i is drawn at
// Content shifted down by i times ContentStep.
type Layout struct {
	Title        Box       `yaml:"title"`
	TitleStyle   TextStyle `yaml:"title_style"`
	Content      Box       `yaml:"content"`
	ContentStep  float64   `yaml:"content_step"`
	ContentStyle TextStyle `yaml:"content_style"`
	Code         Box       `yaml:"code"`
	CodeStyle    TextStyle `yaml:"code_style"`
	Image        Box       `yaml:"image"`
}

func DefaultLayout() Layout {
	return Layout{
		Title:        Box{X: 0.5, Y: 0.3, W: 9, H: 0.8},
		TitleStyle:   TextStyle{Size: 28, Bold: true},
		Content:      Box{X: 0.7, Y: 1.2, W: 8.6, H: 0.6},
		ContentStep:  0.6,
		ContentStyle: TextStyle{Font: "Calibri", Size: 22},
		Code:         Box{X: 0.5, Y: 4.5, W: 8, H: 2},
		CodeStyle:    TextStyle{Font: "Consolas", Size: 18, Color: "000000", Fill: "E6E6E6"},
		Image:        Box{X: 5.5, Y: 1.0, W: 3.5, H: 2.5},
	}
}

type Config struct {
	Output         string        `yaml:"output"`
	Addr           string        `yaml:"addr"`
	DBPath         string        `yaml:"db_path"`
	LogLevel       string        `yaml:"log_level"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	Layout         Layout        `yaml:"layout"`
}

func DefaultConfig() Config {
	return Config{
		Output:   "presentation.pptx",
		Addr:     ":8080",
		DBPath:   "pptdeck.db",
		LogLevel: "info",
		Layout:   DefaultLayout(),
	}
}

// LoadConfig decodes the YAML file at path over the defaults and applies
// PPTDECK_* environment overrides. An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		buf, err := ioutil.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.UnmarshalStrict(buf, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.Output = envOr("PPTDECK_OUTPUT", cfg.Output)
	cfg.Addr = envOr("PPTDECK_ADDR", cfg.Addr)
	cfg.DBPath = envOr("PPTDECK_DB_PATH", cfg.DBPath)
	cfg.LogLevel = envOr("PPTDECK_LOG_LEVEL", cfg.LogLevel)
	cfg.FetchTimeout = envDuration("PPTDECK_FETCH_TIMEOUT", cfg.FetchTimeout)
	if v := os.Getenv("PPTDECK_ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Output == "" {
		return errors.New("output must not be empty")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.FetchTimeout < 0 {
		return fmt.Errorf("fetch_timeout must not be negative, got %s", c.FetchTimeout)
	}
	if c.Layout.TitleStyle.Size <= 0 || c.Layout.ContentStyle.Size <= 0 || c.Layout.CodeStyle.Size <= 0 {
		return errors.New("layout font sizes must be positive")
	}
	return nil
}

// Logger builds the process logger at the configured level.
func (c Config) Logger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(c.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	return log
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
