package stream

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v2"
)

// Config is the ledmotion configuration file.
type Config struct {
	Mqtt struct {
		URL      string `yaml:"url"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		ClientID string `yaml:"clientID"`
		QoS      byte   `yaml:"qos"`
		Topics   struct {
			Stream  string `yaml:"stream"`
			Control string `yaml:"control"`
		} `yaml:"topics"`
	} `yaml:"mqtt"`

	// Pixels is the length of the strip.
	Pixels int `yaml:"pixels"`
	// Seed makes random layouts repeatable between runs.
	Seed     int64          `yaml:"seed"`
	Debug    bool           `yaml:"debug"`
	Playback PlaybackConfig `yaml:"playback"`
	Render   RenderConfig   `yaml:"render"`
	API      APIConfig      `yaml:"api"`
}

// PlaybackConfig controls the virtual clock.
type PlaybackConfig struct {
	FPS   float64 `yaml:"fps"`
	Speed float64 `yaml:"speed"`
	Loop  bool    `yaml:"loop"`
	// Start and End limit playback to a range in seconds. End 0 plays to
	// the end.
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
	// Timing is the name of the timing function scenes scroll with.
	Timing string `yaml:"timing"`
}

// RenderConfig controls headless rendering.
type RenderConfig struct {
	Output   string `yaml:"output"`
	Workers  int    `yaml:"workers"`
	Scale    int    `yaml:"scale"`
	Timeline string `yaml:"timeline"`
}

// APIConfig controls the HTTP control API.
type APIConfig struct {
	Listen string `yaml:"listen"`
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills in every zero value that has a default.
func (c *Config) ApplyDefaults() {
	if c.Mqtt.ClientID == "" {
		c.Mqtt.ClientID = "ledmotion"
	}
	if c.Mqtt.Topics.Stream == "" {
		c.Mqtt.Topics.Stream = "home/xmastree/stream"
	}
	if c.Mqtt.Topics.Control == "" {
		c.Mqtt.Topics.Control = "home/xmastree/control"
	}
	if c.Pixels <= 0 {
		c.Pixels = DefaultPixels
	}
	if c.Playback.FPS <= 0 {
		c.Playback.FPS = 30
	}
	if c.Playback.Speed == 0 {
		c.Playback.Speed = 1
	}
	if c.Playback.Timing == "" {
		c.Playback.Timing = "inOutSine"
	}
	if c.Render.Output == "" {
		c.Render.Output = "out"
	}
	if c.Render.Workers <= 0 {
		c.Render.Workers = 4
	}
	if c.Render.Scale <= 0 {
		c.Render.Scale = 1
	}
	if c.API.Listen == "" {
		c.API.Listen = ":3000"
	}
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	if c.Mqtt.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.Mqtt.QoS)
	}
	if c.Playback.Speed < 0 {
		return fmt.Errorf("playback.speed must not be negative, got %v", c.Playback.Speed)
	}
	if c.Playback.End != 0 && c.Playback.End < c.Playback.Start {
		return fmt.Errorf("playback.end (%v) is before playback.start (%v)", c.Playback.End, c.Playback.Start)
	}
	return nil
}

// ReadConfig decodes a YAML config and applies defaults.
func ReadConfig(r io.Reader) (Config, error) {
	var c Config
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&c); err != nil && err != io.EOF {
		return c, fmt.Errorf("decoding config: %w", err)
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// LoadConfig reads the config file at path.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	return ReadConfig(f)
}
