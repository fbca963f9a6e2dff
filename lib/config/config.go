// Package config loads the minwatch configuration file.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/pescuma/minwatch/lib/minifier"
	"github.com/pescuma/minwatch/lib/stages"
)

const (
	DefaultPort = 2724
	// DefaultFile is looked up in the working directory when no file is given.
	DefaultFile = "minwatch.yaml"
)

type Config struct {
	Debug bool          `yaml:"debug"`
	Tick  time.Duration `yaml:"tick"`
	Port  int           `yaml:"port"`
	Dark  bool          `yaml:"dark"`

	Minifier Minifier `yaml:"minifier"`
	Build    Build    `yaml:"build"`
}

type Minifier struct {
	Version   minifier.Version            `yaml:"version"`
	Versions  []minifier.Version          `yaml:"versions"`
	Validator string                      `yaml:"validator"`
	Verify    bool                        `yaml:"verify"`
	Binaries  map[minifier.Version]string `yaml:"binaries"`
	Options   minifier.Options            `yaml:"options"`
}

type Build struct {
	Command []string `yaml:"command"`
	Dir     string   `yaml:"dir"`
}

func Defaults() *Config {
	return &Config{
		Tick: stages.DefaultTick,
		Port: DefaultPort,
		Minifier: Minifier{
			Version:   minifier.DefaultVersion,
			Versions:  append([]minifier.Version(nil), minifier.KnownVersions...),
			Validator: minifier.ValidatorName,
			Options: minifier.Options{
				Format:     minifier.FormatIndented,
				FieldNames: minifier.SwizzleRGBA,
			},
		},
	}
}

// Load reads the file over the defaults. An empty path loads DefaultFile if it exists.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	optional := path == ""
	if optional {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "could not read config %v", path)
	}

	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse config %v", path)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, errors.Wrapf(err, "invalid config %v", path)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Tick <= 0 {
		return errors.Errorf("tick must be positive: %v", c.Tick)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Errorf("invalid port: %v", c.Port)
	}

	for _, v := range append([]minifier.Version{c.Minifier.Version}, c.Minifier.Versions...) {
		_, err := minifier.ParseVersion(string(v))
		if err != nil {
			return err
		}
	}

	if !lo.Contains(c.Minifier.Versions, c.Minifier.Version) {
		return errors.Errorf("selected minifier version %v is not in the configured versions %v",
			c.Minifier.Version, c.Minifier.Versions)
	}

	return nil
}

// MinifierConfig converts the file section to what minifier.Prepare expects.
func (c *Config) MinifierConfig() *minifier.Config {
	return &minifier.Config{
		Binaries:  c.Minifier.Binaries,
		Validator: c.Minifier.Validator,
		Verify:    c.Minifier.Verify,
		Options:   c.Minifier.Options,
	}
}
