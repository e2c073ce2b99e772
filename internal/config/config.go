// Package config loads the FlameContext used by both the session manager
// server and its CLI/executor clients, following the teacher's
// viper-based common/config.Load shape.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/GeauxEric/flame/internal/apperrors"
)

// Application is the opaque runtime descriptor a shim uses to execute
// tasks. It is passed through unmodified by the core.
type Application struct {
	Name              string   `mapstructure:"name" yaml:"name" json:"name"`
	Command           string   `mapstructure:"command" yaml:"command" json:"command"`
	Arguments         []string `mapstructure:"arguments" yaml:"arguments" json:"arguments"`
	Environments      []string `mapstructure:"environments" yaml:"environments" json:"environments"`
	WorkingDirectory  string   `mapstructure:"workingDirectory" yaml:"workingDirectory" json:"workingDirectory"`
}

// FlameContext is the single configuration shape shared by every Flame
// binary (spec §6).
type FlameContext struct {
	Name         string        `mapstructure:"name" yaml:"name" json:"name"`
	Endpoint     string        `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	Slot         string        `mapstructure:"slot" yaml:"slot" json:"slot"`
	Policy       string        `mapstructure:"policy" yaml:"policy" json:"policy"`
	Storage      string        `mapstructure:"storage" yaml:"storage" json:"storage"`
	Applications []Application `mapstructure:"applications" yaml:"applications" json:"applications"`

	// Logging mirrors the teacher's ambient LoggingConfig; it has no
	// analogue in the original flame-conf.yaml but every Flame binary
	// still needs somewhere to configure its log sink.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging" json:"logging"`
}

// LoggingConfig configures the process-wide logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

func (c *FlameContext) String() string {
	return fmt.Sprintf("name: %s, endpoint: %s", c.Name, c.Endpoint)
}

// Application returns the Application descriptor with the given name, or
// false if none is configured. Grounded on the original source's
// FlameContext::get_application.
func (c *FlameContext) Application(name string) (Application, bool) {
	for _, app := range c.Applications {
		if app.Name == name {
			return app, true
		}
	}
	return Application{}, false
}

const defaultConfFile = "flame-conf.yaml"

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".flame", defaultConfFile)
}

// setDefaults installs the spec's documented defaults (§6): policy
// "priority", storage "mem".
func setDefaults(v *viper.Viper) {
	v.SetDefault("name", "flame")
	v.SetDefault("endpoint", "http://127.0.0.1:8080")
	v.SetDefault("slot", "cpu=1,mem=1g")
	v.SetDefault("policy", "priority")
	v.SetDefault("storage", "mem")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load loads FlameContext from fp, or from $HOME/.flame/flame-conf.yaml if
// fp is empty. At least one application is required; an empty list is an
// InvalidConfig error, per spec §6.
func Load(fp string) (*FlameContext, error) {
	if fp == "" {
		fp = defaultConfigPath()
	}

	if info, err := os.Stat(fp); err != nil || info.IsDir() {
		return nil, apperrors.NewInvalidConfig(fmt.Sprintf("<%s> is not a file", fp))
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(fp)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, apperrors.NewInternal("flame-conf", err)
	}

	var ctx FlameContext
	if err := v.Unmarshal(&ctx); err != nil {
		return nil, apperrors.NewInternal("flame-conf", err)
	}

	if len(ctx.Applications) == 0 {
		return nil, apperrors.NewInvalidConfig("no application")
	}

	return &ctx, nil
}

// Endpoint resolves the server endpoint a client should dial: the
// FLAME_SERVER environment variable takes priority over the config file,
// per spec §6.
func Endpoint(ctx *FlameContext) string {
	if v := strings.TrimSpace(os.Getenv("FLAME_SERVER")); v != "" {
		return v
	}
	if ctx != nil {
		return ctx.Endpoint
	}
	return ""
}
