package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Paths    PathsConfig   `mapstructure:"paths"`
	Runtime  RuntimeConfig `mapstructure:"runtime"`
	Synth    SynthConfig   `mapstructure:"synth"`
	LogLevel string        `mapstructure:"log_level"`
}

type PathsConfig struct {
	ArchivePath string `mapstructure:"archive_path"`
}

type RuntimeConfig struct {
	ORTLibraryPath string `mapstructure:"ort_library_path"`
	ORTAPIVersion  uint32 `mapstructure:"ort_api_version"`
}

type SynthConfig struct {
	Style       string  `mapstructure:"style"`
	StyleWeight float64 `mapstructure:"style_weight"`
	RateScale   float64 `mapstructure:"rate_scale"`
	PitchScale  float64 `mapstructure:"pitch_scale"`
	SplitLines  bool    `mapstructure:"split_lines"`
	Normalize   bool    `mapstructure:"normalize"`
	DCBlock     bool    `mapstructure:"dc_block"`
	FadeInMS    float64 `mapstructure:"fade_in_ms"`
	FadeOutMS   float64 `mapstructure:"fade_out_ms"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			ArchivePath: "models/model.koe",
		},
		Runtime: RuntimeConfig{
			ORTLibraryPath: "",
			ORTAPIVersion:  23,
		},
		Synth: SynthConfig{
			Style:       "neutral",
			StyleWeight: 1.0,
			RateScale:   1.0,
			PitchScale:  1.0,
			SplitLines:  true,
			Normalize:   false,
			DCBlock:     false,
			FadeInMS:    0,
			FadeOutMS:   0,
		},
		LogLevel: "info",
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("paths-archive-path", defaults.Paths.ArchivePath, "Path to the model archive")
	fs.String("runtime-ort-library-path", defaults.Runtime.ORTLibraryPath, "Path to ONNX Runtime shared library")
	fs.String("ort-lib", defaults.Runtime.ORTLibraryPath, "Path to ONNX Runtime shared library (alias for --runtime-ort-library-path)")
	fs.Uint32("runtime-ort-api-version", defaults.Runtime.ORTAPIVersion, "ONNX Runtime C API version")
	fs.String("synth-style", defaults.Synth.Style, "Default style id")
	fs.Float64("synth-style-weight", defaults.Synth.StyleWeight, "Style weight relative to the table mean")
	fs.Float64("synth-rate-scale", defaults.Synth.RateScale, "Speaking-rate scale (>1 is slower)")
	fs.Float64("synth-pitch-scale", defaults.Synth.PitchScale, "Pitch scale applied to the latent pitch channel")
	fs.Bool("synth-split-lines", defaults.Synth.SplitLines, "Synthesize each input line separately")
	fs.Bool("synth-normalize", defaults.Synth.Normalize, "Peak-normalize output audio")
	fs.Bool("synth-dc-block", defaults.Synth.DCBlock, "Remove DC offset from output audio")
	fs.Float64("synth-fade-in-ms", defaults.Synth.FadeInMS, "Fade-in ramp in milliseconds")
	fs.Float64("synth-fade-out-ms", defaults.Synth.FadeOutMS, "Fade-out ramp in milliseconds")
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := v.BindPFlags(opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}
	registerAliases(v)

	v.SetEnvPrefix("KOETTS")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	if err := v.BindEnv("runtime.ort_library_path", "KOETTS_ORT_LIB", "ORT_LIBRARY_PATH"); err != nil {
		return Config{}, fmt.Errorf("bind ort env vars: %w", err)
	}
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("koetts")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("paths.archive_path", c.Paths.ArchivePath)
	v.SetDefault("runtime.ort_library_path", c.Runtime.ORTLibraryPath)
	v.SetDefault("runtime.ort_api_version", c.Runtime.ORTAPIVersion)
	v.SetDefault("synth.style", c.Synth.Style)
	v.SetDefault("synth.style_weight", c.Synth.StyleWeight)
	v.SetDefault("synth.rate_scale", c.Synth.RateScale)
	v.SetDefault("synth.pitch_scale", c.Synth.PitchScale)
	v.SetDefault("synth.split_lines", c.Synth.SplitLines)
	v.SetDefault("synth.normalize", c.Synth.Normalize)
	v.SetDefault("synth.dc_block", c.Synth.DCBlock)
	v.SetDefault("synth.fade_in_ms", c.Synth.FadeInMS)
	v.SetDefault("synth.fade_out_ms", c.Synth.FadeOutMS)
	v.SetDefault("log_level", c.LogLevel)
}

func registerAliases(v *viper.Viper) {
	v.RegisterAlias("paths.archive_path", "paths-archive-path")
	v.RegisterAlias("runtime.ort_library_path", "runtime-ort-library-path")
	v.RegisterAlias("runtime.ort_library_path", "ort-lib")
	v.RegisterAlias("runtime.ort_api_version", "runtime-ort-api-version")
	v.RegisterAlias("synth.style", "synth-style")
	v.RegisterAlias("synth.style_weight", "synth-style-weight")
	v.RegisterAlias("synth.rate_scale", "synth-rate-scale")
	v.RegisterAlias("synth.pitch_scale", "synth-pitch-scale")
	v.RegisterAlias("synth.split_lines", "synth-split-lines")
	v.RegisterAlias("synth.normalize", "synth-normalize")
	v.RegisterAlias("synth.dc_block", "synth-dc-block")
	v.RegisterAlias("synth.fade_in_ms", "synth-fade-in-ms")
	v.RegisterAlias("synth.fade_out_ms", "synth-fade-out-ms")
	v.RegisterAlias("log_level", "log-level")
}
