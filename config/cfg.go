package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"vstyle/style"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

// EnvMode is the environment variable overriding configured mode.
const EnvMode = "NODE_ENV"

type (
	PostCSSConfig struct {
		Plugins []string `yaml:"plugins" validate:"dive,oneof=remove-comments discard-empty"`
		From    string   `yaml:"from,omitempty"`
	}

	AutoprefixerConfig struct {
		Enable  bool     `yaml:"enable"`
		Vendors []string `yaml:"vendors,omitempty" validate:"dive,oneof=webkit moz ms"`
		Skip    []string `yaml:"skip,omitempty" validate:"dive,required"`
	}

	CSSNanoConfig struct {
		Safe         *bool `yaml:"safe,omitempty"`
		Autoprefixer *bool `yaml:"autoprefixer,omitempty"`
		Precision    int   `yaml:"precision" validate:"gte=0,lte=20"`
	}

	StyleConfig struct {
		Mode         Mode               `yaml:"mode" validate:"gte=0,lte=1"`
		CacheSize    int                `yaml:"cache_size" validate:"min=1"`
		PostCSS      PostCSSConfig      `yaml:"postcss"`
		Autoprefixer AutoprefixerConfig `yaml:"autoprefixer"`
		CSSNano      CSSNanoConfig      `yaml:"cssnano"`
	}

	CompileConfig struct {
		Workers   int    `yaml:"workers" validate:"gte=0"`
		Extension string `yaml:"extension" validate:"required,startswith=."`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Style     StyleConfig    `yaml:"style"`
		Compile   CompileConfig  `yaml:"compile"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

// Production decides execution mode: non empty NODE_ENV value overrides
// configured mode, command line flag forces production.
func (conf *StyleConfig) Production(env string, flag bool) bool {
	if flag {
		return true
	}
	if env != "" {
		return env == "production"
	}
	return conf.Mode.IsProduction()
}

// Prepare builds transformer options, custom plugins are looked up by name.
func (conf *StyleConfig) Prepare(production bool) (style.Options, error) {
	opts := style.Options{
		Production: production,
		CacheSize:  conf.CacheSize,
		Autoprefix: style.AutoprefixOptions{
			Disable: !conf.Autoprefixer.Enable,
			Vendors: conf.Autoprefixer.Vendors,
			Skip:    conf.Autoprefixer.Skip,
		},
		Minify: style.MinifyOptions{
			Safe:         conf.CSSNano.Safe,
			Autoprefixer: conf.CSSNano.Autoprefixer,
			Precision:    conf.CSSNano.Precision,
		},
	}

	plugins := make([]style.Plugin, 0, len(conf.PostCSS.Plugins))
	for _, name := range conf.PostCSS.Plugins {
		p, err := style.Builtin(name)
		if err != nil {
			return style.Options{}, err
		}
		plugins = append(plugins, p)
	}
	switch {
	case conf.PostCSS.From != "":
		opts.Custom = style.PluginsWithOptions(style.ProcessOptions{From: conf.PostCSS.From}, plugins...)
	case len(plugins) > 0:
		opts.Custom = style.Plugins(plugins...)
	}
	return opts, nil
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to
// provide sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
