package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	// 配置文件名（不含扩展名）
	configName = "pcapdissect"
	// 环境变量前缀，例如 PCAPDISSECT_OUTPUT_MODE
	envPrefix = "PCAPDISSECT"
)

// SourceConfig 追踪源配置
type SourceConfig struct {
	MaxFrameSize uint32 `yaml:"max_frame_size" mapstructure:"max_frame_size"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	Mode string `yaml:"mode" mapstructure:"mode"`
}

// TimeConfig 时间显示配置
type TimeConfig struct {
	Precision       string   `yaml:"precision" mapstructure:"precision"`
	ReferenceFrames []uint32 `yaml:"reference_frames" mapstructure:"reference_frames"`
}

// MetricsConfig 指标导出配置
type MetricsConfig struct {
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// LogConfig 日志配置
type LogConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// Config 运行配置
type Config struct {
	Source  SourceConfig  `yaml:"source" mapstructure:"source"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Time    TimeConfig    `yaml:"time" mapstructure:"time"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

var precisionDigits = map[string]int{
	"s":  0,
	"ms": 3,
	"us": 6,
	"ns": 9,
}

// Digits 返回固定的时间戳小数位数，auto 时返回 false
func (t TimeConfig) Digits() (int, bool) {
	d, ok := precisionDigits[t.Precision]
	return d, ok
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Source.MaxFrameSize == 0 {
		return errors.New("source.max_frame_size must be positive")
	}
	if _, ok := precisionDigits[c.Time.Precision]; !ok && c.Time.Precision != "auto" {
		return fmt.Errorf("time.precision: unsupported value %q", c.Time.Precision)
	}
	for _, num := range c.Time.ReferenceFrames {
		if num == 0 {
			return errors.New("time.reference_frames: frame numbers start at 1")
		}
	}
	return nil
}

// Default 返回全部使用默认值的配置
func Default() *Config {
	v := viper.New()
	setDefaultValues(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(err)
	}
	return &cfg
}

// Load 加载配置
//
// path 为空时依次在 ./configs 和当前目录查找 pcapdissect.yaml，
// 找不到文件时使用默认值。环境变量优先于文件。
func Load(path string) (*Config, error) {
	return load(viper.New(), path)
}

func load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// 设置环境变量前缀
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaultValues(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &cfg, nil
}

// setDefaultValues 设置默认值
func setDefaultValues(v *viper.Viper) {
	v.SetDefault("source.max_frame_size", 262144)

	v.SetDefault("output.mode", "text")

	v.SetDefault("time.precision", "auto")
	v.SetDefault("time.reference_frames", []uint32{})

	v.SetDefault("metrics.textfile", "")

	v.SetDefault("log.verbose", false)
}
