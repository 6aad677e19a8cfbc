package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// Environment 标记部署环境，破坏性操作（populate/clear）据此做门禁。
type Environment string

const (
	EnvDev     Environment = "dev"
	EnvStaging Environment = "staging"
	EnvProd    Environment = "prod"
)

// IsProd 报告当前是否为生产环境。
func (e Environment) IsProd() bool { return e == EnvProd }

// GlobalConfig 描述全局运行时行为。
type GlobalConfig struct {
	ListenPort      int         `mapstructure:"ListenPort"`
	LogLevel        string      `mapstructure:"LogLevel"`
	LogFilePath     string      `mapstructure:"LogFilePath"`
	LogMaxSize      int         `mapstructure:"LogMaxSize"`
	LogMaxBackups   int         `mapstructure:"LogMaxBackups"`
	LogCompress     bool        `mapstructure:"LogCompress"`
	Environment     Environment `mapstructure:"Environment"`
	StoragePath     string      `mapstructure:"StoragePath"`
	UpstreamTimeout Duration    `mapstructure:"UpstreamTimeout"`
}

// RegistryConfig 决定 registry 客户端与本地归档缓存的行为。
// TarballCacheReadOnly 用于共享只读缓存快照的环境（如 staging）。
type RegistryConfig struct {
	IndexURL             string   `mapstructure:"IndexURL"`
	APIURL               string   `mapstructure:"APIURL"`
	ThrottleInterval     Duration `mapstructure:"ThrottleInterval"`
	TarballCachePath     string   `mapstructure:"TarballCachePath"`
	TarballCacheReadOnly bool     `mapstructure:"TarballCacheReadOnly"`
}

// GitHubConfig 决定 GitHub 客户端的访问地址。
// Token 只从进程环境变量 GITHUB_API_TOKEN 读取，从不写进配置文件。
type GitHubConfig struct {
	APIURL string `mapstructure:"APIURL"`
	RawURL string `mapstructure:"RawURL"`
	Token  string `mapstructure:"-"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global   GlobalConfig   `mapstructure:",squash"`
	Registry RegistryConfig `mapstructure:"Registry"`
	GitHub   GitHubConfig   `mapstructure:"GitHub"`

	// PopulateCrates 是 -populate 命令摄取的 registry crate 名单，
	// 每个 crate 取其当前最新版本。
	PopulateCrates []string `mapstructure:"PopulateCrates"`
}
