package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var supportedEnvironments = map[Environment]struct{}{
	EnvDev:     {},
	EnvStaging: {},
	EnvProd:    {},
}

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := &c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("ListenPort", "必须在 1-65535")
	}
	if g.StoragePath == "" {
		return newFieldError("StoragePath", "不能为空")
	}
	if g.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError("UpstreamTimeout", "必须大于 0")
	}

	env := Environment(strings.ToLower(strings.TrimSpace(string(g.Environment))))
	if _, ok := supportedEnvironments[env]; !ok {
		return newFieldError("Environment", "仅支持 dev/staging/prod")
	}
	g.Environment = env

	r := &c.Registry
	if r.ThrottleInterval.DurationValue() <= 0 {
		return newFieldError("Registry.ThrottleInterval", "必须大于 0")
	}
	if r.TarballCachePath == "" {
		return newFieldError("Registry.TarballCachePath", "不能为空")
	}
	if r.IndexURL != "" {
		if err := validateUpstream(r.IndexURL); err != nil {
			return fmt.Errorf("Registry.IndexURL: %w", err)
		}
	}
	if r.APIURL != "" {
		if err := validateUpstream(r.APIURL); err != nil {
			return fmt.Errorf("Registry.APIURL: %w", err)
		}
	}

	gh := &c.GitHub
	if gh.APIURL != "" {
		if err := validateUpstream(gh.APIURL); err != nil {
			return fmt.Errorf("GitHub.APIURL: %w", err)
		}
	}
	if gh.RawURL != "" {
		if err := validateUpstream(gh.RawURL); err != nil {
			return fmt.Errorf("GitHub.RawURL: %w", err)
		}
	}

	return nil
}

func validateUpstream(raw string) error {
	if raw == "" {
		return errors.New("缺少上游地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https，上游: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("上游缺少 Host: %s", raw)
	}
	return nil
}
