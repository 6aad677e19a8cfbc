// Package errs 定义服务各层共享的错误分类，调用方通过 errors.Is 区分失败种类。
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFoundUpstream 表示上游（registry 或 GitHub）返回 404 等价结果。
	ErrNotFoundUpstream = errors.New("not found upstream")

	// ErrUpstreamUnavailable 表示网络失败或上游 5xx。
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrMalformedData 表示上游返回了无法解析的 JSON/TOML/归档内容。
	ErrMalformedData = errors.New("malformed upstream data")

	// ErrIntegrity 表示完整 unpack 之后必备文件仍然缺失，属于不可重试错误。
	ErrIntegrity = errors.New("integrity violation")

	// ErrConfigMissing 表示缺少必需的进程配置，例如 GitHub 访问凭证。
	ErrConfigMissing = errors.New("configuration missing")

	// ErrUnsupportedManifest 表示 manifest 缺少 package 段（仅 workspace），不可重试。
	ErrUnsupportedManifest = errors.New("unsupported manifest shape")

	// ErrPolicyRefusal 表示破坏性操作被环境策略拒绝（如生产环境 clear）。
	ErrPolicyRefusal = errors.New("refused by environment policy")
)

// HTTPError 保留上游 HTTP 失败的状态码与 URL，按状态码归入对应分类。
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}

// Unwrap 将 404 映射为 ErrNotFoundUpstream，5xx 映射为 ErrUpstreamUnavailable。
func (e *HTTPError) Unwrap() error {
	switch {
	case e.StatusCode == 404:
		return ErrNotFoundUpstream
	case e.StatusCode >= 500:
		return ErrUpstreamUnavailable
	default:
		return nil
	}
}

// IsNotFound 报告错误是否属于上游未找到分类。
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFoundUpstream)
}

// IsRetryable 报告错误是否值得调用方重试；本层自身从不重试。
func IsRetryable(err error) bool {
	if errors.Is(err, ErrIntegrity) || errors.Is(err, ErrUnsupportedManifest) ||
		errors.Is(err, ErrConfigMissing) || errors.Is(err, ErrPolicyRefusal) {
		return false
	}
	return errors.Is(err, ErrUpstreamUnavailable)
}
