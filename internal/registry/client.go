// Package registry 实现 crates.io 风格的 registry 客户端：
// 稀疏索引的版本列表、节流的归档下载，以及本地磁盘直读缓存。
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/sirupsen/logrus"

	"github.com/scene-hub/scene-hub/internal/crateid"
	"github.com/scene-hub/scene-hub/internal/errs"
	"github.com/scene-hub/scene-hub/internal/fetch"
)

const (
	// DefaultIndexURL 是稀疏索引的默认基础地址。
	DefaultIndexURL = "https://index.crates.io"
	// DefaultAPIURL 是 registry API 的默认基础地址，归档下载经由此处。
	DefaultAPIURL = "https://crates.io"
)

// Registry 是 crate 的版本与归档来源。本地缓存变体与直连变体在构造时选择。
type Registry interface {
	// Versions 返回 crate 的全部已发布版本。
	Versions(ctx context.Context, name string) ([]*semver.Version, error)

	// LatestVersion 返回当前最高的未撤回版本。
	LatestVersion(ctx context.Context, name string) (*semver.Version, error)

	// ResolveVersion 将版本 token 解析为具体版本："latest" 解析为最高版本，
	// 其余 token 按精确版本解析。
	ResolveVersion(ctx context.Context, name, token string) (*semver.Version, error)

	// Tarball 返回指定版本的归档字节。
	Tarball(ctx context.Context, id *crateid.RegistryCrate) ([]byte, error)
}

// Client 直连 registry。所有出站请求共享同一个注入的节流器。
type Client struct {
	httpClient *http.Client
	indexURL   string
	apiURL     string
	throttle   *Throttle
	logger     *logrus.Logger
}

// NewClient 构造直连客户端。indexURL/apiURL 为空时取默认地址。
func NewClient(httpClient *http.Client, indexURL, apiURL string, throttle *Throttle, logger *logrus.Logger) *Client {
	if indexURL == "" {
		indexURL = DefaultIndexURL
	}
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		httpClient: httpClient,
		indexURL:   strings.TrimSuffix(indexURL, "/"),
		apiURL:     strings.TrimSuffix(apiURL, "/"),
		throttle:   throttle,
		logger:     logger,
	}
}

// IndexPath 按固定分桶规则计算稀疏索引路径。名称先转小写：
// 长度 1/2 → "1/<name>"、"2/<name>"；长度 3 → "3/<首字符>/<name>"；
// 长度 ≥4 → "<0-1 位>/<2-3 位>/<name>"。
func IndexPath(name string) string {
	lower := crateid.NormalizeName(name)
	switch len(lower) {
	case 0:
		return ""
	case 1:
		return "1/" + lower
	case 2:
		return "2/" + lower
	case 3:
		return "3/" + lower[0:1] + "/" + lower
	default:
		return lower[0:2] + "/" + lower[2:4] + "/" + lower
	}
}

// indexRecord 是稀疏索引中一行的裁剪视图。
type indexRecord struct {
	Name    string `json:"name"`
	Version string `json:"vers"`
	Yanked  bool   `json:"yanked"`
}

func (c *Client) Versions(ctx context.Context, name string) ([]*semver.Version, error) {
	records, err := c.index(ctx, name)
	if err != nil {
		return nil, err
	}
	versions := make([]*semver.Version, 0, len(records))
	for _, rec := range records {
		v, err := semver.NewVersion(rec.Version)
		if err != nil {
			return nil, fmt.Errorf("index version %q for %s: %w: %w",
				rec.Version, name, errs.ErrMalformedData, err)
		}
		versions = append(versions, v)
	}
	sort.Sort(semver.Collection(versions))
	return versions, nil
}

func (c *Client) LatestVersion(ctx context.Context, name string) (*semver.Version, error) {
	records, err := c.index(ctx, name)
	if err != nil {
		return nil, err
	}
	var latest *semver.Version
	for _, rec := range records {
		if rec.Yanked {
			continue
		}
		v, err := semver.NewVersion(rec.Version)
		if err != nil {
			return nil, fmt.Errorf("index version %q for %s: %w: %w",
				rec.Version, name, errs.ErrMalformedData, err)
		}
		if latest == nil || v.GreaterThan(latest) {
			latest = v
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("no versions for %s: %w", name, errs.ErrNotFoundUpstream)
	}
	return latest, nil
}

func (c *Client) ResolveVersion(ctx context.Context, name, token string) (*semver.Version, error) {
	if token == "latest" {
		return c.LatestVersion(ctx, name)
	}
	v, err := semver.NewVersion(token)
	if err != nil {
		return nil, fmt.Errorf("version token %q: %w: %w", token, errs.ErrMalformedData, err)
	}
	return v, nil
}

func (c *Client) Tarball(ctx context.Context, id *crateid.RegistryCrate) ([]byte, error) {
	url := fmt.Sprintf("%s/api/v1/crates/%s/%s/download",
		c.apiURL, crateid.NormalizeName(id.Name), id.Version)
	return c.get(ctx, url)
}

// index 拉取并解析 crate 的稀疏索引。响应是逐行独立的 JSON 记录，
// 任一行解析失败则整个调用失败，不返回部分结果。
func (c *Client) index(ctx context.Context, name string) ([]indexRecord, error) {
	url := c.indexURL + "/" + IndexPath(name)
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var records []indexRecord
	for _, line := range strings.Split(string(body), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var rec indexRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("index line for %s: %w: %w", name, errs.ErrMalformedData, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// get 执行一次节流的上游请求。节流器是全进程单一资源，不按 crate 分片。
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", fetch.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry request %s: %w: %w", url, errs.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("registry request: %w", &errs.HTTPError{StatusCode: resp.StatusCode, URL: url})
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w: %w", url, errs.ErrUpstreamUnavailable, err)
	}

	if c.logger != nil {
		c.logger.WithFields(logrus.Fields{
			"action": "registry_fetch",
			"url":    url,
			"bytes":  len(body),
		}).Debug("registry request complete")
	}
	return body, nil
}
