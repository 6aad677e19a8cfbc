// Package github 实现 Git 托管来源的文件获取与 ref 解析。
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/scene-hub/scene-hub/internal/crateid"
	"github.com/scene-hub/scene-hub/internal/errs"
	"github.com/scene-hub/scene-hub/internal/fetch"
)

const (
	// DefaultAPIURL 是 GitHub REST API 的默认基础地址。
	DefaultAPIURL = "https://api.github.com"
	// DefaultRawURL 是文件内容分发的默认基础地址。
	DefaultRawURL = "https://raw.githubusercontent.com"
)

// Client 访问 GitHub 的仓库元数据和文件内容。
// 所有请求都需要进程环境提供的访问凭证，缺失属于致命配置错误。
type Client struct {
	httpClient *http.Client
	apiURL     string
	rawURL     string
	token      string
	logger     *logrus.Logger
}

// NewClient 构造 GitHub 客户端。apiURL/rawURL 为空时取默认地址。
func NewClient(httpClient *http.Client, apiURL, rawURL, token string, logger *logrus.Logger) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if rawURL == "" {
		rawURL = DefaultRawURL
	}
	return &Client{
		httpClient: httpClient,
		apiURL:     strings.TrimSuffix(apiURL, "/"),
		rawURL:     strings.TrimSuffix(rawURL, "/"),
		token:      token,
		logger:     logger,
	}
}

// File 返回仓库某个 ref 下指定路径的文件内容。非成功响应是获取失败，
// 不会被静默当作空内容。
func (c *Client) File(ctx context.Context, owner, repo, ref, path string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s/%s/%s/%s", c.rawURL, owner, repo, ref, path)
	return c.get(ctx, url)
}

// DefaultBranch 返回仓库的默认分支名。
func (c *Client) DefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/%s", c.apiURL, owner, repo)
	body, err := c.get(ctx, url)
	if err != nil {
		return "", err
	}

	var payload struct {
		DefaultBranch string `json:"default_branch"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("repo metadata for %s/%s: %w: %w", owner, repo, errs.ErrMalformedData, err)
	}
	if payload.DefaultBranch == "" {
		return "", fmt.Errorf("repo metadata for %s/%s has no default branch: %w", owner, repo, errs.ErrMalformedData)
	}
	return payload.DefaultBranch, nil
}

// LatestCommitHash 返回某个分支的最新提交哈希。
func (c *Client) LatestCommitHash(ctx context.Context, owner, repo, branch string) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/branches/%s", c.apiURL, owner, repo, branch)
	body, err := c.get(ctx, url)
	if err != nil {
		return "", err
	}

	var payload struct {
		Commit struct {
			SHA string `json:"sha"`
		} `json:"commit"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("branch metadata for %s/%s@%s: %w: %w", owner, repo, branch, errs.ErrMalformedData, err)
	}
	if payload.Commit.SHA == "" {
		return "", fmt.Errorf("branch metadata for %s/%s@%s has no commit: %w", owner, repo, branch, errs.ErrMalformedData)
	}
	return payload.Commit.SHA, nil
}

// ResolveRef 处理 "latest" 哨兵：解析默认分支的最新提交；其余 ref 原样返回，
// 可直接用于文件内容地址。
func (c *Client) ResolveRef(ctx context.Context, owner, repo, ref string) (string, error) {
	if ref != crateid.RefLatest {
		return ref, nil
	}
	branch, err := c.DefaultBranch(ctx, owner, repo)
	if err != nil {
		return "", err
	}
	return c.LatestCommitHash(ctx, owner, repo, branch)
}

// ResolveRefToHash 把任意 ref 解析为完整提交哈希：
//  1. "latest" → 默认分支的最新提交；
//  2. 长度不为 40 → 按分支/标签名解析最新提交；
//  3. 长度为 40 → 视为提交哈希原样返回。
//
// 长度启发式是已知近似：40 字符的分支名会被误判，为兼容既有行为予以保留。
func (c *Client) ResolveRefToHash(ctx context.Context, owner, repo, ref string) (string, error) {
	switch {
	case ref == crateid.RefLatest:
		branch, err := c.DefaultBranch(ctx, owner, repo)
		if err != nil {
			return "", err
		}
		return c.LatestCommitHash(ctx, owner, repo, branch)
	case !crateid.IsCommitHash(ref):
		return c.LatestCommitHash(ctx, owner, repo, ref)
	default:
		return ref, nil
	}
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if c.token == "" {
		return nil, fmt.Errorf("github access token not set: %w", errs.ErrConfigMissing)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", fetch.UserAgent)
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github request %s: %w: %w", url, errs.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("github request: %w", &errs.HTTPError{StatusCode: resp.StatusCode, URL: url})
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w: %w", url, errs.ErrUpstreamUnavailable, err)
	}

	if c.logger != nil {
		c.logger.WithFields(logrus.Fields{
			"action": "github_fetch",
			"url":    url,
			"bytes":  len(body),
		}).Debug("github request complete")
	}
	return body, nil
}
