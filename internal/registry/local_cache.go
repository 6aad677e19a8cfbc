package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/scene-hub/scene-hub/internal/crateid"
)

// LocalCacheRegistry 在直连客户端之前加一层磁盘直读缓存。
// 命中时完全不触网也不节流；重复评估类工作负载因此不会反复排队。
type LocalCacheRegistry struct {
	upstream Registry
	dir      string

	// readOnly 模式只读不写，用于共享只读缓存快照的环境（如 staging）。
	readOnly bool

	// flight 对同一键的并发未命中做合并，保证同键至多一个在途下载。
	flight singleflight.Group
	logger *logrus.Logger
}

// NewLocalCacheRegistry 构造磁盘缓存层。
func NewLocalCacheRegistry(upstream Registry, dir string, readOnly bool, logger *logrus.Logger) *LocalCacheRegistry {
	return &LocalCacheRegistry{
		upstream: upstream,
		dir:      dir,
		readOnly: readOnly,
		logger:   logger,
	}
}

// TarballPath 返回某个版本归档在缓存目录内的确定性位置。
func TarballPath(dir, name, version string) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%s.crate", name, version))
}

// 版本与索引查询不经过磁盘缓存，直接委托上游。

func (r *LocalCacheRegistry) Versions(ctx context.Context, name string) ([]*semver.Version, error) {
	return r.upstream.Versions(ctx, name)
}

func (r *LocalCacheRegistry) LatestVersion(ctx context.Context, name string) (*semver.Version, error) {
	return r.upstream.LatestVersion(ctx, name)
}

func (r *LocalCacheRegistry) ResolveVersion(ctx context.Context, name, token string) (*semver.Version, error) {
	return r.upstream.ResolveVersion(ctx, name, token)
}

func (r *LocalCacheRegistry) Tarball(ctx context.Context, id *crateid.RegistryCrate) ([]byte, error) {
	path := TarballPath(r.dir, id.Name, id.Version.String())

	if data, err := os.ReadFile(path); err == nil {
		return data, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read tarball cache: %w", err)
	}

	value, err, _ := r.flight.Do(path, func() (any, error) {
		// 双检：等待合并期间可能已有写入落盘。
		if data, err := os.ReadFile(path); err == nil {
			return data, nil
		}

		data, err := r.upstream.Tarball(ctx, id)
		if err != nil {
			return nil, err
		}

		if !r.readOnly {
			if err := r.persist(path, data); err != nil {
				return nil, err
			}
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{
				"action":    "tarball_cache_fill",
				"crate":     id.Name,
				"version":   id.Version.String(),
				"bytes":     len(data),
				"read_only": r.readOnly,
			}).Info("tarball fetched from registry")
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return value.([]byte), nil
}

// persist 通过临时文件 + rename 原子落盘。同键内容恒等，覆盖是安全的。
func (r *LocalCacheRegistry) persist(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create tarball cache dir: %w", err)
	}
	tempFile, err := os.CreateTemp(filepath.Dir(path), ".tarball-*")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()

	_, err = tempFile.Write(data)
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return err
	}

	if err := os.Rename(tempName, path); err != nil {
		os.Remove(tempName)
		return err
	}
	return nil
}
