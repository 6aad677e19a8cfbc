package hub

import (
	"context"
	"errors"
	"fmt"

	"github.com/scene-hub/scene-hub/internal/crateid"
	"github.com/scene-hub/scene-hub/internal/errs"
	"github.com/scene-hub/scene-hub/internal/logging"
	"github.com/scene-hub/scene-hub/internal/storage"
)

// GetFile 返回 crate 内一个文件的内容，路径相对 manifest 所在目录。
// registry 来源读取解包后的对象存储；GitHub 来源直接按提交拉取原始文件。
func (s *Services) GetFile(ctx context.Context, id crateid.CrateID, relPath string) ([]byte, error) {
	if id.IsGitHub() {
		g := id.GitHub
		repoPath := crateid.RelativeToManifestDir(g.ManifestPath, relPath)
		return s.GitHub.File(ctx, g.Owner, g.Repo, g.CommitHash, repoPath)
	}

	if err := s.EnsureUnpacked(ctx, id); err != nil {
		return nil, err
	}
	return s.Storage.Get(ctx, storage.UnpackPath(id, relPath))
}

// Manifest 返回 crate 的 Cargo.toml 内容。
// registry 来源解包完成后 manifest 必定存在，缺失视为归档损坏。
func (s *Services) Manifest(ctx context.Context, id crateid.CrateID) ([]byte, error) {
	if id.IsGitHub() {
		g := id.GitHub
		return s.GitHub.File(ctx, g.Owner, g.Repo, g.CommitHash, g.ManifestPath)
	}

	data, err := s.GetFile(ctx, id, crateid.DefaultManifestPath)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s missing %s after unpack", errs.ErrIntegrity, id.Path(), crateid.DefaultManifestPath)
	}
	return data, err
}

// Lockfile 返回 crate 的 Cargo.lock 内容。锁文件位于仓库根目录，
// 与 manifest 所在子目录无关。不存在锁文件属于正常情况。
func (s *Services) Lockfile(ctx context.Context, id crateid.CrateID) ([]byte, error) {
	if id.IsGitHub() {
		g := id.GitHub
		return s.GitHub.File(ctx, g.Owner, g.Repo, g.CommitHash, crateid.LockfileName)
	}

	if err := s.EnsureUnpacked(ctx, id); err != nil {
		return nil, err
	}
	return s.Storage.Get(ctx, storage.UnpackPath(id, crateid.LockfileName))
}

// isMissingFile 报告错误是否为"文件不存在"，对两类来源统一判断。
func isMissingFile(err error) bool {
	return errors.Is(err, storage.ErrNotFound) || errs.IsNotFound(err)
}

// EnsureUnpacked 确保 registry 归档已解包到对象存储。
// 完成标记最后写入，半成品解包在下次请求时整体重做。
func (s *Services) EnsureUnpacked(ctx context.Context, id crateid.CrateID) error {
	if !id.IsRegistry() {
		return fmt.Errorf("%w: unpack only applies to registry crates", errs.ErrMalformedData)
	}

	done, err := s.unpacked(ctx, id)
	if err != nil {
		return err
	}
	if done {
		return nil
	}

	_, err, _ = s.unpackFlight.Do(id.Path(), func() (any, error) {
		done, err := s.unpacked(ctx, id)
		if err != nil || done {
			return nil, err
		}
		return nil, s.unpack(ctx, id)
	})
	return err
}

// unpacked 做两段检查：完成标记与 manifest 须同时存在才算已解包。
func (s *Services) unpacked(ctx context.Context, id crateid.CrateID) (bool, error) {
	marker, err := s.Storage.Exists(ctx, storage.UnpackMarkerPath(id))
	if err != nil || !marker {
		return false, err
	}
	return s.Storage.Exists(ctx, storage.UnpackPath(id, crateid.DefaultManifestPath))
}

func (s *Services) unpack(ctx context.Context, id crateid.CrateID) error {
	tarball, err := s.Registry.Tarball(ctx, id.Registry)
	if err != nil {
		return err
	}

	entries, err := unpackTarGz(tarball)
	if err != nil {
		return err
	}

	hasManifest := false
	objects := make([]storage.Object, 0, len(entries)+1)
	for _, entry := range entries {
		if entry.RelPath == crateid.DefaultManifestPath {
			hasManifest = true
		}
		objects = append(objects, storage.Object{
			Path: storage.UnpackPath(id, entry.RelPath),
			Data: entry.Data,
		})
	}
	if !hasManifest {
		return fmt.Errorf("%w: archive for %s has no %s", errs.ErrIntegrity, id.Path(), crateid.DefaultManifestPath)
	}

	// 标记必须排在批次最后，保证可见时内容已完整落盘。
	objects = append(objects, storage.Object{Path: storage.UnpackMarkerPath(id), Data: []byte{}})

	if err := s.Storage.PutMany(ctx, objects); err != nil {
		return err
	}

	s.logger.WithFields(logging.CrateFields("registry", id.Path())).
		WithField("files", len(entries)).Debug("crate unpacked")
	return nil
}
