package hub

import (
	"context"
	"errors"

	"github.com/Masterminds/semver/v3"

	"github.com/scene-hub/scene-hub/internal/crateid"
	"github.com/scene-hub/scene-hub/internal/docstore"
)

// ResolveRegistryCrate 把 name + 版本 token 解析为具体的 registry 标识。
func (s *Services) ResolveRegistryCrate(ctx context.Context, name, versionToken string) (crateid.CrateID, error) {
	version, err := s.Registry.ResolveVersion(ctx, name, versionToken)
	if err != nil {
		return crateid.CrateID{}, err
	}
	return crateid.NewRegistry(name, version), nil
}

// ResolveGitHubCrate 把 ref 解析为提交哈希后构造 GitHub 标识。
func (s *Services) ResolveGitHubCrate(ctx context.Context, owner, repo, ref, manifestPath string) (crateid.CrateID, error) {
	hash, err := s.GitHub.ResolveRefToHash(ctx, owner, repo, ref)
	if err != nil {
		return crateid.CrateID{}, err
	}
	return crateid.NewGitHub(owner, repo, hash, manifestPath), nil
}

// Versions 返回 registry crate 的全部已发布版本。
func (s *Services) Versions(ctx context.Context, name string) ([]*semver.Version, error) {
	return s.Registry.Versions(ctx, name)
}

// CrateDoc 读穿透地返回 crate 文档：命中直接返回，未命中触发摄取。
func (s *Services) CrateDoc(ctx context.Context, id crateid.CrateID) (*docstore.CrateDoc, error) {
	doc, err := s.Docs.Crates().Get(ctx, id.DocID())
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, docstore.ErrDocNotFound) {
		return nil, err
	}

	crate, _, err := s.Ingest(ctx, id)
	if err != nil {
		return nil, err
	}
	return crate, nil
}

// SceneDocs 返回 crate 内全部 scene 文档，必要时先摄取。
func (s *Services) SceneDocs(ctx context.Context, id crateid.CrateID) ([]*docstore.SceneDoc, error) {
	if _, err := s.Docs.Crates().Get(ctx, id.DocID()); err != nil {
		if !errors.Is(err, docstore.ErrDocNotFound) {
			return nil, err
		}
		_, scenes, err := s.Ingest(ctx, id)
		return scenes, err
	}

	return s.Docs.Scenes().Find(ctx, docstore.SceneFilter{CrateDocRef: id.DocID()})
}

// SceneDoc 返回 crate 内指定名字的 scene 文档，必要时先摄取。
// 摄取后仍不存在说明该 crate 未声明此 scene。
func (s *Services) SceneDoc(ctx context.Context, id crateid.CrateID, sceneName string) (*docstore.SceneDoc, error) {
	sceneID := crateid.NewSceneID(id, sceneName)

	doc, err := s.Docs.Scenes().Get(ctx, sceneID.DocID())
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, docstore.ErrDocNotFound) {
		return nil, err
	}

	if _, _, err := s.Ingest(ctx, id); err != nil {
		return nil, err
	}
	return s.Docs.Scenes().Get(ctx, sceneID.DocID())
}
