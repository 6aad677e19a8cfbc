package hub

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/scene-hub/scene-hub/internal/crateid"
	"github.com/scene-hub/scene-hub/internal/docstore"
	"github.com/scene-hub/scene-hub/internal/errs"
	"github.com/scene-hub/scene-hub/internal/logging"
	"github.com/scene-hub/scene-hub/internal/manifest"
)

// Ingest 把一个 crate 的 manifest 投影为文档并写入文档存储：
// 先并发拉取全部 scene 文件（任一失败则整体失败，不写入半套文档），
// 再依次写入 crate 文档、scene 文档批次，最后重算家族的 latest 标志。
func (s *Services) Ingest(ctx context.Context, id crateid.CrateID) (*docstore.CrateDoc, []*docstore.SceneDoc, error) {
	manifestBytes, err := s.Manifest(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	m, err := manifest.Parse(manifestBytes)
	if err != nil {
		return nil, nil, err
	}
	pkg, err := m.RequirePackage()
	if err != nil {
		return nil, nil, err
	}

	crate, err := buildCrateDoc(id, pkg)
	if err != nil {
		return nil, nil, err
	}

	scenes, err := s.buildSceneDocs(ctx, id, crate, pkg)
	if err != nil {
		return nil, nil, err
	}

	if err := s.Docs.Crates().Insert(ctx, crate); err != nil {
		return nil, nil, err
	}
	if err := s.Docs.Scenes().InsertMany(ctx, scenes); err != nil {
		return nil, nil, err
	}
	if err := s.RecomputeLatest(ctx, id); err != nil {
		return nil, nil, err
	}

	// 回读 latest 标志，返回的文档与存储状态一致
	for _, doc := range scenes {
		fresh, err := s.Docs.Scenes().Get(ctx, doc.ID)
		if err != nil {
			return nil, nil, err
		}
		doc.IsLatest = fresh.IsLatest
	}

	s.logger.WithFields(logging.CrateFields(originOf(id), id.Path())).
		WithField("scenes", len(scenes)).Info("crate ingested")
	return crate, scenes, nil
}

func buildCrateDoc(id crateid.CrateID, pkg *manifest.Package) (*docstore.CrateDoc, error) {
	if pkg.Name == "" {
		return nil, fmt.Errorf("%w: package name is empty", errs.ErrMalformedData)
	}

	version, err := pkg.ResolvedVersion()
	if err != nil {
		return nil, err
	}

	repository, ok := pkg.ResolvedRepository()
	if !ok && id.IsGitHub() {
		// git 来源缺省回填其托管仓库地址。
		repository = fmt.Sprintf("https://github.com/%s/%s", id.GitHub.Owner, id.GitHub.Repo)
	}
	description, _ := pkg.ResolvedDescription()

	return &docstore.CrateDoc{
		ID:          id.DocID(),
		CrateID:     id,
		Name:        pkg.Name,
		Version:     version.String(),
		Readme:      pkg.ResolvedReadme(),
		Repository:  repository,
		Description: description,
		Keywords:    pkg.ResolvedKeywords(),
		Authors:     pkg.ResolvedAuthors(),
	}, nil
}

// buildSceneDocs 并发拉取 manifest 声明的全部 scene 文件并构建文档。
// 输出顺序与声明顺序一致。
func (s *Services) buildSceneDocs(ctx context.Context, id crateid.CrateID, crate *docstore.CrateDoc, pkg *manifest.Package) ([]*docstore.SceneDoc, error) {
	entries := pkg.SceneEntries()
	if len(entries) == 0 {
		return nil, nil
	}

	deps, err := s.lockedDeps(ctx, id)
	if err != nil {
		return nil, err
	}

	docs := make([]*docstore.SceneDoc, len(entries))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, entry := range entries {
		group.Go(func() error {
			doc, err := s.buildSceneDoc(groupCtx, id, crate, entry, deps)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *Services) buildSceneDoc(ctx context.Context, id crateid.CrateID, crate *docstore.CrateDoc, entry manifest.SceneEntry, deps *manifest.Lockfile) (*docstore.SceneDoc, error) {
	if entry.Name == "" || entry.Path == "" {
		return nil, fmt.Errorf("%w: scene entry needs name and path", errs.ErrMalformedData)
	}

	data, err := s.GetFile(ctx, id, entry.Path)
	if err != nil {
		if isMissingFile(err) {
			return nil, fmt.Errorf("%w: scene file %s not found in %s", errs.ErrIntegrity, entry.Path, id.Path())
		}
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: scene file %s is not valid JSON", errs.ErrMalformedData, entry.Path)
	}

	doc := &docstore.SceneDoc{
		ID:          crateid.NewSceneID(id, entry.Name).DocID(),
		SceneID:     crateid.NewSceneID(id, entry.Name),
		CrateDocRef: crate.ID,
		Name:        entry.Name,
		Description: entry.Description,
		ThumbText:   entry.ThumbText,
		FilePath:    entry.Path,
		Scene:       json.RawMessage(data),
	}
	if entry.App != nil {
		doc.App = &docstore.SceneApp{JSURL: entry.App.JSURL, WasmURL: entry.App.WasmURL}
	}
	if deps != nil && len(entry.Deps) > 0 {
		doc.Deps = deps.ResolveDeps(entry.Deps)
	}
	return doc, nil
}

// lockedDeps 读取锁文件；锁文件不存在视为无依赖。
func (s *Services) lockedDeps(ctx context.Context, id crateid.CrateID) (*manifest.Lockfile, error) {
	data, err := s.Lockfile(ctx, id)
	if err != nil {
		if isMissingFile(err) {
			return nil, nil
		}
		return nil, err
	}
	return manifest.ParseLockfile(data)
}

func originOf(id crateid.CrateID) string {
	if id.IsGitHub() {
		return "github"
	}
	return "registry"
}
