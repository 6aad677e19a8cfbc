package hub

import (
	"context"

	"github.com/scene-hub/scene-hub/internal/crateid"
	"github.com/scene-hub/scene-hub/internal/docstore"
)

// RecomputeLatest 重算 crate 家族内 scene 文档的 latest 标志。
// 同一家族的重算串行执行，避免并发摄取时交错翻转标志。
// 以上游当前状态为准：registry 取最高未撤回版本，GitHub 取默认分支头提交。
func (s *Services) RecomputeLatest(ctx context.Context, id crateid.CrateID) error {
	lock := s.familyLock(familyKey(id))
	lock.Lock()
	defer lock.Unlock()

	if id.IsGitHub() {
		return s.recomputeLatestGitHub(ctx, id.GitHub)
	}
	return s.recomputeLatestRegistry(ctx, id.Registry)
}

func familyKey(id crateid.CrateID) string {
	if id.IsGitHub() {
		g := id.GitHub
		return "github/" + g.Owner + "/" + g.Repo + "/" + g.ManifestPath
	}
	return "registry/" + crateid.NormalizeName(id.Registry.Name)
}

func (s *Services) recomputeLatestRegistry(ctx context.Context, rc *crateid.RegistryCrate) error {
	latest, err := s.Registry.LatestVersion(ctx, rc.Name)
	if err != nil {
		return err
	}

	demote, err := s.Docs.Scenes().Find(ctx, docstore.SceneFilter{
		CrateName:  rc.Name,
		NotVersion: latest.String(),
		IsLatest:   docstore.Bool(true),
	})
	if err != nil {
		return err
	}
	promote, err := s.Docs.Scenes().Find(ctx, docstore.SceneFilter{
		CrateName: rc.Name,
		Version:   latest.String(),
		IsLatest:  docstore.Bool(false),
	})
	if err != nil {
		return err
	}

	return s.flipLatest(ctx, demote, promote)
}

func (s *Services) recomputeLatestGitHub(ctx context.Context, gc *crateid.GitCrate) error {
	branch, err := s.GitHub.DefaultBranch(ctx, gc.Owner, gc.Repo)
	if err != nil {
		return err
	}
	head, err := s.GitHub.LatestCommitHash(ctx, gc.Owner, gc.Repo, branch)
	if err != nil {
		return err
	}

	demote, err := s.Docs.Scenes().Find(ctx, docstore.SceneFilter{
		Owner:         gc.Owner,
		Repo:          gc.Repo,
		ManifestPath:  gc.ManifestPath,
		NotCommitHash: head,
		IsLatest:      docstore.Bool(true),
	})
	if err != nil {
		return err
	}
	promote, err := s.Docs.Scenes().Find(ctx, docstore.SceneFilter{
		Owner:        gc.Owner,
		Repo:         gc.Repo,
		ManifestPath: gc.ManifestPath,
		CommitHash:   head,
		IsLatest:     docstore.Bool(false),
	})
	if err != nil {
		return err
	}

	return s.flipLatest(ctx, demote, promote)
}

// flipLatest 翻转两侧文档的标志后一次性批量回写。
func (s *Services) flipLatest(ctx context.Context, demote, promote []*docstore.SceneDoc) error {
	if len(demote) == 0 && len(promote) == 0 {
		return nil
	}

	batch := make([]*docstore.SceneDoc, 0, len(demote)+len(promote))
	for _, doc := range demote {
		doc.IsLatest = false
		batch = append(batch, doc)
	}
	for _, doc := range promote {
		doc.IsLatest = true
		batch = append(batch, doc)
	}
	return s.Docs.Scenes().InsertMany(ctx, batch)
}
