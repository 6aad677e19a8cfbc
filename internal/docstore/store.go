package docstore

import (
	"context"
	"errors"

	"github.com/scene-hub/scene-hub/internal/crateid"
)

// ErrDocNotFound 表示文档不存在。
var ErrDocNotFound = errors.New("document not found")

// Store 是文档存储能力接口。
type Store interface {
	Crates() CrateCollection
	Scenes() SceneCollection

	// Clear 清空两个集合。调用方负责环境策略门禁。
	Clear(ctx context.Context) error
}

// CrateCollection 管理 CrateDoc 文档。
type CrateCollection interface {
	// Insert 以主键幂等写入：同一不可变标识重复插入等同 no-op。
	Insert(ctx context.Context, doc *CrateDoc) error

	// Get 按主键读取；不存在时返回 ErrDocNotFound。
	Get(ctx context.Context, id string) (*CrateDoc, error)
}

// SceneCollection 管理 SceneDoc 文档。
type SceneCollection interface {
	// Insert 以主键 upsert 单个文档。写入幂等且 last-write-wins 安全。
	Insert(ctx context.Context, doc *SceneDoc) error

	// InsertMany 以主键批量 upsert。
	InsertMany(ctx context.Context, docs []*SceneDoc) error

	// Get 按主键读取；不存在时返回 ErrDocNotFound。
	Get(ctx context.Context, id string) (*SceneDoc, error)

	// Find 返回匹配过滤器的全部文档。
	Find(ctx context.Context, filter SceneFilter) ([]*SceneDoc, error)
}

// SceneFilter 是对 scene 集合的结构化查询。零值字段不参与匹配。
type SceneFilter struct {
	// ID 精确匹配文档主键。
	ID string

	// CrateName 匹配 registry 来源的 crate 名（大小写不敏感）。
	CrateName string
	// Version / NotVersion 匹配或排除某个精确版本。
	Version    string
	NotVersion string

	// Owner/Repo/ManifestPath 匹配 GitHub 来源的 crate 家族。
	Owner        string
	Repo         string
	ManifestPath string
	// CommitHash / NotCommitHash 匹配或排除某个提交。
	CommitHash    string
	NotCommitHash string

	// IsLatest 为非 nil 时按 latest 标志过滤。
	IsLatest *bool

	// CrateDocRef 匹配所属 CrateDoc 主键。
	CrateDocRef string
}

// Bool 返回指向 v 的指针，便于内联构造 IsLatest 过滤。
func Bool(v bool) *bool { return &v }

// Matches 报告文档是否满足过滤器的全部条件。
func (f SceneFilter) Matches(doc *SceneDoc) bool {
	if f.ID != "" && doc.ID != f.ID {
		return false
	}
	if f.CrateDocRef != "" && doc.CrateDocRef != f.CrateDocRef {
		return false
	}
	if f.IsLatest != nil && doc.IsLatest != *f.IsLatest {
		return false
	}

	id := doc.SceneID.CrateID
	if f.CrateName != "" {
		if id.Registry == nil {
			return false
		}
		if crateid.NormalizeName(id.Registry.Name) != crateid.NormalizeName(f.CrateName) {
			return false
		}
	}
	if f.Version != "" {
		if id.Registry == nil || id.Registry.Version.String() != f.Version {
			return false
		}
	}
	if f.NotVersion != "" {
		if id.Registry == nil || id.Registry.Version.String() == f.NotVersion {
			return false
		}
	}

	if f.Owner != "" || f.Repo != "" || f.ManifestPath != "" ||
		f.CommitHash != "" || f.NotCommitHash != "" {
		g := id.GitHub
		if g == nil {
			return false
		}
		if f.Owner != "" && g.Owner != f.Owner {
			return false
		}
		if f.Repo != "" && g.Repo != f.Repo {
			return false
		}
		if f.ManifestPath != "" && g.ManifestPath != f.ManifestPath {
			return false
		}
		if f.CommitHash != "" && g.CommitHash != f.CommitHash {
			return false
		}
		if f.NotCommitHash != "" && g.CommitHash == f.NotCommitHash {
			return false
		}
	}
	return true
}
