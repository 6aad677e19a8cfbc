// Package crateid 定义 crate 与 scene 的不可变标识。标识的 Path() 字符串同时充当
// 对象存储命名空间前缀与文档主键，对同一标识永远稳定，且不同来源之间不会冲突。
package crateid

import (
	"fmt"
	"path"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// DefaultManifestPath 是仓库根目录的 manifest 文件位置。
const DefaultManifestPath = "Cargo.toml"

// LockfileName 是锁文件的约定文件名。
const LockfileName = "Cargo.lock"

// RegistryCrate 标识 registry 来源的某个具体版本。
// Name 保留原始大小写，registry 边界比较时统一转小写。
type RegistryCrate struct {
	Name    string          `json:"name"`
	Version *semver.Version `json:"version"`
}

// GitCrate 标识 GitHub 来源的某个具体提交。CommitHash 必须是完整的 40 位哈希，
// 未解析的分支名或 "latest" 不允许构造为存储标识。
type GitCrate struct {
	Owner        string `json:"owner"`
	Repo         string `json:"repo"`
	CommitHash   string `json:"commit_hash"`
	ManifestPath string `json:"manifest_path"`
}

// CrateID 是跨来源的 crate 标识，两个指针字段恰有一个非空。
type CrateID struct {
	Registry *RegistryCrate `json:"registry,omitempty"`
	GitHub   *GitCrate      `json:"github,omitempty"`
}

// NewRegistry 构造 registry 来源的标识。
func NewRegistry(name string, version *semver.Version) CrateID {
	return CrateID{Registry: &RegistryCrate{Name: name, Version: version}}
}

// NewGitHub 构造 GitHub 来源的标识，manifestPath 为空时取仓库根 manifest。
func NewGitHub(owner, repo, commitHash, manifestPath string) CrateID {
	if manifestPath == "" {
		manifestPath = DefaultManifestPath
	}
	return CrateID{GitHub: &GitCrate{
		Owner:        owner,
		Repo:         repo,
		CommitHash:   commitHash,
		ManifestPath: manifestPath,
	}}
}

// IsRegistry 报告标识是否来自 registry。
func (id CrateID) IsRegistry() bool { return id.Registry != nil }

// IsGitHub 报告标识是否来自 GitHub。
func (id CrateID) IsGitHub() bool { return id.GitHub != nil }

// Name 返回 crate 名称；GitHub 来源在 manifest 解析前以 repo 名代替。
func (id CrateID) Name() string {
	switch {
	case id.Registry != nil:
		return id.Registry.Name
	case id.GitHub != nil:
		return id.GitHub.Repo
	}
	return ""
}

// Path 返回确定性的、人类可读的标识路径，来源标签是路径的一部分。
func (id CrateID) Path() string {
	switch {
	case id.Registry != nil:
		return fmt.Sprintf("registry/%s/%s", id.Registry.Name, id.Registry.Version)
	case id.GitHub != nil:
		g := id.GitHub
		base := fmt.Sprintf("github/%s/%s/%s", g.Owner, g.Repo, g.CommitHash)
		if dir := ManifestDir(g.ManifestPath); dir != "" {
			return base + "/" + dir
		}
		return base
	}
	return ""
}

// DocID 返回文档存储主键，与 Path 一致。
func (id CrateID) DocID() string { return id.Path() }

// Equal 报告两个标识的来源与全部字段是否相同。
func (id CrateID) Equal(other CrateID) bool {
	switch {
	case id.Registry != nil && other.Registry != nil:
		return id.Registry.Name == other.Registry.Name &&
			id.Registry.Version.Equal(other.Registry.Version)
	case id.GitHub != nil && other.GitHub != nil:
		return *id.GitHub == *other.GitHub
	}
	return false
}

func (id CrateID) String() string { return id.Path() }

// SceneID 标识某个 crate 内声明的一个 scene。
type SceneID struct {
	CrateID   CrateID `json:"crate_id"`
	SceneName string  `json:"scene_name"`
}

// NewSceneID 构造 scene 标识。
func NewSceneID(id CrateID, sceneName string) SceneID {
	return SceneID{CrateID: id, SceneName: sceneName}
}

// Path 返回 scene 的文档主键：crate 路径加 scene 名。
func (s SceneID) Path() string {
	return s.CrateID.Path() + "/" + s.SceneName
}

// DocID 返回文档存储主键，与 Path 一致。
func (s SceneID) DocID() string { return s.Path() }

func (s SceneID) String() string { return s.Path() }

// ManifestDir 返回 manifest 文件所在目录，根目录 manifest 返回空串。
func ManifestDir(manifestPath string) string {
	dir := path.Dir(manifestPath)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

// RelativeToManifestDir 以 manifest 所在目录为基准解析相对文件路径。
// manifest 位于 "crates/foo/Cargo.toml" 时，"scenes/x.json" 解析为
// "crates/foo/scenes/x.json"；根目录 manifest 则原样返回。
func RelativeToManifestDir(manifestPath, filePath string) string {
	dir := ManifestDir(manifestPath)
	if dir == "" {
		return filePath
	}
	return path.Join(dir, filePath)
}

// IsCommitHash 使用长度为 40 的启发式判断 ref 是否为完整提交哈希。
// 已知局限：40 字符的分支名会被误判，保留该行为以兼容既有路由语义。
func IsCommitHash(ref string) bool {
	return len(ref) == 40
}

// RefLatest 是表示“默认分支最新提交”的哨兵 ref。
const RefLatest = "latest"

// IsMovingRef 报告 ref 是否指向一个会移动的目标（latest 或分支/标签名）。
// 这类 ref 的响应不允许被客户端缓存。
func IsMovingRef(ref string) bool {
	return ref == RefLatest || !IsCommitHash(ref)
}

// NormalizeName 返回 registry 边界使用的小写名称。
func NormalizeName(name string) string { return strings.ToLower(name) }
