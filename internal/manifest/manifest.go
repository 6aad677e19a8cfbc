// Package manifest 解析 crate 的 manifest（Cargo.toml）与锁文件（Cargo.lock）。
//
// 可继承字段（version、readme、description、keywords、authors、repository）在
// TOML 中要么是本地值，要么是 `{ workspace = true }` 表。本服务只处理单个
// manifest 文件，从不跨文件做 workspace 查找：非本地值一律落到文档化的默认值。
package manifest

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/pelletier/go-toml/v2"

	"github.com/scene-hub/scene-hub/internal/errs"
)

// DefaultVersion 是 manifest 未声明本地 version 时采用的版本。
const DefaultVersion = "0.0.1"

// DefaultReadme 是 manifest 未声明本地 readme 时采用的文件名。
const DefaultReadme = "README.md"

// Manifest 是 manifest 文件的顶层结构。只有 [package] 段受支持；
// 仅含 [workspace] 的 manifest 不是合法的 crate 标识目标。
type Manifest struct {
	Package *Package `toml:"package"`
}

// Package 对应 [package] 段。可继承字段使用 any 承载，
// 因为它们既可能是本地标量也可能是 workspace 占位表。
type Package struct {
	Name        string    `toml:"name"`
	Version     any       `toml:"version"`
	Readme      any       `toml:"readme"`
	Description any       `toml:"description"`
	Keywords    any       `toml:"keywords"`
	Authors     any       `toml:"authors"`
	Repository  any       `toml:"repository"`
	Metadata    *Metadata `toml:"metadata"`
}

// Metadata 对应 [package.metadata]，scene 声明位于 [[package.metadata.scene]]。
type Metadata struct {
	Scenes []SceneEntry `toml:"scene"`
}

// SceneEntry 是 manifest 中声明的一个 scene。
type SceneEntry struct {
	Name        string    `toml:"name"`
	Description string    `toml:"description"`
	ThumbText   string    `toml:"thumb-text"`
	Path        string    `toml:"path"`
	Deps        []string  `toml:"deps"`
	App         *AppEntry `toml:"app"`
}

// AppEntry 指向渲染该 scene 的应用产物。
type AppEntry struct {
	JSURL   string `toml:"js-url"`
	WasmURL string `toml:"wasm-url"`
}

// Parse 解析 manifest 字节。语法错误归入 ErrMalformedData。
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w: %w", errs.ErrMalformedData, err)
	}
	return &m, nil
}

// RequirePackage 返回 [package] 段；缺失时归入 ErrUnsupportedManifest。
func (m *Manifest) RequirePackage() (*Package, error) {
	if m.Package == nil {
		return nil, fmt.Errorf("manifest has no package section: %w", errs.ErrUnsupportedManifest)
	}
	return m.Package, nil
}

// ResolvedVersion 返回本地 version，未声明或继承时采用 DefaultVersion。
func (p *Package) ResolvedVersion() (*semver.Version, error) {
	raw, ok := localString(p.Version)
	if !ok {
		raw = DefaultVersion
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("package version %q: %w: %w", raw, errs.ErrMalformedData, err)
	}
	return v, nil
}

// ResolvedReadme 返回 readme 文件名；readme 也可能是布尔开关，非字符串时取默认值。
func (p *Package) ResolvedReadme() string {
	if s, ok := localString(p.Readme); ok {
		return s
	}
	return DefaultReadme
}

// ResolvedDescription 返回本地 description；继承或缺失时返回 false。
func (p *Package) ResolvedDescription() (string, bool) {
	return localString(p.Description)
}

// ResolvedRepository 返回本地 repository URL；继承或缺失时返回 false。
func (p *Package) ResolvedRepository() (string, bool) {
	return localString(p.Repository)
}

// ResolvedKeywords 返回本地 keywords，继承或缺失时为空集合。
func (p *Package) ResolvedKeywords() []string {
	return localStrings(p.Keywords)
}

// ResolvedAuthors 返回本地 authors，继承或缺失时为空集合。
func (p *Package) ResolvedAuthors() []string {
	return localStrings(p.Authors)
}

// SceneEntries 返回 manifest 声明的 scene 列表，无 metadata 时为空。
func (p *Package) SceneEntries() []SceneEntry {
	if p.Metadata == nil {
		return nil
	}
	return p.Metadata.Scenes
}

// localString 仅接受本地标量字符串；workspace 占位表和其他类型都视为未声明。
func localString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func localStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
