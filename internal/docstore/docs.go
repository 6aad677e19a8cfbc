// Package docstore 定义 crate/scene 文档模型与文档存储的窄能力接口。
// 生产部署注入外部驱动，内存驱动供开发环境与测试使用。
package docstore

import (
	"encoding/json"

	"github.com/scene-hub/scene-hub/internal/crateid"
)

// CrateDoc 是 manifest 的派生投影。同一 CrateID 指向不可变内容，
// 文档首次摄取后不再更新，只会以同一主键幂等重插。
type CrateDoc struct {
	ID          string          `json:"id"`
	CrateID     crateid.CrateID `json:"crate_id"`
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Readme      string          `json:"readme"`
	Repository  string          `json:"repository,omitempty"`
	Description string          `json:"description,omitempty"`
	Keywords    []string        `json:"keywords"`
	Authors     []string        `json:"authors"`
}

// SceneDoc 是 crate 内一个已声明 scene 的文档。IsLatest 是唯一可变字段，
// 由 latest 维护器翻转；文档从不删除，仅被标志位逻辑取代。
type SceneDoc struct {
	ID          string            `json:"id"`
	SceneID     crateid.SceneID   `json:"scene_id"`
	CrateDocRef string            `json:"crate_doc_ref"`
	IsLatest    bool              `json:"is_latest"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	ThumbText   string            `json:"thumb_text,omitempty"`
	FilePath    string            `json:"file_path"`
	Scene       json.RawMessage   `json:"scene,omitempty"`
	App         *SceneApp         `json:"app,omitempty"`
	Deps        map[string]string `json:"deps,omitempty"`
}

// SceneApp 指向渲染该 scene 的应用产物。
type SceneApp struct {
	JSURL   string `json:"js_url,omitempty"`
	WasmURL string `json:"wasm_url,omitempty"`
}

// Clone 返回文档的深拷贝，驱动在读写边界使用以避免别名共享。
func (d *SceneDoc) Clone() *SceneDoc {
	out := *d
	if d.Scene != nil {
		out.Scene = append(json.RawMessage(nil), d.Scene...)
	}
	if d.App != nil {
		app := *d.App
		out.App = &app
	}
	if d.Deps != nil {
		out.Deps = make(map[string]string, len(d.Deps))
		for k, v := range d.Deps {
			out.Deps[k] = v
		}
	}
	return &out
}

// Clone 返回文档的深拷贝。
func (d *CrateDoc) Clone() *CrateDoc {
	out := *d
	out.Keywords = append([]string(nil), d.Keywords...)
	out.Authors = append([]string(nil), d.Authors...)
	return &out
}
