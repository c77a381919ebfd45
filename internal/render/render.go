// Package render 把解析结果输出为文本，支持 manual 和 text 两种方式。
package render

import (
	"io"

	"GoPcapDissect/internal/dissect"
)

// Mode 输出方式
type Mode string

const (
	ModeManual Mode = "manual"
	ModeText   Mode = "text"
)

// ParseMode 解析输出方式，无法识别的值一律回退到 text
func ParseMode(s string) Mode {
	if Mode(s) == ModeManual {
		return ModeManual
	}
	return ModeText
}

func (m Mode) String() string {
	return string(m)
}

// Renderer 逐帧输出解析结果
type Renderer interface {
	Render(res *dissect.Result) error
	Close() error
}

// New 按输出方式创建 Renderer
//
// categories 为引擎已登记的类别数，manual 方式用它校验解析树。
func New(mode Mode, w io.Writer, categories int) Renderer {
	if mode == ModeManual {
		return NewManual(w, categories)
	}
	return NewText(w)
}
