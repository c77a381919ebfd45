package render

import (
	"io"

	"GoPcapDissect/internal/dissect"
)

var textArgs = PrintArgs{
	PrintHex:    false,
	Dissections: DissectionsExpanded,
}

// Text 把整棵树交给 Printer，关闭十六进制并完全展开
type Text struct {
	printer *Printer
}

// NewText 创建 text 输出，打印流在整个运行期间复用
func NewText(w io.Writer) *Text {
	return &Text{printer: NewPrinter(w)}
}

func (t *Text) Render(res *dissect.Result) error {
	return t.printer.Print(res, textArgs)
}

// Close 刷新打印流
func (t *Text) Close() error {
	return t.printer.Flush()
}
