package render

import (
	"bufio"
	"encoding/hex"
	"io"
	"strings"

	"GoPcapDissect/internal/dissect"
)

// Dissections 解析树的展开程度
type Dissections int

const (
	DissectionsNone Dissections = iota
	DissectionsCollapsed
	DissectionsExpanded
)

// PrintArgs 打印配置
type PrintArgs struct {
	PrintHex    bool
	Dissections Dissections
}

const indent = "    "

// Printer 带缓冲的解析树打印器
type Printer struct {
	w *bufio.Writer
}

// NewPrinter 在 w 上创建打印流
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: bufio.NewWriter(w)}
}

// Print 按 args 打印一帧
//
// collapsed 只打印各协议层的摘要行，expanded 打印全部字段，
// 每深一层缩进四个空格。
func (p *Printer) Print(res *dissect.Result, args PrintArgs) error {
	if res == nil {
		return nil
	}

	if res.Tree != nil && args.Dissections != DissectionsNone {
		res.Tree.Walk(func(n *dissect.Node, depth int) {
			if n.Rep == "" || depth == 0 {
				return
			}
			if args.Dissections == DissectionsCollapsed && depth > 1 {
				return
			}
			p.w.WriteString(strings.Repeat(indent, depth-1))
			p.w.WriteString(n.Rep)
			p.w.WriteByte('\n')
		})
	}

	if args.PrintHex && len(res.Data) > 0 {
		if args.Dissections != DissectionsNone {
			p.w.WriteByte('\n')
		}
		p.w.WriteString(hex.Dump(res.Data))
	}

	_, err := p.w.WriteString("\n")
	return err
}

// Flush 刷新缓冲
func (p *Printer) Flush() error {
	return p.w.Flush()
}
