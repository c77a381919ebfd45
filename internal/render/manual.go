package render

import (
	"fmt"
	"io"

	"GoPcapDissect/internal/dissect"
)

const manualMarker = "***"

// Manual 先序遍历解析树，每个带描述的节点输出一行
type Manual struct {
	w          io.Writer
	categories int
}

// NewManual 创建 manual 输出
func NewManual(w io.Writer, categories int) *Manual {
	return &Manual{w: w, categories: categories}
}

// Render 输出一帧
//
// 节点类别越界说明解析树已损坏，直接 panic。
func (m *Manual) Render(res *dissect.Result) error {
	if res == nil || res.Tree == nil {
		return nil
	}

	var err error
	res.Tree.Walk(func(n *dissect.Node, _ int) {
		if n.Category < dissect.CategoryNone || int(n.Category) >= m.categories {
			panic(fmt.Sprintf("render: node %q has category %d outside [-1, %d)",
				n.Abbrev, n.Category, m.categories))
		}
		if err != nil || n.Rep == "" {
			return
		}
		_, err = fmt.Fprintf(m.w, "%s\t%s\n", manualMarker, n.Rep)
	})
	return err
}

func (m *Manual) Close() error {
	return nil
}
