package dissect

import (
	"fmt"
	"strings"
)

// Category 子树类别，CategoryNone 表示叶子字段
type Category int

const CategoryNone Category = -1

// Node 解析树节点
//
// Rep 为空的节点只用于组织结构，打印时跳过，但其子节点仍然有效。
type Node struct {
	Abbrev   string
	Rep      string
	Category Category
	Children []*Node
}

// NewRoot 创建无标签的根节点
func NewRoot() *Node {
	return &Node{Category: CategoryNone}
}

// Add 添加一个叶子字段
func (n *Node) Add(abbrev, format string, args ...interface{}) *Node {
	child := &Node{
		Abbrev:   abbrev,
		Rep:      fmt.Sprintf(format, args...),
		Category: CategoryNone,
	}
	n.Children = append(n.Children, child)
	return child
}

// AddTree 添加一个可展开的子树，沿用父节点的类别
func (n *Node) AddTree(abbrev, format string, args ...interface{}) *Node {
	child := n.Add(abbrev, format, args...)
	child.Category = n.Category
	return child
}

// Attach 挂接一个已构建的子节点
func (n *Node) Attach(child *Node) *Node {
	n.Children = append(n.Children, child)
	return child
}

// Walk 先序遍历，depth 从 0 开始
func (n *Node) Walk(fn func(node *Node, depth int)) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(node *Node, depth int), depth int) {
	fn(n, depth)
	for _, child := range n.Children {
		child.walk(fn, depth+1)
	}
}

// Find 按字段缩写查找第一个匹配节点
func (n *Node) Find(abbrev string) *Node {
	if n.Abbrev == abbrev {
		return n
	}
	for _, child := range n.Children {
		if found := child.Find(abbrev); found != nil {
			return found
		}
	}
	return nil
}

// String 以缩进形式输出整棵树，便于调试
func (n *Node) String() string {
	var sb strings.Builder
	n.Walk(func(node *Node, depth int) {
		if node.Rep == "" {
			return
		}
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString(node.Rep)
		sb.WriteByte('\n')
	})
	return sb.String()
}
