package dissect

import (
	"GoPcapDissect/internal/frame"
)

// Result 单帧的解析结果
//
// Data 引用追踪源的帧缓冲区，只在读取下一帧之前有效。
type Result struct {
	Frame  frame.Record
	Tree   *Node
	Data   []byte
	Layers []string
}

// Release 释放解析树和帧数据引用
func (r *Result) Release() {
	if r == nil {
		return
	}
	r.Tree = nil
	r.Data = nil
	r.Layers = nil
}

// Released 判断结果是否已释放
func (r *Result) Released() bool {
	return r == nil || r.Tree == nil
}
