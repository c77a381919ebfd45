// Package dissect 基于 gopacket 的协议解析引擎，把原始帧转换为带标签的解析树。
package dissect

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"GoPcapDissect/internal/frame"
)

var (
	ErrEngineInit     = errors.New("dissection engine init failed")
	ErrPrefixConflict = errors.New("protocol prefix already registered")
)

const (
	prefixFrame     = "frame"
	prefixMalformed = "_ws.malformed"
	prefixUnknown   = "_ws.layer"
)

// Protocol 协议描述
//
// Format 把解码后的层写入 n 的子节点，并返回该层的摘要行。
type Protocol struct {
	Name   string
	Prefix string
	Layer  gopacket.LayerType
	Format func(l gopacket.Layer, n *Node) string
}

type registered struct {
	Protocol
	category Category
}

// Option 引擎选项
type Option func(*Engine)

// WithProtocols 在内置协议之外注册额外协议
func WithProtocols(protocols ...Protocol) Option {
	return func(e *Engine) {
		e.pending = append(e.pending, protocols...)
	}
}

// WithTimestampDigits 固定时间戳的小数位数
func WithTimestampDigits(digits int) Option {
	return func(e *Engine) {
		e.SetTimestampDigits(digits)
	}
}

// Engine 协议解析引擎
type Engine struct {
	protocols  map[gopacket.LayerType]*registered
	prefixes   map[string]struct{}
	categories []string
	pending    []Protocol

	resolve frame.TimeResolver
	digits  int

	frameCategory     Category
	malformedCategory Category
	unknownCategory   Category
}

// NewEngine 创建引擎并注册内置协议
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		protocols: make(map[gopacket.LayerType]*registered),
		prefixes:  make(map[string]struct{}),
		digits:    9,
	}

	e.frameCategory = e.reserve(prefixFrame)
	e.malformedCategory = e.reserve(prefixMalformed)
	e.unknownCategory = e.reserve(prefixUnknown)

	for _, opt := range opts {
		opt(e)
	}

	all := append(builtinProtocols(), e.pending...)
	e.pending = nil
	for _, p := range all {
		if err := e.Register(p); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEngineInit, err)
		}
	}

	return e, nil
}

func (e *Engine) reserve(prefix string) Category {
	e.prefixes[prefix] = struct{}{}
	e.categories = append(e.categories, prefix)
	return Category(len(e.categories) - 1)
}

// Register 注册一个协议，前缀或层类型重复时报错
func (e *Engine) Register(p Protocol) error {
	if p.Prefix == "" || p.Format == nil {
		return fmt.Errorf("protocol %q: prefix and format are required", p.Name)
	}
	if _, ok := e.prefixes[p.Prefix]; ok {
		return fmt.Errorf("%w: %s", ErrPrefixConflict, p.Prefix)
	}
	if existing, ok := e.protocols[p.Layer]; ok {
		return fmt.Errorf("%w: layer %s already handled by %s",
			ErrPrefixConflict, p.Layer, existing.Prefix)
	}

	cat := e.reserve(p.Prefix)
	e.protocols[p.Layer] = &registered{Protocol: p, category: cat}
	return nil
}

// NumCategories 已登记的子树类别数，合法类别为 [-1, NumCategories)
func (e *Engine) NumCategories() int {
	return len(e.categories)
}

// CategoryName 返回类别对应的协议前缀
func (e *Engine) CategoryName(c Category) string {
	if c < 0 || int(c) >= len(e.categories) {
		return ""
	}
	return e.categories[c]
}

// SetTimeResolver 绑定帧时间戳回调，解析过程中同步调用
func (e *Engine) SetTimeResolver(resolve frame.TimeResolver) {
	e.resolve = resolve
}

// SetTimestampDigits 设置时间戳小数位数（0-9）
func (e *Engine) SetTimestampDigits(digits int) {
	if digits < 0 || digits > 9 {
		return
	}
	e.digits = digits
}

// TimestampDigits 当前的时间戳小数位数
func (e *Engine) TimestampDigits() int {
	return e.digits
}

// Close 释放引擎持有的回调
func (e *Engine) Close() {
	e.resolve = nil
}

// Dissect 解析一帧
func (e *Engine) Dissect(rec frame.Record, link layers.LinkType, data []byte) *Result {
	pkt := gopacket.NewPacket(data, link, gopacket.DecodeOptions{NoCopy: true})

	root := NewRoot()
	frameNode := root.Attach(&Node{Abbrev: prefixFrame, Category: e.frameCategory})

	var protos []string
	for _, l := range pkt.Layers() {
		node, prefix := e.dissectLayer(l)
		root.Attach(node)
		protos = append(protos, prefix)
	}

	e.fillFrame(frameNode, rec, link, protos)

	return &Result{
		Frame:  rec,
		Tree:   root,
		Data:   data,
		Layers: protos,
	}
}

func (e *Engine) dissectLayer(l gopacket.Layer) (*Node, string) {
	if df, ok := l.(*gopacket.DecodeFailure); ok {
		n := &Node{Abbrev: prefixMalformed, Category: e.malformedCategory}
		n.Rep = fmt.Sprintf("[Malformed Packet: %v]", df.Error())
		n.Add(prefixMalformed+".len", "[Undecoded Length: %d bytes]", len(df.LayerContents()))
		return n, "malformed"
	}

	if p, ok := e.protocols[l.LayerType()]; ok {
		n := &Node{Abbrev: p.Prefix, Category: p.category}
		n.Rep = p.Format(l, n)
		if n.Rep == "" {
			n.Rep = p.Name
		}
		return n, p.Prefix
	}

	name := l.LayerType().String()
	n := &Node{Abbrev: prefixUnknown, Category: e.unknownCategory}
	n.Rep = fmt.Sprintf("%s (%d bytes)", name, len(l.LayerContents()))
	n.Add(prefixUnknown+".len", "Header Length: %d", len(l.LayerContents()))
	n.Add(prefixUnknown+".payload", "Payload Length: %d", len(l.LayerPayload()))
	return n, strings.ToLower(name)
}

func (e *Engine) fillFrame(n *Node, rec frame.Record, link layers.LinkType, protos []string) {
	n.Rep = fmt.Sprintf("Frame %d: %d bytes on wire (%d bits), %d bytes captured (%d bits)",
		rec.Num, rec.OrigLen, rec.OrigLen*8, rec.CapLen, rec.CapLen*8)

	n.Add("frame.encap_type", "Encapsulation type: %s (%d)", link, int(link))
	n.Add("frame.time", "Arrival Time: %s", formatAbsolute(rec.AbsTime, e.digits))
	n.Add("frame.time_epoch", "Epoch Time: %s seconds", formatEpoch(rec.AbsTime, e.digits))

	if rec.IsRef {
		n.Add("frame.ref_time", "[This is a Time Reference frame]")
	}

	var deltaCap time.Duration
	if rec.PrevCapNum != 0 && e.resolve != nil {
		if prev, ok := e.resolve(rec.PrevCapNum); ok {
			deltaCap = rec.AbsTime.Sub(prev)
		}
	}
	n.Add("frame.time_delta", "[Time delta from previous captured frame: %s seconds]",
		formatSeconds(deltaCap, e.digits))
	n.Add("frame.time_delta_displayed", "[Time delta from previous displayed frame: %s seconds]",
		formatSeconds(rec.DeltaDis, e.digits))
	n.Add("frame.time_relative", "[Time since reference or first frame: %s seconds]",
		formatSeconds(rec.RelTime, e.digits))

	n.Add("frame.number", "Frame Number: %d", rec.Num)
	n.Add("frame.len", "Frame Length: %d bytes (%d bits)", rec.OrigLen, rec.OrigLen*8)
	n.Add("frame.cap_len", "Capture Length: %d bytes (%d bits)", rec.CapLen, rec.CapLen*8)
	n.Add("frame.offset", "[File Offset: %d]", rec.Offset)
	n.Add("frame.protocols", "[Protocols in frame: %s]", strings.Join(protos, ":"))
}
