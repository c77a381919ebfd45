package frame

import (
	"time"
)

// Header 追踪源报告的帧头信息
type Header struct {
	CapLen    uint32    // 实际捕获长度
	OrigLen   uint32    // 线路上的原始长度
	Offset    int64     // 帧在追踪源中的起始位置
	Timestamp time.Time // 捕获时间戳
}

// TimeResolver 按帧号解析绝对时间戳
type TimeResolver func(num uint32) (time.Time, bool)

// Record 帧元数据记录
//
// 记录在 Frame Reader 中构建完成后插入 Store，之后不再修改。
// 记录不持有帧数据本身。
type Record struct {
	Num      uint32    `json:"num"`
	Offset   int64     `json:"offset"`
	CapLen   uint32    `json:"cap_len"`
	OrigLen  uint32    `json:"orig_len"`
	AbsTime  time.Time `json:"abs_time"`
	CumBytes uint64    `json:"cum_bytes"`

	// 参考帧与前驱帧，0 表示不存在
	RefNum     uint32 `json:"ref_num,omitempty"`
	PrevDisNum uint32 `json:"prev_dis_num,omitempty"`
	PrevCapNum uint32 `json:"prev_cap_num,omitempty"`
	IsRef      bool   `json:"is_ref,omitempty"`

	RelTime  time.Duration `json:"rel_time"`  // 距参考帧（或首帧）
	DeltaDis time.Duration `json:"delta_dis"` // 距上一显示帧
}

// New 根据帧头和累计字节快照创建记录
func New(num uint32, hdr Header, cumBytes uint64) Record {
	return Record{
		Num:      num,
		Offset:   hdr.Offset,
		CapLen:   hdr.CapLen,
		OrigLen:  hdr.OrigLen,
		AbsTime:  hdr.Timestamp,
		CumBytes: cumBytes,
	}
}

// SetBeforeDissect 计算解析前需要的时间字段
//
// refNum/prevDisNum/prevCapNum 为 0 时对应的时间差保持为零。
// elapsed 只在新的相对时间更大时前进，时间戳倒退不会让它减小。
func (r *Record) SetBeforeDissect(resolve TimeResolver, refNum, prevDisNum, prevCapNum uint32, elapsed *time.Duration) {
	r.PrevDisNum = prevDisNum
	r.PrevCapNum = prevCapNum
	r.RefNum = refNum
	if r.IsRef {
		// 自身即参考帧
		r.RefNum = 0
	}

	r.RelTime = 0
	if r.RefNum != 0 {
		if ts, ok := resolve(r.RefNum); ok {
			r.RelTime = r.AbsTime.Sub(ts)
		}
	}
	if elapsed != nil && r.RelTime > *elapsed {
		*elapsed = r.RelTime
	}

	r.DeltaDis = 0
	if r.PrevDisNum != 0 {
		if ts, ok := resolve(r.PrevDisNum); ok {
			r.DeltaDis = r.AbsTime.Sub(ts)
		}
	}
}

// SetAfterDissect 把本帧的捕获长度计入累计字节计数
func (r *Record) SetAfterDissect(cumBytes *uint64) {
	*cumBytes += uint64(r.CapLen)
	r.CumBytes = *cumBytes
}
