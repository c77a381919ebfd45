package frame

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfSequence = errors.New("frame number out of sequence")
)

// Handle Store 内记录的索引，只用于查找，不拥有记录
type Handle int

// NoHandle 表示引用不存在
const NoHandle Handle = -1

// Valid 判断句柄是否指向某条记录
func (h Handle) Valid() bool {
	return h >= 0
}

// Store 帧序列存储，只追加，按帧号随机访问
type Store struct {
	records []Record
}

// NewStore 创建空的帧序列存储
func NewStore() *Store {
	return &Store{
		records: make([]Record, 0, 1024),
	}
}

// Append 追加一条记录，帧号必须紧接上一条
func (s *Store) Append(rec Record) (Handle, error) {
	expected := uint32(len(s.records)) + 1
	if rec.Num != expected {
		return NoHandle, fmt.Errorf("%w: expected %d, got %d",
			ErrOutOfSequence, expected, rec.Num)
	}

	s.records = append(s.records, rec)
	return Handle(len(s.records) - 1), nil
}

// Find 按帧号查找记录
func (s *Store) Find(num uint32) (Record, bool) {
	if num == 0 || int(num) > len(s.records) {
		return Record{}, false
	}
	return s.records[num-1], true
}

// At 按句柄取记录
func (s *Store) At(h Handle) (Record, bool) {
	if !h.Valid() || int(h) >= len(s.records) {
		return Record{}, false
	}
	return s.records[h], true
}

// Len 返回记录数
func (s *Store) Len() int {
	return len(s.records)
}

// Last 返回最后一条记录
func (s *Store) Last() (Record, bool) {
	return s.At(Handle(len(s.records) - 1))
}

// Release 一次性释放全部记录，可重复调用
func (s *Store) Release() {
	s.records = nil
}
