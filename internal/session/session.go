// Package session 持有一次运行的全部状态：追踪源、帧序列存储、
// 三个帧引用和累计字节计数，并逐帧驱动解析。
package session

import (
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"GoPcapDissect/internal/config"
	"GoPcapDissect/internal/dissect"
	"GoPcapDissect/internal/frame"
	"GoPcapDissect/internal/logger"
	"GoPcapDissect/internal/metrics"
	"GoPcapDissect/internal/source"
)

var (
	ErrSourceOpen    = errors.New("cannot open trace source")
	ErrFrameRead     = errors.New("frame read failed")
	ErrSessionClosed = errors.New("session is closed")
)

// Stats 会话统计
type Stats struct {
	Frames  uint32        `json:"frames"`
	Bytes   uint64        `json:"bytes"`
	First   time.Time     `json:"first"`
	Last    time.Time     `json:"last"`
	Elapsed time.Duration `json:"elapsed"`
}

// Option 会话选项
type Option func(*Session)

// WithMetrics 记录每帧的指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// Session 单次运行的会话状态
//
// ref/prevDis/prevCap 只是 Store 内的句柄，不持有记录。
// 所有字段只由 Next 修改，不支持并发调用。
type Session struct {
	cfg     *config.Config
	src     source.Source
	engine  *dissect.Engine
	store   *frame.Store
	metrics *metrics.Metrics

	ref     frame.Handle
	prevDis frame.Handle
	prevCap frame.Handle
	pinned  map[uint32]struct{}

	count    uint32
	cumBytes uint64
	elapsed  time.Duration
	first    time.Time
	last     time.Time

	live   *dissect.Result
	err    error
	closed bool
}

// Open 打开追踪源并准备读取
//
// 失败时已获取的资源全部释放，返回的错误包装 ErrSourceOpen。
// 会话接管 engine，Close 时一并释放。
func Open(path string, engine *dissect.Engine, cfg *config.Config, opts ...Option) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Session{
		cfg:     cfg,
		engine:  engine,
		ref:     frame.NoHandle,
		prevDis: frame.NoHandle,
		prevCap: frame.NoHandle,
		pinned:  make(map[uint32]struct{}, len(cfg.Time.ReferenceFrames)),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.init(path); err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: %w", ErrSourceOpen, err)
	}

	return s, nil
}

func (s *Session) init(path string) error {
	if s.engine == nil {
		return errors.New("no dissection engine")
	}

	src, err := source.Open(path, source.WithMaxFrameSize(s.cfg.Source.MaxFrameSize))
	if err != nil {
		return err
	}
	s.src = src
	s.store = frame.NewStore()

	for _, num := range s.cfg.Time.ReferenceFrames {
		s.pinned[num] = struct{}{}
	}

	s.engine.SetTimeResolver(s.Resolve)
	if digits, ok := s.cfg.Time.Digits(); ok {
		s.engine.SetTimestampDigits(digits)
	} else {
		s.engine.SetTimestampDigits(src.TimestampDigits())
	}

	logger.Debugf("opened %s: format=%s link=%s", path, src.Format(), src.LinkType())
	return nil
}

// Resolve 按帧号返回帧的绝对时间戳
//
// 依次检查参考帧、上一显示帧、上一捕获帧，都不匹配时再查 Store。
func (s *Session) Resolve(num uint32) (time.Time, bool) {
	if s.store == nil {
		return time.Time{}, false
	}

	for _, h := range [...]frame.Handle{s.ref, s.prevDis, s.prevCap} {
		if rec, ok := s.store.At(h); ok && rec.Num == num {
			return rec.AbsTime, true
		}
	}

	if rec, ok := s.store.Find(num); ok {
		return rec.AbsTime, true
	}
	return time.Time{}, false
}

// Next 读取并解析下一帧
//
// 读完时返回 io.EOF。读取失败返回包装 ErrFrameRead 的错误，
// 之后的调用都返回同一个错误。上一帧的结果在读取前释放。
func (s *Session) Next() (*dissect.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.closed {
		return nil, ErrSessionClosed
	}

	s.live.Release()
	s.live = nil

	hdr, data, err := s.src.Next()
	if err != nil {
		if err == io.EOF {
			s.err = io.EOF
			return nil, io.EOF
		}
		s.err = fmt.Errorf("%w: frame %d: %w", ErrFrameRead, s.count+1, err)
		s.metrics.ObserveReadError()
		log.Printf("Read frame %d failed: %v", s.count+1, err)
		return nil, s.err
	}

	rec := frame.New(s.count+1, hdr, s.cumBytes)
	_, rec.IsRef = s.pinned[rec.Num]
	rec.SetBeforeDissect(s.Resolve, s.num(s.ref), s.num(s.prevDis), s.num(s.prevCap), &s.elapsed)

	start := time.Now()
	res := s.engine.Dissect(rec, s.src.LinkType(), data)
	took := time.Since(start)

	rec.SetAfterDissect(&s.cumBytes)

	h, err := s.store.Append(rec)
	if err != nil {
		res.Release()
		s.err = fmt.Errorf("%w: %w", ErrFrameRead, err)
		return nil, s.err
	}
	s.count = rec.Num
	s.prevCap = h
	s.prevDis = h
	if !s.ref.Valid() || rec.IsRef {
		s.ref = h
	}

	if s.count == 1 {
		s.first = rec.AbsTime
	}
	s.last = rec.AbsTime

	res.Frame = rec
	s.live = res
	s.metrics.ObserveFrame(rec.CapLen, res.Layers, took)
	logger.Debugf("frame %d: %d bytes, layers=%v, took %s", rec.Num, rec.CapLen, res.Layers, took)

	return res, nil
}

func (s *Session) num(h frame.Handle) uint32 {
	if rec, ok := s.store.At(h); ok {
		return rec.Num
	}
	return 0
}

// Frames 返回帧序列存储，Close 之后为 nil
func (s *Session) Frames() *frame.Store {
	return s.store
}

// Stats 返回当前统计
func (s *Session) Stats() Stats {
	return Stats{
		Frames:  s.count,
		Bytes:   s.cumBytes,
		First:   s.first,
		Last:    s.last,
		Elapsed: s.elapsed,
	}
}

// Err 返回终止读取的错误，正常读完时为 nil
func (s *Session) Err() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}

// Close 释放会话资源，可重复调用，部分初始化时也安全
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	s.live.Release()
	s.live = nil

	if s.store != nil {
		s.store.Release()
		s.store = nil
	}

	var err error
	if s.src != nil {
		err = s.src.Close()
		s.src = nil

		log.Printf("Session closed: %d frames, %d bytes", s.count, s.cumBytes)
	}

	if s.engine != nil {
		s.engine.Close()
		s.engine = nil
	}

	s.ref, s.prevDis, s.prevCap = frame.NoHandle, frame.NoHandle, frame.NoHandle
	return err
}
