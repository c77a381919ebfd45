package frame

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func resolverFor(stamps map[uint32]time.Time) TimeResolver {
	return func(num uint32) (time.Time, bool) {
		ts, ok := stamps[num]
		return ts, ok
	}
}

// TestFirstFrameHasZeroDeltas 测试首帧的时间差为零
func TestFirstFrameHasZeroDeltas(t *testing.T) {
	rec := New(1, Header{CapLen: 64, Timestamp: time.Unix(100, 0)}, 0)
	var elapsed time.Duration

	rec.SetBeforeDissect(resolverFor(nil), 0, 0, 0, &elapsed)

	assert.Zero(t, rec.RelTime)
	assert.Zero(t, rec.DeltaDis)
	assert.Zero(t, rec.RefNum)
	assert.Zero(t, rec.PrevDisNum)
	assert.Zero(t, elapsed)
}

// TestDeltasFromReferenceAndPrevious 测试相对参考帧与上一帧的时间差
func TestDeltasFromReferenceAndPrevious(t *testing.T) {
	base := time.Unix(100, 0)
	stamps := map[uint32]time.Time{
		1: base,
		2: base.Add(250 * time.Millisecond),
	}
	rec := New(3, Header{CapLen: 64, Timestamp: base.Add(time.Second)}, 128)
	var elapsed time.Duration

	rec.SetBeforeDissect(resolverFor(stamps), 1, 2, 2, &elapsed)

	assert.Equal(t, time.Second, rec.RelTime)
	assert.Equal(t, 750*time.Millisecond, rec.DeltaDis)
	assert.Equal(t, uint32(2), rec.PrevCapNum)
	assert.Equal(t, time.Second, elapsed)
}

// TestElapsedNeverDecreases 测试时间戳倒退时累计时长不减小
func TestElapsedNeverDecreases(t *testing.T) {
	base := time.Unix(100, 0)
	stamps := map[uint32]time.Time{1: base}
	elapsed := 5 * time.Second

	rec := New(2, Header{Timestamp: base.Add(-time.Second)}, 0)
	rec.SetBeforeDissect(resolverFor(stamps), 1, 1, 1, &elapsed)

	assert.Equal(t, -time.Second, rec.RelTime)
	assert.Equal(t, 5*time.Second, elapsed)
}

// TestReferenceFrameIsItsOwnBaseline 测试参考帧自身的相对时间为零
func TestReferenceFrameIsItsOwnBaseline(t *testing.T) {
	base := time.Unix(100, 0)
	rec := New(4, Header{Timestamp: base.Add(3 * time.Second)}, 0)
	rec.IsRef = true

	rec.SetBeforeDissect(resolverFor(map[uint32]time.Time{1: base, 3: base}), 1, 3, 3, nil)

	assert.Zero(t, rec.RefNum)
	assert.Zero(t, rec.RelTime)
	assert.Equal(t, 3*time.Second, rec.DeltaDis)
}

// TestSetAfterDissectAccumulates 测试累计字节计数
func TestSetAfterDissectAccumulates(t *testing.T) {
	var cum uint64
	sizes := []uint32{64, 128, 256}
	want := []uint64{64, 192, 448}

	for i, size := range sizes {
		rec := New(uint32(i+1), Header{CapLen: size}, cum)
		assert.Equal(t, cum, rec.CumBytes)
		rec.SetAfterDissect(&cum)
		assert.Equal(t, want[i], rec.CumBytes)
	}
}
