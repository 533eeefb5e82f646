package encoding_test

import (
	"testing"

	"github.com/grailbio/sampleindex/encoding"
	"github.com/grailbio/sampleindex/errors"
	"github.com/grailbio/testutil/expect"
)

func TestShapeEncoderAppendMerge(t *testing.T) {
	e := encoding.NewShapeEncoder(3)
	expect.NoError(t, e.RegisterSamples([]uint64{10, 10, 3}, 5))
	expect.NoError(t, e.RegisterSamples([]uint64{10, 10, 3}, 3))
	expect.EQ(t, uint64(8), e.NumSamples())

	for i := int64(0); i < 8; i++ {
		v, err := e.Get(i)
		expect.NoError(t, err)
		expect.EQ(t, []uint64{10, 10, 3}, v)
	}
}

func TestShapeEncoderAppendSplit(t *testing.T) {
	e := encoding.NewShapeEncoder(3)
	expect.NoError(t, e.RegisterSamples([]uint64{10, 10, 3}, 5))
	expect.NoError(t, e.RegisterSamples([]uint64{20, 10, 3}, 2))
	expect.EQ(t, uint64(7), e.NumSamples())

	got4, err := e.Get(4)
	expect.NoError(t, err)
	expect.EQ(t, []uint64{10, 10, 3}, got4)

	got5, err := e.Get(5)
	expect.NoError(t, err)
	expect.EQ(t, []uint64{20, 10, 3}, got5)
}

func TestShapeEncoderNegativeIndex(t *testing.T) {
	e := encoding.NewShapeEncoder(2)
	expect.NoError(t, e.RegisterSamples([]uint64{1, 2}, 4))
	got, err := e.Get(-1)
	expect.NoError(t, err)
	expect.EQ(t, []uint64{1, 2}, got)
}

func TestShapeEncoderOutOfBounds(t *testing.T) {
	e := encoding.NewShapeEncoder(2)
	_, err := e.Get(0)
	expect.True(t, errors.Is(err, errors.OutOfBounds))

	expect.NoError(t, e.RegisterSamples([]uint64{1, 2}, 3))
	_, err = e.Get(3)
	expect.True(t, errors.Is(err, errors.OutOfBounds))
	_, err = e.Get(-4)
	expect.True(t, errors.Is(err, errors.OutOfBounds))
}

func TestShapeEncoderArityMismatch(t *testing.T) {
	e := encoding.NewShapeEncoder(3)
	err := e.RegisterSamples([]uint64{1, 2}, 1)
	expect.True(t, errors.Is(err, errors.InvalidArgument))
}

func TestShapeEncoderOverwriteMoveUp(t *testing.T) {
	e := encoding.NewShapeEncoder(3)
	expect.NoError(t, e.RegisterSamples([]uint64{10, 10, 3}, 5))
	expect.NoError(t, e.RegisterSamples([]uint64{20, 10, 3}, 2))

	expect.NoError(t, e.Set(5, []uint64{10, 10, 3}))
	expect.EQ(t, uint64(7), e.NumSamples())

	got5, err := e.Get(5)
	expect.NoError(t, err)
	expect.EQ(t, []uint64{10, 10, 3}, got5)

	got6, err := e.Get(6)
	expect.NoError(t, err)
	expect.EQ(t, []uint64{20, 10, 3}, got6)
}

func TestShapeEncoderOverwriteSplitMiddle(t *testing.T) {
	e := encoding.NewShapeEncoder(3)
	expect.NoError(t, e.RegisterSamples([]uint64{10, 10, 3}, 7))

	expect.NoError(t, e.Set(3, []uint64{20, 10, 3}))
	expect.EQ(t, uint64(7), e.NumSamples())

	for i, want := range [][]uint64{
		{10, 10, 3}, {10, 10, 3}, {10, 10, 3},
		{20, 10, 3},
		{10, 10, 3}, {10, 10, 3}, {10, 10, 3},
	} {
		got, err := e.Get(int64(i))
		expect.NoError(t, err)
		expect.EQ(t, want, got)
	}
}

func TestShapeEncoderOverwriteNoOpLeavesStateUnchanged(t *testing.T) {
	e := encoding.NewShapeEncoder(3)
	expect.NoError(t, e.RegisterSamples([]uint64{10, 10, 3}, 5))
	expect.NoError(t, e.RegisterSamples([]uint64{20, 10, 3}, 2))

	before, err := e.Get(3)
	expect.NoError(t, err)
	expect.NoError(t, e.Set(3, before))

	got, err := e.Get(3)
	expect.NoError(t, err)
	expect.EQ(t, before, got)
	expect.EQ(t, uint64(7), e.NumSamples())
}

func TestShapeEncoderOverwriteReplaceSingleSampleRun(t *testing.T) {
	e := encoding.NewShapeEncoder(2)
	expect.NoError(t, e.RegisterSamples([]uint64{1, 1}, 1))
	expect.NoError(t, e.RegisterSamples([]uint64{2, 2}, 1))
	expect.NoError(t, e.RegisterSamples([]uint64{3, 3}, 1))

	expect.NoError(t, e.Set(1, []uint64{9, 9}))
	expect.EQ(t, uint64(3), e.NumSamples())
	got, err := e.Get(1)
	expect.NoError(t, err)
	expect.EQ(t, []uint64{9, 9}, got)
	got0, err := e.Get(0)
	expect.NoError(t, err)
	expect.EQ(t, []uint64{1, 1}, got0)
	got2, err := e.Get(2)
	expect.NoError(t, err)
	expect.EQ(t, []uint64{3, 3}, got2)
}

func TestShapeEncoderOverwriteSqueeze(t *testing.T) {
	e := encoding.NewShapeEncoder(1)
	expect.NoError(t, e.RegisterSamples([]uint64{1}, 2))
	expect.NoError(t, e.RegisterSamples([]uint64{2}, 1))
	expect.NoError(t, e.RegisterSamples([]uint64{1}, 2))

	expect.NoError(t, e.Set(2, []uint64{1}))
	expect.EQ(t, uint64(5), e.NumSamples())
	for i := int64(0); i < 5; i++ {
		got, err := e.Get(i)
		expect.NoError(t, err)
		expect.EQ(t, []uint64{1}, got)
	}
}

// TestShapeEncoderOverwriteMoveUpWideRun covers the case where the
// overwritten sample sits at the start of a run wider than one sample and
// both neighboring runs would combine with the new value: squeeze doesn't
// apply (it only fires for a width-1 run), so this must still resolve to a
// move-up rather than falling through to split-middle.
func TestShapeEncoderOverwriteMoveUpWideRun(t *testing.T) {
	e := encoding.NewShapeEncoder(1)
	expect.NoError(t, e.RegisterSamples([]uint64{1}, 1))
	expect.NoError(t, e.RegisterSamples([]uint64{2}, 3))
	expect.NoError(t, e.RegisterSamples([]uint64{1}, 2))

	expect.NoError(t, e.Set(1, []uint64{1}))
	expect.EQ(t, uint64(6), e.NumSamples())

	for i, want := range [][]uint64{
		{1}, {1}, {2}, {2}, {1}, {1},
	} {
		got, err := e.Get(int64(i))
		expect.NoError(t, err)
		expect.EQ(t, want, got)
	}
}

// TestShapeEncoderOverwriteMoveDownWideRun is the symmetric case: the
// overwritten sample sits at the end of a wide run with both neighbors
// combining, and must resolve to move-down.
func TestShapeEncoderOverwriteMoveDownWideRun(t *testing.T) {
	e := encoding.NewShapeEncoder(1)
	expect.NoError(t, e.RegisterSamples([]uint64{1}, 1))
	expect.NoError(t, e.RegisterSamples([]uint64{2}, 3))
	expect.NoError(t, e.RegisterSamples([]uint64{1}, 2))

	expect.NoError(t, e.Set(3, []uint64{1}))
	expect.EQ(t, uint64(6), e.NumSamples())

	for i, want := range [][]uint64{
		{1}, {2}, {2}, {1}, {1}, {1},
	} {
		got, err := e.Get(int64(i))
		expect.NoError(t, err)
		expect.EQ(t, want, got)
	}
}

func TestShapeEncoderNumSamplesAt(t *testing.T) {
	e := encoding.NewShapeEncoder(1)
	expect.NoError(t, e.RegisterSamples([]uint64{1}, 4))
	n, err := e.NumSamplesAt(0)
	expect.NoError(t, err)
	expect.EQ(t, uint64(4), n)

	_, err = e.NumSamplesAt(1)
	expect.True(t, errors.Is(err, errors.OutOfBounds))
}
