package encoding_test

import (
	"testing"

	"github.com/grailbio/sampleindex/encoding"
	"github.com/grailbio/sampleindex/errors"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

func TestChunkIDEncoderStraddle(t *testing.T) {
	e := encoding.NewChunkIDEncoder()
	a := e.GenerateChunkID()
	expect.NoError(t, e.RegisterSamplesToLastChunkID(3))

	b := e.GenerateChunkID()
	expect.NoError(t, e.RegisterSamplesToLastChunkID(0))

	connecting, err := e.RegisterConnectionToLastChunkID()
	expect.NoError(t, err)
	expect.EQ(t, encoding.NameFromID(a), connecting)

	expect.NoError(t, e.RegisterSamplesToLastChunkID(2))
	expect.EQ(t, uint64(5), e.NumSamples())

	// A's run ends at sample 2 (3 samples registered from the wrapped -1
	// seed: -1+3 wraps to 2) and connectivity[A] fires exactly there, so
	// sample 2 itself is the straddling one.
	got2, err := e.Get(2)
	expect.NoError(t, err)
	expect.EQ(t, []uint64{a, b}, got2)

	got3, err := e.Get(3)
	expect.NoError(t, err)
	expect.EQ(t, []uint64{b}, got3)

	got4, err := e.Get(4)
	expect.NoError(t, err)
	expect.EQ(t, []uint64{b}, got4)
}

func TestChunkIDEncoderRegisterSamplesRequiresChunk(t *testing.T) {
	e := encoding.NewChunkIDEncoder()
	err := e.RegisterSamplesToLastChunkID(1)
	expect.True(t, errors.Is(err, errors.InvalidState))
}

func TestChunkIDEncoderRegisterZeroSamplesRequiresPriorChunk(t *testing.T) {
	e := encoding.NewChunkIDEncoder()
	e.GenerateChunkID()
	err := e.RegisterSamplesToLastChunkID(0)
	expect.True(t, errors.Is(err, errors.InvalidState))
}

func TestChunkIDEncoderRegisterConnectionRequiresTwoChunks(t *testing.T) {
	e := encoding.NewChunkIDEncoder()
	e.GenerateChunkID()
	_, err := e.RegisterConnectionToLastChunkID()
	expect.True(t, errors.Is(err, errors.InvalidState))
}

func TestChunkIDEncoderGetLocalSampleIndex(t *testing.T) {
	e := encoding.NewChunkIDEncoder()
	e.GenerateChunkID()
	expect.NoError(t, e.RegisterSamplesToLastChunkID(3))
	e.GenerateChunkID()
	expect.NoError(t, e.RegisterSamplesToLastChunkID(2))

	local, err := e.GetLocalSampleIndex(4)
	expect.NoError(t, err)
	expect.EQ(t, uint64(1), local)
}

func TestNameFromIDRoundTrip(t *testing.T) {
	expect.EQ(t, "0", encoding.NameFromID(0))
	expect.EQ(t, "ff", encoding.NameFromID(255))

	for _, id := range []uint64{0, 1, 255, 1 << 40} {
		name := encoding.NameFromID(id)
		got, err := encoding.IDFromName(name)
		expect.NoError(t, err)
		expect.EQ(t, id, got)
	}

	got, err := encoding.IDFromName("FF")
	expect.NoError(t, err)
	expect.EQ(t, uint64(255), got)

	_, err = encoding.IDFromName("not-hex")
	expect.True(t, errors.Is(err, errors.InvalidArgument))
}

// TestChunkIDEncoderMultiChunkIngest exercises a longer sequence of chunk
// opens, straddles, and registrations. Each step builds on the encoder
// state the previous step left behind, so a setup failure partway through
// would make every later assertion meaningless noise rather than a real
// signal; require aborts the test immediately instead of letting it run on
// into a cascade of unrelated-looking failures.
func TestChunkIDEncoderMultiChunkIngest(t *testing.T) {
	e := encoding.NewChunkIDEncoder()

	ids := make([]uint64, 0, 4)
	ids = append(ids, e.GenerateChunkID())
	require.NoError(t, e.RegisterSamplesToLastChunkID(4))

	ids = append(ids, e.GenerateChunkID())
	require.NoError(t, e.RegisterSamplesToLastChunkID(3))

	ids = append(ids, e.GenerateChunkID())
	require.NoError(t, e.RegisterSamplesToLastChunkID(0))
	_, err := e.RegisterConnectionToLastChunkID()
	require.NoError(t, err)
	require.NoError(t, e.RegisterSamplesToLastChunkID(5))

	ids = append(ids, e.GenerateChunkID())
	require.NoError(t, e.RegisterSamplesToLastChunkID(2))

	require.Equal(t, uint64(14), e.NumSamples())

	// Sample 6 is chunk1's last sample; the connection registered while
	// chunk2 was open makes it straddle into chunk2.
	got, err := e.Get(6)
	require.NoError(t, err)
	expect.EQ(t, []uint64{ids[1], ids[2]}, got)

	got, err = e.Get(11)
	require.NoError(t, err)
	expect.EQ(t, []uint64{ids[2]}, got)

	got, err = e.Get(12)
	require.NoError(t, err)
	expect.EQ(t, []uint64{ids[3]}, got)
}
