package encoding

import (
	"v.io/x/lib/vlog"

	kerrors "github.com/grailbio/sampleindex/errors"
)

// hooks is implemented by every encoder specialization that shares the
// generic skeleton: shape and byte-positions. The chunk-id encoder does
// not implement hooks -- its chunk boundaries are decided by the writer
// rather than derived from comparing items, so it keeps its own parallel
// copy of lookup/append logic in chunkid.go.
type hooks[Item any] interface {
	// combineCondition reports whether item can be absorbed into the row at
	// rowIndex without opening a new run.
	combineCondition(item Item, rowIndex int) bool
	// makeDecomposable converts item into the leading columns of a row
	// (everything but last_seen_index). neighborRow is the row the new row
	// will sit next to once inserted (-1 if there is none); byte-positions
	// uses it to compute start_byte.
	makeDecomposable(m *matrix, item Item, neighborRow int) []uint64
	// deriveNextLastIndex computes the new last_seen_index after extending
	// by numSamples.
	deriveNextLastIndex(last uint64, numSamples uint64) uint64
	// validateIncomingItem rejects malformed items before any mutation.
	validateIncomingItem(item Item, numSamples uint64) error
	// recomputeDerived is invoked after a Set mutation with the index of
	// the first row whose leading columns may now be stale (e.g.
	// byte-positions' start_byte chain). Shape is a no-op here; byte
	// positions walks forward recomputing start_byte.
	recomputeDerived(m *matrix, fromRow int)
}

// core implements the lookup/append/overwrite skeleton shared by the shape
// and byte-positions encoders.
type core[Item any] struct {
	m *matrix
	h hooks[Item]
}

func newCore[Item any](cols int, h hooks[Item]) *core[Item] {
	return &core[Item]{m: newMatrix(cols), h: h}
}

// numSamples returns the total number of samples registered so far.
func (c *core[Item]) numSamples() uint64 {
	n := c.m.numRows()
	if n == 0 {
		return 0
	}
	return c.m.lastSeenIndex(n-1) + 1
}

// numSamplesAt returns how many samples row rowIndex's run covers.
func (c *core[Item]) numSamplesAt(rowIndex int) (uint64, error) {
	if rowIndex < 0 || rowIndex >= c.m.numRows() {
		return 0, kerrors.E(kerrors.OutOfBounds, "num_samples_at", "row_index", rowIndex)
	}
	return c.m.numSamplesInRow(rowIndex), nil
}

// resolveIndex normalizes a possibly-negative index and bounds-checks it
// against numSamples.
func (c *core[Item]) resolveIndex(index int64) (uint64, error) {
	n := c.numSamples()
	if n == 0 {
		return 0, kerrors.E(kerrors.OutOfBounds, "get", "empty encoder")
	}
	idx := index
	if idx < 0 {
		idx += int64(n)
	}
	if idx < 0 || uint64(idx) >= n {
		return 0, kerrors.E(kerrors.OutOfBounds, "get", "index", index, "num_samples", n)
	}
	return uint64(idx), nil
}

// lookup performs the binary search and returns the row, its index, and
// the resolved (non-negative) global sample index.
func (c *core[Item]) lookup(index int64) ([]uint64, int, uint64, error) {
	sampleIndex, err := c.resolveIndex(index)
	if err != nil {
		return nil, 0, 0, err
	}
	rowIndex := c.m.searchLastSeenIndex(sampleIndex)
	vlog.VI(2).Infof("encoding: lookup %d -> row %d", sampleIndex, rowIndex)
	return c.m.row(rowIndex), rowIndex, sampleIndex, nil
}

// registerSamples extends the tail run or opens a new row for item.
func (c *core[Item]) registerSamples(item Item, numSamples uint64) error {
	if err := c.h.validateIncomingItem(item, numSamples); err != nil {
		return err
	}
	if numSamples == 0 {
		return kerrors.E(kerrors.InvalidArgument, "register_samples", "num_samples must be > 0")
	}

	n := c.m.numRows()
	if n == 0 {
		leading := c.h.makeDecomposable(c.m, item, -1)
		c.m.appendRow(leading, numSamples-1)
		return nil
	}

	tail := n - 1
	if c.h.combineCondition(item, tail) {
		last := c.m.lastSeenIndex(tail)
		c.m.setLastSeenIndex(tail, c.h.deriveNextLastIndex(last, numSamples))
		return nil
	}

	leading := c.h.makeDecomposable(c.m, item, tail)
	last := c.m.lastSeenIndex(tail)
	c.m.appendRow(leading, c.h.deriveNextLastIndex(last, numSamples))
	return nil
}

// set runs the cost-ordered action table against the sample at index. It
// stages every mutation against a cloned matrix and only swaps it in if
// every step succeeds, so a failure leaves state exactly as before the
// call. Failures from the validation, lookup, and dispatch steps are all
// funneled through a single kerrors.Once so the staged matrix is discarded
// as soon as any one of them fires, rather than each step needing its own
// early-return bookkeeping.
func (c *core[Item]) set(index int64, item Item) error {
	var once kerrors.Once
	once.Set(c.h.validateIncomingItem(item, 1))

	_, rowIndex, sampleIndex, lookupErr := c.lookup(index)
	once.Set(lookupErr)
	if once.Err() != nil {
		return once.Err()
	}

	staged := c.m.clone()
	fromRow, err := applyOverwrite(staged, c.h, rowIndex, sampleIndex, item)
	once.Set(err)
	if once.Err() != nil {
		return once.Err()
	}

	c.h.recomputeDerived(staged, fromRow)
	c.m = staged
	return nil
}

// applyOverwrite runs the 8-action dispatch table against m (which the
// caller may have cloned for staging) and returns the lowest row index
// whose leading columns may need recomputing (for byte-positions' start_byte
// chain).
func applyOverwrite[Item any](m *matrix, h hooks[Item], rowIndex int, sampleIndex uint64, item Item) (int, error) {
	runFirst := m.runFirstIndex(rowIndex)
	runLast := m.lastSeenIndex(rowIndex)
	runWidth := runLast - runFirst + 1
	atRunStart := sampleIndex == runFirst
	atRunEnd := sampleIndex == runLast

	hasAbove := rowIndex > 0
	hasBelow := rowIndex+1 < m.numRows()
	canCombineAbove := hasAbove && h.combineCondition(item, rowIndex-1)
	canCombineBelow := hasBelow && h.combineCondition(item, rowIndex+1)

	// Action 0: no-op.
	if h.combineCondition(item, rowIndex) {
		vlog.VI(1).Infof("encoding: set: action=no-op row=%d", rowIndex)
		return rowIndex, nil
	}

	// Action 1: squeeze.
	if hasAbove && hasBelow && canCombineAbove && canCombineBelow && runWidth == 1 {
		vlog.VI(1).Infof("encoding: set: action=squeeze row=%d", rowIndex)
		m.setLastSeenIndex(rowIndex-1, m.lastSeenIndex(rowIndex+1))
		m.removeRow(rowIndex + 1)
		m.removeRow(rowIndex)
		return rowIndex - 1, nil
	}

	// Action 2: move up. Not gated on !canCombineBelow: when both neighbors
	// combine and the run is wider than one sample, squeeze (action 1)
	// doesn't apply (it requires runWidth == 1), so the boundary sample
	// still needs to move into its predecessor here.
	if canCombineAbove && atRunStart {
		vlog.VI(1).Infof("encoding: set: action=move-up row=%d", rowIndex)
		m.setLastSeenIndex(rowIndex-1, m.lastSeenIndex(rowIndex-1)+1)
		if runWidth == 1 {
			// The row's only sample moved to its predecessor; the row is
			// now empty and must be dropped to preserve invariant 1.
			m.removeRow(rowIndex)
			return rowIndex - 1, nil
		}
		return rowIndex - 1, nil
	}

	// Action 3: move down. Symmetric relaxation of action 2's gate.
	if canCombineBelow && atRunEnd {
		vlog.VI(1).Infof("encoding: set: action=move-down row=%d", rowIndex)
		m.setLastSeenIndex(rowIndex, m.lastSeenIndex(rowIndex)-1)
		if runWidth == 1 {
			m.removeRow(rowIndex)
			return rowIndex, nil
		}
		return rowIndex, nil
	}

	// Action 4: replace whole row.
	if runWidth == 1 && !canCombineAbove && !canCombineBelow {
		vlog.VI(1).Infof("encoding: set: action=replace row=%d", rowIndex)
		leading := h.makeDecomposable(m, item, rowIndex)
		full := append(append([]uint64{}, leading...), m.lastSeenIndex(rowIndex))
		m.replaceRow(rowIndex, full)
		return rowIndex, nil
	}

	// Action 5: split upward.
	if atRunStart && !canCombineAbove {
		vlog.VI(1).Infof("encoding: set: action=split-up row=%d", rowIndex)
		leading := h.makeDecomposable(m, item, rowIndex-1)
		newRow := append(append([]uint64{}, leading...), sampleIndex)
		m.insertRow(rowIndex, newRow)
		return max(rowIndex-1, 0), nil
	}

	// Action 6: split downward.
	if atRunEnd && !canCombineBelow {
		vlog.VI(1).Infof("encoding: set: action=split-down row=%d", rowIndex)
		m.setLastSeenIndex(rowIndex, m.lastSeenIndex(rowIndex)-1)
		leading := h.makeDecomposable(m, item, rowIndex)
		newRow := append(append([]uint64{}, leading...), sampleIndex)
		m.insertRow(rowIndex+1, newRow)
		return rowIndex, nil
	}

	// Action 7: split middle. Every case touching a run boundary is
	// resolved by actions 1-6 above, so reaching here with sampleIndex at
	// the run's start or end means no action matched; error instead of
	// building a row whose last_seen_index would collide with its
	// predecessor's.
	if atRunStart || atRunEnd {
		return 0, kerrors.E(kerrors.InvalidState, "set", "no overwrite action matched",
			"row_index", rowIndex, "sample_index", sampleIndex)
	}
	vlog.VI(1).Infof("encoding: set: action=split-middle row=%d", rowIndex)
	original := append([]uint64{}, m.row(rowIndex)...)
	leadingOriginal := original[:len(original)-1]
	lower := append(append([]uint64{}, leadingOriginal...), sampleIndex-1)
	middle := append(append([]uint64{}, h.makeDecomposable(m, item, rowIndex)...), sampleIndex)
	upper := append(append([]uint64{}, leadingOriginal...), runLast)
	m.removeRow(rowIndex)
	m.insertRow(rowIndex, upper)
	m.insertRow(rowIndex, middle)
	m.insertRow(rowIndex, lower)
	return rowIndex, nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
