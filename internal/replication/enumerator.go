package replication

// Enumerator walks position windows over a ranked list of m assets.
//
// For every start offset 0..m-n the window starts at [offset, ..., offset+n-1]
// with the depth cursor at n. Each advance bumps the slot under the cursor;
// a slot reaching m-1 moves the cursor one slot shallower, resets the window
// and bumps the new slot. Duplicate slots are bumped away under the same rule.
// A cursor reaching zero exhausts the offset.
type Enumerator struct {
	m, n   int
	offset int
	depth  int
	window []int
	fresh  bool // window is the untouched initial window of offset
	done   bool
}

// NewEnumerator creates an enumerator over m ranked assets choosing n.
// Callers validate 1 <= n <= m.
func NewEnumerator(m, n int) *Enumerator {
	e := &Enumerator{m: m, n: n, window: make([]int, n)}
	if n < 1 || n > m {
		e.done = true
		return e
	}
	e.reset()
	return e
}

// Next returns the next start offset and window.
// The returned slice is a copy owned by the caller.
func (e *Enumerator) Next() (offset int, window []int, ok bool) {
	if e.done {
		return 0, nil, false
	}

	if e.fresh {
		e.fresh = false
		return e.offset, e.snapshot(), true
	}

	if e.advance() {
		return e.offset, e.snapshot(), true
	}

	// offset 소진 → 다음 시작 위치
	e.offset++
	if e.offset > e.m-e.n {
		e.done = true
		return 0, nil, false
	}
	e.reset()
	e.fresh = false
	return e.offset, e.snapshot(), true
}

// Offset returns the current start offset
func (e *Enumerator) Offset() int {
	return e.offset
}

// reset restores the initial window for the current offset
func (e *Enumerator) reset() {
	for i := range e.window {
		e.window[i] = e.offset + i
	}
	e.depth = e.n
	e.fresh = true
}

// advance moves to the next window of the current offset.
// Returns false when the offset is exhausted.
func (e *Enumerator) advance() bool {
	if !e.bump() {
		return false
	}
	for e.hasDuplicate() {
		if !e.bump() {
			return false
		}
	}
	return true
}

// bump increments the slot under the cursor, backtracking on overflow
func (e *Enumerator) bump() bool {
	e.window[e.depth-1]++
	if e.window[e.depth-1] < e.m-1 {
		return true
	}

	e.depth--
	if e.depth == 0 {
		return false
	}
	for i := range e.window {
		e.window[i] = e.offset + i
	}
	e.window[e.depth-1]++
	return true
}

func (e *Enumerator) hasDuplicate() bool {
	seen := make(map[int]struct{}, len(e.window))
	for _, pos := range e.window {
		if _, ok := seen[pos]; ok {
			return true
		}
		seen[pos] = struct{}{}
	}
	return false
}

func (e *Enumerator) snapshot() []int {
	return append([]int(nil), e.window...)
}
