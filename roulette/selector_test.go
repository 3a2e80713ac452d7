package roulette

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinesorte/catalog"
)

// seqRand returns the queued values in order, each reduced modulo n.
type seqRand struct{ vals []int }

func (r *seqRand) IntN(n int) int {
	v := r.vals[0]
	r.vals = r.vals[1:]
	return v % n
}

func pool(ids ...int) []catalog.Candidate {
	out := make([]catalog.Candidate, len(ids))
	for i, id := range ids {
		out[i] = catalog.Candidate{ID: id, Title: "t", PosterPath: "/p", Overview: "o"}
	}
	return out
}

func TestPickEmptyPool(t *testing.T) {
	s := NewSelector()
	h := s.NewHistory().Record(1)
	_, got, err := s.Pick(nil, h)
	assert.ErrorIs(t, err, ErrEmptyPool)
	assert.Equal(t, []int{1}, got.IDs())
}

func TestPickAvoidsHistory(t *testing.T) {
	s := NewSelector(WithRand(rand.New(rand.NewPCG(1, 2))))
	cands := pool(1, 2, 3, 4, 5)
	h := s.NewHistory().Record(1).Record(2).Record(3)

	for range 200 {
		c, next, err := s.Pick(cands, h)
		require.NoError(t, err)
		assert.NotContains(t, []int{1, 2, 3}, c.ID)
		assert.Equal(t, c.ID, next.IDs()[0])
	}
}

func TestPickResetsWhenExhausted(t *testing.T) {
	s := NewSelector(WithRand(&seqRand{vals: []int{0, 0, 0, 2}}))
	cands := pool(10, 20, 30)
	h := s.NewHistory()

	var picked []int
	for range 3 {
		c, next, err := s.Pick(cands, h)
		require.NoError(t, err)
		picked = append(picked, c.ID)
		h = next
	}
	assert.ElementsMatch(t, []int{10, 20, 30}, picked)
	assert.Equal(t, []int{30, 20, 10}, h.IDs())

	// All three are in history; the fourth draw clears it first.
	c, h, err := s.Pick(cands, h)
	require.NoError(t, err)
	assert.Equal(t, 30, c.ID)
	assert.Equal(t, []int{30}, h.IDs())
}

func TestPickSingleCandidate(t *testing.T) {
	s := NewSelector()
	cands := pool(7)
	h := s.NewHistory()
	for range 5 {
		c, next, err := s.Pick(cands, h)
		require.NoError(t, err)
		assert.Equal(t, 7, c.ID)
		assert.Equal(t, []int{7}, next.IDs())
		h = next
	}
}

func TestPickDoesNotMutateInputs(t *testing.T) {
	s := NewSelector()
	cands := pool(1, 2, 3)
	h := s.NewHistory().Record(1)
	before := h.IDs()

	_, next, err := s.Pick(cands, h)
	require.NoError(t, err)
	assert.Equal(t, before, h.IDs())
	assert.Equal(t, 2, next.Len())
	assert.Equal(t, []int{1, 2, 3}, []int{cands[0].ID, cands[1].ID, cands[2].ID})
}

func TestHistoryBounded(t *testing.T) {
	h := NewHistory(0)
	assert.Equal(t, DefaultHistorySize, h.Cap())
	for id := 1; id <= 15; id++ {
		h = h.Record(id)
		assert.LessOrEqual(t, h.Len(), DefaultHistorySize)
	}
	assert.Equal(t, []int{15, 14, 13, 12, 11, 10, 9, 8, 7, 6}, h.IDs())
	assert.False(t, h.Contains(5))
	assert.True(t, h.Contains(6))

	small := NewSelector(WithCapacity(2)).NewHistory().Record(1).Record(2).Record(3)
	assert.Equal(t, []int{3, 2}, small.IDs())
}

func TestZeroHistoryUsable(t *testing.T) {
	var h History
	h = h.Record(4)
	assert.Equal(t, []int{4}, h.IDs())
	assert.Equal(t, DefaultHistorySize, h.Reset().Cap())
}

func TestPickLargePoolNeverRepeatsWithinWindow(t *testing.T) {
	s := NewSelector(WithRand(rand.New(rand.NewPCG(42, 42))))
	ids := make([]int, 30)
	for i := range ids {
		ids[i] = i + 1
	}
	cands := pool(ids...)
	h := s.NewHistory()

	var seq []int
	for range 100 {
		c, next, err := s.Pick(cands, h)
		require.NoError(t, err)
		seq = append(seq, c.ID)
		h = next
	}
	// With 30 candidates and a window of 10, any 11 consecutive picks are distinct.
	for i := 0; i+DefaultHistorySize < len(seq); i++ {
		window := seq[i : i+DefaultHistorySize+1]
		seen := map[int]bool{}
		for _, id := range window {
			assert.False(t, seen[id], "repeat of %d in %v", id, window)
			seen[id] = true
		}
	}
}

func drawCounts(t *testing.T, s *Selector, cands []catalog.Candidate, h History, n int) map[int]int {
	t.Helper()
	counts := map[int]int{}
	for range n {
		c, _, err := s.Pick(cands, h)
		require.NoError(t, err)
		counts[c.ID]++
	}
	return counts
}

func TestPickIsUniform(t *testing.T) {
	const draws = 30000
	s := NewSelector(WithRand(rand.New(rand.NewPCG(7, 11))))

	counts := drawCounts(t, s, pool(1, 2, 3), s.NewHistory(), draws)
	require.Len(t, counts, 3)
	for id, n := range counts {
		assert.InDelta(t, 1.0/3, float64(n)/draws, 0.02, "id %d drawn %d times", id, n)
	}
}

func TestPickIsUniformOverAvailable(t *testing.T) {
	const draws = 30000
	s := NewSelector(WithRand(rand.New(rand.NewPCG(3, 5))))
	h := s.NewHistory().Record(1).Record(2)

	counts := drawCounts(t, s, pool(1, 2, 3, 4, 5), h, draws)
	assert.Zero(t, counts[1])
	assert.Zero(t, counts[2])
	for _, id := range []int{3, 4, 5} {
		assert.InDelta(t, 1.0/3, float64(counts[id])/draws, 0.02, "id %d drawn %d times", id, counts[id])
	}
}
