package subset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFind_SinglePair(t *testing.T) {
	got := Find([]int64{4000, 6000}, 10000, MaxGroupDefault)
	assert.Equal(t, []int{0, 1}, got)
}

func TestFind_PrefersLargerMembersFirst(t *testing.T) {
	// Both {6000,4000} and {5000,3000,2000} sum to 10000; the descending
	// search commits to the largest candidate first.
	got := Find([]int64{3000, 6000, 5000, 2000, 4000}, 10000, MaxGroupDefault)
	assert.Equal(t, []int{1, 4}, got)
}

func TestFind_NoSolution(t *testing.T) {
	assert.Nil(t, Find([]int64{300, 500}, 900, MaxGroupDefault))
	assert.Nil(t, Find(nil, 100, MaxGroupDefault))
	assert.Nil(t, Find([]int64{100}, 0, MaxGroupDefault))
}

func TestFind_GroupSizeCap(t *testing.T) {
	amounts := []int64{100, 100, 100, 100}
	assert.Nil(t, Find(amounts, 400, 3), "needs 4 members but cap is 3")
	assert.Equal(t, []int{0, 1, 2, 3}, Find(amounts, 400, 4))
}

func TestFind_IgnoresNonPositiveAndOversized(t *testing.T) {
	got := Find([]int64{-500, 0, 20000, 4000, 6000}, 10000, MaxGroupDefault)
	assert.Equal(t, []int{3, 4}, got)
}

func TestFind_Deterministic(t *testing.T) {
	amounts := []int64{2500, 2500, 2500, 7500}
	first := Find(amounts, 10000, MaxGroupDefault)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Find(amounts, 10000, MaxGroupDefault))
	}
	// Ties between equal amounts resolve by insertion order.
	assert.Equal(t, []int{0, 3}, first)
}
