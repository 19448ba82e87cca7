package backtest

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPairwise(t *testing.T) {
	var got []Window[int]
	for w := range Pairwise(slices.Values([]int{1, 2, 3})) {
		got = append(got, w)
	}
	assert.Equal(t, []Window[int]{
		{Current: 1, Next: 2, HasNext: true},
		{Current: 2, Next: 3, HasNext: true},
		{Current: 3},
	}, got)
}

func TestPairwise_EmptyAndSingle(t *testing.T) {
	n := 0
	for range Pairwise(slices.Values([]int(nil))) {
		n++
	}
	assert.Zero(t, n)

	var got []Window[string]
	for w := range Pairwise(slices.Values([]string{"a"})) {
		got = append(got, w)
	}
	assert.Equal(t, []Window[string]{{Current: "a"}}, got)
}

func TestPairwise_StopsEarly(t *testing.T) {
	n := 0
	for range Pairwise(slices.Values([]int{1, 2, 3, 4})) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}
