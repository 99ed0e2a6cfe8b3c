package prolly

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intEqual(a, b int) bool { return a == b }

func TestDiffEmpty(t *testing.T) {
	diff := Diff[int](nil, nil, intEqual)
	assert.Empty(t, diff)
}

func TestDiffAdditions(t *testing.T) {
	other := []Entry[int]{{Key: "a", Value: 1}, {Key: "b", Value: 2}}
	diff := Diff[int](nil, other, intEqual)
	assert.Len(t, diff, 2)
	for _, c := range diff {
		assert.Equal(t, ChangeAdd, c.Type)
	}
}

func TestDiffRemovals(t *testing.T) {
	base := []Entry[int]{{Key: "a", Value: 1}}
	diff := Diff[int](base, nil, intEqual)
	require := assert.New(t)
	require.Len(diff, 1)
	require.Equal(ChangeRemove, diff[0].Type)
}

func TestDiffModifications(t *testing.T) {
	base := []Entry[int]{{Key: "a", Value: 1}}
	other := []Entry[int]{{Key: "a", Value: 2}}
	diff := Diff[int](base, other, intEqual)
	require := assert.New(t)
	require.Len(diff, 1)
	require.Equal(ChangeModify, diff[0].Type)
	require.Equal(1, *diff[0].OldValue)
	require.Equal(2, *diff[0].NewValue)
}

func TestThreeWayMerge(t *testing.T) {
	base := []Entry[int]{{Key: "a", Value: 1}, {Key: "b", Value: 2}}

	treeA := []Entry[int]{{Key: "a", Value: 10}, {Key: "b", Value: 2}, {Key: "c", Value: 3}}
	treeB := []Entry[int]{{Key: "a", Value: 1}, {Key: "b", Value: 20}, {Key: "d", Value: 4}}

	diffA := Diff[int](base, treeA, intEqual)
	diffB := Diff[int](base, treeB, intEqual)

	merged := Merge[int](base, diffA, diffB, func(_ string, a, _ int) int { return a })

	byKey := make(map[string]int, len(merged))
	for _, e := range merged {
		byKey[e.Key] = e.Value
	}

	assert.Equal(t, 10, byKey["a"])
	assert.Equal(t, 20, byKey["b"])
	assert.Equal(t, 3, byKey["c"])
	assert.Equal(t, 4, byKey["d"])
}

func TestMergeModifyBeatsRemove(t *testing.T) {
	base := []Entry[int]{{Key: "a", Value: 1}}

	// Side A removes "a"; side B modifies it. The modification should win
	// regardless of which side is "A" in the call.
	diffA := Diff[int](base, nil, intEqual)
	diffB := Diff[int](base, []Entry[int]{{Key: "a", Value: 9}}, intEqual)

	merged := Merge[int](base, diffA, diffB, func(_ string, a, b int) int { return a })
	require := assert.New(t)
	require.Len(merged, 1)
	require.Equal(9, merged[0].Value)

	// Symmetric: A modifies, B removes.
	diffA2 := Diff[int](base, []Entry[int]{{Key: "a", Value: 9}}, intEqual)
	diffB2 := Diff[int](base, nil, intEqual)
	merged2 := Merge[int](base, diffA2, diffB2, func(_ string, a, b int) int { return a })
	require.Len(merged2, 1)
	require.Equal(9, merged2[0].Value)
}
