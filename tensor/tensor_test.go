package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSlice(t *testing.T) {
	d, err := FromSlice([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, d.Shape())
	assert.Equal(t, 2, d.Rank())
	assert.Equal(t, 3, d.LastDim())
	assert.Equal(t, 2, d.Rows())
	assert.Equal(t, []float32{4, 5, 6}, d.Row(1))

	_, err = FromSlice([]float32{1, 2, 3}, 2, 2)
	assert.ErrorIs(t, err, ErrShape)

	_, err = FromSlice(nil)
	assert.ErrorIs(t, err, ErrShape)
}

func TestFromRows(t *testing.T) {
	d, err := FromRows([][]float32{{1, 2}, {3, 4}})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4}, d.Data())

	_, err = FromRows([][]float32{{1, 2}, {3}})
	assert.ErrorIs(t, err, ErrShape)
}

func TestZerosPanicsOnInvalidShape(t *testing.T) {
	assert.Panics(t, func() { Zeros(2, 0) })
}

func TestRowIsView(t *testing.T) {
	d := Zeros(2, 2)
	d.Row(1)[0] = 7
	assert.Equal(t, []float32{0, 0, 7, 0}, d.Data())

	c := d.Clone()
	c.Data()[0] = 1
	assert.Equal(t, float32(0), d.Data()[0])
}

func TestReshape(t *testing.T) {
	d := Zeros(2, 3)
	r, err := d.Reshape(3, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, r.Shape())

	_, err = d.Reshape(4, 2)
	assert.ErrorIs(t, err, ErrShape)
}

func TestAdd(t *testing.T) {
	a, _ := FromSlice([]float32{1, 2, 3, 4}, 2, 2)
	b, _ := FromSlice([]float32{10, 20, 30, 40}, 2, 2)
	sum, err := Add(a, b)
	require.NoError(t, err)
	assert.Equal(t, []float32{11, 22, 33, 44}, sum.Data())

	_, err = Add(a, Zeros(4))
	assert.ErrorIs(t, err, ErrShape)
}

func TestConcatSplit(t *testing.T) {
	a, _ := FromSlice([]float32{1, 2, 3, 4}, 2, 2)
	b, _ := FromSlice([]float32{5, 6}, 2, 1)

	c, err := Concat(a, b)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, c.Shape())
	assert.Equal(t, []float32{1, 2, 5, 3, 4, 6}, c.Data())

	left, right, err := Split(c, 2)
	require.NoError(t, err)
	assert.True(t, left.Equal(a))
	assert.True(t, right.Equal(b))

	_, _, err = Split(c, 3)
	assert.ErrorIs(t, err, ErrShape)

	_, err = Concat(a, Zeros(3, 1))
	assert.ErrorIs(t, err, ErrShape)
}

func TestConcatHigherRank(t *testing.T) {
	a := Zeros(2, 3, 4)
	b := Zeros(2, 3, 2)
	c, err := Concat(a, b)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 6}, c.Shape())
}

func TestIDs(t *testing.T) {
	ids, err := NewIDs([]int64{1, 2, 3, 4, 5, 6}, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, ids.Shape())
	assert.Equal(t, 6, ids.Size())

	flat := MustIDs([]int64{4, 5})
	assert.Equal(t, []int{2}, flat.Shape())

	_, err = NewIDs([]int64{1, 2, 3}, 2, 2)
	assert.ErrorIs(t, err, ErrShape)

	g, err := ids.Gather([]int{2, 0})
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 6, 1, 2}, g.Data())

	_, err = ids.Gather([]int{3})
	var ie *IndexError
	assert.ErrorAs(t, err, &ie)
}

func TestDenseGather(t *testing.T) {
	d, _ := FromSlice([]float32{1, 2, 3}, 3)
	g, err := d.Gather([]int{2, 2, 0})
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 3, 1}, g.Data())
}

func TestString(t *testing.T) {
	d, _ := FromSlice([]float32{1, 2}, 1, 2)
	assert.Equal(t, "Dense[1 2][1 2]", d.String())
}
