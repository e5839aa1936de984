package buffer

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_Insert(t *testing.T) {
	tests := []struct {
		caption string
		initial string
		pos     int
		syms    string
		want    string
		edit    Edit
		err     bool
	}{
		{
			caption: "insert into an empty buffer",
			initial: "",
			pos:     0,
			syms:    "ab",
			want:    "ab",
			edit:    Edit{Kind: EditInsert, Position: 0, Length: 2},
		},
		{
			caption: "insert in the middle",
			initial: "ab",
			pos:     1,
			syms:    "ab",
			want:    "aabb",
			edit:    Edit{Kind: EditInsert, Position: 1, Length: 2},
		},
		{
			caption: "insert at the end",
			initial: "ab",
			pos:     2,
			syms:    "c",
			want:    "abc",
			edit:    Edit{Kind: EditInsert, Position: 2, Length: 1},
		},
		{
			caption: "an empty insertion yields an empty edit",
			initial: "ab",
			pos:     1,
			syms:    "",
			want:    "ab",
			edit:    Edit{Kind: EditInsert, Position: 1, Length: 0},
		},
		{
			caption: "a position past the end is out of range",
			initial: "ab",
			pos:     3,
			syms:    "c",
			want:    "ab",
			err:     true,
		},
		{
			caption: "a negative position is out of range",
			initial: "ab",
			pos:     -1,
			syms:    "c",
			want:    "ab",
			err:     true,
		},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprintf("#%v %v", i, tt.caption), func(t *testing.T) {
			b := New([]rune(tt.initial)...)
			e, err := b.Insert(tt.pos, []rune(tt.syms)...)
			if tt.err {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrOutOfRange))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.edit, e)
			}
			assert.Equal(t, tt.want, contents(t, b))
		})
	}
}

func TestBuffer_Delete(t *testing.T) {
	tests := []struct {
		caption string
		initial string
		pos     int
		count   int
		want    string
		edit    Edit
		err     bool
	}{
		{
			caption: "delete a prefix",
			initial: "aabb",
			pos:     0,
			count:   2,
			want:    "bb",
			edit:    Edit{Kind: EditDelete, Position: 0, Length: 2},
		},
		{
			caption: "delete from the middle",
			initial: "aabb",
			pos:     1,
			count:   2,
			want:    "ab",
			edit:    Edit{Kind: EditDelete, Position: 1, Length: 2},
		},
		{
			caption: "delete nothing at the end",
			initial: "ab",
			pos:     2,
			count:   0,
			want:    "ab",
			edit:    Edit{Kind: EditDelete, Position: 2, Length: 0},
		},
		{
			caption: "a count running past the end is out of range",
			initial: "ab",
			pos:     1,
			count:   2,
			want:    "ab",
			err:     true,
		},
		{
			caption: "a negative count is out of range",
			initial: "ab",
			pos:     0,
			count:   -1,
			want:    "ab",
			err:     true,
		},
		{
			caption: "the largest count is out of range",
			initial: "abc",
			pos:     1,
			count:   math.MaxInt,
			want:    "abc",
			err:     true,
		},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprintf("#%v %v", i, tt.caption), func(t *testing.T) {
			b := New([]rune(tt.initial)...)
			e, err := b.Delete(tt.pos, tt.count)
			if tt.err {
				require.Error(t, err)
				var rErr *RangeError
				require.True(t, errors.As(err, &rErr))
				assert.Equal(t, "delete", rErr.Op)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.edit, e)
			}
			assert.Equal(t, tt.want, contents(t, b))
		})
	}
}

func TestBuffer_SymbolAt(t *testing.T) {
	b := New([]rune("abc")...)
	for i, want := range "abc" {
		got, err := b.SymbolAt(i)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := b.SymbolAt(3)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = b.SymbolAt(-1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestBuffer_OnEdit(t *testing.T) {
	b := New[rune]()
	var got []Edit
	b.OnEdit(func(e Edit) {
		got = append(got, e)
	})

	_, err := b.Insert(0, 'a', 'b')
	require.NoError(t, err)
	_, err = b.Insert(1, 'x')
	require.NoError(t, err)
	_, err = b.Delete(0, 1)
	require.NoError(t, err)
	_, err = b.Delete(0, 0)
	require.NoError(t, err)
	_, err = b.Delete(5, 1)
	require.Error(t, err)

	assert.Equal(t, []Edit{
		{Kind: EditInsert, Position: 0, Length: 2},
		{Kind: EditInsert, Position: 1, Length: 1},
		{Kind: EditDelete, Position: 0, Length: 1},
	}, got)
	assert.Equal(t, "xb", contents(t, b))
}

func TestEdit_Delta(t *testing.T) {
	assert.Equal(t, 3, Edit{Kind: EditInsert, Position: 1, Length: 3}.Delta())
	assert.Equal(t, -2, Edit{Kind: EditDelete, Position: 1, Length: 2}.Delta())
	assert.True(t, Edit{Kind: EditDelete}.IsEmpty())
}

func contents(t *testing.T, b *Buffer[rune]) string {
	t.Helper()

	s, err := b.Slice(0, b.Len())
	require.NoError(t, err)
	return string(s)
}
