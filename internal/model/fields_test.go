package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTags(t *testing.T) {
	assert.Nil(t, ParseTags(""))
	assert.Nil(t, ParseTags("  ,  , "))
	assert.Equal(t, []string{"faith", "hope"}, ParseTags("faith, hope"))
	assert.Equal(t, []string{"one"}, ParseTags(",one,"))
}

func TestParseIDList(t *testing.T) {
	ids, err := ParseIDList("1, 2,30")
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 30}, ids)

	ids, err = ParseIDList("")
	require.NoError(t, err)
	assert.Nil(t, ids)

	_, err = ParseIDList("1,abc,3")
	assert.Error(t, err)
}

func TestValidGrade(t *testing.T) {
	assert.True(t, ValidGrade("B+"))
	assert.True(t, ValidGrade("F"))
	assert.False(t, ValidGrade("Z"))
	assert.False(t, ValidGrade("Pending")) // initial state, not assignable
}
