package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatNomorSurat(t *testing.T) {
	tests := []struct {
		kode  string
		urut  int
		tahun int
		want  string
	}{
		{"000.1", 7, 2026, "000.1/007/2026"},
		{"800", 42, 2025, "800/042/2025"},
		{"005.2.1", 1000, 2026, "005.2.1/1000/2026"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatNomorSurat(tt.kode, tt.urut, tt.tahun))
	}
}

func TestParseNomorSurat(t *testing.T) {
	kode, urut, tahun, err := ParseNomorSurat(FormatNomorSurat("000.1", 7, 2026))
	require.NoError(t, err)
	assert.Equal(t, "000.1", kode)
	assert.Equal(t, 7, urut)
	assert.Equal(t, 2026, tahun)

	for _, bad := range []string{"", "000.1/7", "abc/001/2026", "000/0/2026", "000/001/26", "000/x/2026"} {
		_, _, _, err := ParseNomorSurat(bad)
		assert.Error(t, err, bad)
	}
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	assert.Equal(t, []int{1, 2, 3, 4, 5}, Page(items, 0, 0))
	assert.Equal(t, []int{3, 4}, Page(items, 2, 2))
	assert.Equal(t, []int{5}, Page(items, 2, 4))
	assert.Equal(t, []int{}, Page(items, 2, 10))
	assert.Equal(t, []int{1}, Page(items, 1, -3))

	page := Page(items, 2, 0)
	page[0] = 99
	assert.Equal(t, 1, items[0], "Page must not alias the source slice")
}
