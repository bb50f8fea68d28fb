package negotiate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	codings, err := Parse("gzip;q=0.8, br, deflate;q=0")
	require.NoError(t, err)
	assert.Equal(t, []Coding{
		{Name: "gzip", Q: 0.8},
		{Name: "br", Q: 1},
		{Name: "deflate", Q: 0},
	}, codings)
}

func TestParseEmpty(t *testing.T) {
	codings, err := Parse("  ")
	require.NoError(t, err)
	assert.Empty(t, codings)
}

func TestParseUppercaseAndQuotedParams(t *testing.T) {
	codings, err := Parse(`GZIP; foo="bar"; Q=0.5`)
	require.NoError(t, err)
	require.Len(t, codings, 1)
	assert.Equal(t, "gzip", codings[0].Name)
	assert.Equal(t, 0.5, codings[0].Q)
}

func TestParseEmptyListElements(t *testing.T) {
	codings, err := Parse("gzip, , br")
	require.NoError(t, err)
	require.Len(t, codings, 2)
	assert.Equal(t, "br", codings[1].Name)
}

func TestAccepts(t *testing.T) {
	tests := []struct {
		name   string
		header string
		coding string
		want   bool
	}{
		{"exact", "gzip", "gzip", true},
		{"missing", "br", "gzip", false},
		{"excluded", "gzip;q=0", "gzip", false},
		{"wildcard", "*", "deflate", true},
		{"wildcard excluded", "*;q=0", "gzip", false},
		{"explicit beats wildcard", "gzip;q=0, *", "gzip", false},
		{"case insensitive", "Gzip", "gzip", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codings, err := Parse(tt.header)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Accepts(codings, tt.coding))
		})
	}
}

func TestSelect(t *testing.T) {
	preferred := []string{"gzip", "br", "deflate"}

	assert.Equal(t, "gzip", Select("deflate, gzip, br", preferred))
	assert.Equal(t, "br", Select("br", preferred))
	assert.Equal(t, "deflate", Select("gzip;q=0, br;q=0, *", preferred))
	assert.Equal(t, "", Select("identity", preferred))
	assert.Equal(t, "", Select("", preferred))
	assert.Equal(t, "", Select("gzip;;;==", preferred))
}
