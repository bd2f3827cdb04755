package csvimport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		name string
		line string
		want rune
	}{
		{"semicolon", "###;Titel;Ort\n1;a;b", ';'},
		{"comma", "###,Titel,Ort", ','},
		{"tab", "###\tTitel\tOrt", '\t'},
		{"pipe", "###|Titel|Ort", '|'},
		{"quoted commas ignored", `"a,b,c";Titel;Ort`, ';'},
		{"fallback", "Titel", ';'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectDelimiter([]byte(tt.line)))
		})
	}
}

func TestReadStripsBOMAndFlagsColumnCount(t *testing.T) {
	input := "\xEF\xBB\xBF###;Titel;Ort\n1;Museum;Berlin\n2;Galerie\n3;Theater;Leipzig\n"

	table, err := Read(strings.NewReader(input), ReadOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"###", "Titel", "Ort"}, table.Header)
	assert.Equal(t, ';', table.Delimiter)
	require.Len(t, table.Rows, 3)
	assert.NoError(t, table.Rows[0].Err)
	assert.Error(t, table.Rows[1].Err)
	assert.Equal(t, 2, table.Rows[1].Number)
	assert.NoError(t, table.Rows[2].Err)
	assert.Equal(t, "Leipzig", table.Rows[2].Value(2))
	assert.False(t, table.Truncated)
}

func TestReadCapsRows(t *testing.T) {
	var b strings.Builder
	b.WriteString("###,Titel\n")
	for i := 0; i < 5; i++ {
		b.WriteString("x,y\n")
	}

	table, err := Read(strings.NewReader(b.String()), ReadOptions{MaxRows: 3})
	require.NoError(t, err)
	assert.Len(t, table.Rows, 3)
	assert.True(t, table.Truncated)

	table, err = Read(strings.NewReader(b.String()), ReadOptions{MaxRows: 5})
	require.NoError(t, err)
	assert.Len(t, table.Rows, 5)
	assert.False(t, table.Truncated)
}

func TestReadFixedDelimiter(t *testing.T) {
	table, err := Read(strings.NewReader("a,b;c\n1,2;3\n"), ReadOptions{Delimiter: ';'})
	require.NoError(t, err)
	assert.Equal(t, []string{"a,b", "c"}, table.Header)
}

func TestReadEmptyFile(t *testing.T) {
	_, err := Read(strings.NewReader(""), ReadOptions{})
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestRowValue(t *testing.T) {
	r := Row{Values: []string{" a "}}
	assert.Equal(t, "a", r.Value(0))
	assert.Equal(t, "", r.Value(3))
	assert.Equal(t, "", r.Value(-1))
}
