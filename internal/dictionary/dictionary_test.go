package dictionary

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Titel (DE)", FieldTitleDe, true},
		{"  titel   (de) ", FieldTitleDe, true},
		{"TITLE", FieldTitleEn, true},
		{"Straße", FieldStreet1, true},
		{"STRASSE", FieldStreet1, true},
		{"PLZ", FieldPostCode, true},
		{"Postleitzahl", FieldPostCode, true},
		{"Ort", FieldCity, true},
		{"Lieblingsfarbe", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, ok := Lookup(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeComposesUnicode(t *testing.T) {
	composed := "Einrichtungsgr\u00f6\u00dfe"
	decomposed := "Einrichtungsgro\u0308\u00dfe"
	assert.Equal(t, Normalize(composed), Normalize(decomposed))
	assert.Equal(t, Normalize("Straße"), Normalize("STRAßE"))
	assert.Equal(t, Normalize("Beschreibung"), Normalize("Beschreibung\t"))
}

func TestIsKnownMatch(t *testing.T) {
	assert.True(t, IsKnownMatch(IDColumn))
	assert.True(t, IsKnownMatch(IgnoreKey))
	assert.True(t, IsKnownMatch(FieldCity))
	assert.False(t, IsKnownMatch("fax"))
	assert.False(t, IsKnownMatch(""))
}

func TestRequiredGroups(t *testing.T) {
	groups := RequiredGroups()
	assert.Len(t, groups, 4)

	title := groups[0]
	assert.Equal(t, "title", title.Name)
	assert.True(t, title.SatisfiedBy(map[string]bool{FieldTitleEn: true}))
	assert.False(t, title.SatisfiedBy(map[string]bool{FieldCity: true}))

	aliases := title.Aliases()
	assert.Equal(t, "Titel (DE)", aliases[0], "German names come first")
	assert.Contains(t, aliases, "Title (English)")
}

func TestSuggest(t *testing.T) {
	assert.Equal(t, "Postleitzahl", Suggest("Postleit"))
	assert.Empty(t, Suggest(""))
	assert.Empty(t, Suggest("zzzzzzzz"))
}

func TestGet(t *testing.T) {
	f, ok := Get(FieldEmail)
	assert.True(t, ok)
	assert.Equal(t, FieldEmail, f.Key)
	assert.NotEmpty(t, Fields())
}
