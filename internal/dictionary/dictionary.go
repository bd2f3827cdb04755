// Package dictionary holds the bilingual table of importable location fields.
package dictionary

import (
	"sort"
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const (
	// IDColumn is the literal header of the identity column that is passed through untouched.
	IDColumn = "###"
	// IgnoreKey can be assigned to a column so it is skipped during processing.
	IgnoreKey = "ignore"

	LangDe = "de"
	LangEn = "en"
)

// Canonical field keys.
const (
	FieldTitleDe         = "title_de"
	FieldTitleEn         = "title_en"
	FieldDescriptionDe   = "description_de"
	FieldDescriptionEn   = "description_en"
	FieldCo              = "co"
	FieldStreet1         = "street1"
	FieldHouseNumber     = "house_number"
	FieldStreet2         = "street2"
	FieldPostCode        = "post_code"
	FieldCity            = "city"
	FieldPhone           = "phone"
	FieldEmail           = "email"
	FieldWebsite         = "website"
	FieldFacebook        = "facebook"
	FieldInstagram       = "instagram"
	FieldTwitter         = "twitter"
	FieldYouTube         = "youtube"
	FieldInstitutionType = "institution_type"
)

// Field is one canonical field with its display names per language.
type Field struct {
	Key    string
	Labels map[string][]string
}

// RequiredGroup is satisfied when any of its fields is mapped.
type RequiredGroup struct {
	Name string
	Keys []string
}

var fields = []Field{
	{Key: FieldTitleDe, Labels: map[string][]string{
		LangDe: {"Titel (DE)", "Name (DE)", "Titel", "Name", "Name der Einrichtung"},
		LangEn: {"Title (German)", "Name (German)"},
	}},
	{Key: FieldTitleEn, Labels: map[string][]string{
		LangDe: {"Titel (EN)", "Name (EN)", "Titel englisch"},
		LangEn: {"Title (EN)", "Name (EN)", "Title", "Title (English)"},
	}},
	{Key: FieldDescriptionDe, Labels: map[string][]string{
		LangDe: {"Beschreibung (DE)", "Beschreibung"},
		LangEn: {"Description (German)"},
	}},
	{Key: FieldDescriptionEn, Labels: map[string][]string{
		LangDe: {"Beschreibung (EN)", "Beschreibung englisch"},
		LangEn: {"Description (EN)", "Description"},
	}},
	{Key: FieldCo, Labels: map[string][]string{
		LangDe: {"c/o", "Zu Händen"},
		LangEn: {"Care of"},
	}},
	{Key: FieldStreet1, Labels: map[string][]string{
		LangDe: {"Straße", "Strasse", "Str."},
		LangEn: {"Street", "Street 1", "Address"},
	}},
	{Key: FieldHouseNumber, Labels: map[string][]string{
		LangDe: {"Hausnummer", "Nr.", "Hausnr."},
		LangEn: {"House number", "Number"},
	}},
	{Key: FieldStreet2, Labels: map[string][]string{
		LangDe: {"Adresszusatz", "Straße 2"},
		LangEn: {"Street 2", "Address supplement"},
	}},
	{Key: FieldPostCode, Labels: map[string][]string{
		LangDe: {"PLZ", "Postleitzahl"},
		LangEn: {"Post code", "Postcode", "Postal code", "ZIP"},
	}},
	{Key: FieldCity, Labels: map[string][]string{
		LangDe: {"Ort", "Stadt"},
		LangEn: {"City", "Town"},
	}},
	{Key: FieldPhone, Labels: map[string][]string{
		LangDe: {"Telefon", "Telefonnummer"},
		LangEn: {"Phone", "Telephone"},
	}},
	{Key: FieldEmail, Labels: map[string][]string{
		LangDe: {"E-Mail", "Email-Adresse"},
		LangEn: {"Email", "E-mail address"},
	}},
	{Key: FieldWebsite, Labels: map[string][]string{
		LangDe: {"Webseite", "Internetseite"},
		LangEn: {"Website", "URL"},
	}},
	{Key: FieldFacebook, Labels: map[string][]string{
		LangDe: {"Facebook"},
		LangEn: {"Facebook URL"},
	}},
	{Key: FieldInstagram, Labels: map[string][]string{
		LangDe: {"Instagram"},
		LangEn: {"Instagram URL"},
	}},
	{Key: FieldTwitter, Labels: map[string][]string{
		LangDe: {"Twitter"},
		LangEn: {"Twitter URL", "X"},
	}},
	{Key: FieldYouTube, Labels: map[string][]string{
		LangDe: {"YouTube"},
		LangEn: {"YouTube URL"},
	}},
	{Key: FieldInstitutionType, Labels: map[string][]string{
		LangDe: {"Art der Einrichtung", "Einrichtungsart", "Kategorie"},
		LangEn: {"Type of institution", "Institution type", "Category"},
	}},
}

var requiredGroups = []RequiredGroup{
	{Name: "title", Keys: []string{FieldTitleDe, FieldTitleEn}},
	{Name: "street", Keys: []string{FieldStreet1}},
	{Name: "post_code", Keys: []string{FieldPostCode}},
	{Name: "city", Keys: []string{FieldCity}},
}

// SocialFields are validated as URLs.
var SocialFields = []string{FieldWebsite, FieldFacebook, FieldInstagram, FieldTwitter, FieldYouTube}

var (
	byKey   = map[string]Field{}
	byAlias = map[string]string{}
	aliases []string
)

func init() {
	for _, f := range fields {
		byKey[f.Key] = f
		for _, lang := range []string{LangDe, LangEn} {
			for _, label := range f.Labels[lang] {
				n := Normalize(label)
				if _, dup := byAlias[n]; dup {
					continue
				}
				byAlias[n] = f.Key
				aliases = append(aliases, label)
			}
		}
	}
}

// Normalize folds case, composes Unicode and collapses whitespace so headers compare reliably.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	// Casers carry state and are not safe for concurrent use.
	s = cases.Fold().String(s)
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

// Lookup returns the field key bound to header.
func Lookup(header string) (string, bool) {
	key, ok := byAlias[Normalize(header)]
	return key, ok
}

// Fields returns all canonical fields in dictionary order.
func Fields() []Field {
	return fields
}

// Get returns the field registered under key.
func Get(key string) (Field, bool) {
	f, ok := byKey[key]
	return f, ok
}

// IsKnownMatch reports whether key may be stored as a column match.
func IsKnownMatch(key string) bool {
	if key == IDColumn || key == IgnoreKey {
		return true
	}
	_, ok := byKey[key]
	return ok
}

// RequiredGroups returns the groups every import must satisfy.
func RequiredGroups() []RequiredGroup {
	return requiredGroups
}

// Aliases returns every header accepted for the group, German names first.
func (g RequiredGroup) Aliases() []string {
	var out []string
	for _, lang := range []string{LangDe, LangEn} {
		for _, key := range g.Keys {
			out = append(out, byKey[key].Labels[lang]...)
		}
	}
	return out
}

// SatisfiedBy reports whether one of the group's keys is present in matched.
func (g RequiredGroup) SatisfiedBy(matched map[string]bool) bool {
	for _, key := range g.Keys {
		if matched[key] {
			return true
		}
	}
	return false
}

// Suggest returns the closest known header for an unrecognised one, or "".
func Suggest(header string) string {
	n := Normalize(header)
	if n == "" {
		return ""
	}
	ranks := fuzzy.RankFindNormalizedFold(n, aliases)
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	return ranks[0].Target
}
