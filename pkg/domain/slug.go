package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxSlugLength bounds derived procedure IDs.
const MaxSlugLength = 50

// Slugify derives a procedure ID from a title.
// It lowercases, strips accents, collapses non-alphanumeric runs to "_" and truncates
// the result to MaxSlugLength characters. The function is idempotent on its output.
func Slugify(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(folded) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}

	slug := b.String()
	if len(slug) > MaxSlugLength {
		slug = strings.TrimRight(slug[:MaxSlugLength], "_")
	}
	return slug
}

// IDField is the two-state procedure ID field of an editor.
//
// While derived, every title change re-derives the ID. The first manual edit moves it to
// user-edited and it never reverts, so references to an existing ID are not silently broken.
type IDField struct {
	value  string
	edited bool
}

// NewIDField starts a derived field from a title.
func NewIDField(title string) IDField {
	return IDField{value: Slugify(title)}
}

// ExistingIDField wraps the ID of a stored procedure. It starts user-edited.
func ExistingIDField(id string) IDField {
	return IDField{value: id, edited: true}
}

// SetTitle re-derives the ID unless the user has edited it.
func (f *IDField) SetTitle(title string) {
	if f.edited {
		return
	}
	f.value = Slugify(title)
}

// Edit records a manual change. The field stays user-edited from now on.
func (f *IDField) Edit(id string) {
	f.value = id
	f.edited = true
}

// Value returns the current ID.
func (f IDField) Value() string { return f.value }

// Edited reports whether the field left the derived state.
func (f IDField) Edited() bool { return f.edited }
