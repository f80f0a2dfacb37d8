package domain

import "strings"

// diacritics folds the accented characters that occur in the Spanish
// source tables. The reference data is not arbitrary Unicode, so a fixed
// replacer covers every key the tables produce.
var diacritics = strings.NewReplacer(
	"Á", "A", "á", "a",
	"É", "E", "é", "e",
	"Í", "I", "í", "i",
	"Ó", "O", "ó", "o",
	"Ú", "U", "ú", "u",
	"Ü", "U", "ü", "u",
	"Ñ", "N", "ñ", "n",
)

// NormalizeKey produces the canonical zone identity used for every join:
// trimmed, diacritics folded, upper-cased, inner whitespace collapsed.
// Each zone's key must be unique under this normalization across all
// reference tables.
func NormalizeKey(name string) string {
	s := diacritics.Replace(strings.TrimSpace(name))
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToUpper(s)
}
