// Package cleaning is the second analysis engine of the console: a
// similarity scan that flags probable duplicate customer records, gap and
// branch-variation analyzers that propose field corrections, and the thin
// applier that turns human decisions into store operations.
package cleaning

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// minMasterLength guards branch-name consolidation against over-aggressive
// merging of near-empty strings.
const minMasterLength = 3

// foldCaser performs Unicode case folding. The dataset carries both Arabic
// and English customer names; ASCII lowercasing is not enough.
var foldCaser = cases.Fold()

// NameSimilar reports case-insensitive substring containment in either
// direction. Empty names never match anything.
func NameSimilar(a, b string) bool {
	fa := foldCaser.String(strings.TrimSpace(a))
	fb := foldCaser.String(strings.TrimSpace(b))
	if fa == "" || fb == "" {
		return false
	}
	return strings.Contains(fa, fb) || strings.Contains(fb, fa)
}

// BranchMaster derives the canonical branch name from an observed label by
// taking the portion before the first digit, dash or underscore, trimmed.
// "Riyadh-01", "Riyadh-02" and "Riyadh_03" all derive "Riyadh". Masters
// shorter than three characters are rejected (empty string returned).
func BranchMaster(branch string) string {
	cut := len(branch)
	for i, r := range branch {
		if r == '-' || r == '_' || unicode.IsDigit(r) {
			cut = i
			break
		}
	}
	master := strings.TrimSpace(branch[:cut])
	if utf8.RuneCountInString(master) < minMasterLength {
		return ""
	}
	return master
}
