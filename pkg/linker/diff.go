package linker

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff returns a patch in diff-match-patch text form that turns before into
// after. It is empty when the two are equal.
func Diff(before, after string) string {
	if before == after {
		return ""
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	return dmp.PatchToText(dmp.PatchMake(before, diffs))
}

// Changes counts the inserted and deleted bytes between before and after.
func Changes(before, after string) (inserted, deleted int) {
	dmp := diffmatchpatch.New()
	for _, d := range dmp.DiffMain(before, after, false) {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			inserted += len(d.Text)
		case diffmatchpatch.DiffDelete:
			deleted += len(d.Text)
		}
	}
	return inserted, deleted
}
