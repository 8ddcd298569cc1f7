package document

import (
	"regexp"
	"strings"
)

// skeletonMaxLen is the trimmed length below which a lone heading is
// treated as placeholder content. Anything at or above this length is
// real content no matter its shape.
const skeletonMaxLen = 50

// headingOnly matches content that is a single markdown heading line
// and nothing else. Applied to trimmed content, so trailing blank lines
// have already been removed.
var headingOnly = regexp.MustCompile(`^#[^\n]*$`)

// IsSkeleton reports whether content is a placeholder stub rather than
// authored text: empty/blank, or shorter than 50 characters and
// consisting of a single "#" heading line. The check is deliberately
// crude; its job is to stop a placeholder from ever overwriting real
// work on timestamp grounds alone, and predictability matters more
// than cleverness here.
func IsSkeleton(content string) bool {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return true
	}

	if len(trimmed) >= skeletonMaxLen {
		return false
	}

	return headingOnly.MatchString(trimmed)
}
