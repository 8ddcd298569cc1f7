// Package document defines the closed set of project document types,
// the filename conventions used for their on-disk mirrors, and the
// skeleton content classifier.
package document

import (
	"fmt"
	"strings"

	"github.com/alexjbarnes/docsync/internal/docerrors"
)

// Type identifies one of the fixed document kinds a project carries.
// The set is closed; free-form strings are normalized exactly once at
// the system boundary via ParseType.
type Type string

const (
	TypeBlueprint Type = "blueprint"
	TypePRD       Type = "prd"
	TypeMVP       Type = "mvp"
	TypePlan      Type = "plan"
	TypePlaybook  Type = "playbook"
)

// All returns every document type in presentation order.
func All() []Type {
	return []Type{TypeBlueprint, TypePRD, TypeMVP, TypePlan, TypePlaybook}
}

// ParseType normalizes a raw string (trim, lowercase) and maps it to a
// Type. This is the single normalization point for type strings coming
// in from routes, tools, or config.
func ParseType(raw string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(raw))) {
	case TypeBlueprint:
		return TypeBlueprint, nil
	case TypePRD:
		return TypePRD, nil
	case TypeMVP:
		return TypeMVP, nil
	case TypePlan:
		return TypePlan, nil
	case TypePlaybook:
		return TypePlaybook, nil
	default:
		return "", fmt.Errorf("%w: %q", docerrors.ErrUnknownDocType, raw)
	}
}

// Title returns the human heading used when seeding a skeleton record.
func (t Type) Title() string {
	switch t {
	case TypeBlueprint:
		return "Blueprint"
	case TypePRD:
		return "PRD"
	case TypeMVP:
		return "MVP"
	case TypePlan:
		return "Plan"
	case TypePlaybook:
		return "Agent Playbook"
	default:
		return string(t)
	}
}

// SkeletonContent returns the placeholder content a fresh record is
// seeded with at project creation. It classifies as skeleton by design.
func (t Type) SkeletonContent() string {
	return "# " + t.Title() + "\n"
}

// defaultCandidates maps each type to its filename candidates, canonical
// name first. Alternates cover legacy and agent-chosen names observed in
// the wild. Order is preference order.
var defaultCandidates = map[Type][]string{
	TypeBlueprint: {"BLUEPRINT.md", "blueprint.md", "ARCHITECTURE.md"},
	TypePRD:       {"PRD.md", "prd.md", "REQUIREMENTS.md"},
	TypeMVP:       {"MVP.md", "mvp.md"},
	TypePlan:      {"PLAN.md", "plan.md", "IMPLEMENTATION_PLAN.md"},
	TypePlaybook:  {"AGENT_PLAYBOOK.md", "PLAYBOOK.md"},
}

// Candidates returns the filename candidates for a type in preference
// order. The returned slice is a copy; callers may mutate it.
func (t Type) Candidates() []string {
	names := candidateTable()[t]

	out := make([]string, len(names))
	copy(out, names)

	return out
}

// CanonicalFilename returns the preferred, first-choice filename for a
// type. New files are always created under this name.
func (t Type) CanonicalFilename() string {
	return candidateTable()[t][0]
}
