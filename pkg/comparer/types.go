package comparer

// Classification is the outcome of comparing one relative path across the
// old and new trees.
type Classification string

const (
	ClassAdded     Classification = "added"
	ClassDeleted   Classification = "deleted"
	ClassChanged   Classification = "changed"
	ClassUnchanged Classification = "unchanged"
	ClassSkipped   Classification = "skipped"
)

// SkipReason explains why a path was excluded from the report.
type SkipReason string

const (
	SkipReasonDir       SkipReason = "dir"
	SkipReasonSpecial   SkipReason = "special"
	SkipReasonBinary    SkipReason = "binary"
	SkipReasonIdentical SkipReason = "identical"
	SkipReasonNotFound  SkipReason = "not-found"
)

// Status is the lifecycle state of a path as reported through Hooks.
// Terminal states mirror the classification so progress consumers can render
// the final outcome without a second lookup.
type Status string

const (
	StatusPending   Status = "pending"
	StatusComparing Status = "comparing"
	StatusChanged   Status = "changed"
	StatusUnchanged Status = "unchanged"
	StatusAdded     Status = "added"
	StatusDeleted   Status = "deleted"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// StatusForClassification maps a terminal classification to its Status.
func StatusForClassification(class Classification) Status {
	switch class {
	case ClassAdded:
		return StatusAdded
	case ClassDeleted:
		return StatusDeleted
	case ClassChanged:
		return StatusChanged
	case ClassUnchanged:
		return StatusUnchanged
	default:
		return StatusSkipped
	}
}

// OnErrorMode defines the behavior when comparing a single path fails.
type OnErrorMode string

const (
	OnErrorStop     OnErrorMode = "stop"
	OnErrorContinue OnErrorMode = "continue"
)

// GitListMode selects how git supplies the comparison path set.
type GitListMode string

const (
	GitListNone     GitListMode = "none"
	GitListDiffOnly GitListMode = "diffOnly"
	GitListSince    GitListMode = "since"
)
