package comparer

import "time"

// Report summarizes the result of a single Run.
type Report struct {
	Summary ReportSummary `json:"summary"`
	Entries []EntryRecord `json:"entries"`
	Skipped []SkippedInfo `json:"skipped"`
	Errors  []ErrorInfo   `json:"errors"`
}

// ReportSummary contains aggregated statistics for a Run.
type ReportSummary struct {
	OldPath            string        `json:"oldPath"`
	NewPath            string        `json:"newPath"`
	OutputPath         string        `json:"outputPath"`
	Title              string        `json:"title"`
	ProfileUsed        string        `json:"profileUsed,omitempty"`
	ConfigFilePath     string        `json:"configFilePath,omitempty"`
	TotalScanned       int           `json:"totalScanned"`
	Totals             GlobalSummary `json:"totals"`
	UnchangedCount     int           `json:"unchangedCount"`
	SkippedCount       int           `json:"skippedCount"`
	ErrorCount         int           `json:"errorCount"`
	FatalErrorOccurred bool          `json:"fatalError"`
	PagesWritten       int           `json:"pagesWritten"`
	DurationSeconds    float64       `json:"durationSeconds"`
	CacheEnabled       bool          `json:"cacheEnabled"`
	Concurrency        int           `json:"concurrency"`
	Timestamp          time.Time     `json:"timestamp"`
}

// GlobalSummary counts files per terminal classification. Unchanged files
// appear in the report but increment none of these.
type GlobalSummary struct {
	Changed int `json:"changed"`
	Deleted int `json:"deleted"`
	Added   int `json:"added"`
}

// Add folds one classification into the totals.
func (s *GlobalSummary) Add(class Classification) {
	switch class {
	case ClassChanged:
		s.Changed++
	case ClassDeleted:
		s.Deleted++
	case ClassAdded:
		s.Added++
	}
}

// ArtifactSet records which HTML files were generated for one path.
type ArtifactSet struct {
	OldSource bool `json:"oldSource"`
	NewSource bool `json:"newSource"`
	Cdiff     bool `json:"cdiff"`
	Udiff     bool `json:"udiff"`
	Sdiff     bool `json:"sdiff"`
	Fdiff     bool `json:"fdiff"`
}

// EntryRecord is the result of comparing one relative path across both
// trees. Created once per path during processing; immutable thereafter.
type EntryRecord struct {
	// Path is the relative path under both roots, slash-separated.
	Path           string         `json:"path"`
	Classification Classification `json:"classification"`
	SkipReason     SkipReason     `json:"skipReason,omitempty"`
	SkipDetails    string         `json:"skipDetails,omitempty"`

	// Per-file line change counts from the context diff. Zero for
	// Added/Deleted/Unchanged/Skipped entries.
	LinesChanged int `json:"linesChanged"`
	LinesDeleted int `json:"linesDeleted"`
	LinesAdded   int `json:"linesAdded"`

	Language  string      `json:"language,omitempty"`
	Artifacts ArtifactSet `json:"artifacts"`

	DurationMs int64 `json:"durationMs"`
}

// SkippedInfo details a path that was excluded from the report.
type SkippedInfo struct {
	Path    string     `json:"path"`
	Reason  SkipReason `json:"reason"`
	Details string     `json:"details,omitempty"`
}

// ErrorInfo details an error encountered while processing a specific path.
type ErrorInfo struct {
	Path    string `json:"path"`
	Error   string `json:"error"`
	IsFatal bool   `json:"isFatal"`
}
