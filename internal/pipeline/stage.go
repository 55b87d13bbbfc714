package pipeline

// Stage is a step of a pipeline run. Runs only move forward. Failed is
// reachable from Identifying (input, extraction or no items) and from
// Searching (missing search API key or a failed CSV write).
type Stage int

const (
	StageIdentifying Stage = iota
	StageSearching
	StageCleaning
	StageLinkExtraction
	StageFinalizing
	StageDone
	StageFailed
)

var stageNames = map[Stage]string{
	StageIdentifying:    "identifying",
	StageSearching:      "searching",
	StageCleaning:       "cleaning",
	StageLinkExtraction: "link_extraction",
	StageFinalizing:     "finalizing",
	StageDone:           "done",
	StageFailed:         "failed",
}

var stageMessages = map[Stage]string{
	StageIdentifying:    "Identifying clothing items...",
	StageSearching:      "Searching for products...",
	StageCleaning:       "Cleaning and organizing search results...",
	StageLinkExtraction: "Extracting direct retailer links...",
	StageFinalizing:     "Finalizing results...",
	StageDone:           "Search and extraction complete!",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// Message is the human readable status sent to the progress hook when the
// stage starts.
func (s Stage) Message() string {
	return stageMessages[s]
}

// ProgressFunc is called synchronously on the pipeline goroutine.
type ProgressFunc func(stage Stage, message string)

// FailureKind tells callers why a run stopped early.
type FailureKind string

const (
	FailureInput    FailureKind = "input"
	FailureNoItems  FailureKind = "no_items"
	FailureUpstream FailureKind = "upstream"
	FailureConfig   FailureKind = "config"
	FailureParse    FailureKind = "parse"
	FailureArtifact FailureKind = "artifact"
)

// Failure is an anticipated failure of a run, reported as data.
type Failure struct {
	Kind        FailureKind `json:"kind"`
	Message     string      `json:"error"`
	RawResponse string      `json:"raw_response,omitempty"`
}

func (f *Failure) Error() string {
	return string(f.Kind) + ": " + f.Message
}
