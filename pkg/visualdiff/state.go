package visualdiff

// Mode selects how much work a comparison does
type Mode int

const (
	// ModeBooleanOnly answers equal or not and stops at the first difference
	ModeBooleanOnly Mode = iota
	// ModeReport compares every page and writes a side-by-side document
	// when differences exist
	ModeReport
)

func (m Mode) String() string {
	if m == ModeReport {
		return "report"
	}
	return "boolean"
}

// State is a step of the comparison. A comparison that finishes without
// building an overlay ends in StateEqualDone, with Result.Equal telling
// whether the documents matched. StateDiffDone means a difference document
// was written.
type State int

const (
	StateInit State = iota
	StateRasterizing
	StateComparing
	StateEqualDone
	StateBuildingOverlay
	StateDiffDone
	StateError
)

var stateNames = [...]string{
	StateInit:            "INIT",
	StateRasterizing:     "RASTERIZING",
	StateComparing:       "COMPARING",
	StateEqualDone:       "EQUAL_DONE",
	StateBuildingOverlay: "BUILDING_OVERLAY",
	StateDiffDone:        "DIFF_DONE",
	StateError:           "ERROR",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}

// PageStatus describes the outcome for one page slot
type PageStatus string

const (
	PageEqual     PageStatus = "equal"
	PageDifferent PageStatus = "different"
	PageOnlyInA   PageStatus = "only in a"
	PageOnlyInB   PageStatus = "only in b"
)

// PageResult is the outcome for one page slot
type PageResult struct {
	Index      int
	Status     PageStatus
	DiffPixels int
}
