package tracelog

// Run statuses.
const (
	StatusRunning = "running"
	StatusPassed  = "passed"
	StatusFailed  = "failed"
)

// Entry kinds.
const (
	KindValue      = "value"
	KindCollection = "collection"
	KindCounter    = "counter"
)

// Run is one recorded execution of a scenario.
type Run struct {
	ID        string `json:"id"`
	Scenario  string `json:"scenario"`
	Source    string `json:"source,omitempty"` // digest of the scenario document
	StartedAt int64  `json:"started_at"`       // Unix milliseconds
	Status    string `json:"status"`
	Digest    string `json:"digest"`
	Entries   int    `json:"entries"`
}

// Entry is one delta emitted by a store during a run.
type Entry struct {
	Seq     int64
	Store   string
	Kind    string
	TS      int64
	Payload string // canonical JSON of the delta
}
