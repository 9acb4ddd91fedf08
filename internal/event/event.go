package event

import (
	"time"

	"github.com/bamsammich/fcp/internal/fserr"
)

// Type identifies the kind of event.
type Type int

const (
	DirCreated Type = iota + 1
	FileCompleted
	SymlinkCreated
	SpecialCreated
	HardlinkCreated
	DirFinalized
	Failed
	MetadataWarning
	VerifyStarted
	VerifyOK
	VerifyFailed
)

var typeNames = [...]string{
	DirCreated:      "DirCreated",
	FileCompleted:   "FileCompleted",
	SymlinkCreated:  "SymlinkCreated",
	SpecialCreated:  "SpecialCreated",
	HardlinkCreated: "HardlinkCreated",
	DirFinalized:    "DirFinalized",
	Failed:          "Failed",
	MetadataWarning: "MetadataWarning",
	VerifyStarted:   "VerifyStarted",
	VerifyOK:        "VerifyOK",
	VerifyFailed:    "VerifyFailed",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event is one per-path outcome emitted by the engine.
type Event struct {
	Timestamp time.Time
	Error     error  // *fserr.Error for Failed, plain error for warnings
	Path      string // source path
	DstPath   string
	Size      int64 // bytes transferred
	Type      Type
	WorkerID  int
}

// Kind returns the failure kind of a Failed event.
func (e Event) Kind() fserr.Kind {
	return fserr.Classify(e.Error)
}

// Emit sends ev on ch, stamping the time. A nil channel discards the event.
// Sends block rather than drop so consumers observe every outcome.
func Emit(ch chan<- Event, ev Event) {
	if ch == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	ch <- ev
}
