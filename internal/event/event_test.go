package event

import (
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/fcp/internal/fserr"
)

func TestTypeString(t *testing.T) {
	tests := []struct {
		want string
		typ  Type
	}{
		{want: "DirCreated", typ: DirCreated},
		{want: "FileCompleted", typ: FileCompleted},
		{want: "SymlinkCreated", typ: SymlinkCreated},
		{want: "SpecialCreated", typ: SpecialCreated},
		{want: "HardlinkCreated", typ: HardlinkCreated},
		{want: "DirFinalized", typ: DirFinalized},
		{want: "Failed", typ: Failed},
		{want: "MetadataWarning", typ: MetadataWarning},
		{want: "VerifyStarted", typ: VerifyStarted},
		{want: "VerifyOK", typ: VerifyOK},
		{want: "VerifyFailed", typ: VerifyFailed},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.String())
		})
	}
}

func TestTypeStringUnknown(t *testing.T) {
	assert.Equal(t, "Unknown", Type(999).String())
	assert.Equal(t, "Unknown", Type(0).String())
}

func TestEventKind(t *testing.T) {
	ev := Event{Type: Failed, Error: fserr.New("open", "/a", syscall.EACCES)}
	assert.Equal(t, fserr.PermissionDenied, ev.Kind())

	ev = Event{Type: Failed, Error: errors.New("boom")}
	assert.Equal(t, fserr.IOError, ev.Kind())
}

func TestEmit(t *testing.T) {
	ch := make(chan Event, 1)
	Emit(ch, Event{Type: FileCompleted, Path: "/src/a", Size: 12})

	ev := <-ch
	assert.Equal(t, FileCompleted, ev.Type)
	assert.Equal(t, int64(12), ev.Size)
	assert.WithinDuration(t, time.Now(), ev.Timestamp, time.Minute)
}

func TestEmitNilChannel(t *testing.T) {
	require.NotPanics(t, func() {
		Emit(nil, Event{Type: FileCompleted})
	})
}
