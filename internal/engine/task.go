package engine

import (
	"io/fs"
	"os"
	"syscall"
	"time"
)

// EntryType identifies the kind of filesystem entry.
type EntryType int

const (
	Unknown EntryType = iota
	Regular
	Directory
	Symlink
	FIFO
	Socket
	Device
)

var entryTypeNames = [...]string{
	Unknown:   "unknown",
	Regular:   "regular",
	Directory: "directory",
	Symlink:   "symlink",
	FIFO:      "fifo",
	Socket:    "socket",
	Device:    "device",
}

func (t EntryType) String() string {
	if t >= 0 && int(t) < len(entryTypeNames) {
		return entryTypeNames[t]
	}
	return "unknown"
}

// classify maps an OS file mode to an EntryType.
func classify(mode fs.FileMode) EntryType {
	switch {
	case mode.IsRegular():
		return Regular
	case mode.IsDir():
		return Directory
	case mode&fs.ModeSymlink != 0:
		return Symlink
	case mode&fs.ModeNamedPipe != 0:
		return FIFO
	case mode&fs.ModeSocket != 0:
		return Socket
	case mode&fs.ModeDevice != 0:
		return Device
	default:
		return Unknown
	}
}

// DevIno uniquely identifies an inode for hardlink detection.
type DevIno struct {
	Dev uint64
	Ino uint64
}

// Pair is one source root and the destination path it is copied to.
type Pair struct {
	Src string
	Dst string
}

// CopyTask describes a single entry to recreate at the destination. The lstat
// facts are captured once at discovery.
type CopyTask struct {
	SrcPath string
	DstPath string
	ModTime time.Time
	AccTime time.Time
	DevIno  DevIno
	Size    int64
	Rdev    uint64
	Nlink   uint64
	Mode    fs.FileMode
	UID     uint32
	GID     uint32
	Type    EntryType
}

func newTask(src, dst string, info fs.FileInfo) CopyTask {
	t := CopyTask{
		SrcPath: src,
		DstPath: dst,
		Type:    classify(info.Mode()),
		Size:    info.Size(),
		Mode:    info.Mode(),
		ModTime: info.ModTime(),
		AccTime: info.ModTime(),
		Nlink:   1,
	}
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		t.UID = st.Uid
		t.GID = st.Gid
		t.AccTime = atimeFromStat(st)
		t.Rdev = rdevFromStat(st)
		t.Nlink = nlinkFromStat(st)
		t.DevIno = DevIno{Dev: devFromStat(st), Ino: st.Ino}
	}
	return t
}

// unixPerm converts the permission and special bits of a Go file mode to
// their chmod(2) form.
func unixPerm(mode os.FileMode) uint32 {
	perm := uint32(mode.Perm())
	if mode&os.ModeSetuid != 0 {
		perm |= syscall.S_ISUID
	}
	if mode&os.ModeSetgid != 0 {
		perm |= syscall.S_ISGID
	}
	if mode&os.ModeSticky != 0 {
		perm |= syscall.S_ISVTX
	}
	return perm
}
