package model

import "time"

// RepositoryReference holds a parsed GitHub URL. Branch and TargetPath are
// only set once the branch has been resolved against the branch list.
type RepositoryReference struct {
	Owner      string
	Repository string
	Branch     string
	RawPath    string
	TargetPath string
	IsFile     bool
}

// Resolved reports whether a branch has been assigned.
func (r RepositoryReference) Resolved() bool {
	return r.Branch != ""
}

// FullName returns "owner/repo".
func (r RepositoryReference) FullName() string {
	return r.Owner + "/" + r.Repository
}

type EntryKind string

// KindFile is the only kind the lister emits; directories are expanded.
const KindFile EntryKind = "file"

// TreeEntry is a single file selected from the recursive tree listing.
type TreeEntry struct {
	Path      string
	Kind      EntryKind
	RemoteURL string
	LFSURL    string
	SHA       string
	Size      int64
}

// DownloadTask describes one file transfer. Tasks are built before the
// fan-out starts and are not modified afterwards.
type DownloadTask struct {
	Path      string
	RemoteURL string
	LFSURL    string
	LocalPath string
	SHA       string
	Timeout   time.Duration
}

// DownloadOutcome is produced exactly once per task by the scheduler.
type DownloadOutcome struct {
	Task     DownloadTask
	Success  bool
	Kind     ErrorKind
	Err      error
	Bytes    int64
	Duration time.Duration
}
