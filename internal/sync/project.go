package sync

import "github.com/Jercik/sync-rules-sub001/internal/scan"

// ProjectInfo identifies one directory tree participating in a run.
// Name is the display key and must be unique within the run.
type ProjectInfo struct {
	Name string
	Path string
}

// ProjectScan pairs a project with its scanner output.
type ProjectScan struct {
	Project ProjectInfo
	Files   scan.Result
}
