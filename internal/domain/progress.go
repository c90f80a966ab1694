package domain

// ProgressFunc reports download progress to the TUI.
// Called once per finished song: (1, 12), (2, 12), ...
type ProgressFunc func(loaded, total int)

// PreloadReport summarizes what a download-for-offline run did
type PreloadReport struct {
	RunID     string           // Correlates log lines of one run
	SetlistID string           // Which setlist was downloaded
	Songs     int              // Distinct songs referenced by the setlist
	Cached    int              // Songs written to the cache
	Failed    map[string]error // Song id -> why it could not be cached
}

// Complete reports whether every referenced song made it into the cache
func (r PreloadReport) Complete() bool {
	return len(r.Failed) == 0 && r.Cached == r.Songs
}
