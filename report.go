package contentsync

// Failure reasons recorded in clone reports.
const (
	ReasonCloneFailed     = "clone failed"
	ReasonTranslateFailed = "Failed to translate or update content after cloning"
	ReasonSyncFailed      = "Failed to translate or update content during sync"
	ReasonCanceled        = "canceled before processing"
)

// ClonePair links a source item to its clone.
type ClonePair struct {
	OriginalID int `json:"originalId"`
	CloneID    int `json:"cloneId"`
}

// CloneFailure records why an item could not be processed.
type CloneFailure struct {
	ID     int    `json:"id"`
	Reason string `json:"reason"`
}

// BatchCloneReport holds one outcome per requested source ID.
type BatchCloneReport struct {
	Success []ClonePair    `json:"success"`
	Failed  []CloneFailure `json:"failed"`
}

// Len returns the number of outcomes in the report.
func (r *BatchCloneReport) Len() int {
	return len(r.Success) + len(r.Failed)
}

// SyncReport holds the outcome of synchronizing a translation group.
type SyncReport struct {
	SourceID int            `json:"sourceId"`
	Synced   []int          `json:"synced"`
	Skipped  []int          `json:"skipped"`
	Failed   []CloneFailure `json:"failed"`
}
