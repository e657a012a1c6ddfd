package model

// ChangeKind names the host event that triggered a change notification.
type ChangeKind string

// Change kinds emitted by the host's post lifecycle hooks.
const (
	ChangeCreated ChangeKind = "created"
	ChangeEdited  ChangeKind = "edited"
	ChangeDeleted ChangeKind = "deleted"
)

// Change asks the indexer to reconcile one post with the index.
type Change struct {
	ID     string // unique per notification, for log correlation
	PostID int64
	Kind   ChangeKind
}
