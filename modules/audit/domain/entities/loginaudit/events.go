package loginaudit

// RecordedEvent is published after a login attempt is persisted, whether it
// succeeded or failed.
type RecordedEvent struct {
	Result *LoginAudit
}
