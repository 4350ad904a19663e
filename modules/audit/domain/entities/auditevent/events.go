package auditevent

// CreatedEvent is published after an audit event is persisted.
type CreatedEvent struct {
	Result *AuditEvent
}
