package activesession

type StartedEvent struct {
	Result *ActiveSession
}

type TerminatedEvent struct {
	Result *ActiveSession
}

// ExpiredEvent is published once per session swept by the expiry job.
type ExpiredEvent struct {
	Result *ActiveSession
}
