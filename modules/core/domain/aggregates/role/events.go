package role

import "context"

type CreatedEvent struct {
	CauserID uint
	Data     Role
	Result   Role
}

type UpdatedEvent struct {
	CauserID uint
	Data     Role
	Result   Role
}

type DeletedEvent struct {
	CauserID uint
	Result   Role
}

func NewCreatedEvent(_ context.Context, causerID uint, data Role) *CreatedEvent {
	return &CreatedEvent{CauserID: causerID, Data: data}
}

func NewUpdatedEvent(_ context.Context, causerID uint, data Role) *UpdatedEvent {
	return &UpdatedEvent{CauserID: causerID, Data: data}
}

func NewDeletedEvent(_ context.Context, causerID uint) *DeletedEvent {
	return &DeletedEvent{CauserID: causerID}
}
