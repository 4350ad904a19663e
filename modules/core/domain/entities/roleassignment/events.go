package roleassignment

type AssignedEvent struct {
	CauserID uint
	Result   *RoleAssignment
}

type RemovedEvent struct {
	CauserID uint
	Result   *RoleAssignment
}
