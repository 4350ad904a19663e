package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var assignmentConflicts = promauto.NewCounter(prometheus.CounterOpts{
	Name: "adminkit_role_assignment_conflicts_total",
	Help: "Duplicate role-assignment inserts rejected by the unique constraint.",
})

func recordAssignmentConflict() {
	assignmentConflicts.Inc()
}
