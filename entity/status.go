package entity

// JobStatus represents the lifecycle stage of a job
type JobStatus string

const (
	JobStatusSearching         JobStatus = "searching"
	JobStatusPendingAcceptance JobStatus = "pending_acceptance"
	JobStatusAccepted          JobStatus = "accepted"
	JobStatusEnRoute           JobStatus = "en_route"
	JobStatusArrived           JobStatus = "arrived"
	JobStatusInProgress        JobStatus = "in_progress"
	JobStatusPaymentPending    JobStatus = "payment_pending"
	JobStatusCompleted         JobStatus = "completed"
	JobStatusCancelled         JobStatus = "cancelled"
	JobStatusDisputed          JobStatus = "disputed"
)

// AllJobStatuses lists the closed status set in lifecycle order.
var AllJobStatuses = []JobStatus{
	JobStatusSearching,
	JobStatusPendingAcceptance,
	JobStatusAccepted,
	JobStatusEnRoute,
	JobStatusArrived,
	JobStatusInProgress,
	JobStatusPaymentPending,
	JobStatusCompleted,
	JobStatusCancelled,
	JobStatusDisputed,
}

// ActiveJobStatuses is every status outside the terminal set.
var ActiveJobStatuses = []JobStatus{
	JobStatusSearching,
	JobStatusPendingAcceptance,
	JobStatusAccepted,
	JobStatusEnRoute,
	JobStatusArrived,
	JobStatusInProgress,
	JobStatusPaymentPending,
	JobStatusDisputed,
}

func (s JobStatus) Valid() bool {
	for _, known := range AllJobStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusCancelled
}

// ActorRole identifies who performed a mutation
type ActorRole string

const (
	ActorClient   ActorRole = "client"
	ActorProvider ActorRole = "provider"
	ActorAdmin    ActorRole = "admin"
	ActorSystem   ActorRole = "system"
)

func (r ActorRole) Valid() bool {
	switch r {
	case ActorClient, ActorProvider, ActorAdmin, ActorSystem:
		return true
	}
	return false
}

// Urgency is the requested response tier for a service request
type Urgency string

const (
	UrgencyEmergency Urgency = "emergency"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyNormal    Urgency = "normal"
)

func (u Urgency) Valid() bool {
	return u == UrgencyEmergency || u == UrgencyUrgent || u == UrgencyNormal
}
