package lifecycle

import "github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"

type guard struct {
	applies func(from, to entity.JobStatus) bool
	check   func(Facts) string
}

func entering(status entity.JobStatus) func(from, to entity.JobStatus) bool {
	return func(_, to entity.JobStatus) bool { return to == status }
}

func leaving(status entity.JobStatus) func(from, to entity.JobStatus) bool {
	return func(from, _ entity.JobStatus) bool { return from == status }
}

var guards = []guard{
	{
		applies: entering(entity.JobStatusInProgress),
		check: func(f Facts) string {
			if f.BeforeEvidence < 1 {
				return "at least one before photo is required to start work"
			}
			if !f.SecurityCodeVerified {
				return "security code must be verified on site before work starts"
			}
			return ""
		},
	},
	{
		applies: entering(entity.JobStatusPaymentPending),
		check: func(f Facts) string {
			if f.AfterEvidence < 1 {
				return "at least one after photo is required to complete work"
			}
			return ""
		},
	},
	{
		applies: entering(entity.JobStatusDisputed),
		check: func(f Facts) string {
			switch f.Actor {
			case entity.ActorClient, entity.ActorProvider, entity.ActorAdmin:
				return ""
			}
			return "only the client, the provider or an admin can open a dispute"
		},
	},
	{
		applies: leaving(entity.JobStatusDisputed),
		check: func(f Facts) string {
			if f.Actor != entity.ActorAdmin {
				return "only an admin can resolve a dispute"
			}
			return ""
		},
	},
}
