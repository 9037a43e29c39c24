package service

import (
	"travel-expense-api/internal/model"

	"github.com/google/uuid"
)

// Authorization guards for workflow transitions. Every transition's role
// check lives here, in one place, instead of being re-derived per endpoint.

// guardOwnerOrSuperuser allows the requesting employee themselves or a
// superuser.
func guardOwnerOrSuperuser(actor *model.User, requesterID uuid.UUID) error {
	if actor.IsSuperuser || actor.ID == requesterID {
		return nil
	}
	return errForbidden("only the requester may perform this action")
}

// guardSupervisorOf allows the requester's direct supervisor, provided the
// supervisor holds approval permits.
func guardSupervisorOf(actor *model.User, requester *model.User) error {
	if requester.SupervisorID == nil || *requester.SupervisorID != actor.ID {
		return errForbidden("only the requester's supervisor may review this request")
	}
	if !actor.IsApprover {
		return errForbidden("Supervisor does not have approval permits")
	}
	return nil
}

// guardProfileApprover allows approvers of the given profile.
func guardProfileApprover(actor *model.User, profile string) error {
	if actor.Profile != profile {
		return errForbidden("action reserved for %s users", profile)
	}
	if !actor.IsApprover {
		return errForbidden("user does not have approval permits")
	}
	return nil
}

// guardProfileApproverOrSuperuser is guardProfileApprover with a superuser
// bypass, used by the per-expense review operations.
func guardProfileApproverOrSuperuser(actor *model.User, profile string) error {
	if actor.IsSuperuser {
		return nil
	}
	return guardProfileApprover(actor, profile)
}

// guardSubmittable checks the requester can be routed to a supervisor at all.
func guardSubmittable(requester *model.User) error {
	if requester.SupervisorID == nil {
		return errValidation("requester has no supervisor assigned")
	}
	if requester.Supervisor == nil || !requester.Supervisor.IsApprover {
		return errValidation("Supervisor does not have approval permits")
	}
	return nil
}
