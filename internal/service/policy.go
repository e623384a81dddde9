package service

import "cityevents/internal/models"

// CanModifyEvent reports whether the caller may update or delete the event:
// its author, or anyone allowed to manage any event.
func CanModifyEvent(caller *models.Identity, event *models.Event) bool {
	if caller == nil || event == nil {
		return false
	}
	return caller.ID == event.AuthorID || models.HasCapability(caller, models.CapManageAnyEvent)
}

func requireCapability(caller *models.Identity, capability models.Capability) error {
	if caller == nil {
		return models.NewUnauthorizedError("Authentication required")
	}
	if !models.HasCapability(caller, capability) {
		return models.NewForbiddenError("Insufficient permissions")
	}
	return nil
}
