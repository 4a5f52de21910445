package models

import "fmt"

// Fixed bidirectional mapping between local lead statuses and EasyCars
// integer status codes.
const (
	RemoteLeadNew        = 10
	RemoteLeadInProgress = 30
	RemoteLeadWon        = 50
	RemoteLeadLost       = 60
	RemoteLeadDeleted    = 90
)

var statusToRemote = map[LeadStatus]int{
	LeadNew:        RemoteLeadNew,
	LeadInProgress: RemoteLeadInProgress,
	LeadWon:        RemoteLeadWon,
	LeadLost:       RemoteLeadLost,
	LeadDeleted:    RemoteLeadDeleted,
}

var statusFromRemote = map[int]LeadStatus{
	RemoteLeadNew:        LeadNew,
	RemoteLeadInProgress: LeadInProgress,
	RemoteLeadWon:        LeadWon,
	RemoteLeadLost:       LeadLost,
	RemoteLeadDeleted:    LeadDeleted,
}

// RemoteCode translates a local status to the EasyCars code.
func (s LeadStatus) RemoteCode() (int, error) {
	code, ok := statusToRemote[s]
	if !ok {
		return 0, &InputError{Field: "status", Reason: fmt.Sprintf("unknown lead status %q", s)}
	}
	return code, nil
}

// LeadStatusFromRemote translates an EasyCars code to the local status.
func LeadStatusFromRemote(code int) (LeadStatus, error) {
	s, ok := statusFromRemote[code]
	if !ok {
		return "", &InputError{Field: "status", Reason: fmt.Sprintf("unknown remote status code %d", code)}
	}
	return s, nil
}
