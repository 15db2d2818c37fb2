package store

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// ErrEmptyFilter is returned when a tracking query is issued with no
// constraints at all. Unconstrained tracking reads are almost certainly a
// caller bug and would pull the whole event log.
var ErrEmptyFilter = errors.New("tracking filter has no constraints")

// TrackingFilter is a typed equality filter over tracking entries. Only the
// fields the store can filter on are representable; there is no string
// concatenation of query fragments anywhere above this type.
type TrackingFilter struct {
	ProjectID           *int
	LocationID          *int
	ParticipantUsername *string
}

// ByProject constrains the filter to one project.
func (f TrackingFilter) ByProject(id int) TrackingFilter {
	f.ProjectID = &id
	return f
}

// ByLocation constrains the filter to one location.
func (f TrackingFilter) ByLocation(id int) TrackingFilter {
	f.LocationID = &id
	return f
}

// ByParticipant constrains the filter to one participant username.
func (f TrackingFilter) ByParticipant(username string) TrackingFilter {
	f.ParticipantUsername = &username
	return f
}

// Validate rejects filters that would produce an unconstrained read.
func (f TrackingFilter) Validate() error {
	if f.ProjectID == nil && f.LocationID == nil && f.ParticipantUsername == nil {
		return ErrEmptyFilter
	}
	if f.ParticipantUsername != nil && *f.ParticipantUsername == "" {
		return fmt.Errorf("tracking filter: participant username constraint is empty")
	}
	return nil
}

// query serializes the filter into the store's eq.-style query values.
func (f TrackingFilter) query() url.Values {
	v := url.Values{}
	if f.ProjectID != nil {
		v.Set("project_id", "eq."+strconv.Itoa(*f.ProjectID))
	}
	if f.LocationID != nil {
		v.Set("location_id", "eq."+strconv.Itoa(*f.LocationID))
	}
	if f.ParticipantUsername != nil {
		v.Set("participant_username", "eq."+*f.ParticipantUsername)
	}
	return v
}

// eqID builds the singleton id=eq.N query used by the 0-or-1 reads.
func eqID(field string, id int) url.Values {
	v := url.Values{}
	v.Set(field, "eq."+strconv.Itoa(id))
	return v
}
