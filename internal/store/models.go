// Package store implements the typed client for the hosted tabular data
// store. All persistence lives there; this service only issues filtered
// reads and appends tracking facts over its REST interface.
package store

// Participant scoring policies understood by the client.
const (
	ScoringNotScored = "Not Scored"
	ScoringQRCodes   = "Number of Scanned QR Codes"
)

// Project is a guided tour definition. Read-only from this client;
// authoring happens in a separate admin tool.
type Project struct {
	ID                 int    `json:"id"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	Instructions       string `json:"instructions"`
	InitialClue        string `json:"initial_clue"`
	IsPublished        bool   `json:"is_published"`
	ParticipantScoring string `json:"participant_scoring"`
	HomescreenDisplay  string `json:"homescreen_display"`
}

// Location is a point of interest within a project. Read-only from this
// client. LocationPosition is the store's textual "(lat,lon)" encoding;
// it is parsed lazily so a malformed row never poisons a whole listing.
type Location struct {
	ID               int     `json:"id"`
	ProjectID        int     `json:"project_id"`
	LocationName     string  `json:"location_name"`
	LocationContent  string  `json:"location_content"`
	Clue             string  `json:"clue"`
	ScorePoints      float64 `json:"score_points"`
	LocationTrigger  string  `json:"location_trigger"`
	LocationPosition string  `json:"location_position"`
}

// PositionString returns the stored textual position for geofence evaluation.
func (l Location) PositionString() string { return l.LocationPosition }

// PositionID returns the location's ID for geofence evaluation.
func (l Location) PositionID() int { return l.ID }

// TrackingEntry is an append-only fact: one recorded visit by one
// participant to one location within one project. Entries are never updated
// or deleted by this service.
type TrackingEntry struct {
	ID                  int     `json:"id,omitempty"`
	ProjectID           int     `json:"project_id"`
	LocationID          int     `json:"location_id"`
	ParticipantUsername string  `json:"participant_username"`
	Points              float64 `json:"points"`
}

// ProjectCount is the store's derived per-project participant count view.
type ProjectCount struct {
	ProjectID          int `json:"project_id"`
	NumberParticipants int `json:"number_participants"`
}

// LocationCount is the store's derived per-location participant count view.
type LocationCount struct {
	ProjectID          int `json:"project_id"`
	LocationID         int `json:"location_id"`
	NumberParticipants int `json:"number_participants"`
}
