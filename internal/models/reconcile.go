package models

// ReconcileReport summarises repairs applied to one teacher's availability record.
type ReconcileReport struct {
	TeacherID         string `json:"teacherId"`
	AvailabilityFixed int    `json:"availabilityFixed"`
	EntriesCreated    int    `json:"entriesCreated"`
	BackRefsAdded     int    `json:"backRefsAdded"`
	BackRefsRemoved   int    `json:"backRefsRemoved"`
	DryRun            bool   `json:"dryRun"`
}

// Drift is the total number of corrections the report describes.
func (r ReconcileReport) Drift() int {
	return r.AvailabilityFixed + r.EntriesCreated + r.BackRefsAdded + r.BackRefsRemoved
}
