package domain

// AssignmentKind tells which courier pool owns a job right now.
type AssignmentKind string

// Assignment kinds. The zero value means unassigned.
const (
	AssignmentNone      AssignmentKind = ""
	AssignmentRegular   AssignmentKind = "REGULAR"
	AssignmentLogistics AssignmentKind = "LOGISTICS"
)

// Assignment is the single active courier reference of a job. A job can hold
// either a regular or a logistics courier, never both.
type Assignment struct {
	Kind      AssignmentKind `json:"kind,omitempty"`
	CourierID int64          `json:"courier_id,omitempty"`
}

// Unassigned returns the empty assignment.
func Unassigned() Assignment { return Assignment{} }

// AssignedRegular returns a regular-courier assignment.
func AssignedRegular(courierID int64) Assignment {
	return Assignment{Kind: AssignmentRegular, CourierID: courierID}
}

// AssignedLogistics returns a logistics-courier assignment.
func AssignedLogistics(courierID int64) Assignment {
	return Assignment{Kind: AssignmentLogistics, CourierID: courierID}
}

// Active reports whether a courier is attached.
func (a Assignment) Active() bool { return a.Kind != AssignmentNone && a.CourierID > 0 }

// Courier returns the courier id and whether one is attached.
func (a Assignment) Courier() (int64, bool) {
	if !a.Active() {
		return 0, false
	}
	return a.CourierID, true
}
