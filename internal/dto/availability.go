package dto

// AvailabilityRequest creates or replaces a weekly availability window.
type AvailabilityRequest struct {
	DayOfWeek *int   `json:"dayOfWeek" validate:"required,min=0,max=6"`
	StartTime string `json:"startTime" validate:"required,len=5,datetime=15:04"`
	EndTime   string `json:"endTime" validate:"required,len=5,datetime=15:04"`
	IsActive  *bool  `json:"isActive"`
}

// AvailabilityCheckResponse answers whether a teacher can take a class at an instant.
type AvailabilityCheckResponse struct {
	TeacherID string `json:"teacherId"`
	At        string `json:"at"`
	Available bool   `json:"available"`
}
