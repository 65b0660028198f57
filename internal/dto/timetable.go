package dto

// AssignSlotRequest proposes placing a teacher into a class slot.
type AssignSlotRequest struct {
	ClassID   string `json:"classId" validate:"required"`
	TeacherID string `json:"teacherId" validate:"required"`
	Day       string `json:"day" validate:"required"`
	Period    int    `json:"period" validate:"required,min=1"`
}

// ReassignSlotRequest moves an existing schedule entry to another teacher.
type ReassignSlotRequest struct {
	TeacherID string `json:"teacherId" validate:"required"`
}

// AvailabilityQuery selects the slot for an availability lookup.
type AvailabilityQuery struct {
	Day    string `form:"day" validate:"required"`
	Period int    `form:"period" validate:"required,min=1"`
}

// DayPeriodsInput lists the periods a teacher offers on one day.
type DayPeriodsInput struct {
	Day     string `json:"day" validate:"required"`
	Periods []int  `json:"periods" validate:"dive,min=1"`
}

// ProvisionAvailabilityRequest replaces the set of slots a teacher offers.
type ProvisionAvailabilityRequest struct {
	Available []DayPeriodsInput `json:"available" validate:"dive"`
}

// ScheduleListQuery filters the admin schedule listing.
type ScheduleListQuery struct {
	ClassID   string `form:"classId"`
	TeacherID string `form:"teacherId"`
	Day       string `form:"day"`
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
}

// CreateCourseRequest registers a class offering.
type CreateCourseRequest struct {
	Name string `json:"name" validate:"required"`
	Code string `json:"code" validate:"required,max=32"`
}
