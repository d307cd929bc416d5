package domain

type EmployeeStatus string

const (
	EmployeeActive   EmployeeStatus = "active"
	EmployeeInactive EmployeeStatus = "inactive"
)

type Employee struct {
	ID         string         `json:"_id,omitempty"`
	Name       string         `json:"name" validate:"required"`
	Email      string         `json:"email,omitempty" validate:"omitempty,email"`
	Department string         `json:"department,omitempty"`
	Status     EmployeeStatus `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
}
