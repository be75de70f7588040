package directory

import "time"

type Employee struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenantId"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullName"`
	Department string    `json:"department"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TeamLeave is one colleague's overlapping leave in a team snapshot.
type TeamLeave struct {
	EmployeeID string `json:"employeeId"`
	FullName   string `json:"fullName"`
	Category   string `json:"category"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
	Status     string `json:"status"`
}

type TeamSnapshot struct {
	Department string      `json:"department"`
	Headcount  int         `json:"headcount"`
	OnLeave    []TeamLeave `json:"onLeave"`
}
