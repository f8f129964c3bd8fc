package dto

type OverviewResponse struct {
	TotalComplaints    int64   `json:"total_complaints"`
	TotalStudents      int64   `json:"total_students"`
	TotalDepartments   int64   `json:"total_departments"`
	AvgResolutionHours float64 `json:"avg_resolution_time_hours"`
}

type CategoryStatsResponse struct {
	Category   string `json:"category"`
	Count      int64  `json:"count"`
	Resolved   int64  `json:"resolved"`
	Pending    int64  `json:"pending"`
	InProgress int64  `json:"in_progress"`
}

type DailyCountResponse struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

type DashboardResponse struct {
	Overview   OverviewResponse        `json:"overview"`
	ByStatus   map[string]int64        `json:"by_status"`
	ByPriority map[string]int64        `json:"by_priority"`
	Categories []CategoryStatsResponse `json:"categories"`
	Recent     []ComplaintResponse     `json:"recent_complaints"`
	Daily      []DailyCountResponse    `json:"complaints_over_time"`
}

type DepartmentAnalyticsResponse struct {
	Department string              `json:"department"`
	Total      int64               `json:"total"`
	ByStatus   map[string]int64    `json:"by_status"`
	Recent     []ComplaintResponse `json:"recent_complaints"`
}
