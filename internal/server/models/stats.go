package models

// DashboardStats are the platform totals shown to admins.
type DashboardStats struct {
	TotalUsers          int
	ActiveUsers         int
	UsersByRole         map[Role]int
	TotalTasks          int
	ActiveTasks         int
	TotalApplications   int
	PendingApplications int
}
