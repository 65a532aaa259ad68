package normalize

// Candidate path lists, in priority order. The workforce API has shipped
// several payload shapes over time; older shapes stay at the end.
var (
	HoursPaths = []string{"hours", "hours_worked", "worked_hours", "duration_hours", "totals.hours"}

	PlannedHoursPaths = []string{"planned_hours", "hours", "planned.hours", "duration_hours"}

	StartPaths = []string{"start_time", "start", "startDateTime", "start_date_time", "shift.start", "period.start"}

	EndPaths = []string{"end_time", "end", "endDateTime", "end_date_time", "shift.end", "period.end"}

	BreakMinutesPaths = []string{"break_minutes", "breakMinutes", "break", "pause_minutes", "shift.break_minutes"}

	CostPaths = []string{"labor_cost", "wage_cost", "cost", "costs.total", "salary.amount"}

	HourlyRatePaths = []string{"hourly_rate", "hourlyRate", "wage", "contract.hourly_rate", "user.hourly_rate"}

	ParticipantPaths = []string{"user_id", "employee_id", "userId", "user", "employee"}

	TeamPaths = []string{"team_id", "teamId", "team", "environment_team"}

	LocationPaths = []string{"location_id", "environment_id", "environment", "location"}

	RevenuePaths = []string{"revenue", "total_revenue", "amount", "turnover", "totals.revenue"}

	TransactionCountPaths = []string{"transactions", "transaction_count", "receipts", "covers", "totals.transactions"}
)
