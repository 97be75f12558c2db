package dto

// CategoryCount is one reason-category aggregation bucket.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// StatusCount is one status aggregation bucket.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// MonthBucket is one month of submission volume for the heatmap.
type MonthBucket struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// DepartmentAnalyticsResponse aggregates request activity for one department.
type DepartmentAnalyticsResponse struct {
	Department string          `json:"department"`
	Semester   string          `json:"semester"`
	Total      int             `json:"total"`
	ByCategory []CategoryCount `json:"byCategory"`
	ByStatus   []StatusCount   `json:"byStatus"`
	ByMonth    []MonthBucket   `json:"byMonth"`
	Escalated  int             `json:"escalated"`
}
