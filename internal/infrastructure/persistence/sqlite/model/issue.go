package model

// TimeLayout is fixed width in UTC so that text order equals time order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Issue struct {
	ID          string `gorm:"column:id;type:text;primaryKey"`
	Title       string `gorm:"column:title;type:text;not null"`
	Description string `gorm:"column:description;type:text;not null"`
	Status      string `gorm:"column:status;type:text;not null;default:OPEN;index:idx_issues_status_created,priority:1"`
	CreatedAt   string `gorm:"column:created_at;type:text;not null;index:idx_issues_status_created,priority:2;index:idx_issues_created"`
	UpdatedAt   string `gorm:"column:updated_at;type:text;not null"`
}

func (Issue) TableName() string {
	return "issues"
}
