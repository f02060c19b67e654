package db

import (
	"database/sql"
	"time"
)

type Participant struct {
	ID         string
	Title      string
	ImageUrl   sql.NullString
	IsEligible bool
	UpdatedAt  time.Time
}
