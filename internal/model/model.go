package model

import (
	"encoding/json"
	"time"
)

// Course is a classroom course as reported by the upstream platform.
type Course struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DueDate is a calendar date without a time component. Zero fields mean
// the upstream platform did not report them.
type DueDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// Complete reports whether year, month and day are all present.
func (d *DueDate) Complete() bool {
	return d != nil && d.Year != 0 && d.Month != 0 && d.Day != 0
}

// In returns midnight of the date in loc.
func (d DueDate) In(loc *time.Location) time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, loc)
}

// CourseWork is a raw coursework item belonging to a course.
type CourseWork struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	DueDate     *DueDate `json:"dueDate,omitempty"`
}

// Homework is the normalized record returned to the client.
type Homework struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"dueDate"`
	Subject     string    `json:"subject"`
}

// MarshalJSON encodes DueDate as epoch milliseconds, which the client sorts numerically.
func (h Homework) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		DueDate     int64  `json:"dueDate"`
		Subject     string `json:"subject"`
	}{
		Title:       h.Title,
		Description: h.Description,
		DueDate:     h.DueDate.UnixMilli(),
		Subject:     h.Subject,
	})
}

// SecretMaterial is freshly generated key material for provisioning a deployment.
type SecretMaterial struct {
	PathSecret    string
	EncryptionKey string
	EncryptionIV  string
}
