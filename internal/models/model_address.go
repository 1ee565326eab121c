package models

import (
	"strings"
	"time"
)

type Address struct {
	ID string `gorm:"column:id;primary_key;type:uuid" json:"id"`

	FirstName string `gorm:"column:first_name;type:varchar(64)" json:"first_name"`
	LastName  string `gorm:"column:last_name;type:varchar(64)" json:"last_name"`
	Line1     string `gorm:"column:line1;type:varchar(256)" json:"line1"`
	Line2     string `gorm:"column:line2;type:varchar(256)" json:"line2"`
	City      string `gorm:"column:city;type:varchar(128)" json:"city"`
	State     string `gorm:"column:state;type:varchar(128)" json:"state"`
	Postcode  string `gorm:"column:postcode;type:varchar(32)" json:"postcode"`
	// CountryCode is an ISO 3166-1 alpha-2 code; may be empty for
	// provisional addresses built from gateway callbacks.
	CountryCode string `gorm:"column:country_code;type:varchar(2)" json:"country_code"`

	CreatedAt time.Time `json:"created_at"`
}

func (Address) TableName() string {
	return "address"
}

// Summary renders a one-line form of the address for snapshot storage and
// dashboard display.
func (a *Address) Summary() string {
	if a == nil {
		return ""
	}
	parts := []string{
		strings.TrimSpace(a.FirstName + " " + a.LastName),
		a.Line1, a.Line2, a.City, a.State, a.Postcode, a.CountryCode,
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}
