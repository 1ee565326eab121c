package tool

import "github.com/google/uuid"

// GenerateUUIDV7 returns a time-sortable UUID string used as the primary key
// for all ledger and payment rows.
func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}
