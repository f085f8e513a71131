package domain

import "strings"

type Status string

const (
	StatusLive Status = "live"
	StatusLock Status = "lock"
)

func (s Status) Valid() bool {
	return s == StatusLive || s == StatusLock
}

// Default values written into a freshly created profile.
const (
	DefaultWebsites = "[]"
	DefaultPayments = "{}"
	DefaultLogs     = "[]"
)

type Profile struct {
	ID        int64  `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	Status    Status `json:"status" db:"status"`
	CreatedAt string `json:"created_at" db:"created_at"`
	Websites  string `json:"websites" db:"websites"`
	Payments  string `json:"payments" db:"payments"`
	Logs      string `json:"logs" db:"logs"`
}

type CreateProfileRequest struct {
	Name string `json:"name"`
}

// UpdateProfileRequest rewrites every mutable field of a profile.
// Websites, Payments and Logs carry raw JSON text, stored verbatim.
type UpdateProfileRequest struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Status   Status `json:"status"`
	Websites string `json:"websites"`
	Payments string `json:"payments"`
	Logs     string `json:"logs"`
}

type ListProfilesFilter struct {
	Query  string `json:"q"`
	Status Status `json:"status"`
}

// Match reports whether p passes the filter: Query is a case-insensitive
// substring of the name, Status (when set) must be equal.
func (f ListProfilesFilter) Match(p *Profile) bool {
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	return strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Query))
}
