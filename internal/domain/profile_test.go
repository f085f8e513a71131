package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListProfilesFilter_Match(t *testing.T) {
	acme := &Profile{Name: "Acme", Status: StatusLive}
	locked := &Profile{Name: "Globex", Status: StatusLock}

	tests := []struct {
		name   string
		filter ListProfilesFilter
		p      *Profile
		want   bool
	}{
		{name: "empty filter", filter: ListProfilesFilter{}, p: acme, want: true},
		{name: "substring any case", filter: ListProfilesFilter{Query: "acm"}, p: acme, want: true},
		{name: "upper query", filter: ListProfilesFilter{Query: "CME"}, p: acme, want: true},
		{name: "no match", filter: ListProfilesFilter{Query: "xyz"}, p: acme, want: false},
		{name: "status exact", filter: ListProfilesFilter{Status: StatusLock}, p: locked, want: true},
		{name: "status mismatch", filter: ListProfilesFilter{Status: StatusLock}, p: acme, want: false},
		{name: "status is not a substring match", filter: ListProfilesFilter{Status: "loc"}, p: locked, want: false},
		{name: "status is case-sensitive", filter: ListProfilesFilter{Status: "Lock"}, p: locked, want: false},
		{name: "upper-case status", filter: ListProfilesFilter{Status: "LIVE"}, p: acme, want: false},
		{name: "both", filter: ListProfilesFilter{Query: "glob", Status: StatusLock}, p: locked, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(tt.p))
		})
	}
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, StatusLive.Valid())
	assert.True(t, StatusLock.Valid())
	assert.False(t, Status("").Valid())
	assert.False(t, Status("LIVE").Valid())
}
