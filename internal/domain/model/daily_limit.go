package model

import "time"

// UnlimitedQuota is the role-limit sentinel for "no daily cap".
const UnlimitedQuota = -1

// DailyLimit is one per-user row of daily counters, mutated in place and reset
// lazily on the first access of a new calendar day.
type DailyLimit struct {
	UserID        string              `json:"user_id"`
	LastResetDate time.Time           `json:"last_reset_date"`
	Counters      map[SectionType]int `json:"counters"`
}

func (d *DailyLimit) Used(section SectionType) int {
	if d.Counters == nil {
		return 0
	}
	return d.Counters[section]
}

// LimitsInfo is the usage/limits snapshot attached to quota rejections and the
// limits endpoint.
type LimitsInfo struct {
	Usage  map[string]int `json:"usage"`
	Limits map[string]int `json:"limits"`
}
