package models

// Flat storage keys of the global configuration record
const (
	KeyDappName   = "dapp_name"
	KeyOracle     = "oracle"
	KeyTimeMargin = "time_margin"
	KeyMinTime    = "min_time"
	KeyMaxTime    = "max_time"
)

// MinEventLead is the shortest allowed distance (seconds) between agreement creation and the insured event,
// before the time margin is added
const MinEventLead = 3600

// GlobalConfig is the singleton configuration written by deploy
type GlobalConfig struct {
	DappName   string `json:"dapp_name"`
	Oracle     string `json:"oracle"`
	TimeMargin int64  `json:"time_margin"` // seconds
	MinTime    int64  `json:"min_time"`    // seconds from creation
	MaxTime    int64  `json:"max_time"`    // seconds from creation
}

// TimeLimitField names a field accepted by updateTimeLimits
type TimeLimitField string

const (
	FieldTimeMargin TimeLimitField = KeyTimeMargin
	FieldMinTime    TimeLimitField = KeyMinTime
	FieldMaxTime    TimeLimitField = KeyMaxTime
)

// Valid reports whether f is one of the updatable time limit fields
func (f TimeLimitField) Valid() bool {
	switch f {
	case FieldTimeMargin, FieldMinTime, FieldMaxTime:
		return true
	}
	return false
}

// OrderingHolds reports whether the cross-field ordering enforced at deploy time still holds
func (c GlobalConfig) OrderingHolds() bool {
	return c.TimeMargin >= 0 &&
		c.MinTime >= MinEventLead+c.TimeMargin &&
		c.MaxTime > c.MinTime+c.TimeMargin
}
