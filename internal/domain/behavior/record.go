// Package behavior describes auxiliary behavioral records keyed by audience name.
package behavior

// Record is one behavioral observation for an audience at a location.
type Record struct {
	AudienceName string  `json:"audience_name" yaml:"audience_name"`
	LocationKey  string  `json:"location_key" yaml:"location_key"`
	Weight       float64 `json:"weight" yaml:"weight"`
}
