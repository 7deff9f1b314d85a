package model

import (
	"fmt"
	"slices"
	"strings"
)

// Profile names the variables of a gridded dataset and the columns of the
// matching track source.
type Profile struct {
	Name      string `yaml:"name"`
	FieldVar  string `yaml:"field"`
	LatVar    string `yaml:"lat"`
	LonVar    string `yaml:"lon"`
	TimeVar   string `yaml:"time"`
	TrackLon  string `yaml:"trackLon"`
	TrackLat  string `yaml:"trackLat"`
	TrackTime string `yaml:"trackTime"`
}

const (
	Chlorophyll = "chlorophyll"
	SeaIce      = "sea-ice"
	SeaIceFull  = "sea-ice-full"
	SST         = "sst"
)

// Profiles is a set of profiles keyed by name.
type Profiles map[string]Profile

// DefaultProfiles returns the built-in presets.
func DefaultProfiles() Profiles {
	return Profiles{
		Chlorophyll: {
			Name:     Chlorophyll,
			FieldVar: "l3m_data",
			LatVar:   "G3fakeDim0",
			LonVar:   "G3fakeDim1",
			TimeVar:  "time",
			TrackLon: "LONG",
			TrackLat: "LAT",
		},
		SeaIce: {
			Name:      SeaIce,
			FieldVar:  "Sea_Ice_Concentration_with_Final_Version",
			LatVar:    "latitude",
			LonVar:    "longitude",
			TimeVar:   "time",
			TrackLon:  "Longitude[deg+veE]",
			TrackLat:  "Latitude[deg+veN]",
			TrackTime: "yyyy-mm-ddThh24:mi[GMT/UT]",
		},
		SeaIceFull: {
			Name:      SeaIceFull,
			FieldVar:  "Sea_Ice_Concentration_with_Final_Version",
			LatVar:    "latitude",
			LonVar:    "longitude",
			TimeVar:   "time",
			TrackLon:  " seatex-gga-lon (degrees)",
			TrackLat:  " seatex-gga-lat (degrees)",
			TrackTime: "Timestamp",
		},
		SST: {
			Name:      SST,
			FieldVar:  "analysed_sst",
			LatVar:    "lat",
			LonVar:    "lon",
			TimeVar:   "time",
			TrackLon:  " seatex-gga-lon (degrees)",
			TrackLat:  " seatex-gga-lat (degrees)",
			TrackTime: "Timestamp",
		},
	}
}

// Names returns the profile names in sorted order.
func (p Profiles) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup returns the named profile.
func (p Profiles) Lookup(name string) (Profile, error) {
	profile, ok := p[name]
	if !ok {
		return Profile{}, &ConfigurationError{
			Profile: name,
			Reason:  fmt.Sprintf("unknown profile, known: %s", strings.Join(p.Names(), ", ")),
		}
	}
	return profile, nil
}

// Merge returns a copy of p with every profile of other added or applied as
// overrides on top of the profile with the same name.
func (p Profiles) Merge(other Profiles) Profiles {
	out := make(Profiles, len(p)+len(other))
	for name, profile := range p {
		out[name] = profile
	}
	for name, profile := range other {
		profile.Name = name
		out[name] = out[name].WithOverrides(profile)
	}
	return out
}

// WithOverrides returns a copy of p where every non-empty name of o replaces
// the preset one.
func (p Profile) WithOverrides(o Profile) Profile {
	pick := func(preset, override string) string {
		if override != "" {
			return override
		}
		return preset
	}
	return Profile{
		Name:      pick(p.Name, o.Name),
		FieldVar:  pick(p.FieldVar, o.FieldVar),
		LatVar:    pick(p.LatVar, o.LatVar),
		LonVar:    pick(p.LonVar, o.LonVar),
		TimeVar:   pick(p.TimeVar, o.TimeVar),
		TrackLon:  pick(p.TrackLon, o.TrackLon),
		TrackLat:  pick(p.TrackLat, o.TrackLat),
		TrackTime: pick(p.TrackTime, o.TrackTime),
	}
}

// Validate checks that every name needed for a run is resolved. Time names are
// required only for multi-date runs.
func (p Profile) Validate(multiDate bool) error {
	var missing []string
	required := []struct{ name, value string }{
		{"field", p.FieldVar},
		{"lat", p.LatVar},
		{"lon", p.LonVar},
		{"trackLon", p.TrackLon},
		{"trackLat", p.TrackLat},
	}
	if multiDate {
		required = append(required,
			struct{ name, value string }{"time", p.TimeVar},
			struct{ name, value string }{"trackTime", p.TrackTime},
		)
	}
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return &ConfigurationError{Profile: p.Name, Missing: missing}
	}
	return nil
}

// ConfigurationError reports a profile that cannot drive a run.
type ConfigurationError struct {
	Profile string
	Missing []string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("profile %q: unresolved names: %s", e.Profile, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("profile %q: %s", e.Profile, e.Reason)
}
