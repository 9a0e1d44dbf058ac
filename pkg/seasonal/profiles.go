package seasonal

import (
	"strings"

	pkg "github.com/plantwise/plantwise/pkg"
)

// Profile describes how a species reacts to seasonal transitions: the
// temperature and daylight thresholds that trigger dormancy, how long and
// how deep the dormancy runs, and whether a spring transition can trigger
// flowering.
type Profile struct {
	TriggerTempC         float64
	TriggerDaylightHours float64
	DormancyDays         int
	Intensity            string // light|moderate|deep
	FloweringAfterSpring bool
	FloweringDays        int
	DormancyAdjustments  []pkg.CareAdjustment
}

// genericProfile is used when a species has no specific profile
var genericProfile = Profile{
	TriggerTempC:         15.0,
	TriggerDaylightHours: 10.0,
	DormancyDays:         75,
	Intensity:            "moderate",
	FloweringAfterSpring: false,
	FloweringDays:        21,
}

// speciesProfiles maps normalized common names to their seasonal behavior.
// Sourced from horticultural care guides; everything else falls back to the
// generic profile.
var speciesProfiles = map[string]Profile{
	"ficus": {
		TriggerTempC:         16.0,
		TriggerDaylightHours: 10.0,
		DormancyDays:         60,
		Intensity:            "light",
	},
	"monstera": {
		TriggerTempC:         15.0,
		TriggerDaylightHours: 9.5,
		DormancyDays:         70,
		Intensity:            "light",
	},
	"orchid": {
		TriggerTempC:         14.0,
		TriggerDaylightHours: 10.5,
		DormancyDays:         50,
		Intensity:            "moderate",
		FloweringAfterSpring: true,
		FloweringDays:        45,
	},
	"cactus": {
		TriggerTempC:         12.0,
		TriggerDaylightHours: 9.0,
		DormancyDays:         100,
		Intensity:            "deep",
		FloweringAfterSpring: true,
		FloweringDays:        14,
	},
	"succulent": {
		TriggerTempC:         12.0,
		TriggerDaylightHours: 9.0,
		DormancyDays:         90,
		Intensity:            "deep",
	},
	"fern": {
		TriggerTempC:         13.0,
		TriggerDaylightHours: 9.0,
		DormancyDays:         80,
		Intensity:            "moderate",
	},
	"amaryllis": {
		TriggerTempC:         13.0,
		TriggerDaylightHours: 10.0,
		DormancyDays:         60,
		Intensity:            "deep",
		FloweringAfterSpring: true,
		FloweringDays:        30,
	},
}

// profileFor looks up the seasonal profile for a species, falling back to
// the generic profile
func profileFor(species *pkg.Species) Profile {
	if species == nil {
		return genericProfile
	}
	key := strings.ToLower(strings.TrimSpace(species.CommonName))
	if p, ok := speciesProfiles[key]; ok {
		return p
	}
	// Try the first word, so "ficus benjamina" still matches "ficus"
	if idx := strings.IndexByte(key, ' '); idx > 0 {
		if p, ok := speciesProfiles[key[:idx]]; ok {
			return p
		}
	}
	return genericProfile
}
