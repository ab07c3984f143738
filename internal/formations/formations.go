// Package formations recognizes encounters between objects that fly
// together on purpose, so docked complexes, constellation neighbors,
// and fresh launch groups do not drown real threats in screening output.
package formations

import (
	"strings"

	"github.com/orb/orbscreen/internal/screening"
)

// Co-location bounds: objects this close and this slow relative to each
// other are station-keeping, not conjuncting.
const (
	coLocationMaxMissKm   = 5.0
	coLocationMaxSpeedKmS = 0.05
)

// knownComplexes maps docked or permanently co-located objects by
// catalog number.
var knownComplexes = map[string][]int{
	"ISS":                  {25544},
	"CSS":                  {48274, 53239, 54216},
	"TanDEM-X/TerraSAR-X":  {31698, 36605},
	"MEV-1/Intelsat-901":   {26038, 44625},
	"MEV-2/Intelsat-10-02": {28358, 46113},
}

// constellationPrefixes are object-name prefixes of constellations that
// routinely fly in close formation.
var constellationPrefixes = []string{
	"STARLINK", "ONEWEB", "IRIDIUM", "GLOBALSTAR", "FLOCK", "LEMUR",
}

// Encounter is the geometry and identity needed to classify one pair.
type Encounter struct {
	NORADID1 int
	NORADID2 int
	Name1    string
	Name2    string
	Intl1    string
	Intl2    string

	MissDistanceKm   float64
	RelativeSpeedKmS float64
}

// Classify reports whether the encounter looks like an intentional
// formation, and why.
func Classify(enc Encounter) (bool, string) {
	if name := sharedComplex(enc.NORADID1, enc.NORADID2); name != "" {
		return true, "known complex: " + name
	}
	if p := sharedConstellation(enc.Name1, enc.Name2); p != "" {
		return true, "constellation neighbors: " + p
	}
	if sameLaunch(enc.Intl1, enc.Intl2) {
		return true, "same launch group"
	}
	if enc.MissDistanceKm <= coLocationMaxMissKm && enc.RelativeSpeedKmS < coLocationMaxSpeedKmS {
		return true, "co-located, near-zero relative velocity"
	}
	return false, ""
}

func sharedComplex(id1, id2 int) string {
	for name, members := range knownComplexes {
		in1, in2 := false, false
		for _, m := range members {
			if m == id1 {
				in1 = true
			}
			if m == id2 {
				in2 = true
			}
		}
		if in1 && in2 {
			return name
		}
	}
	return ""
}

func sharedConstellation(name1, name2 string) string {
	n1 := strings.ToUpper(name1)
	n2 := strings.ToUpper(name2)
	for _, p := range constellationPrefixes {
		if strings.HasPrefix(n1, p) && strings.HasPrefix(n2, p) {
			return p
		}
	}
	return ""
}

// sameLaunch compares the launch portion of two international
// designators, e.g. "98067A" and "98067B" share launch 98067.
func sameLaunch(intl1, intl2 string) bool {
	l1 := launchOf(intl1)
	l2 := launchOf(intl2)
	return l1 != "" && l1 == l2
}

func launchOf(intl string) string {
	intl = strings.TrimSpace(intl)
	if len(intl) < 5 {
		return ""
	}
	// Strip the trailing piece letters, keep year and launch number.
	end := len(intl)
	for end > 0 && intl[end-1] >= 'A' && intl[end-1] <= 'Z' {
		end--
	}
	if end < 5 {
		return ""
	}
	return intl[:end]
}

// SplitFormationEvents separates formation encounters from real
// threats. intlByID supplies international designators by catalog
// number; missing entries simply skip the launch-group test.
func SplitFormationEvents(events []screening.ConjunctionEvent, intlByID map[int]string) (formations, threats []screening.ConjunctionEvent) {
	for _, ev := range events {
		enc := Encounter{
			NORADID1:         ev.NORADID1,
			NORADID2:         ev.NORADID2,
			Name1:            ev.Name1,
			Name2:            ev.Name2,
			Intl1:            intlByID[ev.NORADID1],
			Intl2:            intlByID[ev.NORADID2],
			MissDistanceKm:   ev.MissDistanceKm,
			RelativeSpeedKmS: ev.RelativeSpeedKmS,
		}
		if ok, _ := Classify(enc); ok {
			formations = append(formations, ev)
		} else {
			threats = append(threats, ev)
		}
	}
	return formations, threats
}
