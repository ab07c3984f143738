package cdm

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"
)

// psdEigenvalueFloor is how negative an eigenvalue may be before the
// covariance is flagged as not positive semidefinite.
const psdEigenvalueFloor = -1e-12

// covEntry maps one lower-triangular covariance key to its matrix cell.
type covEntry struct {
	key  string
	r, c int
}

// covEntries lists the 21 RTN covariance keys in message order. Rows
// and columns follow R, T, N, RDOT, TDOT, NDOT.
var covEntries = []covEntry{
	{"CR_R", 0, 0},
	{"CT_R", 1, 0}, {"CT_T", 1, 1},
	{"CN_R", 2, 0}, {"CN_T", 2, 1}, {"CN_N", 2, 2},
	{"CRDOT_R", 3, 0}, {"CRDOT_T", 3, 1}, {"CRDOT_N", 3, 2}, {"CRDOT_RDOT", 3, 3},
	{"CTDOT_R", 4, 0}, {"CTDOT_T", 4, 1}, {"CTDOT_N", 4, 2}, {"CTDOT_RDOT", 4, 3}, {"CTDOT_TDOT", 4, 4},
	{"CNDOT_R", 5, 0}, {"CNDOT_T", 5, 1}, {"CNDOT_N", 5, 2}, {"CNDOT_RDOT", 5, 3}, {"CNDOT_TDOT", 5, 4}, {"CNDOT_NDOT", 5, 5},
}

var objectStateKeys = []string{"X", "Y", "Z", "X_DOT", "Y_DOT", "Z_DOT"}

// fieldValue is a raw field with its bracketed unit, if any, stripped
// off and kept separately.
type fieldValue struct {
	value string
	unit  string
}

// splitUnit removes a trailing bracketed unit like "[km]" from a raw
// value string.
func splitUnit(raw string) fieldValue {
	raw = strings.TrimSpace(raw)
	if strings.HasSuffix(raw, "]") {
		if i := strings.LastIndex(raw, "["); i >= 0 {
			return fieldValue{
				value: strings.TrimSpace(raw[:i]),
				unit:  strings.TrimSpace(raw[i+1 : len(raw)-1]),
			}
		}
	}
	return fieldValue{value: raw}
}

// parseDatetime accepts ISO 8601 datetimes with or without fractional
// seconds or a trailing Z, and stamps the result UTC.
func parseDatetime(s, field string) (time.Time, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "Z")
	// Fractional seconds are accepted by time.Parse without appearing
	// in the layout.
	t, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		// Day-of-year form, e.g. 2024-046T08:30:15.
		t, err = time.Parse("2006-002T15:04:05", s)
	}
	if err != nil {
		return time.Time{}, &ParseError{Field: field, Msg: fmt.Sprintf("invalid datetime %q", s)}
	}
	return t.UTC(), nil
}

// parseDistanceKm converts a distance field to km, honoring an explicit
// m or km unit. A unitless value is taken as meters, the CCSDS default.
func parseDistanceKm(fv fieldValue, field string) (float64, error) {
	v, err := strconv.ParseFloat(fv.value, 64)
	if err != nil {
		return 0, &ParseError{Field: field, Msg: fmt.Sprintf("invalid number %q", fv.value)}
	}
	switch strings.ToLower(fv.unit) {
	case "km":
		return v, nil
	case "m", "":
		return v / 1000, nil
	default:
		return 0, &ParseError{Field: field, Msg: fmt.Sprintf("unsupported unit %q", fv.unit)}
	}
}

// parseSpeedKmS converts a speed field to km/s, honoring an explicit
// m/s or km/s unit. A unitless value is taken as m/s.
func parseSpeedKmS(fv fieldValue, field string) (float64, error) {
	v, err := strconv.ParseFloat(fv.value, 64)
	if err != nil {
		return 0, &ParseError{Field: field, Msg: fmt.Sprintf("invalid number %q", fv.value)}
	}
	switch strings.ToLower(fv.unit) {
	case "km/s":
		return v, nil
	case "m/s", "":
		return v / 1000, nil
	default:
		return 0, &ParseError{Field: field, Msg: fmt.Sprintf("unsupported unit %q", fv.unit)}
	}
}

// buildObject assembles an Object from its scoped field map, consuming
// known keys and preserving the rest.
func buildObject(scope string, fields map[string]fieldValue) (Object, []string, error) {
	obj := Object{Extra: map[string]string{}}
	var warnings []string

	take := func(key string) (fieldValue, bool) {
		fv, ok := fields[key]
		if ok {
			delete(fields, key)
		}
		return fv, ok
	}

	if fv, ok := take("OBJECT_DESIGNATOR"); ok {
		obj.Designator = fv.value
	} else {
		return obj, nil, &ParseError{Field: scope + ".OBJECT_DESIGNATOR", Msg: "missing"}
	}
	if fv, ok := take("OBJECT_NAME"); ok {
		obj.Name = fv.value
	}
	if fv, ok := take("INTERNATIONAL_DESIGNATOR"); ok {
		obj.IntlDesignator = fv.value
	}
	if fv, ok := take("CATALOG_NAME"); ok {
		obj.CatalogName = fv.value
	}
	if fv, ok := take("MANEUVERABLE"); ok {
		obj.Maneuverable = fv.value
	}
	if fv, ok := take("REF_FRAME"); ok {
		obj.RefFrame = fv.value
	}

	// State vector: all six components or none.
	var state [6]float64
	nState := 0
	for i, key := range objectStateKeys {
		fv, ok := take(key)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(fv.value, 64)
		if err != nil {
			return obj, nil, &ParseError{Field: scope + "." + key, Msg: fmt.Sprintf("invalid number %q", fv.value)}
		}
		state[i] = v
		nState++
	}
	if nState == 6 {
		obj.Position = &[3]float64{state[0], state[1], state[2]}
		obj.Velocity = &[3]float64{state[3], state[4], state[5]}
	} else if nState > 0 {
		warnings = append(warnings, fmt.Sprintf("%s: partial state vector ignored (%d of 6 components)", scope, nState))
	}

	// Covariance: all 21 lower-triangular entries or none.
	nCov := 0
	cov := mat.NewSymDense(6, nil)
	for _, ce := range covEntries {
		fv, ok := take(ce.key)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(fv.value, 64)
		if err != nil {
			return obj, nil, &ParseError{Field: scope + "." + ce.key, Msg: fmt.Sprintf("invalid number %q", fv.value)}
		}
		cov.SetSym(ce.r, ce.c, v)
		nCov++
	}
	switch nCov {
	case 0:
		// no covariance in this message
	case len(covEntries):
		obj.Covariance = cov
		if w := checkPSD(cov); w != "" {
			warnings = append(warnings, scope+": "+w)
		}
	default:
		return obj, nil, &ParseError{Field: scope + ".covariance", Msg: fmt.Sprintf("incomplete covariance: %d of %d entries", nCov, len(covEntries))}
	}

	for key, fv := range fields {
		obj.Extra[key] = fv.value
	}
	return obj, warnings, nil
}

// checkPSD reports a warning string when the covariance has an
// eigenvalue below the PSD floor, empty otherwise.
func checkPSD(cov *mat.SymDense) string {
	var eig mat.EigenSym
	if !eig.Factorize(cov, false) {
		return "covariance eigendecomposition failed"
	}
	vals := eig.Values(nil)
	min := vals[0]
	for _, v := range vals[1:] {
		if v < min {
			min = v
		}
	}
	if min < psdEigenvalueFloor {
		return fmt.Sprintf("covariance is not positive semidefinite (min eigenvalue %.3e)", min)
	}
	return ""
}

// buildCDM assembles the message from the header scope and the two
// object scopes. Field maps are consumed; leftovers go to Extra.
func buildCDM(header map[string]fieldValue, objects [2]map[string]fieldValue) (*CDM, error) {
	c := &CDM{Extra: map[string]string{}, CollisionProbability: -1}

	take := func(key string) (fieldValue, bool) {
		fv, ok := header[key]
		if ok {
			delete(header, key)
		}
		return fv, ok
	}

	if fv, ok := take("CCSDS_CDM_VERS"); ok {
		c.Version = fv.value
	}

	fv, ok := take("CREATION_DATE")
	if !ok {
		return nil, &ParseError{Field: "CREATION_DATE", Msg: "missing"}
	}
	t, err := parseDatetime(fv.value, "CREATION_DATE")
	if err != nil {
		return nil, err
	}
	c.CreationDate = t

	if fv, ok = take("ORIGINATOR"); !ok {
		return nil, &ParseError{Field: "ORIGINATOR", Msg: "missing"}
	}
	c.Originator = fv.value

	if fv, ok = take("MESSAGE_ID"); !ok {
		return nil, &ParseError{Field: "MESSAGE_ID", Msg: "missing"}
	}
	c.MessageID = fv.value

	if fv, ok = take("TCA"); !ok {
		return nil, &ParseError{Field: "TCA", Msg: "missing"}
	}
	if c.TCA, err = parseDatetime(fv.value, "TCA"); err != nil {
		return nil, err
	}

	if fv, ok = take("MISS_DISTANCE"); !ok {
		return nil, &ParseError{Field: "MISS_DISTANCE", Msg: "missing"}
	}
	if c.MissDistanceKm, err = parseDistanceKm(fv, "MISS_DISTANCE"); err != nil {
		return nil, err
	}

	if fv, ok = take("RELATIVE_SPEED"); !ok {
		return nil, &ParseError{Field: "RELATIVE_SPEED", Msg: "missing"}
	}
	if c.RelativeSpeedKmS, err = parseSpeedKmS(fv, "RELATIVE_SPEED"); err != nil {
		return nil, err
	}

	if fv, ok = take("COLLISION_PROBABILITY"); ok {
		v, err := strconv.ParseFloat(fv.value, 64)
		if err != nil {
			return nil, &ParseError{Field: "COLLISION_PROBABILITY", Msg: fmt.Sprintf("invalid number %q", fv.value)}
		}
		c.CollisionProbability = v
	}

	for key, fv := range header {
		c.Extra[key] = fv.value
	}

	obj1, w1, err := buildObject("OBJECT1", objects[0])
	if err != nil {
		return nil, err
	}
	obj2, w2, err := buildObject("OBJECT2", objects[1])
	if err != nil {
		return nil, err
	}
	c.Object1 = obj1
	c.Object2 = obj2
	c.Warnings = append(c.Warnings, w1...)
	c.Warnings = append(c.Warnings, w2...)

	return c, nil
}
