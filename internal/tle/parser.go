package tle

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/orb/orbscreen/internal/metrics"
)

// Parse reads element sets in 2-line or 3-line NORAD format from r.
// A line starting with "1 " opens an entry; a preceding non-numbered line,
// if any, supplies the object name. Unrecognized or malformed lines are
// skipped and counted; one warning with the total is logged at the end.
func Parse(r io.Reader, logger *slog.Logger) ([]*ElementSet, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading element set data: %w", err)
	}

	var (
		entries []*ElementSet
		name    string
		skipped int
	)
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		switch {
		case strings.HasPrefix(line, "1 "):
			if i+1 >= len(lines) || !strings.HasPrefix(lines[i+1], "2 ") {
				skipped++
				name = ""
				continue
			}
			e, err := newElementSet(name, line, lines[i+1])
			if err != nil {
				skipped += 2
				if name != "" {
					skipped++
				}
			} else {
				entries = append(entries, e)
			}
			name = ""
			i++
		case strings.HasPrefix(line, "2 "):
			// Orphan line 2 with no preceding line 1.
			skipped++
			name = ""
		default:
			// Candidate name line. It only counts as consumed if the next
			// line opens an entry; otherwise it is unrecognized.
			if i+1 < len(lines) && strings.HasPrefix(lines[i+1], "1 ") {
				name = strings.TrimSpace(strings.TrimPrefix(line, "0 "))
			} else {
				skipped++
				name = ""
			}
		}
	}

	if skipped > 0 {
		logger.Warn("skipped unrecognized element set lines", "count", skipped)
		metrics.RecordParseWarning("tle")
	}
	return entries, nil
}

// newElementSet validates the two lines, extracts the mean elements, and
// binds the SGP4 propagator. Line layout follows the fixed NORAD columns.
func newElementSet(name, line1, line2 string) (*ElementSet, error) {
	if len(line1) < 69 {
		return nil, &ParseError{Field: "line1", Line: 1, Msg: "line too short"}
	}
	if len(line2) < 69 {
		return nil, &ParseError{Field: "line2", Line: 2, Msg: "line too short"}
	}

	noradStr := strings.TrimSpace(line1[2:7])
	noradID, err := strconv.Atoi(noradStr)
	if err != nil {
		return nil, &ParseError{Field: "norad_id", Line: 1, Msg: fmt.Sprintf("invalid catalog number %q", noradStr)}
	}

	intl := strings.TrimSpace(line1[9:17])

	epoch, err := parseEpoch(strings.TrimSpace(line1[18:32]))
	if err != nil {
		return nil, &ParseError{NORADID: noradID, Field: "epoch", Line: 1, Msg: err.Error()}
	}

	bstar, err := parseImpliedExponent(line1[53:61])
	if err != nil {
		return nil, &ParseError{NORADID: noradID, Field: "bstar", Line: 1, Msg: err.Error()}
	}

	incl, err := parseField(line2[8:16], "inclination")
	if err != nil {
		return nil, &ParseError{NORADID: noradID, Field: "inclination", Line: 2, Msg: err.Error()}
	}
	raan, err := parseField(line2[17:25], "raan")
	if err != nil {
		return nil, &ParseError{NORADID: noradID, Field: "raan", Line: 2, Msg: err.Error()}
	}
	ecc, err := parseField("0."+strings.TrimSpace(line2[26:33]), "eccentricity")
	if err != nil {
		return nil, &ParseError{NORADID: noradID, Field: "eccentricity", Line: 2, Msg: err.Error()}
	}
	argp, err := parseField(line2[34:42], "arg_perigee")
	if err != nil {
		return nil, &ParseError{NORADID: noradID, Field: "arg_perigee", Line: 2, Msg: err.Error()}
	}
	ma, err := parseField(line2[43:51], "mean_anomaly")
	if err != nil {
		return nil, &ParseError{NORADID: noradID, Field: "mean_anomaly", Line: 2, Msg: err.Error()}
	}
	mm, err := parseField(line2[52:63], "mean_motion")
	if err != nil {
		return nil, &ParseError{NORADID: noradID, Field: "mean_motion", Line: 2, Msg: err.Error()}
	}

	if mm <= 0 {
		return nil, &ParseError{NORADID: noradID, Field: "mean_motion", Line: 2, Msg: fmt.Sprintf("mean motion must be positive, got %g", mm)}
	}
	if ecc < 0 || ecc >= 1 {
		return nil, &ParseError{NORADID: noradID, Field: "eccentricity", Line: 2, Msg: fmt.Sprintf("eccentricity out of [0,1): %g", ecc)}
	}

	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, &ParseError{NORADID: noradID, Field: "sgp4", Line: 2, Msg: fmt.Sprintf("propagator init failed: %s", sat.ErrorStr)}
	}

	return &ElementSet{
		NORADID:          noradID,
		Name:             name,
		IntlDesignator:   intl,
		Epoch:            epoch,
		InclinationDeg:   canonicalAngle(incl),
		RAANDeg:          canonicalAngle(raan),
		Eccentricity:     ecc,
		ArgPerigeeDeg:    canonicalAngle(argp),
		MeanAnomalyDeg:   canonicalAngle(ma),
		MeanMotionRevDay: mm,
		BStar:            bstar,
		Line1:            line1,
		Line2:            line2,
		sat:              sat,
	}, nil
}

func parseField(s, what string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, strings.TrimSpace(s))
	}
	return v, nil
}

// canonicalAngle maps an angle in degrees into [0, 360).
func canonicalAngle(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// parseImpliedExponent decodes the assumed-decimal-point exponent notation
// used for BSTAR, e.g. " 36258-4" means 0.36258e-4.
func parseImpliedExponent(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "00000+0" || s == "00000-0" {
		return 0, nil
	}
	sign := 1.0
	if strings.HasPrefix(s, "-") {
		sign = -1
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	expIdx := strings.LastIndexAny(s, "+-")
	if expIdx <= 0 {
		return 0, fmt.Errorf("invalid exponent field %q", s)
	}
	mant, err := strconv.ParseFloat("0."+s[:expIdx], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid mantissa in %q", s)
	}
	exp, err := strconv.Atoi(s[expIdx:])
	if err != nil {
		return 0, fmt.Errorf("invalid exponent in %q", s)
	}
	return sign * mant * math.Pow(10, float64(exp)), nil
}

// parseEpoch converts an epoch string in YYDDD.DDDDDDDD format to time.Time.
// Year 00-56 maps to the 2000s, 57-99 to the 1900s.
func parseEpoch(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch string too short: %q", s)
	}

	year, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch year %q: %w", s[:2], err)
	}
	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	dayOfYear, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch day %q: %w", s[2:], err)
	}

	// dayOfYear is 1-based: day 1.0 = Jan 1 00:00 UTC.
	t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return t.Add(time.Duration((dayOfYear - 1) * float64(24*time.Hour))), nil
}
