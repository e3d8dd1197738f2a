package location

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

var ErrMalformedNumber = errors.New("malformed number")

// RawRule is a geofence rule as loaded from storage. Coordinate and radius
// fields may be numbers or locale-formatted strings ("-6,2001").
type RawRule struct {
	ID           string
	ZoneName     string
	Latitude     any
	Longitude    any
	RadiusMeters any
}

// Rule is a normalized circular zone.
type Rule struct {
	ID           string  `json:"id"`
	ZoneName     string  `json:"zone_name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
}

// Normalize coerces every numeric field. A rule with any non-finite or
// unparsable field is rejected.
func (r RawRule) Normalize() (Rule, error) {
	lat, err := ParseNumber(r.Latitude)
	if err != nil {
		return Rule{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := ParseNumber(r.Longitude)
	if err != nil {
		return Rule{}, fmt.Errorf("longitude: %w", err)
	}
	radius, err := ParseNumber(r.RadiusMeters)
	if err != nil {
		return Rule{}, fmt.Errorf("radius: %w", err)
	}
	return Rule{ID: r.ID, ZoneName: r.ZoneName, Latitude: lat, Longitude: lon, RadiusMeters: radius}, nil
}

// Contains reports whether (lat, lon) lies inside the zone. The boundary is
// inclusive.
func (r Rule) Contains(lat, lon float64) bool {
	return Distance(lat, lon, r.Latitude, r.Longitude) <= r.RadiusMeters
}

// ParseNumber accepts float/int values, json.Number and strings using either
// a decimal point or a decimal comma. The result is always finite.
func ParseNumber(v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		return ParseNumber(string(n))
	case string:
		parsed, err := strconv.ParseFloat(normalizeDecimal(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrMalformedNumber, n)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrMalformedNumber, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: non-finite value", ErrMalformedNumber)
	}
	return f, nil
}

// normalizeDecimal rewrites "1.234,5" and "1234,5" into "1234.5" and drops
// grouping commas from "1,234.5". The last separator is the decimal one.
func normalizeDecimal(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	if lastComma > lastDot {
		s = strings.ReplaceAll(s, ".", "")
		return strings.Replace(s, ",", ".", 1)
	}
	return strings.ReplaceAll(s, ",", "")
}

// NormalizeRules keeps the well-formed rules and logs the rest.
func NormalizeRules(raw []RawRule) []Rule {
	rules := make([]Rule, 0, len(raw))
	for _, r := range raw {
		rule, err := r.Normalize()
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"rule_id": r.ID,
				"zone":    r.ZoneName,
			}).WithError(err).Debug("Skipping malformed geofence rule.")
			continue
		}
		rules = append(rules, rule)
	}
	return rules
}

// Match returns every rule whose zone contains (lat, lon). Malformed rules
// are skipped.
func Match(lat, lon float64, raw []RawRule) []Rule {
	return MatchRules(lat, lon, NormalizeRules(raw))
}

// MatchRules is Match over already-normalized rules.
func MatchRules(lat, lon float64, rules []Rule) []Rule {
	var matched []Rule
	for _, r := range rules {
		if r.Contains(lat, lon) {
			matched = append(matched, r)
		}
	}
	return matched
}

// FeatureCollection renders zones as GeoJSON point features carrying their
// name and radius, for map display on the client.
func FeatureCollection(rules []Rule) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(rules))}
	for _, r := range rules {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       r.ID,
			Geometry: geom.NewPointFlat(geom.XY, []float64{r.Longitude, r.Latitude}),
			Properties: map[string]interface{}{
				"zone_name":     r.ZoneName,
				"radius_meters": r.RadiusMeters,
			},
		})
	}
	return fc
}
