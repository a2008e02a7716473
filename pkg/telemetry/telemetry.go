package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NoEcho is the distance the firmware reports when a sensor times out.  It is
// also substituted for any field that is missing or unusable.
const NoEcho = 999

// Field names used by the firmware.
const (
	FieldFront = "F"
	FieldLeft  = "L"
	FieldRight = "R"
)

var (
	// ErrNotRecord is returned for lines that are not shaped like a record at
	// all (firmware boot noise, partial lines).  Callers drop these silently.
	ErrNotRecord = errors.New("not a telemetry record")
	// ErrMalformed is returned for record-shaped lines that fail to parse.
	ErrMalformed = errors.New("malformed telemetry record")
)

// Reading holds one sample from the three ultrasonic sensors, in centimetres.
type Reading struct {
	Front int
	Left  int
	Right int
}

func (r Reading) String() string {
	return fmt.Sprintf("F=%dcm L=%dcm R=%dcm", r.Front, r.Left, r.Right)
}

// Validate turns decoded key/value data into a Reading.  It never fails: each
// field that is absent or not a non-negative integer becomes NoEcho.
func Validate(raw map[string]interface{}) Reading {
	return Reading{
		Front: distance(raw, FieldFront),
		Left:  distance(raw, FieldLeft),
		Right: distance(raw, FieldRight),
	}
}

func distance(raw map[string]interface{}, key string) int {
	v, ok := raw[key]
	if !ok {
		return NoEcho
	}
	d, ok := toInt(v)
	if !ok || d < 0 {
		return NoEcho
	}
	return d
}

func toInt(v interface{}) (int, bool) {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return clampInt(i)
		}
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return fromFloat(f)
	case float64:
		return fromFloat(v)
	case int:
		return v, true
	case int64:
		return clampInt(v)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return clampInt(i)
	}
	return 0, false
}

func fromFloat(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

func clampInt(i int64) (int, bool) {
	if i > math.MaxInt32 || i < math.MinInt32 {
		return 0, false
	}
	return int(i), true
}

// IsRecord reports whether a trimmed line has the shape of a telemetry record.
func IsRecord(line string) bool {
	return strings.HasPrefix(line, "{") && strings.HasSuffix(line, "}")
}

// DecodeLine parses one line received from the microcontroller.  Bytes that
// are not valid UTF-8 are dropped before the shape check.
func DecodeLine(line string) (Reading, error) {
	line = strings.TrimSpace(strings.ToValidUTF8(line, ""))
	if !IsRecord(line) {
		return Reading{}, ErrNotRecord
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Reading{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Validate(raw), nil
}
