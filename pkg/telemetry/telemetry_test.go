package telemetry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeLine(t *testing.T) {
	for _, tc := range []struct {
		line string
		want Reading
	}{
		{`{"F":12,"L":30,"R":10}`, Reading{Front: 12, Left: 30, Right: 10}},
		{`  {"F":70,"L":20,"R":20}` + "\r\n", Reading{Front: 70, Left: 20, Right: 20}},
		{`{"F":999}`, Reading{Front: NoEcho, Left: NoEcho, Right: NoEcho}},
		{`{}`, Reading{Front: NoEcho, Left: NoEcho, Right: NoEcho}},
		{`{"F":"40","L":"x","R":null}`, Reading{Front: 40, Left: NoEcho, Right: NoEcho}},
		{`{"F":12.5,"L":-3,"R":7.0}`, Reading{Front: NoEcho, Left: NoEcho, Right: 7}},
		{`{"F":0,"L":true,"R":[1]}`, Reading{Front: 0, Left: NoEcho, Right: NoEcho}},
		{"{\"F\":\xff25,\"L\":5,\"R\":6}", Reading{Front: 25, Left: 5, Right: 6}},
	} {
		got, err := DecodeLine(tc.line)
		require.NoError(t, err, "line %q", tc.line)
		assert.Equal(t, tc.want, got, "line %q", tc.line)
	}
}

func TestDecodeLineRejectsNonRecords(t *testing.T) {
	for _, line := range []string{"not-json", "", "   ", `"F":1}`, `{"F":1`, "ready"} {
		_, err := DecodeLine(line)
		assert.ErrorIs(t, err, ErrNotRecord, "line %q", line)
	}
}

func TestDecodeLineRejectsMalformedRecords(t *testing.T) {
	for _, line := range []string{`{F:1}`, `{"F":1,}`, `{"F":1}{"L":2}`, `{not json}`} {
		_, err := DecodeLine(line)
		assert.ErrorIs(t, err, ErrMalformed, "line %q", line)
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	raw := map[string]interface{}{"F": json.Number("33"), "L": "12", "R": 5}
	first := Validate(raw)
	second := Validate(raw)
	assert.Equal(t, first, second)
	assert.Equal(t, Reading{Front: 33, Left: 12, Right: 5}, first)
}

func TestValidateNilMap(t *testing.T) {
	assert.Equal(t, Reading{Front: NoEcho, Left: NoEcho, Right: NoEcho}, Validate(nil))
}
