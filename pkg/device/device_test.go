package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tt := []struct {
		name    string
		payload string
		exp     float64
		kind    FailureKind
	}{
		{name: "numeric", payload: "12.5", exp: 12.5},
		{name: "numeric with whitespace", payload: " 0.033\n", exp: 0.033},
		{name: "negative", payload: "-4.2", exp: -4.2},
		{name: "empty", payload: "", kind: EmptyResponse},
		{name: "whitespace only", payload: "  \n", kind: EmptyResponse},
		{name: "garbage", payload: "CORRUPT_DATA_NOT_A_FLOAT", kind: MalformedResponse},
		{name: "infinity is not a reading", payload: "Inf", kind: MalformedResponse},
		{name: "nan is not a reading", payload: "NaN", kind: MalformedResponse},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			v, err := Greenlee{}.Parse([]byte(tc.payload))
			if tc.kind != "" {
				kind, ok := KindOf(err)
				assert.True(t, ok)
				assert.Equal(t, tc.kind, kind)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.exp, v)
		})
	}
}

func TestCommands(t *testing.T) {
	tt := []struct {
		deviceType string
		command    string
	}{
		{deviceType: "greenlee", command: "MEASURE_GREENLEE -get_measurement"},
		{deviceType: "entes", command: "MEASURE_ENTES -get_data"},
		{deviceType: "circutor", command: "MEASURE_CIRCUTOR -get_measurement -current"},
	}
	for _, tc := range tt {
		t.Run(tc.deviceType, func(t *testing.T) {
			dev, ok := ByType(tc.deviceType)
			assert.True(t, ok)
			assert.Equal(t, tc.deviceType, dev.Type())
			assert.Equal(t, tc.command, string(dev.Command()))
		})
	}
}

func TestByTypeUnknown(t *testing.T) {
	_, ok := ByType("fluke")
	assert.False(t, ok)
}

func TestRegistry(t *testing.T) {
	reg := MapRegistry{
		"greenlee": {Device: Greenlee{}, Host: "localhost", Port: 5000},
		"entes":    {Device: Entes{}, Host: "localhost", Port: 5001},
	}
	assert.Equal(t, []string{"entes", "greenlee"}, reg.Types())

	ep, ok := reg.Lookup("greenlee")
	assert.True(t, ok)
	assert.Equal(t, "localhost:5000", ep.Addr())

	_, ok = reg.Lookup("circutor")
	assert.False(t, ok)
}

func TestKindOf(t *testing.T) {
	kind, ok := KindOf(assert.AnError)
	assert.False(t, ok)
	assert.Equal(t, FailureKind(""), kind)
}
