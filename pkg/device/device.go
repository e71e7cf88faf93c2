// Package device implements the client side of the ammeter wire protocol: a
// capability interface describing each supported device type and a gateway
// that performs one timeout-bounded command/response exchange over TCP.
package device

import (
	"bytes"
	"math"
	"sort"
	"strconv"
)

// Device describes the per-type capabilities of a supported ammeter: the
// exact command bytes it accepts and the rule for parsing its response into
// a current reading.
type Device interface {
	Type() string
	Command() []byte
	Parse(payload []byte) (float64, error)
}

// parseCurrent decodes an ASCII numeric payload.  An empty payload and a
// non-numeric payload are distinct failure kinds so that fault statistics
// can tell a dead device apart from a corrupted one.
func parseCurrent(deviceType string, payload []byte) (float64, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return 0, &AcquisitionError{Kind: EmptyResponse, Device: deviceType, Msg: "no data received"}
	}
	v, err := strconv.ParseFloat(string(trimmed), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &AcquisitionError{Kind: MalformedResponse, Device: deviceType, Msg: "response is not a finite numeric literal: " + string(trimmed)}
	}
	return v, nil
}

// Greenlee measures current directly from voltage over a known resistance.
type Greenlee struct{}

func (Greenlee) Type() string    { return "greenlee" }
func (Greenlee) Command() []byte { return []byte("MEASURE_GREENLEE -get_measurement") }
func (d Greenlee) Parse(payload []byte) (float64, error) {
	return parseCurrent(d.Type(), payload)
}

// Entes derives current from magnetic field strength and a calibration factor.
type Entes struct{}

func (Entes) Type() string    { return "entes" }
func (Entes) Command() []byte { return []byte("MEASURE_ENTES -get_data") }
func (d Entes) Parse(payload []byte) (float64, error) {
	return parseCurrent(d.Type(), payload)
}

// Circutor integrates sampled voltages over a time step.
type Circutor struct{}

func (Circutor) Type() string    { return "circutor" }
func (Circutor) Command() []byte { return []byte("MEASURE_CIRCUTOR -get_measurement -current") }
func (d Circutor) Parse(payload []byte) (float64, error) {
	return parseCurrent(d.Type(), payload)
}

// Endpoint binds a device capability to the network location it is served on.
type Endpoint struct {
	Device Device
	Host   string
	Port   int
}

// Addr returns the dialable host:port for the endpoint
func (e Endpoint) Addr() string {
	return e.Host + ":" + strconv.Itoa(e.Port)
}

// Registry is the lookup contract between configuration and the bench.  The
// core never loads configuration itself, it only resolves device types.
type Registry interface {
	Lookup(deviceType string) (Endpoint, bool)
	Types() []string
}

// MapRegistry is a static in-memory registry keyed by device type
type MapRegistry map[string]Endpoint

func (m MapRegistry) Lookup(deviceType string) (Endpoint, bool) {
	ep, ok := m[deviceType]
	return ep, ok
}

// Types returns the registered device types in lexical order
func (m MapRegistry) Types() []string {
	types := make([]string, 0, len(m))
	for t := range m {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// ByType resolves a device capability from its canonical name.  Used by the
// config loader and the emulators to agree on command strings.
func ByType(deviceType string) (Device, bool) {
	switch deviceType {
	case "greenlee":
		return Greenlee{}, true
	case "entes":
		return Entes{}, true
	case "circutor":
		return Circutor{}, true
	default:
		return nil, false
	}
}
