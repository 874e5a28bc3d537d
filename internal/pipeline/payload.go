// Package pipeline holds the domain model of the dual-channel runtime: the
// payload envelope, the ordered context store, the validating observer that
// mediates context mutations, and the processor capability contract.
package pipeline

import "reflect"

// NoData is the distinguished value carried before a source has produced
// data. Sinks pass their input through, so it is not carried after them.
type NoData struct{}

// NoDataType is the reflect type of NoData, used by type gates.
var NoDataType = reflect.TypeOf(NoData{})

// Payload is the envelope passed between nodes. Data is the typed domain
// value (or NoData); Context is the ordered key/value channel. Processors
// operate on Data plus resolved parameters and never receive Context.
type Payload struct {
	Data    any
	Context *ContextStore
}

// NewPayload builds a payload around the supplied context store. A nil
// store is replaced with an empty one so the dual channel always exists.
func NewPayload(data any, ctx *ContextStore) Payload {
	if ctx == nil {
		ctx = NewContextStore()
	}
	return Payload{Data: data, Context: ctx}
}

// DataType reports the runtime type of the payload data, or NoDataType for
// the distinguished empty value.
func (p Payload) DataType() reflect.Type {
	if p.Data == nil {
		return NoDataType
	}
	return reflect.TypeOf(p.Data)
}
