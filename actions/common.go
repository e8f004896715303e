package actions

import (
	"bytes"
	"encoding/json"

	"github.com/glimte/ocpp-envelope/contracts"
	"github.com/glimte/ocpp-envelope/internal/hashing"
	"github.com/glimte/ocpp-envelope/messaging"
)

const (
	statusInfoField = "statusInfo"
	dataField       = "data"
)

func parseStatusInfo(obj contracts.JSONObject, entities messaging.EnvelopeParsers) (contracts.Optional[contracts.StatusInfo], error) {
	return contracts.OptionalField(obj, statusInfoField, func(raw json.RawMessage) (contracts.StatusInfo, error) {
		return contracts.ParseStatusInfo(raw, entities.StatusInfo)
	})
}

func writeStatusInfo(w *contracts.JSONWriter, si contracts.Optional[contracts.StatusInfo], entities messaging.EnvelopeSerializers) {
	if v, ok := si.Get(); ok {
		w.Set(statusInfoField, v.ToJSON(entities.StatusInfo))
	}
}

func statusInfoEqual(a, b contracts.Optional[contracts.StatusInfo]) bool {
	return a.EqualFunc(b, contracts.StatusInfo.Equal)
}

func hashStatusInfo(si contracts.Optional[contracts.StatusInfo]) uint64 {
	v, ok := si.Get()
	return hashing.Optional(ok, v.HashCode())
}

// parseData reads a free-form JSON value, compacted so equal values compare equal
func parseData(obj contracts.JSONObject) (contracts.Optional[json.RawMessage], error) {
	return contracts.OptionalField(obj, dataField, contracts.ParseRaw)
}

func writeData(w *contracts.JSONWriter, data contracts.Optional[json.RawMessage]) {
	if v, ok := data.Get(); ok {
		w.SetRaw(dataField, v)
	}
}

func dataEqual(a, b contracts.Optional[json.RawMessage]) bool {
	return a.EqualFunc(b, func(x, y json.RawMessage) bool { return bytes.Equal(x, y) })
}

func hashData(data contracts.Optional[json.RawMessage]) uint64 {
	v, ok := data.Get()
	return hashing.Optional(ok, hashing.Bytes(v))
}

// compactData normalizes caller supplied JSON, dropping invalid or null values
func compactData(data json.RawMessage) contracts.Optional[json.RawMessage] {
	if len(bytes.TrimSpace(data)) == 0 {
		return contracts.None[json.RawMessage]()
	}
	compact, err := contracts.ParseRaw(data)
	if err != nil || bytes.Equal(compact, []byte("null")) {
		return contracts.None[json.RawMessage]()
	}
	return contracts.Some(compact)
}
