package currencyapi

import "encoding/json"

// latestResponse accepts both answer shapes seen from the secondary provider.
//
// Data variant (currencyapi v3):
//
//	{"meta":{"last_updated_at":"2024-01-01T23:59:59Z"},"data":{"XOF":{"code":"XOF","value":655.96}}}
//
// Flat variant (base implicit or given, epoch timestamp):
//
//	{"base":"USD","timestamp":1700000000,"rates":{"XOF":605.12,"EUR":0.92}}
type latestResponse struct {
	Meta *struct {
		LastUpdatedAt string `json:"last_updated_at"`
	} `json:"meta,omitempty"`
	Data map[string]dataEntry `json:"data,omitempty"`

	Base      string                     `json:"base,omitempty"`
	Timestamp int64                      `json:"timestamp,omitempty"`
	Rates     map[string]json.RawMessage `json:"rates,omitempty"`

	Message string `json:"message,omitempty"`
}

type dataEntry struct {
	Code  string          `json:"code"`
	Value json.RawMessage `json:"value"`
}

// variant tags the shape of an answer before it is collapsed into a RateQuote
type variant int

const (
	variantUnknown variant = iota
	variantData
	variantFlat
)

func (r *latestResponse) variant() variant {
	switch {
	case len(r.Data) > 0:
		return variantData
	case len(r.Rates) > 0:
		return variantFlat
	default:
		return variantUnknown
	}
}
