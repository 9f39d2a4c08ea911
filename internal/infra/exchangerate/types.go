package exchangerate

import "encoding/json"

// latestResponse is the v6 "latest" payload.
// Example: {"result":"success","base_code":"EUR","time_last_update_unix":1700000000,"conversion_rates":{"XOF":655.957}}
type latestResponse struct {
	Result             string                     `json:"result"`
	ErrorType          string                     `json:"error-type,omitempty"`
	BaseCode           string                     `json:"base_code"`
	TimeLastUpdateUnix int64                      `json:"time_last_update_unix"`
	ConversionRates    map[string]json.RawMessage `json:"conversion_rates"`
}
