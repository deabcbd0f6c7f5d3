package model

import "encoding/json"

// CallRequest is one named sub-request of the batched /api/calls endpoint.
type CallRequest struct {
	ModuleName   string `json:"moduleName"`
	EndpointName string `json:"endpointName"`
	Parameters   any    `json:"parameters"`
}

// BatchPayload is the envelope posted to /api/calls. The bundle version is
// included at the top level whenever it is known.
type BatchPayload struct {
	BundleVersion string        `json:"bundleVersion,omitempty"`
	Requests      []CallRequest `json:"requests"`
}

// CallResult is one sub-result of the parallel results array. A sub-status
// other than 200 means that single request failed while the HTTP call as a
// whole succeeded. Status is a pointer because some portal releases omit it
// on success.
type CallResult struct {
	Status *int            `json:"status,omitempty"`
	ID     json.RawMessage `json:"id,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// OK reports whether this sub-result may be consumed: either no explicit
// sub-status or an explicit 200.
func (r CallResult) OK() bool {
	return r.Status == nil || *r.Status == 200
}

type BatchResponse struct {
	Results []CallResult `json:"results"`
}
