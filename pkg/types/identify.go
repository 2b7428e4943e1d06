package types

import "maps"

// Property operation keys, as they appear on the wire.
const (
	OpSet     = "$set"
	OpSetOnce = "$set_once"
	OpAdd     = "$add"
	OpUnset   = "$unset"
)

// PropertyOps are user property operations sent with an identify call.
type PropertyOps struct {
	Set     JSONObject         `json:"$set,omitempty"`
	SetOnce JSONObject         `json:"$set_once,omitempty"`
	Add     map[string]float64 `json:"$add,omitempty"`
	Unset   []string           `json:"$unset,omitempty"`
}

// Clone returns a deep copy of the operations. A nil receiver yields nil.
func (o *PropertyOps) Clone() *PropertyOps {
	if o == nil {
		return nil
	}
	return &PropertyOps{
		Set:     maps.Clone(o.Set),
		SetOnce: maps.Clone(o.SetOnce),
		Add:     maps.Clone(o.Add),
		Unset:   append([]string(nil), o.Unset...),
	}
}

// IsEmpty reports whether no operation is present.
func (o *PropertyOps) IsEmpty() bool {
	return o == nil || (len(o.Set) == 0 && len(o.SetOnce) == 0 && len(o.Add) == 0 && len(o.Unset) == 0)
}

// IdentifyParams is the body of POST /identify.
type IdentifyParams struct {
	UserID          string       `json:"user_id"`
	DeviceID        string       `json:"device_id,omitempty"`
	UserProperties  JSONObject   `json:"user_properties,omitempty"`
	UserPropertyOps *PropertyOps `json:"user_property_ops,omitempty"`
}

// IdentifyResponse is the success body of POST /identify.
type IdentifyResponse struct {
	OK bool `json:"ok"`
}

// IdentifyResult is returned by Identify.
type IdentifyResult struct {
	OK bool

	// AttributionSynced is true when first/last touch attribution was
	// merged into this call and confirmed by the API.
	AttributionSynced bool
}
