package provisioning

import (
	"encoding/base64"
	"fmt"

	"github.com/goccy/go-json"
)

// Well-known request properties. Everything except ThingName and CSR ends up in
// the thing resource of the provisioning template.
const (
	PropertyThingName        = "ThingName"
	PropertyCSR              = "CSR"
	PropertyThingTypeName    = "ThingTypeName"
	PropertyThingGroups      = "ThingGroups"
	PropertyAttributePayload = "AttributePayload"
)

// Request is a device registration request.
//
// On the wire it is a flat JSON object:
//
//	{
//	  "ThingName": "lightbulb-1",
//	  "CSR": "<base64 encoded PEM>",
//	  "ThingTypeName": "lightbulb",
//	  "ThingGroups": ["kitchen"],
//	  "AttributePayload": {"color": "warm"}
//	}
type Request struct {
	ThingName string
	// CSR is the base64 encoded certificate signing request
	CSR string
	// Properties holds all other top-level properties of the request
	Properties map[string]interface{}
}

// NewRequest returns a request for thingName with the given PEM encoded CSR.
func NewRequest(thingName string, csrPEM []byte) Request {
	return Request{
		ThingName:  thingName,
		CSR:        base64.StdEncoding.EncodeToString(csrPEM),
		Properties: map[string]interface{}{},
	}
}

// WithThingType returns a copy of the request with a thing type
func (r Request) WithThingType(thingTypeName string) Request {
	return r.withProperty(PropertyThingTypeName, thingTypeName)
}

// WithThingGroups returns a copy of the request with thing groups
func (r Request) WithThingGroups(groups ...string) Request {
	return r.withProperty(PropertyThingGroups, groups)
}

// WithAttributes returns a copy of the request with an attribute payload
func (r Request) WithAttributes(attributes map[string]string) Request {
	return r.withProperty(PropertyAttributePayload, attributes)
}

func (r Request) withProperty(key string, value interface{}) Request {
	properties := make(map[string]interface{}, len(r.Properties)+1)
	for k, v := range r.Properties {
		properties[k] = v
	}
	properties[key] = value
	r.Properties = properties
	return r
}

// UnmarshalJSON is a custom JSON unmarshaller
func (r *Request) UnmarshalJSON(data []byte) error {
	var properties map[string]interface{}
	if err := json.Unmarshal(data, &properties); err != nil {
		return err
	}
	if properties == nil {
		return fmt.Errorf("request must be a JSON object")
	}

	var ok bool
	if v, found := properties[PropertyThingName]; found {
		if r.ThingName, ok = v.(string); !ok {
			return fmt.Errorf("%s must be a string", PropertyThingName)
		}
	}
	if v, found := properties[PropertyCSR]; found {
		if r.CSR, ok = v.(string); !ok {
			return fmt.Errorf("%s must be a string", PropertyCSR)
		}
	}
	delete(properties, PropertyThingName)
	delete(properties, PropertyCSR)
	r.Properties = properties
	return nil
}

// MarshalJSON is a custom JSON marshaller
func (r Request) MarshalJSON() ([]byte, error) {
	flat := make(map[string]interface{}, len(r.Properties)+2)
	for k, v := range r.Properties {
		flat[k] = v
	}
	flat[PropertyThingName] = r.ThingName
	flat[PropertyCSR] = r.CSR
	return json.Marshal(flat)
}

// Result is the outcome of a successful registration. It is returned to the
// caller as is and never stored.
type Result struct {
	ThingName       string `json:"ThingName"`
	CertificatePEM  string `json:"certificatePem"`
	EndpointAddress string `json:"endpointAddress"`
}
