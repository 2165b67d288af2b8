package provisioning

import (
	"bytes"
	"embed"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// PolicyPlaceholder is replaced with the thing name in the policy document
const PolicyPlaceholder = "${ThingName$}"

// File names of the templates, both embedded and in external template sources
const (
	ProvisioningTemplateFile = "provisioning-template.json"
	PolicyTemplateFile       = "policy.json"
)

//go:embed templates/*.json
var templatesFS embed.FS

// Template is a provisioning template together with the policy document which
// is attached to every provisioned thing. A Template is immutable and safe for
// concurrent use; Build produces a fresh document on every call.
type Template struct {
	skeleton []byte
	policy   string
}

// NewTemplate parses a provisioning template and a policy document. The
// provisioning template must declare the resources "thing" and "policy", both
// with a "Properties" object.
func NewTemplate(provisioningTemplate, policyDocument []byte) (*Template, error) {
	doc, err := parseSkeleton(provisioningTemplate)
	if err != nil {
		return nil, err
	}
	if _, _, err := slots(doc); err != nil {
		return nil, err
	}

	var policy bytes.Buffer
	if err := json.Compact(&policy, policyDocument); err != nil {
		return nil, fmt.Errorf("parse error in policy document: %w", err)
	}

	return &Template{
		skeleton: append([]byte(nil), provisioningTemplate...),
		policy:   policy.String(),
	}, nil
}

// DefaultTemplate returns the built-in template. It registers the thing, creates
// an active certificate from the CSR and attaches a policy which restricts the
// thing to MQTT topics starting with its own name.
func DefaultTemplate() *Template {
	provisioningTemplate, err := templatesFS.ReadFile("templates/" + ProvisioningTemplateFile)
	if err != nil {
		panic(err)
	}
	policyDocument, err := templatesFS.ReadFile("templates/" + PolicyTemplateFile)
	if err != nil {
		panic(err)
	}
	t, err := NewTemplate(provisioningTemplate, policyDocument)
	if err != nil {
		panic(err)
	}
	return t
}

// Build returns the template body for thingName. The properties are merged into
// the properties of the thing resource, properties of the same name are replaced.
func (t *Template) Build(thingName string, properties map[string]interface{}) (string, error) {
	doc, err := parseSkeleton(t.skeleton)
	if err != nil {
		return "", err
	}
	thingProperties, policyProperties, err := slots(doc)
	if err != nil {
		return "", err
	}

	for k, v := range properties {
		thingProperties[k] = v
	}

	// the name goes into a JSON string, hence it must be escaped like one
	quoted, err := json.Marshal(thingName)
	if err != nil {
		return "", err
	}
	escaped := string(quoted[1 : len(quoted)-1])
	policyProperties["PolicyDocument"] = strings.ReplaceAll(t.policy, PolicyPlaceholder, escaped)

	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("cannot marshal provisioning template: %w", err)
	}
	return string(body), nil
}

// Policy returns the compacted policy document with the placeholder in place
func (t *Template) Policy() string {
	return t.policy
}

func parseSkeleton(data []byte) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse error in provisioning template: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("provisioning template must be a JSON object")
	}
	return doc, nil
}

// slots returns the properties of the thing and the policy resource
func slots(doc map[string]interface{}) (thing, policy map[string]interface{}, err error) {
	resources, ok := doc["Resources"].(map[string]interface{})
	if !ok {
		return nil, nil, fmt.Errorf("provisioning template has no Resources")
	}
	properties := func(name string) (map[string]interface{}, error) {
		resource, ok := resources[name].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("provisioning template has no resource '%s'", name)
		}
		p, ok := resource["Properties"].(map[string]interface{})
		if !ok {
			if resource["Properties"] != nil {
				return nil, fmt.Errorf("resource '%s' has invalid Properties", name)
			}
			p = map[string]interface{}{}
			resource["Properties"] = p
		}
		return p, nil
	}
	if thing, err = properties("thing"); err != nil {
		return nil, nil, err
	}
	if policy, err = properties("policy"); err != nil {
		return nil, nil, err
	}
	return thing, policy, nil
}
