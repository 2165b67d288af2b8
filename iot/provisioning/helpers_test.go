package provisioning_test

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"

	"github.com/relabs-tech/provisioning/iot/provisioning"
)

const csrPEM = `-----BEGIN CERTIFICATE REQUEST-----
MIIBHjCBxQIBADBjMQswCQYDVQQGEwJERTEQMA4GA1UECAwHQmF2YXJpYTEPMA0G
A1UEBwwGTXVuaWNoMQ8wDQYDVQQKDAZyZWxhYnMxFDASBgNVBAMMC2xpZ2h0YnVs
-----END CERTIFICATE REQUEST-----
`

var csrBase64 = base64.StdEncoding.EncodeToString([]byte(csrPEM))

// stubRegistry fails registration for "broken-device" and otherwise issues a fixed certificate
type stubRegistry struct {
	mu          sync.Mutex
	templates   []string
	parameters  []map[string]string
	endpointErr error
	endpoints   int
}

func (s *stubRegistry) RegisterThing(ctx context.Context, templateBody string, parameters map[string]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates = append(s.templates, templateBody)
	s.parameters = append(s.parameters, parameters)
	if parameters[provisioning.PropertyThingName] == "broken-device" {
		return "", errors.New("device error")
	}
	return "--the certificate--", nil
}

func (s *stubRegistry) DescribeEndpoint(ctx context.Context, endpointType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endpoints++
	if s.endpointErr != nil {
		return "", s.endpointErr
	}
	return "endpoint.aws.com", nil
}

func (s *stubRegistry) lastParameters() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.parameters) == 0 {
		return nil
	}
	return s.parameters[len(s.parameters)-1]
}

func (s *stubRegistry) lastTemplate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.templates) == 0 {
		return ""
	}
	return s.templates[len(s.templates)-1]
}
