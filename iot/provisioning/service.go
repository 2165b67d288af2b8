package provisioning

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/relabs-tech/provisioning/core/logger"
)

// DefaultEndpointType is the endpoint type for data connections with ATS signed
// server certificates
const DefaultEndpointType = "iot:Data-ATS"

// Registry is the device registry of record. It issues device certificates.
type Registry interface {
	// RegisterThing provisions a thing from templateBody and returns the PEM
	// encoded certificate
	RegisterThing(ctx context.Context, templateBody string, parameters map[string]string) (string, error)
	// DescribeEndpoint returns the address of the endpoint things connect to
	DescribeEndpoint(ctx context.Context, endpointType string) (string, error)
}

// Service provisions devices in the registry
type Service struct {
	registry     Registry
	template     *Template
	endpointType string
}

// Builder is a builder helper for the Service
type Builder struct {
	// Registry is the device registry. This is mandatory.
	Registry Registry
	// Template is the provisioning template. Defaults to DefaultTemplate().
	Template *Template
	// EndpointType is the requested endpoint type. Defaults to DefaultEndpointType.
	EndpointType string
}

// NewService returns a new provisioning service
func NewService(b *Builder) *Service {
	if b.Registry == nil {
		panic("Registry is missing")
	}
	s := &Service{
		registry:     b.Registry,
		template:     b.Template,
		endpointType: b.EndpointType,
	}
	if s.template == nil {
		s.template = DefaultTemplate()
	}
	if s.endpointType == "" {
		s.endpointType = DefaultEndpointType
	}
	return s
}

// Provision registers a thing from the request and returns its certificate
// together with the endpoint address.
//
// Failures of the registry are returned as *Error. Note that when the endpoint
// lookup fails the certificate has already been issued.
func (s *Service) Provision(ctx context.Context, req Request) (*Result, error) {
	if req.ThingName == "" {
		return nil, &ValidationError{Message: "ThingName is missing"}
	}
	csr, err := decodeCSR(req.CSR)
	if err != nil {
		return nil, err
	}

	ctx, rlog := logger.ContextWithLoggerIdentity(ctx, req.ThingName)

	templateBody, err := s.template.Build(req.ThingName, req.Properties)
	if err != nil {
		return nil, err
	}

	rlog.Debugln("provisioning: register thing")
	certificatePEM, err := s.registry.RegisterThing(ctx, templateBody, map[string]string{
		PropertyThingName: req.ThingName,
		PropertyCSR:       csr,
	})
	if err != nil {
		rlog.WithError(err).Errorln("Could not provision the device")
		return nil, &Error{Op: OpRegister, ThingName: req.ThingName, Err: err}
	}

	endpointAddress, err := s.registry.DescribeEndpoint(ctx, s.endpointType)
	if err != nil {
		rlog.WithError(err).Errorln("Could not provision the device: thing is registered but the endpoint is unknown")
		return nil, &Error{Op: OpDescribeEndpoint, ThingName: req.ThingName, Err: err}
	}

	rlog.Infoln("provisioning: thing provisioned")
	return &Result{
		ThingName:       req.ThingName,
		CertificatePEM:  certificatePEM,
		EndpointAddress: endpointAddress,
	}, nil
}

// decodeCSR decodes the base64 text of a CSR. Padding, line breaks and the URL
// alphabet are tolerated.
func decodeCSR(encoded string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, encoded)
	cleaned = strings.TrimRight(cleaned, "=")
	if cleaned == "" {
		return "", &ValidationError{Message: "CSR is missing"}
	}

	data, err := base64.RawStdEncoding.DecodeString(cleaned)
	if err != nil {
		var urlErr error
		data, urlErr = base64.RawURLEncoding.DecodeString(cleaned)
		if urlErr != nil {
			return "", &ValidationError{Message: "CSR is not base64 encoded", Details: []string{err.Error()}}
		}
	}
	return string(data), nil
}
