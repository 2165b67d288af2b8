package awsiot

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iot"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	registerInput *iot.RegisterThingInput
	registerOut   *iot.RegisterThingOutput
	registerErr   error

	endpointInput *iot.DescribeEndpointInput
	endpointOut   *iot.DescribeEndpointOutput
	endpointErr   error
}

func (s *stubClient) RegisterThing(ctx context.Context, params *iot.RegisterThingInput, optFns ...func(*iot.Options)) (*iot.RegisterThingOutput, error) {
	s.registerInput = params
	return s.registerOut, s.registerErr
}

func (s *stubClient) DescribeEndpoint(ctx context.Context, params *iot.DescribeEndpointInput, optFns ...func(*iot.Options)) (*iot.DescribeEndpointOutput, error) {
	s.endpointInput = params
	return s.endpointOut, s.endpointErr
}

func TestRegisterThing(t *testing.T) {
	client := &stubClient{
		registerOut: &iot.RegisterThingOutput{
			CertificatePem: aws.String("--the certificate--"),
			ResourceArns:   map[string]string{"thing": "arn:aws:iot:eu-central-1:123456789012:thing/lightbulb-1"},
		},
	}
	r := NewWithClient(client)

	cert, err := r.RegisterThing(context.Background(), `{"Resources":{}}`, map[string]string{"ThingName": "lightbulb-1", "CSR": "csr"})
	require.NoError(t, err)
	assert.Equal(t, "--the certificate--", cert)
	assert.Equal(t, `{"Resources":{}}`, aws.ToString(client.registerInput.TemplateBody))
	assert.Equal(t, map[string]string{"ThingName": "lightbulb-1", "CSR": "csr"}, client.registerInput.Parameters)
}

func TestRegisterThingFailure(t *testing.T) {
	apiErr := &smithy.GenericAPIError{Code: "ResourceRegistrationFailureException", Message: "device error"}
	r := NewWithClient(&stubClient{registerErr: apiErr})

	_, err := r.RegisterThing(context.Background(), "{}", nil)
	assert.ErrorIs(t, err, apiErr)

	r = NewWithClient(&stubClient{registerOut: &iot.RegisterThingOutput{}})
	_, err = r.RegisterThing(context.Background(), "{}", nil)
	assert.Error(t, err, "a missing certificate is an error")
}

func TestDescribeEndpoint(t *testing.T) {
	client := &stubClient{
		endpointOut: &iot.DescribeEndpointOutput{EndpointAddress: aws.String("endpoint.aws.com")},
	}
	r := NewWithClient(client)

	address, err := r.DescribeEndpoint(context.Background(), "iot:Data-ATS")
	require.NoError(t, err)
	assert.Equal(t, "endpoint.aws.com", address)
	assert.Equal(t, "iot:Data-ATS", aws.ToString(client.endpointInput.EndpointType))

	client.endpointErr = errors.New("Could not describe endpoint")
	_, err = r.DescribeEndpoint(context.Background(), "iot:Data-ATS")
	assert.EqualError(t, err, "Could not describe endpoint")

	r = NewWithClient(&stubClient{endpointOut: &iot.DescribeEndpointOutput{}})
	_, err = r.DescribeEndpoint(context.Background(), "iot:Data-ATS")
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(context.Background(), Configuration{
		AWSRegion: "eu-central-1",
		AccessID:  "id",
		AccessKey: "key",
		Endpoint:  "http://localhost:4566",
	})
	require.NoError(t, err)
	assert.Equal(t, "eu-central-1", cfg.Region)

	creds, err := cfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "id", creds.AccessKeyID)
	assert.Equal(t, "key", creds.SecretAccessKey)

	endpoint, err := cfg.EndpointResolverWithOptions.ResolveEndpoint(iot.ServiceID, "eu-central-1")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4566", endpoint.URL)
}
