// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

// Package awsiot implements the device registry with AWS IoT Core
package awsiot

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/iot"
	"github.com/relabs-tech/provisioning/core/logger"
)

// Configuration contains the AWS configuration of the registry
type Configuration struct {
	AWSRegion string `env:"AWS_REGION" description:"the AWS region, the default chain applies when empty"`
	AccessID  string `env:"AWS_ACCESS_KEY_ID" description:"static credentials, the default chain applies when empty"`
	AccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	// Endpoint overrides the service endpoints, for example for localstack
	Endpoint string `env:"AWS_ENDPOINT_URL" description:"custom endpoint for all AWS services"`
}

// API is the part of the IoT client used by the registry
type API interface {
	RegisterThing(ctx context.Context, params *iot.RegisterThingInput, optFns ...func(*iot.Options)) (*iot.RegisterThingOutput, error)
	DescribeEndpoint(ctx context.Context, params *iot.DescribeEndpointInput, optFns ...func(*iot.Options)) (*iot.DescribeEndpointOutput, error)
}

// Registry is the AWS IoT Core device registry
type Registry struct {
	client API
}

// LoadConfig returns the AWS configuration for c
func LoadConfig(ctx context.Context, c Configuration) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if c.AWSRegion != "" {
		opts = append(opts, config.WithRegion(c.AWSRegion))
	}
	if c.AccessID != "" || c.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.AccessID, c.AccessKey, "")))
	}
	if c.Endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               c.Endpoint,
				SigningRegion:     region,
				HostnameImmutable: true,
			}, nil
		})
		opts = append(opts, config.WithEndpointResolverWithOptions(resolver))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("cannot load AWS configuration: %w", err)
	}
	return cfg, nil
}

// New returns a registry using cfg
func New(cfg aws.Config) *Registry {
	logger.Default().Debugln("AWS IoT registry enabled for region", cfg.Region)
	return NewWithClient(iot.NewFromConfig(cfg))
}

// NewWithClient returns a registry using client
func NewWithClient(client API) *Registry {
	return &Registry{client: client}
}

// RegisterThing provisions a thing with the template body and returns the
// certificate of the thing
func (r *Registry) RegisterThing(ctx context.Context, templateBody string, parameters map[string]string) (string, error) {
	out, err := r.client.RegisterThing(ctx, &iot.RegisterThingInput{
		TemplateBody: aws.String(templateBody),
		Parameters:   parameters,
	})
	if err != nil {
		return "", err
	}
	if out.CertificatePem == nil {
		return "", fmt.Errorf("registry returned no certificate")
	}
	logger.FromContext(ctx).WithField("resources", out.ResourceArns).Debugln("awsiot: thing registered")
	return *out.CertificatePem, nil
}

// DescribeEndpoint returns the endpoint address for endpointType
func (r *Registry) DescribeEndpoint(ctx context.Context, endpointType string) (string, error) {
	out, err := r.client.DescribeEndpoint(ctx, &iot.DescribeEndpointInput{
		EndpointType: aws.String(endpointType),
	})
	if err != nil {
		return "", err
	}
	if out.EndpointAddress == nil {
		return "", fmt.Errorf("registry returned no endpoint address for %s", endpointType)
	}
	return *out.EndpointAddress, nil
}
