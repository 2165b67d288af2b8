// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/gorilla/mux"
	"github.com/joeshaw/envdecode"
	"github.com/relabs-tech/provisioning/core/logger"
	"github.com/relabs-tech/provisioning/core/server"
	"github.com/relabs-tech/provisioning/iot/awsiot"
	"github.com/relabs-tech/provisioning/iot/provisioning"
)

// Service holds the configuration for this service
//
// Outside of Lambda use e.g. AWS_REGION="eu-central-1" PROVISIONER_MODE="http"
type Service struct {
	Mode           string `env:"PROVISIONER_MODE" description:"lambda or http, defaults to lambda inside Lambda"`
	Port           int    `env:"PORT,default=3000" description:"the port of the http server"`
	LogLevel       string `env:"LOG_LEVEL,default=info"`
	EndpointType   string `env:"IOT_ENDPOINT_TYPE,default=iot:Data-ATS" description:"the endpoint type returned to things"`
	TemplateSource string `env:"TEMPLATE_SOURCE" description:"directory or s3://bucket/prefix with provisioning-template.json and policy.json"`
	AllowedOrigin  string `env:"ALLOWED_ORIGIN,default=*" description:"CORS allowed origin of the http server"`
	LambdaFunction string `env:"AWS_LAMBDA_FUNCTION_NAME"`
	AWS            awsiot.Configuration
}

const (
	modeLambda = "lambda"
	modeHTTP   = "http"
)

func loadService() (*Service, error) {
	service := &Service{}
	if err := envdecode.Decode(service); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, err
	}
	if service.Mode == "" {
		service.Mode = modeHTTP
		if service.LambdaFunction != "" {
			service.Mode = modeLambda
		}
	}
	if service.Mode != modeLambda && service.Mode != modeHTTP {
		return nil, fmt.Errorf("unknown PROVISIONER_MODE '%s'", service.Mode)
	}
	return service, nil
}

func newHandler(ctx context.Context, service *Service) (*provisioning.Handler, error) {
	cfg, err := awsiot.LoadConfig(ctx, service.AWS)
	if err != nil {
		return nil, err
	}

	loader := provisioning.TemplateLoader{AWSConfig: &cfg, UsePathStyle: service.AWS.Endpoint != ""}
	template, err := loader.Load(ctx, service.TemplateSource)
	if err != nil {
		return nil, fmt.Errorf("cannot load templates: %w", err)
	}

	return provisioning.NewHandler(provisioning.NewService(&provisioning.Builder{
		Registry:     awsiot.New(cfg),
		Template:     template,
		EndpointType: service.EndpointType,
	})), nil
}

func main() {
	service, err := loadService()
	if err != nil {
		panic(err)
	}
	logger.InitLoggerFromString(service.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler, err := newHandler(ctx, service)
	if err != nil {
		logger.Default().WithError(err).Fatalln("cannot start provisioner")
	}

	if service.Mode == modeLambda {
		logger.Default().Infoln("provisioner: serving API Gateway requests")
		lambda.Start(handler.HandleAPIGatewayRequest)
		return
	}

	router := mux.NewRouter()
	srv := server.New(&server.Builder{Router: router, AllowedOrigin: service.AllowedOrigin})
	handler.HandleRoutes(router)

	if err := srv.ListenAndServe(ctx, fmt.Sprintf(":%d", service.Port)); err != nil {
		logger.Default().WithError(err).Fatalln("server stopped")
	}
}
