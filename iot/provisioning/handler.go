package provisioning

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/relabs-tech/provisioning/core/logger"
	"github.com/relabs-tech/provisioning/core/schema"
)

// RequestSchemaID is the schema of the request body
const RequestSchemaID = "https://relabs.tech/schemas/provision-device.json"

//go:embed schemas/*.json
var schemasFS embed.FS

// Response is a transport independent HTTP response
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Handler turns request bodies into responses. It is shared by the HTTP API and
// the Lambda function.
type Handler struct {
	service   *Service
	validator *schema.Validator
}

// NewHandler returns a new handler for service
func NewHandler(service *Service) *Handler {
	if service == nil {
		panic("Service is missing")
	}
	sub, err := fs.Sub(schemasFS, "schemas")
	if err != nil {
		panic(err)
	}
	validator, err := schema.NewValidatorFromFS(sub)
	if err != nil {
		panic(err)
	}
	return &Handler{service: service, validator: validator}
}

// Handle provisions the device described by body.
//
// It returns 200 with the result, 400 if the body is not a valid request and 500
// with the message text of the registry failure otherwise.
func (h *Handler) Handle(ctx context.Context, body []byte) Response {
	rlog := logger.FromContext(ctx)

	if err := h.validator.ValidateBytes(body, RequestSchemaID); err != nil {
		rlog.WithError(err).Infoln("provisioning: invalid request body")
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			return badRequest(verr.Details)
		}
		return internalError(err.Error())
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return badRequest([]string{err.Error()})
	}

	result, err := h.service.Provision(ctx, req)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			rlog.WithError(err).Infoln("provisioning: invalid request")
			return badRequest(append([]string{verr.Message}, verr.Details...))
		}
		return internalError(ErrorMessage(err))
	}

	data, err := json.Marshal(result)
	if err != nil {
		return internalError(err.Error())
	}
	return Response{
		StatusCode:  http.StatusOK,
		ContentType: "application/json; charset=utf-8",
		Body:        data,
	}
}

// badRequest mirrors the error API Gateway's request validator returns
func badRequest(details []string) Response {
	data, _ := json.Marshal(struct {
		Message string   `json:"message"`
		Details []string `json:"details,omitempty"`
	}{
		Message: "Invalid request body",
		Details: details,
	})
	return Response{
		StatusCode:  http.StatusBadRequest,
		ContentType: "application/json; charset=utf-8",
		Body:        data,
	}
}

func internalError(message string) Response {
	return Response{
		StatusCode:  http.StatusInternalServerError,
		ContentType: "text/plain; charset=utf-8",
		Body:        []byte(message),
	}
}
