package provisioning

import (
	"context"
	"encoding/base64"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/relabs-tech/provisioning/core/logger"
)

// HandleAPIGatewayRequest is the Lambda entry point for the API Gateway proxy
// integration. Failures are reported in the response, the returned error is
// always nil.
func (h *Handler) HandleAPIGatewayRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	requestID := req.RequestContext.RequestID
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		requestID = lc.AwsRequestID
	}
	ctx, rlog := logger.ContextWithRequestID(ctx, requestID)

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			rlog.WithError(err).Infoln("provisioning: cannot decode request body")
			res := badRequest([]string{err.Error()})
			return toProxyResponse(res), nil
		}
		body = decoded
	}

	return toProxyResponse(h.Handle(ctx, body)), nil
}

func toProxyResponse(res Response) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: res.StatusCode,
		Headers:    map[string]string{"Content-Type": res.ContentType},
		Body:       string(res.Body),
	}
}
