// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package provisioning provisions things in a device registry from a certificate signing request

The package provides a single endpoint where a client posts the name of a thing and a base64
encoded CSR. The thing is registered with a provisioning template, which creates the thing,
issues a certificate from the CSR and attaches a policy restricting the thing to MQTT topics
that start with its name.

The API provides the following REST route:

	POST /provision/device

with the body

	{
	  "ThingName": "lightbulb-1",
	  "CSR": "<base64 encoded PEM>",
	  "ThingTypeName": "lightbulb",          (optional)
	  "ThingGroups": ["kitchen"],            (optional)
	  "AttributePayload": {"color": "warm"}  (optional)
	}

All properties except ThingName and CSR are merged into the properties of the thing resource
of the template. A successful request returns

	ThingName:		the name of the thing
	certificatePem:	the issued X.509 certificate
	endpointAddress:	the address of the MQTT endpoint

A request failing in the registry returns 500 Internal Server Error with the error message
as plain text. Requests are not retried; posting the same thing again registers it again
at the discretion of the registry.

The same handler serves as a Lambda function behind an API Gateway proxy integration,
see Handler.HandleAPIGatewayRequest.
*/
package provisioning
