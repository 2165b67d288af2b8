/*
Package server runs the provisioning api as a standalone HTTP server

It installs the request logger, CORS and compression middleware on a mux router and adds
two routes next to whatever the router already serves:

	GET /health   liveness check, always {"status":"alive"}
	GET /version  the version of the build, set with -ldflags "-X .../core/server.Version=..."

When deployed behind API Gateway the server is not used, see package provisioning.
*/
package server
