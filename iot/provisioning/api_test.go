package provisioning_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/relabs-tech/provisioning/core/client"
	"github.com/relabs-tech/provisioning/core/server"
	"github.com/relabs-tech/provisioning/iot/provisioning"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(registry provisioning.Registry) *mux.Router {
	router := mux.NewRouter()
	server.New(&server.Builder{Router: router})
	handler := provisioning.NewHandler(provisioning.NewService(&provisioning.Builder{Registry: registry}))
	handler.HandleRoutes(router)
	return router
}

func post(router *mux.Router, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, provisioning.Route, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, r)
	return rec
}

func TestAPIProvisionDevice(t *testing.T) {
	router := newTestRouter(&stubRegistry{})

	rec := post(router, `{"ThingName":"lightbulb-1","CSR":"`+csrBase64+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		`{"ThingName":"lightbulb-1","certificatePem":"--the certificate--","endpointAddress":"endpoint.aws.com"}`,
		rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}

func TestAPIProvisionDeviceFails(t *testing.T) {
	router := newTestRouter(&stubRegistry{})

	rec := post(router, `{"ThingName":"broken-device","CSR":"`+csrBase64+`"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "device error", rec.Body.String())
}

func TestAPIInvalidBody(t *testing.T) {
	registry := &stubRegistry{}
	router := newTestRouter(registry)

	for name, body := range map[string]string{
		"empty":            ``,
		"not json":         `ThingName=lightbulb-1`,
		"missing csr":      `{"ThingName":"lightbulb-1"}`,
		"missing name":     `{"CSR":"` + csrBase64 + `"}`,
		"wrong group type": `{"ThingName":"lightbulb-1","CSR":"` + csrBase64 + `","ThingGroups":"kitchen"}`,
		"array":            `[]`,
		"csr not base64":   `{"ThingName":"lightbulb-1","CSR":"%%%"}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := post(router, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var res struct {
				Message string   `json:"message"`
				Details []string `json:"details"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
			assert.Equal(t, "Invalid request body", res.Message)
			assert.NotEmpty(t, res.Details)
		})
	}
	assert.Empty(t, registry.templates)
}

func TestAPIExtraProperties(t *testing.T) {
	registry := &stubRegistry{}
	router := newTestRouter(registry)

	rec := post(router, `{"ThingName":"lightbulb-1","CSR":"`+csrBase64+`","AttributePayload":{"color":"warm"},"BillingGroupName":"lights"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	doc, _ := parseTemplate(t, registry.lastTemplate())
	assert.Equal(t, map[string]interface{}{"color": "warm"}, doc.Resources.Thing.Properties["AttributePayload"])
	assert.Equal(t, "lights", doc.Resources.Thing.Properties["BillingGroupName"])
	assert.NotContains(t, doc.Resources.Thing.Properties, "CSR")
}

func TestAPIWithClient(t *testing.T) {
	router := newTestRouter(&stubRegistry{})
	c := client.NewWithRouter(router)

	result, status, err := c.ProvisionDevice(provisioning.NewRequest("lightbulb-1", []byte(csrPEM)).WithAttributes(map[string]string{"color": "warm"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "--the certificate--", result.CertificatePEM)

	_, status, err = c.ProvisionDevice(provisioning.NewRequest("broken-device", []byte(csrPEM)))
	assert.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestAPIRejectsGet(t *testing.T) {
	router := newTestRouter(&stubRegistry{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, provisioning.Route, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
