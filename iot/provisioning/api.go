package provisioning

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/relabs-tech/provisioning/core/logger"
)

// Route is the route of the provisioning endpoint
const Route = "/provision/device"

// maxBodySize limits request bodies. CSRs are a few kilobytes at most.
const maxBodySize = 1 << 20

// HandleRoutes adds the provisioning route to router
func (h *Handler) HandleRoutes(router *mux.Router) {
	logger.Default().Debugln("provisioning: handle route", Route, "POST")

	router.HandleFunc(Route, func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			logger.FromContext(r.Context()).WithError(err).Errorln("Error 4701")
			http.Error(w, "Error 4701", http.StatusBadRequest)
			return
		}

		res := h.Handle(r.Context(), body)
		w.Header().Set("Content-Type", res.ContentType)
		w.WriteHeader(res.StatusCode)
		w.Write(res.Body)
	}).Methods(http.MethodOptions, http.MethodPost)
}
