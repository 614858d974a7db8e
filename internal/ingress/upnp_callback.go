package ingress

import (
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/soundmesh/musiccast-hub-go/internal/agent"
	"github.com/soundmesh/musiccast-hub-go/internal/registry"
)

// UPnPCallback answers the GENA NOTIFY requests devices send to the
// callback URL. The SID header names the subscription; the agent that
// owns it decodes the body against its own service description.
func UPnPCallback(reg *registry.Registry) http.HandlerFunc {
	log := logrus.WithField("component", "upnp_ingress")

	return func(w http.ResponseWriter, r *http.Request) {
		sid := r.Header.Get("SID")
		if sid == "" {
			http.Error(w, "missing SID", http.StatusPreconditionFailed)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			http.Error(w, "read failed", http.StatusBadRequest)
			return
		}

		entry, ok := reg.FindBySession(sid)
		if !ok {
			// Unknown subscription; Gone tells the device to drop it.
			log.WithField("sid", sid).Debug("notify for unknown sid")
			w.WriteHeader(http.StatusGone)
			return
		}

		entry.Agent.Deliver(agent.UPnPNotify{Body: body})
		w.WriteHeader(http.StatusOK)
	}
}
