package httpapi

import (
	"net/http"

	"settlehub/internal/service"
)

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	partnerID, err := service.ParsePartnerID(q.Get("partner_id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	resp, err := a.service.Dashboard(r.Context(), q.Get("start_date"), q.Get("end_date"), partnerID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handlePartners(w http.ResponseWriter, r *http.Request) {
	resp, err := a.service.Partners(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
