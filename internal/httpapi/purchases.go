package httpapi

import (
	"net/http"

	"settlehub/internal/domain"
)

func (a *API) handleAvailableDates(w http.ResponseWriter, r *http.Request) {
	resp, err := a.service.AvailablePurchaseDates(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handlePurchaseSheet(w http.ResponseWriter, r *http.Request) {
	resp, err := a.service.LoadPurchaseSheet(r.Context(), r.URL.Query().Get("estimated_delivery_date"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleCommitPurchaseSheet(w http.ResponseWriter, r *http.Request) {
	var req domain.SheetRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.service.CommitPurchaseSheet(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleReconcile(w http.ResponseWriter, r *http.Request) {
	var req domain.ReconcileRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.service.ReconcilePurchaseSheet(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req domain.SheetRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, a.service.ValidatePurchaseSheet(r.Context(), req.TableData))
}

func (a *API) handleSummary(w http.ResponseWriter, r *http.Request) {
	var req domain.SheetRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, a.service.SummarizePurchaseSheet(r.Context(), req.TableData))
}

func (a *API) handleExportPurchaseSheet(w http.ResponseWriter, r *http.Request) {
	export, err := a.service.ExportPurchaseSheet(r.Context(), r.URL.Query().Get("estimated_delivery_date"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeAttachment(w, export)
}
