package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"settlehub/internal/domain"
	"settlehub/internal/service"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func kindParam(r *http.Request) domain.CompanyKind {
	return domain.CompanyKind(strings.ToLower(r.PathValue("kind")))
}

func (a *API) handleIntegratedSettlement(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := domain.IntegratedQuery{
		Name:           strings.TrimSpace(q.Get("name")),
		PaymentPeriods: splitQuery(q["payment_period"]),
		Sort:           strings.TrimSpace(q.Get("sort")),
		Size:           parsePositiveLimit(q.Get("size"), defaultPageSize, maxPageSize),
		Page:           parsePositiveLimit(q.Get("page"), 1, 0),
	}
	// Grid clients send the first row offset instead of a page number.
	if raw := strings.TrimSpace(q.Get("start_row")); raw != "" {
		if startRow, err := strconv.Atoi(raw); err == nil && startRow >= 0 {
			query.Page = startRow/query.Size + 1
		}
	}
	for _, kind := range splitQuery(q["type"]) {
		query.Types = append(query.Types, domain.CompanyKind(strings.ToLower(kind)))
	}
	var err error
	if raw := strings.TrimSpace(q.Get("start_date")); raw != "" {
		if query.StartDate, err = domain.ParseDate(raw); err != nil {
			a.writeError(w, http.StatusBadRequest, errInvalidDate("start_date"))
			return
		}
	}
	if raw := strings.TrimSpace(q.Get("end_date")); raw != "" {
		if query.EndDate, err = domain.ParseDate(raw); err != nil {
			a.writeError(w, http.StatusBadRequest, errInvalidDate("end_date"))
			return
		}
	}

	page, err := a.service.IntegratedSettlement(r.Context(), query)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func errInvalidDate(field string) error {
	return &service.InputError{Reason: field + " must be yyyy-MM-dd"}
}

func (a *API) handleCompanies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := a.service.ListCompanies(r.Context(), kindParam(r), domain.CompanyFilter{
		Name:           strings.TrimSpace(q.Get("name")),
		PaymentPeriods: splitQuery(q["payment_period"]),
	})
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleCompany(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	company, err := a.service.GetCompany(r.Context(), kindParam(r), id)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"company": company})
}

func (a *API) handleLedgerDetails(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	q := r.URL.Query()
	resp, err := a.service.LedgerDetails(r.Context(), kindParam(r), id, q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleExportLedger(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	q := r.URL.Query()
	export, err := a.service.ExportLedger(r.Context(), kindParam(r), id, q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeAttachment(w, export)
}

func (a *API) handleLedgerLogs(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	var detailID int64
	if raw := strings.TrimSpace(r.URL.Query().Get("detail_id")); raw != "" {
		detailID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || detailID < 0 {
			a.writeError(w, http.StatusBadRequest, &service.InputError{Reason: "detail_id must be a positive integer"})
			return
		}
	}
	resp, err := a.service.LedgerLogs(r.Context(), kindParam(r), id, detailID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	var req domain.PaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.service.CreatePayment(r.Context(), kindParam(r), id, req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	detailID, err := parseIDParam(r, "detailID")
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	var req domain.PaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.service.UpdatePayment(r.Context(), kindParam(r), id, detailID, req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	detailID, err := parseIDParam(r, "detailID")
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := a.service.DeletePayment(r.Context(), kindParam(r), id, detailID); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
