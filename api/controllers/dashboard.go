package controllers

import (
	"net/http"
	"time"

	"github.com/tillpoint/tillpoint-backend/api/responses"
	"github.com/tillpoint/tillpoint-backend/api/validators"
	dashsvc "github.com/tillpoint/tillpoint-backend/internal/dashboard"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
	"github.com/tillpoint/tillpoint-backend/pkg/logger"
)

// DashboardSummary reports the day's KPIs. The day defaults to today and can
// be overridden with a `day` query parameter.
func DashboardSummary(svc dashsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dashboard service unavailable"))
			return
		}

		orgID, _, err := identity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		day := time.Now().UTC()
		if parsed, err := validators.ParseQueryTime(r, "day"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else if parsed != nil {
			day = *parsed
		}

		summary, err := svc.Summary(r.Context(), orgID, day)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}
