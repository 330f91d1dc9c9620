package http

import (
	"net/http"

	"github.com/eser/ajan/httpfx"

	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/adapters/appcontext"
)

func RegisterHttpRoutesForResults(
	routes *httpfx.Router,
	appContext *appcontext.AppContext,
) {
	routes.
		Route(
			"GET /api/runs/{id}/results",
			func(ctx *httpfx.Context) httpfx.Result {
				// get variables from path
				idParam := ctx.Request.PathValue("id")

				run, err := appContext.Repository.GetRun(ctx.Request.Context(), idParam)
				if err != nil {
					return ctx.Results.Error(http.StatusInternalServerError, []byte(err.Error()))
				}

				if run == nil {
					return ctx.Results.Error(http.StatusNotFound, []byte("run not found"))
				}

				items, err := appContext.Repository.ListResultsByRun(ctx.Request.Context(), idParam)
				if err != nil {
					return ctx.Results.Error(http.StatusInternalServerError, []byte(err.Error()))
				}

				return ctx.Results.Json(items)
			},
		).
		HasSummary("List run results").
		HasDescription("List the similarity rows recorded for a run.").
		HasResponse(http.StatusOK)
}
