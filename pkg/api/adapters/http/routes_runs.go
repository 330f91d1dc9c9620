package http

import (
	"encoding/json"
	"net/http"

	"github.com/eser/ajan/httpfx"

	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/adapters/appcontext"
	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/business/runs"
)

func RegisterHttpRoutesForRuns( //nolint:funlen
	routes *httpfx.Router,
	appContext *appcontext.AppContext,
) {
	routes.
		Route(
			"POST /api/runs",
			func(ctx *httpfx.Context) httpfx.Result {
				// get body
				var request runs.RunRequest
				err := json.NewDecoder(ctx.Request.Body).Decode(&request)
				if err != nil {
					return ctx.Results.Error(http.StatusBadRequest, []byte(err.Error()))
				}

				run, err := appContext.Runs.Dispatch(ctx.Request.Context(), request)

				if err != nil {
					return ctx.Results.Error(http.StatusInternalServerError, []byte(err.Error()))
				}

				return ctx.Results.Json(run)
			},
		).
		HasSummary("Dispatch pipeline run").
		HasDescription("Start a logo similarity pipeline run in the background.").
		HasResponse(http.StatusOK)

	routes.
		Route(
			"GET /api/runs",
			func(ctx *httpfx.Context) httpfx.Result {
				items, err := appContext.Repository.ListRuns(ctx.Request.Context())
				if err != nil {
					return ctx.Results.Error(http.StatusInternalServerError, []byte(err.Error()))
				}

				return ctx.Results.Json(items)
			},
		).
		HasSummary("List runs").
		HasDescription("List recorded pipeline runs, most recent first.").
		HasResponse(http.StatusOK)
}
