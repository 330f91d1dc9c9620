package main

import (
	"context"
	"log/slog"

	"github.com/eser/ajan/processfx"

	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/adapters/appcontext"
	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/adapters/http"
)

func main() {
	baseCtx := context.Background()

	appContext, err := appcontext.NewAppContext(baseCtx)
	if err != nil {
		panic(err)
	}

	err = appContext.Init(baseCtx)
	if err != nil {
		panic(err)
	}

	defer appContext.Close()

	process := processfx.New(baseCtx, appContext.Logger)

	process.StartGoroutine("http-server", func(ctx context.Context) error {
		cleanup, err := http.Run(
			process.Ctx,
			appContext,
		)

		if err != nil {
			appContext.Logger.ErrorContext(
				ctx,
				"[Main] HTTP server run failed",
				slog.String("module", "main"),
				slog.Any("error", err))
		}

		defer cleanup()

		<-ctx.Done()

		return nil
	})

	process.Wait()
	process.Shutdown()
}
