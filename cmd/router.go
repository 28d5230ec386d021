package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	apiauth "github.com/Vasu1712/algonomic-backend/internal/api/auth"
	"github.com/Vasu1712/algonomic-backend/internal/api/generate"
	apionboarding "github.com/Vasu1712/algonomic-backend/internal/api/onboarding"
	"github.com/Vasu1712/algonomic-backend/internal/api/respond"
	apiuploads "github.com/Vasu1712/algonomic-backend/internal/api/uploads"
	"github.com/Vasu1712/algonomic-backend/internal/config"
	"github.com/Vasu1712/algonomic-backend/internal/logging"
	"github.com/Vasu1712/algonomic-backend/internal/metrics"
	"github.com/Vasu1712/algonomic-backend/internal/middleware"
	"github.com/Vasu1712/algonomic-backend/internal/onboarding"
	"github.com/Vasu1712/algonomic-backend/internal/variations"
)

// newRouter wires every route. CORS wraps the router so preflight requests
// are answered before method matching.
func newRouter(cfg *config.Config, log *logrus.Logger, a *app) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Recover(log), middleware.Logging(logging.Component(log, "http")), middleware.Metrics)

	r.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"message": "Server is running"})
	}).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	limiter := middleware.NewRateLimiter(cfg.UploadRatePerSecond, cfg.UploadRateBurst)
	apiuploads.RegisterUploadRoutes(r, &apiuploads.UploadHandler{
		Service: a.uploads,
		Hub:     a.hub,
		Log:     logging.Component(log, "upload"),
	}, limiter.Middleware, middleware.OptionalAuth(a.auth))

	generate.RegisterGenerateRoutes(r, &generate.GenerateHandler{
		Generator: variations.NewGenerator(a.store),
		Log:       logging.Component(log, "generate"),
	})

	apiauth.RegisterAuthRoutes(r, &apiauth.AuthHandler{
		Accounts: a.auth,
		Log:      logging.Component(log, "auth"),
	}, a.auth)

	apionboarding.RegisterOnboardingRoutes(r, &apionboarding.OnboardingHandler{
		Auth: a.auth,
		Hub:  a.hub,
		Timings: onboarding.Timings{
			PhaseDwell:       cfg.PhaseDwell,
			IntroOverlay:     cfg.IntroOverlay,
			IntroOverlayTail: cfg.IntroOverlayTail,
			MorphOverlay:     cfg.MorphOverlay,
		},
		Origins: cfg.AllowedOrigins,
		Log:     logging.Component(log, "onboarding"),
	})

	return middleware.CORS(cfg.AllowedOrigins, logging.Component(log, "cors"))(r)
}
