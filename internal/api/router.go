package api

import (
	"fmt"
	"net/http"

	_ "github.com/rohits-web03/chatvault/docs"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/rohits-web03/chatvault/internal/api/handlers"
	"github.com/rohits-web03/chatvault/internal/api/middleware"
	"github.com/rohits-web03/chatvault/internal/config"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

// Dependencies are the services the protected routes need.
type Dependencies struct {
	Conversations *handlers.Conversations
	Profiles      *handlers.Profiles
}

func SetupRouter(deps Dependencies) http.Handler {
	mainMux := http.NewServeMux()
	c := cors.New(config.Envs.CorsConfig)

	// ---------- PUBLIC ROUTES ----------
	mainMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})

	mainMux.HandleFunc("/docs/", httpSwagger.WrapHandler)

	authMux := http.NewServeMux()
	authMux.HandleFunc("/sign-up", handlers.RegisterUser)
	authMux.HandleFunc("/login", handlers.LoginUser)
	authMux.HandleFunc("/logout", handlers.Logout)
	authMux.HandleFunc("/google/login", handlers.HandleGoogleLogin)
	authMux.HandleFunc("/google/callback", handlers.HandleGoogleCallback)

	mainMux.Handle("/api/v1/auth/",
		http.StripPrefix("/api/v1/auth", authMux),
	)

	// ---------- PROTECTED ROUTES ----------
	protectedMux := http.NewServeMux()
	deps.Conversations.Register(protectedMux)
	protectedMux.HandleFunc("GET /profile", deps.Profiles.Get)

	mainMux.Handle("/api/v1/",
		http.StripPrefix(
			"/api/v1",
			middleware.AuthMiddleware(protectedMux),
		),
	)

	log.Info().Msg("Router initialized")
	handler := c.Handler(mainMux)
	handler = middleware.Logger(handler)
	return handler
}
