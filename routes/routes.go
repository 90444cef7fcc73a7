package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/aoe-board/tournament-board/docs"
	"github.com/aoe-board/tournament-board/handlers"
	"github.com/aoe-board/tournament-board/middleware"
)

func SetupRoutes(
	router *chi.Mux,
	auth *middleware.Auth,
	authHandler *handlers.AuthHandler,
	tournamentHandler *handlers.TournamentHandler,
	claimHandler *handlers.ClaimHandler,
	messageHandler *handlers.MessageHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	router.Post("/signup", authHandler.Signup)
	router.Post("/signin", authHandler.Signin)

	router.Group(func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Get("/me", authHandler.Me)
	})

	// Public surface: the published board and the contact form. The form
	// accepts anonymous submissions but attributes them when a token is
	// present.
	router.Get("/tournaments", tournamentHandler.Board)
	router.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuthenticate)
		r.Post("/messages", messageHandler.Create)
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Route("/tournaments", func(r chi.Router) {
			r.Get("/", tournamentHandler.AdminIndex)
			r.Post("/", tournamentHandler.Create)

			r.Route("/{tournamentID}", func(r chi.Router) {
				r.Get("/", tournamentHandler.GetByID)
				r.Patch("/", tournamentHandler.Update)
				r.Delete("/", tournamentHandler.Delete)
				r.Put("/status", tournamentHandler.UpdateStatus)
				r.Post("/toggle_request_publication", tournamentHandler.ToggleRequestPublication)
				r.Delete("/flags", tournamentHandler.RemoveFlag)
				r.Post("/logo", tournamentHandler.UploadLogo)
				r.Delete("/logo", tournamentHandler.RemoveLogo)
				r.Post("/claims", claimHandler.Create)
			})
		})

		r.Route("/claims", func(r chi.Router) {
			r.Get("/", claimHandler.Index)

			r.Route("/{claimID}", func(r chi.Router) {
				r.Patch("/", claimHandler.Update)
				r.Delete("/", claimHandler.Delete)
				r.Post("/approve", claimHandler.Approve)
				r.Post("/unapprove", claimHandler.Unapprove)
			})
		})

		r.Route("/messages", func(r chi.Router) {
			r.Get("/", messageHandler.Inbox)
			r.Post("/", messageHandler.Create)

			r.Route("/{messageID}", func(r chi.Router) {
				r.Delete("/", messageHandler.Delete)
				r.Post("/toggle_requires_action", messageHandler.ToggleRequiresAction)
			})
		})
	})

	router.Group(func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Use(auth.RequireAdmin)
		r.Get("/ws/inbox", webSocketHandler.ServeInbox)
	})
}
