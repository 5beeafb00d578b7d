package routes

import (
	"github.com/AJM432/racing/handlers"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func SetupRoutes(
	router *chi.Mux,
	trackHandler *handlers.TrackHandler,
	leaderboardHandler *handlers.LeaderboardHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Route("/api/racetracks", func(r chi.Router) {
		r.Post("/", trackHandler.CreateHandler)
		r.Get("/", trackHandler.ListHandler)

		r.Route("/{trackID}", func(r chi.Router) {
			r.Get("/", trackHandler.GetByIDHandler)
			r.Put("/image", trackHandler.ReplaceImageHandler)
			r.Delete("/", trackHandler.DeleteHandler)

			r.Post("/leaderboard", leaderboardHandler.SubmitHandler)
			r.Get("/leaderboard", leaderboardHandler.GetHandler)
		})
	})

	router.Get("/ws/racetracks/{trackID}", webSocketHandler.ServeHandler)
}
