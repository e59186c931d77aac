package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/avream/cardsnoop/internal/api/http/handler"
	"github.com/avream/cardsnoop/internal/api/http/middleware"
	"github.com/avream/cardsnoop/internal/logger"
	"github.com/avream/cardsnoop/internal/service"
	"github.com/avream/cardsnoop/internal/token"
)

// Router wires HTTP handlers and middleware for the card API.
type Router struct {
	vaultService *service.Vault
	cardService  *service.CardService
	jwt          *token.JWT
	logger       *logger.Logger
}

// New creates a new Router instance.
func New(
	vaultService *service.Vault,
	cardService *service.CardService,
	jwt *token.JWT,
	logger *logger.Logger,
) *Router {
	return &Router{
		vaultService: vaultService,
		cardService:  cardService,
		jwt:          jwt,
		logger:       logger,
	}
}

// Register builds the HTTP handler tree. Unlock is the only public route;
// everything else requires a session token.
func (r *Router) Register() http.Handler {
	logging := middleware.NewLogging(r.logger)
	authenticate := middleware.NewAuthenticate(r.jwt, r.logger)

	vaultHandler := handler.NewVault(r.vaultService, r.logger)
	cardHandler := handler.NewCard(r.cardService, r.logger)

	mux := chi.NewRouter()
	mux.Use(logging.Handle)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	mux.Route("/api", func(api chi.Router) {
		api.Post("/vault/unlock", vaultHandler.Unlock)

		api.Group(func(protected chi.Router) {
			protected.Use(authenticate.Handle)

			protected.Post("/vault/lock", vaultHandler.Lock)

			protected.Route("/cards", func(cards chi.Router) {
				cards.Post("/", cardHandler.Ingest)
				cards.Post("/classify", cardHandler.Classify)
				cards.Get("/", cardHandler.List)
				cards.Get("/{id}", cardHandler.Get)
				cards.Get("/{id}/reveal", cardHandler.Reveal)
				cards.Delete("/{id}", cardHandler.Delete)
			})
		})
	})

	return mux
}
