package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/heydayle/next-gen-ai/internal/api/handler"
	customMiddleware "github.com/heydayle/next-gen-ai/internal/api/middleware"
	"github.com/heydayle/next-gen-ai/internal/config"
	"github.com/heydayle/next-gen-ai/internal/domain"
	"github.com/heydayle/next-gen-ai/internal/llm"
	"github.com/heydayle/next-gen-ai/internal/llm/gemini"
	"github.com/heydayle/next-gen-ai/internal/llm/ollama"
	"github.com/heydayle/next-gen-ai/internal/session"
)

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, store domain.SessionStore) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Completion providers
	llmRouter := llm.NewRouter(cfg.LLM.DefaultProvider)

	log.Info().Msgf("Initializing completion providers. Default: %s", cfg.LLM.DefaultProvider)

	if cfg.LLM.Gemini.APIKey != "" {
		llmRouter.RegisterProvider(gemini.NewProvider(cfg.LLM.Gemini))
	} else {
		log.Warn().Msg("Gemini API key is empty, skipping registration")
	}
	if cfg.LLM.Ollama.Host != "" {
		log.Info().Str("host", cfg.LLM.Ollama.Host).Msg("Registering Ollama provider")
		llmRouter.RegisterProvider(ollama.NewProvider(cfg.LLM.Ollama.Host, cfg.LLM.Ollama.DefaultModel))
	}

	// Session manager
	manager := session.NewManager(store, llmRouter, session.Options{
		MinQuestionLength: cfg.Chat.MinQuestionLength,
		RequestTimeout:    cfg.LLM.RequestTimeout,
	})

	sessionHandler := handler.NewSessionHandler(manager)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(store))
		r.Get("/llm-providers", handler.ListLLMProviders(llmRouter))

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", sessionHandler.List)
			r.Post("/", sessionHandler.Create)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Delete("/", sessionHandler.Delete)
				r.Post("/messages", sessionHandler.Submit)
			})
		})
	})

	return r
}
