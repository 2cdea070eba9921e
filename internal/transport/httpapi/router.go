package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/minvestfinance/simvest-backend/config"
)

func NewRouter(cfg *config.Config, controller *Controller) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestID)
	r.Use(Logger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Post("/get-user-metadata", controller.GetUserMetadata)
	r.Post("/simvest-update", controller.UpdatePortfolio)
	r.Post("/update-user-progress-points", controller.UpdateProgressPoints)
	r.Get("/personalized-data", controller.PersonalizedStocks)

	r.Route("/simvest", func(r chi.Router) {
		r.Post("/reconcile", controller.ReconcilePortfolio)
		r.Post("/order", controller.PlaceOrder)
		r.Get("/analysis/{ticker}", controller.StockAnalysis)
		r.Get("/report/{userId}", controller.PortfolioReport)
	})

	r.Route("/minvested", func(r chi.Router) {
		r.Post("/quiz-result", controller.QuizResult)
		r.Post("/article-toggle", controller.ArticleToggle)
	})

	return r
}
