package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

// RouterDeps bundles everything the HTTP surface needs.
type RouterDeps struct {
	ServiceName string
	Accounts    AccountService
	Events      EventCatalog
	Purchases   TicketPurchaser
	Resolver    PrincipalResolver
	CORSOrigins []string
	Logger      *zap.Logger
}

// NewRouter wires every route plus tracing, request logging and CORS.
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := mux.NewRouter()
	router.NotFoundHandler = NotFoundHandler()
	router.MethodNotAllowedHandler = MethodNotAllowedHandler()
	if deps.ServiceName != "" {
		router.Use(otelmux.Middleware(deps.ServiceName))
	}

	router.HandleFunc("/health", HealthHandler).Methods(http.MethodGet)

	accounts := NewAuthHandlers(deps.Accounts, logger)
	router.HandleFunc("/auth/signup", accounts.SignUp).Methods(http.MethodPost)
	router.HandleFunc("/auth/signin", accounts.SignIn).Methods(http.MethodPost)
	router.HandleFunc("/auth/refresh", accounts.Refresh).Methods(http.MethodPost)

	authed := router.NewRoute().Subrouter()
	authed.Use(RequireAuth(deps.Resolver, logger))
	authed.HandleFunc("/events", HandleCreateEvent(deps.Events, logger)).Methods(http.MethodPost)
	authed.HandleFunc("/events", HandleListEvents(deps.Events, logger)).Methods(http.MethodGet)
	authed.HandleFunc("/events/{id}", HandleGetEvent(deps.Events, logger)).Methods(http.MethodGet)
	authed.HandleFunc("/events/{id}/purchase", HandlePurchase(deps.Purchases, logger)).Methods(http.MethodPost)

	handler := cors.New(cors.Options{
		AllowedOrigins: deps.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         600,
	}).Handler(router)

	return RequestLogger(handler, logger)
}
