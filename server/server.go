package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/EduNex-Academy/session-gateway/authflow"
	"github.com/EduNex-Academy/session-gateway/internal/config"
	"github.com/EduNex-Academy/session-gateway/tabstore"
)

// Server is the session gateway's HTTP edge. It owns the per-tab runtime
// registry and the routes the marketplace front end talks to.
type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	log       zerolog.Logger
	runtimes  *Registry
	initiator *authflow.Initiator
	countdown time.Duration
}

// New wires the gateway: provider endpoints, the tab store backend, and the
// runtime registry.
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Server, error) {
	initiator, err := authflow.NewInitiator(ctx, authflow.ProviderSettings{
		ClientID:    cfg.GetOAuthClientID(),
		RedirectURL: cfg.GetOAuthRedirectURL(),
		Issuer:      cfg.GetOAuthIssuer(),
		AuthURL:     cfg.GetOAuthAuthURL(),
		TokenURL:    cfg.GetOAuthTokenURL(),
		Scopes:      cfg.GetOAuthScopes(),
	})
	if err != nil {
		return nil, fmt.Errorf("[Server New] initiator: %w", err)
	}

	newRepo := inMemoryRepoFactory()
	if addr := cfg.GetRedisAddr(); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.GetRedisPassword(),
		})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("unable to reach redis")
		} else {
			logger.Info().Msg("connected to redis")
		}
		newRepo = redisRepoFactory(client, cfg.GetTabTTL())
	}

	registry := NewRegistry(RegistryParams{
		IdentityBaseURL: cfg.GetIdentityBaseURL(),
		ExchangeTimeout: cfg.GetExchangeTimeout(),
		TabTTL:          cfg.GetTabTTL(),
		NewRepo:         newRepo,
		Logger:          logger,
	})

	s := &Server{
		env:       cfg.GetEnv(),
		mux:       http.NewServeMux(),
		config:    cfg,
		log:       logger,
		runtimes:  registry,
		initiator: initiator,
		countdown: cfg.GetRedirectCountdown(),
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func inMemoryRepoFactory() func(tabID string) (tabstore.Repo, error) {
	return func(string) (tabstore.Repo, error) {
		return tabstore.NewInMemoryRepo(), nil
	}
}

func redisRepoFactory(client *redis.Client, ttl time.Duration) func(tabID string) (tabstore.Repo, error) {
	return func(tabID string) (tabstore.Repo, error) {
		return tabstore.NewRedisRepo(client, tabID, ttl)
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Close tears down every tab runtime and its timers.
func (s *Server) Close() {
	s.runtimes.Close()
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
}
