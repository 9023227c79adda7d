package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hivework/taskhive/internal/auth/scopes"
	"github.com/hivework/taskhive/internal/auth/service"
	"github.com/hivework/taskhive/internal/auth/store"
	"github.com/hivework/taskhive/pkg/httpx"
	"github.com/hivework/taskhive/pkg/slogx"

	_ "github.com/hivework/taskhive/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store

	TokenService     *service.TokenService
	DeviceService    *service.DeviceService
	AuthorizeService *service.AuthorizeService
	VerifyService    *service.VerifyService
	IdentityService  *service.IdentityService
	ClientService    *service.ClientService
	AccessService    *service.AccessService
	BootstrapService *service.BootstrapService

	// DeviceVerificationURI is where the device flow sends users to enter
	// their code. Empty means the handler default.
	DeviceVerificationURI string
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerOAuth2()
	r.registerDevice()
	r.registerClients()
	r.registerProjects()
	r.registerSystem()
	r.registerBootstrap()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			TaskHive Auth Service API
//	@version		0.1.0
//	@description	OAuth2 authorization server for the TaskHive task manager: authorization-code with PKCE,
//	@description	client-credentials with service-account attribution, refresh rotation, and the RFC 8628
//	@description	device-authorization flow. Access tokens are opaque and store-backed, so revocation and
//	@description	identity deactivation take effect immediately.
//
//	@contact.name				TaskHive Team
//	@contact.url				https://github.com/hivework/taskhive
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Opaque access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerOAuth2() {
	authorizeHandler := &AuthorizeHandler{
		AuthorizeService: r.AuthorizeService,
		IdentityService:  r.IdentityService,
		VerifyService:    r.VerifyService,
	}

	// GET /authorize carries a bearer session; lenient limit.
	r.Mux.Handle("GET /v1/oauth2/authorize",
		httpx.Chain(http.HandlerFunc(authorizeHandler.HandleGet),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// POST /authorize takes credentials; keyed by IP + username to slow
	// brute force without letting one attacker lock out an office NAT.
	r.Mux.Handle("POST /v1/oauth2/authorize",
		httpx.Chain(http.HandlerFunc(authorizeHandler.HandlePost),
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "username"),
		),
	)

	// The token endpoint is also the device-flow polling endpoint, so it
	// gets the poll profile rather than the strict one.
	tokenHandler := &TokenHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /v1/oauth2/token",
		httpx.Chain(tokenHandler,
			httpx.RateLimitByIP(httpx.PollLimit),
		),
	)

	revokeHandler := &RevokeHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /v1/oauth2/revoke",
		httpx.Chain(revokeHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	introspectHandler := &IntrospectHandler{VerifyService: r.VerifyService}
	r.Mux.Handle("POST /v1/oauth2/introspect",
		httpx.Chain(introspectHandler,
			httpx.AuthnMiddleware(r.VerifyService),
			httpx.RateLimitByIdentity(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerDevice() {
	deviceHandler := &DeviceHandler{
		DeviceService:   r.DeviceService,
		VerificationURI: r.DeviceVerificationURI,
	}

	r.Mux.Handle("POST /v1/oauth2/device/code",
		httpx.Chain(http.HandlerFunc(deviceHandler.HandleInitiate),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// Approve/deny are browser actions by a signed-in user.
	r.Mux.Handle("POST /v1/oauth2/device/approve",
		httpx.Chain(http.HandlerFunc(deviceHandler.HandleApprove),
			httpx.AuthnMiddleware(r.VerifyService),
			httpx.RateLimitByIdentity(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/oauth2/device/deny",
		httpx.Chain(http.HandlerFunc(deviceHandler.HandleDeny),
			httpx.AuthnMiddleware(r.VerifyService),
			httpx.RateLimitByIdentity(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerClients() {
	clientsHandler := &ClientsHandler{ClientService: r.ClientService, IdentityService: r.IdentityService}

	r.Mux.Handle("POST /v1/clients",
		httpx.Chain(http.HandlerFunc(clientsHandler.HandleCreate),
			httpx.AuthnMiddleware(r.VerifyService),
			httpx.RequireScopes(scopes.Implied, scopes.Admin),
			httpx.RateLimitByIdentity(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /v1/clients",
		httpx.Chain(http.HandlerFunc(clientsHandler.HandleList),
			httpx.AuthnMiddleware(r.VerifyService),
			httpx.RequireScopes(scopes.Implied, scopes.Admin),
			httpx.RateLimitByIdentity(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("POST /v1/clients/{id}/active",
		httpx.Chain(http.HandlerFunc(clientsHandler.HandleSetActive),
			httpx.AuthnMiddleware(r.VerifyService),
			httpx.RequireScopes(scopes.Implied, scopes.Admin),
			httpx.RateLimitByIdentity(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST /v1/service-accounts",
		httpx.Chain(http.HandlerFunc(clientsHandler.HandleCreateServiceAccount),
			httpx.AuthnMiddleware(r.VerifyService),
			httpx.RequireScopes(scopes.Implied, scopes.Admin),
			httpx.RateLimitByIdentity(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/identities/{id}/active",
		httpx.Chain(http.HandlerFunc(clientsHandler.HandleSetIdentityActive),
			httpx.AuthnMiddleware(r.VerifyService),
			httpx.RequireScopes(scopes.Implied, scopes.Admin),
			httpx.RateLimitByIdentity(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerProjects() {
	projectsHandler := &ProjectsHandler{
		AccessService:   r.AccessService,
		IdentityService: r.IdentityService,
	}

	r.Mux.Handle("POST /v1/projects",
		httpx.Chain(http.HandlerFunc(projectsHandler.HandleCreate),
			httpx.AuthnMiddleware(r.VerifyService),
			httpx.RequireScopes(scopes.Implied, scopes.ProjectsWrite),
			httpx.RateLimitByIdentity(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /v1/projects/{id}/access",
		httpx.Chain(http.HandlerFunc(projectsHandler.HandleListAccess),
			httpx.AuthnMiddleware(r.VerifyService),
			httpx.RequireScopes(scopes.Implied, scopes.ProjectsRead),
			httpx.RateLimitByIdentity(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("POST /v1/projects/{id}/access",
		httpx.Chain(http.HandlerFunc(projectsHandler.HandleGrant),
			httpx.AuthnMiddleware(r.VerifyService),
			httpx.RequireScopes(scopes.Implied, scopes.ProjectsWrite),
			httpx.RateLimitByIdentity(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/projects/{id}/access/{identity}",
		httpx.Chain(http.HandlerFunc(projectsHandler.HandleRevoke),
			httpx.AuthnMiddleware(r.VerifyService),
			httpx.RequireScopes(scopes.Implied, scopes.ProjectsWrite),
			httpx.RateLimitByIdentity(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}

func (r *Router) registerBootstrap() {
	bootstrapHandler := &BootstrapHandler{BootstrapService: r.BootstrapService}
	r.Mux.Handle("POST /v1/bootstrap",
		httpx.Chain(bootstrapHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}
