package router

import (
	"jobagent-api/common"
	"jobagent-api/handler"
	"jobagent-api/model"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "jobagent-api/docs" // generated swagger documentation
)

func NewRouter(oauthHandler *handler.OAuthHandler, actionHandler *handler.ActionHandler, webhookHandler *handler.WebhookHandler, validator handler.ITokenValidator) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.HealthCheck)
	mux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	// OAuth surface
	mux.Handle("GET /oauth/authorize", handler.OAuthErrorHandlingMiddleware(oauthHandler.Authorize))
	mux.Handle("POST /oauth/token", handler.OAuthErrorHandlingMiddleware(oauthHandler.Token))
	mux.Handle("POST /oauth/revoke", handler.OAuthErrorHandlingMiddleware(oauthHandler.Revoke))
	mux.Handle("GET /oauth/sessions", handler.OAuthErrorHandlingMiddleware(oauthHandler.Sessions))
	mux.Handle("GET /oauth/consent-check", handler.OAuthErrorHandlingMiddleware(oauthHandler.ConsentCheck))

	// Identity provider webhooks
	mux.Handle("POST /webhooks/user-deleted", handler.OAuthErrorHandlingMiddleware(webhookHandler.UserDeleted))

	// Scoped action endpoints: bearer gate first, then the per-route scope gate.
	auth := handler.AuthMiddleware(validator)
	protected := func(scope string, h func(http.ResponseWriter, *http.Request) *common.AppError) http.Handler {
		return auth(handler.RequireScope(scope)(handler.ErrorHandlingMiddleware(h)))
	}

	mux.Handle("GET /api/jobs", protected(model.ScopeJobsRead, actionHandler.SearchJobs))
	mux.Handle("GET /api/jobs/{id}", protected(model.ScopeJobsRead, actionHandler.GetJob))
	mux.Handle("GET /api/applications", protected(model.ScopeApplicationsRead, actionHandler.ListApplications))
	mux.Handle("POST /api/applications", protected(model.ScopeApplicationsWrite, actionHandler.SubmitApplication))

	return mux
}
