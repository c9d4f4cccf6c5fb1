package api

import (
	"time"

	"github.com/devduo/studio-backend/config"
)

// initializeHandlers creates and returns all handlers organized in a routeHandlers struct
func initializeHandlers(deps Dependencies, c map[string]string, startupTime time.Time) *routeHandlers {
	// a nil *ImageUploader must not reach the handler as a non-nil interface
	var uploader imageUploader
	if deps.Uploader != nil {
		uploader = deps.Uploader
	}

	var alerts alertNotifier
	if deps.Alerts != nil {
		alerts = deps.Alerts
	}

	var logins loginRecorder
	if deps.Metrics != nil {
		logins = deps.Metrics
	}

	return &routeHandlers{
		projectHandler: newProjectHandler(deps.Store, alerts),
		authHandler: newAuthHandler(deps.Verifier, deps.Tokens, logins,
			config.GetBool(c, "SECURE_COOKIES", true)),
		siteHandler: newSiteHandler(deps.Store, deps.Local, uploader,
			config.GetString(c, "SITE_URL", "https://devduo.com.br"), startupTime),
	}
}
