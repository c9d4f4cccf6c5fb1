package api

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/devduo/studio-backend/errs"
	"github.com/devduo/studio-backend/kvstore"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const maxImageBytes = 5 << 20

// imageUploader stores an image and returns its public URL
type imageUploader interface {
	Upload(ctx context.Context, contentType string, body io.Reader, size int64) (string, error)
}

type siteHandler struct {
	responder   Responder
	logger      zerolog.Logger
	store       projectStore
	local       kvstore.Store
	uploader    imageUploader
	siteURL     string
	startupTime time.Time
}

func newSiteHandler(store projectStore, local kvstore.Store, uploader imageUploader, siteURL string, startupTime time.Time) siteHandler {
	logger := log.With().Str("handlerName", "siteHandler").Logger()

	return siteHandler{
		responder:   NewResponder(logger),
		logger:      logger,
		store:       store,
		local:       local,
		uploader:    uploader,
		siteURL:     strings.TrimRight(siteURL, "/"),
		startupTime: startupTime,
	}
}

// StorageStatus describes where projects are kept and how much the local store holds
type StorageStatus struct {
	Success     bool   `json:"success"`
	UsingRemote bool   `json:"usingRemote"`
	Backend     string `json:"backend"`
	UsedBytes   int64  `json:"usedBytes"`
	Used        string `json:"used"`
	Projects    int    `json:"projects"`
	Error       string `json:"error,omitempty"`
}

// getStorageStatus reports the local store usage; Used is "N/A" when it cannot be measured
// @Summary Storage status
// @Tags Storage
// @Produce json
// @Success 200 {object} StorageStatus
// @Router /api/storage/status [get]
func (h siteHandler) getStorageStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := StorageStatus{
			Success:     true,
			UsingRemote: h.store.UsingRemote(),
			Backend:     "local",
			Projects:    len(h.store.Projects()),
			Error:       h.store.Err(),
		}
		if status.UsingRemote {
			status.Backend = "remote"
		}

		used, err := kvstore.Usage(r.Context(), h.local)
		if err != nil {
			h.logger.Error().Err(err).Msg("Error calculating storage usage")
			status.Used = "N/A"
		} else {
			status.UsedBytes = used
			status.Used = kvstore.FormatUsage(used)
		}

		h.responder.WriteJSON(w, status)
	}
}

// uploadImage stores the request body as a project image. The body is the raw image and
// Content-Type names its format.
// @Summary Upload project image
// @Tags Storage
// @Accept image/png,image/jpeg,image/webp,image/gif,image/svg+xml
// @Produce json
// @Failure 413 {object} ErrorResponse
// @Failure 415 {object} ErrorResponse
// @Router /api/images [post]
func (h siteHandler) uploadImage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.uploader == nil {
			h.responder.WriteError(w, errs.NewEnvironmentVariableError("S3_BUCKET"))
			return
		}
		if r.ContentLength > maxImageBytes {
			h.responder.WriteError(w, errs.NewMaxBodySizeExceededError(maxImageBytes))
			return
		}
		if r.ContentLength <= 0 {
			h.responder.WriteError(w, errs.NewBadRequestError("image body with Content-Length is required"))
			return
		}

		contentType := strings.TrimSpace(strings.Split(r.Header.Get("Content-Type"), ";")[0])
		body := http.MaxBytesReader(w, r.Body, maxImageBytes)

		url, err := h.uploader.Upload(r.Context(), contentType, body, r.ContentLength)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSONStatus(w, http.StatusCreated, map[string]any{
			"success": true,
			"url":     url,
		})
	}
}

// healthCheck reports liveness and which backend serves the projects
func (h siteHandler) healthCheck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.responder.WriteJSON(w, map[string]any{
			"success":     true,
			"status":      "ok",
			"uptime":      time.Since(h.startupTime).Round(time.Second).String(),
			"usingRemote": h.store.UsingRemote(),
		})
	}
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// getSitemap lists the landing page for crawlers
func (h siteHandler) getSitemap() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		set := sitemapURLSet{
			XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
			URLs: []sitemapURL{{
				Loc:        h.siteURL,
				LastMod:    time.Now().UTC().Format(time.RFC3339),
				ChangeFreq: "weekly",
				Priority:   "1.0",
			}},
		}

		out, err := xml.MarshalIndent(set, "", "  ")
		if err != nil {
			h.responder.WriteError(w, errs.NewInternalErrorWithCause("could not render sitemap", err))
			return
		}

		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		_, _ = io.WriteString(w, xml.Header)
		if _, err := w.Write(out); err != nil {
			h.logger.Error().Err(err).Msg("error writing sitemap")
		}
	}
}
