// Package renderer turns a matched route into a status code, content type,
// and body. It performs no I/O and holds no mutable state: the HTML pages are
// rendered once by New and every call afterwards returns the same bytes.
package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/a-h/templ"
)

// Content types written by the server. They are exact, without charset.
const (
	ContentTypeHTML = "text/html"
	ContentTypeJSON = "application/json"
)

// Fixed values of the API payload.
const (
	APIMessage = "Hello from Switchboard API!"
	ServerName = "Switchboard HTTP Server"
)

// TimestampLayout is ISO-8601 in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// RenderedResponse is everything the server loop needs to answer a request.
type RenderedResponse struct {
	Status      int
	ContentType string
	Body        string
}

// RuntimeInfo identifies the process serving the request.
type RuntimeInfo struct {
	Version  string
	Platform string
}

// APIPayload is the body of /api/data. Field order is the serialized key order.
type APIPayload struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Server    string `json:"server"`
	Version   string `json:"version"`
	Platform  string `json:"platform"`
}

// Renderer holds the pre-rendered static pages.
type Renderer struct {
	home     string
	about    string
	notFound string
}

// New renders the static pages. It fails only if a page component fails.
func New(ctx context.Context) (*Renderer, error) {
	home, err := renderToString(ctx, HomePage())
	if err != nil {
		return nil, fmt.Errorf("rendering home page: %w", err)
	}
	about, err := renderToString(ctx, AboutPage())
	if err != nil {
		return nil, fmt.Errorf("rendering about page: %w", err)
	}
	notFound, err := renderToString(ctx, NotFoundPage())
	if err != nil {
		return nil, fmt.Errorf("rendering not found page: %w", err)
	}

	return &Renderer{
		home:     home,
		about:    about,
		notFound: notFound,
	}, nil
}

// RenderHome returns the navigational landing page.
func (r *Renderer) RenderHome() RenderedResponse {
	return RenderedResponse{Status: http.StatusOK, ContentType: ContentTypeHTML, Body: r.home}
}

// RenderAbout returns the static about page.
func (r *Renderer) RenderAbout() RenderedResponse {
	return RenderedResponse{Status: http.StatusOK, ContentType: ContentTypeHTML, Body: r.about}
}

// RenderNotFound returns the static 404 page. It never echoes the request.
func (r *Renderer) RenderNotFound() RenderedResponse {
	return RenderedResponse{Status: http.StatusNotFound, ContentType: ContentTypeHTML, Body: r.notFound}
}

// RenderAPIData serializes a fresh APIPayload stamped with now, indented with
// two spaces.
func (r *Renderer) RenderAPIData(now time.Time, info RuntimeInfo) RenderedResponse {
	payload := APIPayload{
		Message:   APIMessage,
		Timestamp: FormatTimestamp(now),
		Server:    ServerName,
		Version:   info.Version,
		Platform:  info.Platform,
	}

	// A struct of strings always marshals.
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		panic(fmt.Sprintf("renderer: marshal api payload: %v", err))
	}

	return RenderedResponse{Status: http.StatusOK, ContentType: ContentTypeJSON, Body: string(body)}
}

// FormatTimestamp renders t the way the API payload reports it.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func renderToString(ctx context.Context, c templ.Component) (string, error) {
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
