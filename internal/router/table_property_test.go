package router

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var knownPaths = map[string]bool{"/": true, "/home": true, "/about": true, "/api/data": true}

func TestDispatchProperties(t *testing.T) {
	table := newTestTable(t)
	now := time.Now()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	// Property: a path outside the table always yields the 404 catch-all
	properties.Property("unknown paths are not found", prop.ForAll(
		func(path string) bool {
			if knownPaths[path] {
				return true
			}
			route, resp := table.Dispatch(NewIncomingRequest(http.MethodGet, path, now))
			return route.Name == NameNotFound && resp.Status == http.StatusNotFound && resp.ContentType == "text/html"
		},
		gen.RegexMatch(`^/[a-zA-Z0-9_./-]{0,24}$`),
	))

	// Property: changing the case of any letter in a known path breaks the match
	properties.Property("matching is case sensitive", prop.ForAll(
		func(idx int) bool {
			paths := []string{"/home", "/about", "/api/data"}
			path := strings.ToUpper(paths[idx%len(paths)])
			route, _ := table.Match(path)
			return route.Name == NameNotFound
		},
		gen.IntRange(0, 100),
	))

	// Property: appending a suffix to a known path never matches that route
	properties.Property("no prefix matching", prop.ForAll(
		func(suffix string) bool {
			if suffix == "" {
				return true
			}
			for _, base := range []string{"/about", "/api/data", "/home"} {
				if knownPaths[base+suffix] {
					continue
				}
				if _, ok := table.Match(base + suffix); ok {
					return false
				}
			}
			return true
		},
		gen.RegexMatch(`^[a-z/]{1,8}$`),
	))

	// Property: dispatch of static routes is deterministic
	properties.Property("static responses are repeatable", prop.ForAll(
		func(path string) bool {
			_, a := table.Dispatch(NewIncomingRequest(http.MethodGet, path, now))
			_, b := table.Dispatch(NewIncomingRequest(http.MethodGet, path, now.Add(time.Hour)))
			if path == "/api/data" {
				return a.Body != b.Body && a.Status == b.Status
			}
			return a == b
		},
		gen.OneConstOf("/", "/home", "/about", "/api/data", "/missing"),
	))

	properties.TestingRun(t)
}
