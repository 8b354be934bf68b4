package handlers

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// AssetServer creates a handler serving stored objects straight from the
// local object directory. It is mounted only when the local storage backend
// is active; the S3 backend serves objects from its own endpoint.
//
// example usage in main.go:
//
//	r.Get("/files/*", handlers.AssetServer(localStore.BasePath(), "/files/"))
func AssetServer(baseDir, routePrefix string) http.HandlerFunc {
	cleanBaseDir := filepath.Clean(baseDir)
	log.Printf("serving objects for '%s*' from directory: %s", routePrefix, cleanBaseDir)

	return func(w http.ResponseWriter, r *http.Request) {
		relativePath := strings.TrimPrefix(r.URL.Path, routePrefix)
		if relativePath == "" || strings.Contains(relativePath, "..") {
			http.Error(w, "Invalid asset path", http.StatusBadRequest)
			return
		}

		requestedPath := filepath.Join(cleanBaseDir, relativePath)
		cleanedPath := filepath.Clean(requestedPath)

		if !strings.HasPrefix(cleanedPath, cleanBaseDir) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			log.Printf("SECURITY: attempted asset access outside object directory: Request='%s', Resolved='%s', Allowed Base='%s'",
				r.URL.Path, cleanedPath, cleanBaseDir)
			return
		}

		if _, err := os.Stat(cleanedPath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		} else if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			log.Printf("error stating asset file %s: %v", cleanedPath, err)
			return
		}

		cacheDuration := 24 * time.Hour
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(cacheDuration.Seconds())))
		w.Header().Set("Expires", time.Now().Add(cacheDuration).Format(http.TimeFormat))

		http.ServeFile(w, r, cleanedPath)
	}
}
