package main

import (
	"net/http"
)

// NoStore is an http.Handler that keeps the browser from caching game data,
// which changes whenever the user uploads files or resets.
func NoStore(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		h.ServeHTTP(w, r)
	})
}
