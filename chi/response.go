package chi

import (
	"encoding/json"
	"net/http"
)

// ResponseFunc adapts a function to Response.
type ResponseFunc func(w http.ResponseWriter, r *http.Request) error

// Render implements Response.
func (f ResponseFunc) Render(w http.ResponseWriter, r *http.Request) error {
	return f(w, r)
}

// Text responds with a plain text body.
func Text(status int, body string) Response {
	return ResponseFunc(func(w http.ResponseWriter, _ *http.Request) error {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		_, err := w.Write([]byte(body))
		return err
	})
}

// JSON responds with v encoded as JSON.
func JSON(status int, v any) Response {
	return ResponseFunc(func(w http.ResponseWriter, _ *http.Request) error {
		body, err := json.Marshal(v)
		if err != nil {
			return err
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, err = w.Write(body)
		return err
	})
}

// Redirect responds with a redirect to url.
func Redirect(status int, url string) Response {
	return ResponseFunc(func(w http.ResponseWriter, r *http.Request) error {
		http.Redirect(w, r, url, status)
		return nil
	})
}
