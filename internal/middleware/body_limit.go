package middleware

import (
	"mime"
	"net/http"
)

// BodyLimitMiddleware caps request bodies. Multipart uploads may use uploadLimit bytes,
// every other body jsonLimit bytes. Declared oversize bodies are rejected before the
// handler runs; the rest are wrapped in http.MaxBytesReader.
func BodyLimitMiddleware(jsonLimit, uploadLimit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limit := jsonLimit
			if isMultipart(r) {
				limit = uploadLimit
			}

			if r.ContentLength > limit {
				writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}
