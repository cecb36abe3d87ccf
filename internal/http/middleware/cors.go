package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var (
	devHosts = []string{"localhost", "127.0.0.1"}
	devPorts = []string{"80", "3000", "5173", "5174"}
)

// CORS allows the local dev frontends plus the comma separated origins in
// extra (CORS_ALLOWED_ORIGINS). The roadmap API only reads and posts.
func CORS(extra string) gin.HandlerFunc {
	origins := make([]string, 0, len(devHosts)*len(devPorts))
	for _, h := range devHosts {
		for _, p := range devPorts {
			origins = append(origins, "http://"+h+":"+p)
		}
	}
	for _, o := range strings.Split(extra, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type", "Last-Event-ID", HeaderLearnerID, headerRequestID, headerTraceID},
		ExposeHeaders:    []string{headerRequestID, headerTraceID},
		AllowCredentials: true,
	})
}
