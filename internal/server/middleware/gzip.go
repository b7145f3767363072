package middleware

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

var excludedPaths = []string{
	// SSE responses must not be buffered by the compressor
	"/v1/sync/events",
}

// CompressionConfig contains configuration for the compression middleware
type CompressionConfig struct {
	// Level is the compression level (1-9)
	Level int
	// ExcludedPaths are paths that should not be compressed
	ExcludedPaths []string
}

func Gzip() gin.HandlerFunc {
	return gzip.Gzip(
		gzip.DefaultCompression,
		gzip.WithExcludedPaths(excludedPaths),
	)
}

func GzipWithConfig(config CompressionConfig) gin.HandlerFunc {
	return gzip.Gzip(
		config.Level,
		gzip.WithExcludedPaths(config.ExcludedPaths),
	)
}
