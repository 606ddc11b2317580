// Package storage persists profile images on local disk or in a GCS bucket.
package storage

import (
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PublicURL turns a stored reference into an absolute URL. References that
// are already absolute (GCS) are returned unchanged; empty stays empty.
func PublicURL(baseURL, ref string) string {
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(ref, "/")
}

// objectName builds a collision-free name that keeps the original extension.
func objectName(filename string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(path.Base(filename)))
	if len(ext) > 10 {
		ext = ""
	}
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + uuid.NewString() + ext
}
