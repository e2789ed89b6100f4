package engine

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/genricoloni/bloom/internal/domain"
)

// Size token requested from the cover endpoint for bare identifiers
const coverSize = "640"

// ResolveCoverURL picks the cover reference for a track and resolves it into
// a fetchable URL. The thumbnail is preferred, falling back to the album
// cover. Direct references (a scheme, a path, or a filename) pass through
// unchanged; bare cover identifiers resolve through the cover endpoint.
// Returns "" when the track carries no cover reference at all.
func ResolveCoverURL(meta domain.TrackMetadata, baseURL string) string {
	ref := meta.ThumbnailURL
	if ref == "" {
		ref = meta.AlbumCover
	}
	if ref == "" {
		return ""
	}

	if isDirectRef(ref) {
		return ref
	}
	return fmt.Sprintf("%s/%s?size=%s",
		strings.TrimRight(baseURL, "/"), url.PathEscape(ref), coverSize)
}

// isDirectRef reports whether the reference is already fetchable as-is.
// Anything with a scheme, a path separator, or a file extension counts;
// everything else is treated as a cover identifier.
func isDirectRef(ref string) bool {
	return strings.Contains(ref, "://") || strings.ContainsAny(ref, "/.")
}
