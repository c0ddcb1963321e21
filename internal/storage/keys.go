package storage

import (
	"fmt"
	"path"
	"strings"
	"time"

	"alignlab/internal/utils"
	"alignlab/pkg/types"
)

// IntakeKey builds the storage key for client-supplied intake material. The
// millisecond timestamp keeps repeated uploads of the same filename from
// colliding.
func IntakeKey(requestID string, fileType types.FileType, originalName string, now time.Time) string {
	return fmt.Sprintf("requests/%s/%s_%d_%s", requestID, fileType, now.UnixMilli(), originalName)
}

// DeliverableKey builds the storage key for an admin-supplied final file.
func DeliverableKey(requestID, extension string) string {
	return fmt.Sprintf("%s/final/%s.%s", requestID, utils.NanoIDSize(24), extension)
}

// Extension returns the lowercased trailing segment of a filename, without
// the dot, or "" when the name has none.
func Extension(fileName string) string {
	ext := path.Ext(fileName)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
