// Package progress persists a session's in-flight answers so an interrupted
// attempt can resume. Persistence is best-effort: the live session stays the
// source of truth and every failure is absorbed here.
package progress

import (
	"context"
	"errors"
	"fmt"

	"github.com/emesedutech/cbt-akm/internal/model"
)

// Namespace prefixes every progress key.
const Namespace = "cbt-progress"

// ErrNoProgress is returned by Load when no usable snapshot exists.
var ErrNoProgress = errors.New("no saved progress")

// Key derives the durable slot key for one participant+exam pair. The two
// ids are joined under a fixed namespace so keys cannot collide across
// participants or exams.
func Key(studentID int, examID string) string {
	return fmt.Sprintf("%s-%d-%s", Namespace, studentID, examID)
}

// Store is a durable key-value slot for answer snapshots. The value must
// round-trip exactly through JSON encode/decode. Implementations treat a
// corrupt stored value as absent and delete the offending entry.
type Store interface {
	Save(ctx context.Context, key string, answers model.Answers) error
	Load(ctx context.Context, key string) (model.Answers, error)
	Clear(ctx context.Context, key string) error
}
