package interfaces

import (
	"context"

	"flyhard/pkg/types"
)

// PayloadRecorder persists delivered relay payloads for later inspection.
// The router treats recording as best effort: failures are logged and the
// poll proceeds.
type PayloadRecorder interface {
	RecordPayload(ctx context.Context, record *types.PayloadRecord) error
}
