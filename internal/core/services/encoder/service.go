package encoder

import "gitlab.com/judge-relay.net/internal/domain"

// IEncoder turns an intake request into the wire payload for the fleet.
type IEncoder interface {
	Encode(req domain.TaskRequest) (domain.TaskPayload, error)
}
