package domain

import "fmt"

type TaskKind int

const (
	TaskCloseAuction TaskKind = iota + 1
)

func (k TaskKind) String() string {
	switch k {
	case TaskCloseAuction:
		return "close_auction"
	default:
		return "unknown"
	}
}

// ParseTaskKind maps a persisted task name back to its kind.
func ParseTaskKind(name string) (TaskKind, error) {
	switch name {
	case TaskCloseAuction.String():
		return TaskCloseAuction, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTaskKind, name)
	}
}
