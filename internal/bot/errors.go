package bot

import "errors"

var (
	// ErrUnknownID is returned for operations on a bot ID the registry
	// has never seen or that was deleted.
	ErrUnknownID = errors.New("bot: unknown bot id")

	// ErrUnsupportedPlatform is returned when a config names a platform
	// the fleet cannot run.
	ErrUnsupportedPlatform = errors.New("bot: unsupported platform")
)
