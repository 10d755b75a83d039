package constants

import "errors"

// Configuration errors.
var (
	ErrNoAPIConfigured   = errors.New("no API endpoint configured, use 'xexplorer config set api <url>' or --api")
	ErrUnknownConfigKey  = errors.New("unknown configuration key")
	ErrInvalidConfigBool = errors.New("invalid boolean value")
)

// Argument errors.
var (
	ErrInvalidParam      = errors.New("parameters must be given as key=value")
	ErrUnsupportedFormat = errors.New("unsupported output format")
	ErrNotATerminal      = errors.New("browse requires an interactive terminal")
)
