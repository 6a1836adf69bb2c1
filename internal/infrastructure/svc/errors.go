package svc

import "errors"

// ErrNoSourcesEnabled means every upstream adapter is disabled by config.
var ErrNoSourcesEnabled = errors.New("no price sources enabled")

// ErrNoStorageEnabled means no history backend is enabled by config.
var ErrNoStorageEnabled = errors.New("no storage backend enabled")
