package domain

import "errors"

var (
	// ErrSequenceGap means a live diff starts beyond last_update_id+1. The
	// book is left unchanged; the caller must resynchronize from a fresh
	// snapshot.
	ErrSequenceGap = errors.New("update sequence gap")

	// ErrBootstrapGap is the same gap detected while draining the
	// pre-snapshot buffer. The startup sync protocol must restart.
	ErrBootstrapGap = errors.New("out of sequence update during initial buffering")

	// ErrWSDisconnect marks stream connection loss; the feed reconnects.
	ErrWSDisconnect = errors.New("websocket disconnected")
)
