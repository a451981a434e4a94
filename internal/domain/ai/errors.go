package ai

import "errors"

// ErrRateLimited indicates the AI provider rejected the call for exceeding its request rate (HTTP 429).
var ErrRateLimited = errors.New("ai rate limited")
