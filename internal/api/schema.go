package api

import _ "embed"

// Schema is the .proto contract the hand-written descriptors in this package implement.
//
//go:embed stockfolio.proto
var Schema string
