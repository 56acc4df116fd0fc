package hashfsm

import _ "embed"

// Version is the release version of hashfsm.
//
//go:embed VERSION
var Version string
