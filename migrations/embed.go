// Package migrations embeds the push-token schema migrations so the agent
// binary can apply them at startup without a checkout of this repository.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
