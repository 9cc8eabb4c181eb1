// Package progress implements the non-blocking progress/diagnostics
// dashboard (§6.4): a websocket-pushed view of each round's per-method
// outcomes, observational only and never on the critical path of training.
// MCMC and greedy-evaluation summaries are not shown.
//
// The update/view plumbing is grounded on the teacher's server/fastview
// package: EleUpdate/Op/ViewComponent are carried over from its models.go,
// the generic ViewBuilder is kept in builder.go, and the websocket client
// is adapted from its client[T]/Sync() ping-pong trio. The
// grid-world-specific cell_views machinery is replaced with a single table
// view over per-method training snapshots, since this domain has no 2D
// geometry to project.
package progress

import "html/template"

// EleUpdate is an element identifier and a set of operations to apply to
// its attributes/content, pushed to the dashboard client over websocket.
type EleUpdate struct {
	EleId string
	Ops   []Op
}

// Op is a key and value, e.g. an html attribute and its new value.
// Key "textContent" is reserved: it sets the element's text content rather
// than an attribute.
type Op struct {
	Key   string
	Value string
}

// ViewComponent is a server-rendered view fed by a stream of ele-updates.
type ViewComponent interface {
	Updates() <-chan []EleUpdate
	Parse(*template.Template) (string, error)
}
