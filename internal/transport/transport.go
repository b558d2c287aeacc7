// SPDX-License-Identifier: MIT
package transport

import "specviz/internal/analysis"

// Transport publishes completed curves to an external renderer surface.
// Implementations must be safe to call from the analysis goroutine and
// must never block it for longer than a bounded instant.
type Transport interface {
	Send(curve *analysis.Curve, generation uint64) error
	Close() error
}
