// Package core contains the hook domain: dispatch policy, listeners, the hook
// registry, hooks and the Service that wires them. Delivery, transport and
// storage adapters depend on this package; core must not depend on them.
package core
