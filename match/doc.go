// Package match implements listener event filters: value predicates, the
// structural DeepMatch evaluator over nested payload mappings, and the codecs
// that turn operator condition submissions and stored JSON into match mappings.
package match
