// Package delivery runs one serialized payload to one listener URL through
// the pending, in flight, retrying and terminal delivery states.
package delivery
