// Package inventory holds the in-memory form of the shared discount-code
// document.
//
// The document is pre-seeded out-of-band and comes in two shapes: the
// current one groups codes by event key, a legacy one is a single flat
// list. The shape is resolved once at parse time; callers never inspect
// raw JSON. The only mutation the package supports is marking a single
// entry used.
package inventory
