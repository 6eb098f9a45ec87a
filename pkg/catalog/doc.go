// Package catalog is the application layer over the catalog stores.
//
// A Service validates records before they reach a ports.Catalog, so a store only ever sees
// records that passed the rules in package schema. Services also serialise resets and
// restores through an optional distributed lock, publish change events, record metrics and
// compute statistics. Statistics are projections over List, recomputed on every call.
package catalog
