// Package storage defines the record store interface shared by all
// backends. The production backend keeps one JSON file per calendar day
// (see partition); badgerstore offers an embedded key-value alternative,
// and memory backs the test suites.
package storage
