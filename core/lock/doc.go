// Package lock provides a Redis lease (SET NX PX with token-checked release)
// used to keep reconciliation runs from overlapping across replicas.
package lock
