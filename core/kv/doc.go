// Package kv connects to the Redis instance shared by replicas for run locks and
// run notifications.
package kv
