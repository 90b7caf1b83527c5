// Package utils provides loose conversions for decoding third-party JSON, where
// the same field may be a string, a number, a list or a schema.org object.
package utils
