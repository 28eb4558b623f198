// Package storage defines the persistence gateway interfaces and record
// types the relay core depends on. Implementations live in subpackages.
package storage
