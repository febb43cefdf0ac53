// Package recorder writes audit records asynchronously so rule
// evaluation never blocks on storage.
package recorder
