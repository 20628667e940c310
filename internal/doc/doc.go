// Package doc is the document store: JSON values kept in a kv.Store under
// keys derived deterministically from (entity kind, patient id, sub-key).
//
// Reading a key that was never written is not an error; Get reports
// found=false and leaves the destination untouched. Values that cannot be
// represented as JSON fail with ErrEncode and are never written.
package doc
