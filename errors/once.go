package errors

import baseerrors "github.com/grailbio/base/errors"

// Once accumulates the first non-nil error reported to it via Set, then
// ignores subsequent calls. It is used by the encoders' shared Set
// (core.set in package encoding) to stage a
// replacement matrix: each step of the overwrite reports its outcome
// through a shared Once, and the staged matrix is only swapped in if the
// Once never fired, so a failed overwrite leaves the encoder exactly as it
// was before the call.
//
// This is an alias for github.com/grailbio/base/errors.Once, the same
// accumulator encoding/pam/pamwriter.go and markduplicates/mark_duplicates.go
// use for their own staged writes (`w.err.Set(err)` ... `return
// w.err.Err()`), rather than a reimplementation: Once carries no Kind and
// so needs none of the local Error type's extensions.
type Once = baseerrors.Once
