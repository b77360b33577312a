// Package stringseq joins iterator sequences into strings.
package stringseq

import (
	"fmt"
	"iter"
	"strings"
)

func appendSeq[T any](b *strings.Builder, seq iter.Seq[T], sep string, str func(T) string) {
	first := true
	for item := range seq {
		if !first {
			b.WriteString(sep)
		}
		b.WriteString(str(item))
		first = false
	}
}

// Append writes the elements of seq to b, separated by sep.
func Append(b *strings.Builder, seq iter.Seq[string], sep string) {
	appendSeq(b, seq, sep, func(s string) string { return s })
}

// AppendStringer writes the string representation of the elements of seq to b,
// separated by sep.
func AppendStringer[T fmt.Stringer](b *strings.Builder, seq iter.Seq[T], sep string) {
	appendSeq(b, seq, sep, func(x T) string { return x.String() })
}

// Join concatenates the elements of seq, separated by sep.
func Join(seq iter.Seq[string], sep string) string {
	var b strings.Builder
	Append(&b, seq, sep)
	return b.String()
}

// JoinStringer concatenates the string representation of the elements of seq,
// separated by sep.
func JoinStringer[T fmt.Stringer](seq iter.Seq[T], sep string) string {
	var b strings.Builder
	AppendStringer(&b, seq, sep)
	return b.String()
}
