// Package rules holds the correction rule table and the engine that applies
// it to a document.
//
// A [Rule] pairs a backtracking pattern with a replacement and a reason. The
// built-in [Default] table runs case fixes first, then trademark
// capitalization, noise reduction, and grammar and spelling, and finishes with
// punctuation and spacing cleanup. Tables are immutable; derive new ones with
// [Table.Without], [Table.With] and [Table.WithMatchTimeout].
//
// A house-style [Pack] loaded from YAML or JSON can disable built-in rules
// and add literal ones.
package rules
