// Package mask protects structural spans of a post from the edit rules.
//
// Before rules run, every match of a category pattern is cut out of the body
// and replaced with that category's placeholder token; afterwards the tokens
// are replaced with the original text again. Categories are evaluated in a
// fixed order: automatically inserted text, block quotes, inline code, code
// blocks, then links and URL-like tokens.
//
// Extracted text is kept in a [Spans] value owned by a single run, so
// concurrent runs never interleave. Unmasking restores categories in reverse
// order, which makes nested spans (an inline code span inside an indented
// block, say) round-trip exactly.
//
// [NormalizeCodeBlocks] rewrites multi-line backtick spans captured by the
// block pattern into indented code blocks.
package mask
