// Package gitctx finds posts in a git repository.
//
// It shells out to git to list the files staged for commit and to read
// their staged contents, so a pre-commit check edits exactly what is about
// to be committed. Paths are filtered by include and exclude glob patterns.
package gitctx
