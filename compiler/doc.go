/*
Package compiler finds which parts of two versions of a program
correspond.

Pipeline

	YAML description | Go source ->
		front ->
	Program (ir) x 2 ->
		match ->
	Equivalence table ->
		canon | mark | check

canon renames the right program after its matched left partners so
textual diffs show only real changes. mark inserts a numbered marker
call before every unmatched instruction. check reports whether function
pairs survived a transformation intact.
*/
package compiler
