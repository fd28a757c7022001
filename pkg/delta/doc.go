/*
Package delta detects which files in a source tree changed.

A Source produces ChangeRecords for a source root. There are two kinds of
sources:
1) HashSource -- Hashes every file under the source root and compares the
   hashes against a manifest persisted by the previous run. Files that are in
   the manifest but weren't seen during the scan were deleted. The manifest is
   rewritten once the scan finishes if anything changed.
2) ExternalSource -- Reads a diff listing produced by another tool, such as
   `git diff --name-status`, and replays it. The listing is never modified.

ChangeRecord paths are normalized and include the source root, i.e. they are
reachable from the working directory. For example, a source root of
`force-app` yields paths such as `force-app/main/default/classes/Foo.cls`.
*/
package delta
