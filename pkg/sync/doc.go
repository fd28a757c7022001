/*
The sync package implements deltasync's copy algorithm. A run asks a
delta.Source which files changed below the source root, and mirrors those
changes into the destination root.

Each change is handled according to its kind:
1) Added and Modified files are expanded into the bundle they belong to, and
   every file of the bundle is copied to the same relative path below the
   destination.
2) Deleted files are recorded in the delete report. Nothing is removed from
   the destination, since deleting metadata is a decision for whoever deploys
   it.
3) Unchanged files are only counted.

Files selected by the ignore file are never copied or reported as deleted,
and files selected by the force file are copied even when they are
unchanged.

The sync algorithm only deals with files. Empty directories aren't synced.
*/
package sync
