// Package artifacts moves build artifacts between the staging and production
// buckets.
//
// Keys live under a version-scoped prefix,
//
//	{rootPathPrefix}/{appName|[root]}/{semVer}/...
//
// lower-cased. Promote copies every staged object to production and removes
// the staged copy, page by page, with bounded concurrency. Remove deletes the
// production objects of a version with batch deletes.
package artifacts
