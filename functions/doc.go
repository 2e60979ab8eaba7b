// Package functions manages the Lambda side of a micro-app version.
//
// A version backed by a function is addressed through a stable alias named
// after its semantic version. The Client resolves that alias against an
// immutable revision, publishing one when given a bare function, and keeps
// the function tagged as managed. It also provisions the alias's function URL,
// grants API Gateway invoke permissions for gateway-routed versions and
// propagates cross-account invoke grants fetched from a parent deployer.
//
// Teardown goes the other way: Retire deletes the alias and then the revision
// it pointed at, leaving the revision in place when another alias still
// references it.
package functions
