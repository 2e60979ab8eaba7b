// Package deployer publishes and retires micro-app versions.
//
// A rollout is a forward-only state machine over records.Status. Every step
// persists the version record as soon as it has durably completed, so a
// rollout that crashed or timed out resumes from its last checkpoint when
// the same request is sent again. The steps each app type goes through are
// listed in Transitions.
//
// Teardown runs the inverse steps best-effort: remote objects that are
// already gone count as deleted, and the version record is removed last.
package deployer
