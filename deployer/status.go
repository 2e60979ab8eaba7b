package deployer

import (
	"github.com/input-output-hk/catalyst-forge-deployer/records"
)

// Step is one provisioning step of a rollout.
type Step string

const (
	// StepCopyAssets promotes staged artifacts to the production bucket.
	StepCopyAssets Step = "copy-assets"
	// StepGrantGateway adds the API Gateway invoke permissions to the function.
	StepGrantGateway Step = "grant-gateway"
	// StepIntegrate creates the API Gateway integration.
	StepIntegrate Step = "integrate"
	// StepRoute creates the version route and its splat route.
	StepRoute Step = "route"
	// StepTagFunction tags the function as managed.
	StepTagFunction Step = "tag-function"
	// StepResolveAlias binds the version alias and its function URL.
	StepResolveAlias Step = "resolve-alias"
	// StepActivate marks a version without compute as routed.
	StepActivate Step = "activate"
	// StepRecordURL records an externally hosted URL.
	StepRecordURL Step = "record-url"
)

// Transition runs Step on a version at From and leaves it at To.
type Transition struct {
	From records.Status
	Step Step
	To   records.Status
}

// Transitions lists, per app type, the rollout steps in order.
var Transitions = map[records.AppType][]Transition{
	records.AppTypeLambda: {
		{records.StatusPending, StepCopyAssets, records.StatusAssetsCopied},
		{records.StatusAssetsCopied, StepGrantGateway, records.StatusPermissioned},
		{records.StatusPermissioned, StepIntegrate, records.StatusIntegrated},
		{records.StatusIntegrated, StepRoute, records.StatusRouted},
	},
	records.AppTypeLambdaURL: {
		{records.StatusPending, StepCopyAssets, records.StatusAssetsCopied},
		{records.StatusAssetsCopied, StepTagFunction, records.StatusPermissioned},
		{records.StatusPermissioned, StepResolveAlias, records.StatusRouted},
	},
	records.AppTypeStatic: {
		{records.StatusPending, StepCopyAssets, records.StatusAssetsCopied},
		{records.StatusAssetsCopied, StepActivate, records.StatusRouted},
	},
	records.AppTypeURL: {
		{records.StatusPending, StepRecordURL, records.StatusRouted},
	},
}

// computeSteps are skipped by lite rollouts.
var computeSteps = map[Step]bool{
	StepGrantGateway: true,
	StepIntegrate:    true,
	StepRoute:        true,
	StepTagFunction:  true,
	StepResolveAlias: true,
}

// Plan returns the transitions of a rollout of type t. A lite plan stops at
// the first step that provisions compute.
func Plan(t records.AppType, lite bool) []Transition {
	all := Transitions[t]
	if !lite {
		return all
	}
	for i, tr := range all {
		if computeSteps[tr.Step] {
			return all[:i]
		}
	}
	return all
}

// Reachable reports whether a version of type t can be at status s.
func Reachable(t records.AppType, s records.Status) bool {
	if s == records.StatusPending || s.IsRouted() {
		return true
	}
	for _, tr := range Transitions[t] {
		if tr.To == s {
			return true
		}
	}
	return false
}

// Final returns the status a completed plan leaves a version at.
func Final(plan []Transition) records.Status {
	if len(plan) == 0 {
		return records.StatusPending
	}
	return plan[len(plan)-1].To
}
