package scheduler

import (
	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
)

type platformProperty struct {
	name  string
	value string
}

// PlatformMatches returns whether a worker that offers the platform
// properties in workerPlatform is capable of executing an action that
// requires the properties in actionPlatform. Properties are treated as
// a multiset of name/value pairs, meaning the worker's properties need
// to be a superset of the action's.
func PlatformMatches(workerPlatform, actionPlatform *remoteexecution.Platform) bool {
	available := map[platformProperty]int{}
	for _, p := range workerPlatform.GetProperties() {
		available[platformProperty{name: p.Name, value: p.Value}]++
	}
	for _, p := range actionPlatform.GetProperties() {
		key := platformProperty{name: p.Name, value: p.Value}
		if available[key] == 0 {
			return false
		}
		available[key]--
	}
	return true
}
