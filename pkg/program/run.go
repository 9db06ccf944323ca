package program

import (
	"context"
	"sync"
	"sync/atomic"
)

// Routine that can be executed as part of a program. Routines include
// gRPC and HTTP servers, the scheduler's sweeper and the execution
// slots of a worker.
//
// Each routine is capable of launching additional routines that either
// run as siblings, or as dependencies of the current routine and
// its siblings. Siblings are all terminated at the same time, while
// dependencies are only terminated after all of the siblings of the
// current routine have completed.
type Routine func(ctx context.Context, siblingsGroup, dependenciesGroup Group) error

// Group of routines. This interface can be used to launch additional
// routines.
type Group interface {
	Go(routine Routine)
}

// errorLogger receives errors returned by routines. The first error
// that is logged is expected to cancel the context of the root
// siblings group.
type errorLogger interface {
	Log(err error)
}

// groupsRoot contains bookkeeping that is shared across all groups
// within the current program.
type groupsRoot struct {
	siblingsGroupsCount sync.WaitGroup
	errorLogger         errorLogger
}

// siblingsGroup is a group of routines that are all siblings with
// respect to each other.
type siblingsGroup struct {
	root                *groupsRoot
	siblingsActive      atomic.Uint32
	siblingsContext     context.Context
	dependenciesContext context.Context
	dependenciesCancel  context.CancelFunc
}

// newSiblingsGroup constructs a new siblingsGroup that contains exactly
// one routine. The caller MUST call runRoutine() on it after creation
// to actually start execution of this routine.
func newSiblingsGroup(siblingsContext context.Context, root *groupsRoot) *siblingsGroup {
	dependenciesContext, dependenciesCancel := context.WithCancel(context.Background())
	sg := &siblingsGroup{
		root:                root,
		siblingsContext:     siblingsContext,
		dependenciesContext: dependenciesContext,
		dependenciesCancel:  dependenciesCancel,
	}
	sg.siblingsActive.Store(1)
	root.siblingsGroupsCount.Add(1)
	return sg
}

func (sg *siblingsGroup) runRoutine(routine Routine) {
	if err := routine(
		sg.siblingsContext,
		sg,
		dependenciesGroup{siblingsGroup: sg},
	); err != nil {
		sg.root.errorLogger.Log(err)
	}

	if sg.siblingsActive.Add(^uint32(0)) == 0 {
		// This is the last sibling that terminated. We can now
		// safely terminate our dependencies.
		sg.dependenciesCancel()
		sg.root.siblingsGroupsCount.Done()
	}
}

func (sg *siblingsGroup) Go(routine Routine) {
	if sg.siblingsActive.Add(1) < 2 {
		panic("Attempted to create a goroutine in a group that is already completed")
	}
	go sg.runRoutine(routine)
}

type dependenciesGroup struct {
	siblingsGroup *siblingsGroup
}

func (dg dependenciesGroup) Go(routine Routine) {
	sg := dg.siblingsGroup
	if sg.siblingsActive.Load() == 0 {
		panic("Attempted to create a goroutine in a group that is already completed")
	}

	// Create a new siblings group, so that this newly spawned
	// routine can also have its own set of siblings.
	childSG := newSiblingsGroup(sg.dependenciesContext, sg.root)
	go childSG.runRoutine(routine)
}

// run a routine and all of the routines it spawns, and wait for all of
// them to complete. Errors are passed to the error logger, which is
// responsible for canceling the provided context.
func run(ctx context.Context, errorLogger errorLogger, routine Routine) {
	root := groupsRoot{
		errorLogger: errorLogger,
	}
	newSiblingsGroup(ctx, &root).runRoutine(routine)
	root.siblingsGroupsCount.Wait()
}

type runLocalErrorLogger struct {
	cancel context.CancelCauseFunc
}

func (el runLocalErrorLogger) Log(err error) {
	el.cancel(err)
}

// RunLocal runs a routine and all of the routines it spawns until
// completion, placing them in the same hierarchy of siblings and
// dependencies as RunMain(). Unlike errgroup.Group, no separate call
// to Wait() is needed.
//
// The first error returned by any of the routines cancels all of the
// others and is returned. If ctx is canceled before any of the
// routines fail, the cause of its cancelation is returned.
func RunLocal(ctx context.Context, routine Routine) error {
	innerCtx, cancel := context.WithCancelCause(ctx)
	run(innerCtx, runLocalErrorLogger{cancel: cancel}, routine)
	err := context.Cause(innerCtx)
	cancel(nil)
	return err
}
