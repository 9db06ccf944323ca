package scheduler

import (
	"container/heap"
)

// taskQueue is a binary heap of tasks waiting to be assigned to a
// worker. Tasks with a lower priority value are returned first. Tasks
// with equal priority are returned in the order in which they were
// queued.
type taskQueue []*task

func (q taskQueue) Len() int {
	return len(q)
}

func (q taskQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority < q[j].priority
	}
	return q[i].sequence < q[j].sequence
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].queueIndex = i
	q[j].queueIndex = j
}

func (q *taskQueue) Push(x any) {
	t := x.(*task)
	t.queueIndex = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	t.queueIndex = -1
	return t
}

func (q *taskQueue) push(t *task) {
	heap.Push(q, t)
}

func (q *taskQueue) remove(t *task) {
	if t.queueIndex >= 0 {
		heap.Remove(q, t.queueIndex)
	}
}

// fix restores the heap property after the priority of a task that is
// part of the queue has been changed.
func (q *taskQueue) fix(t *task) {
	if t.queueIndex >= 0 {
		heap.Fix(q, t.queueIndex)
	}
}

// popFirstMatching removes and returns the task with the lowest
// priority value for which the provided predicate holds.
func (q *taskQueue) popFirstMatching(matches func(t *task) bool) *task {
	var skipped []*task
	var found *task
	for q.Len() > 0 {
		t := heap.Pop(q).(*task)
		if matches(t) {
			found = t
			break
		}
		skipped = append(skipped, t)
	}
	for _, t := range skipped {
		heap.Push(q, t)
	}
	return found
}
