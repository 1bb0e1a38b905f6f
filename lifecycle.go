package corovm

// lifecycleState is a Scheduler's place in the ready → running → suspended
// ⇄ running → halted state machine. halted is terminal.
type lifecycleState int32

const (
	lifecycleReady lifecycleState = iota
	lifecycleRunning
	lifecycleSuspended
	lifecycleHalted
)

func (st lifecycleState) String() string {
	switch st {
	case lifecycleReady:
		return "ready"
	case lifecycleRunning:
		return "running"
	case lifecycleSuspended:
		return "suspended"
	case lifecycleHalted:
		return "halted"
	default:
		return "unknown"
	}
}

// lifecycleImpl is implemented by both Scheduler and Threadpool. A worker
// Scheduler constructed with a Threadpool as its root delegates its own
// Suspend/Resume/Halt calls to the pool, so acting on one worker
// transparently affects (and is affected by) every worker in the pool.
type lifecycleImpl interface {
	Suspend() bool
	Resume()
	Halt()
	State() lifecycleState
}
