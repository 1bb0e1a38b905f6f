package corovm

import (
	"runtime"
	"sync"
)

// goroutineID returns the id of the calling goroutine, parsed out of its
// own stack trace header ("goroutine 123 [running]: ...").
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}

// identity is the goroutine-local record of "which scheduler/threadpool
// is this". Every coroutine's body runs on one dedicated goroutine for
// its entire lifetime (parked and resumed in place, never migrated), so
// that goroutine's id is a stable key for the identity that would be a
// thread-local in a stackful-coroutine runtime. true* is what actually
// executes this coroutine; redir* is what this_scheduler()/this_threadpool()
// report to user code, and the two diverge only inside the await bridge.
type identity struct {
	trueSched  *Scheduler
	redirSched *Scheduler
	truePool   *Threadpool
	redirPool  *Threadpool
	coro       *Coroutine
	awaitDepth int
}

var identities sync.Map // uint64 goroutine id -> *identity

func registerIdentity(id *identity) {
	identities.Store(goroutineID(), id)
}

func unregisterIdentity() {
	identities.Delete(goroutineID())
}

func currentIdentity() *identity {
	v, ok := identities.Load(goroutineID())
	if !ok {
		return nil
	}
	return v.(*identity)
}

// ThisScheduler returns the redirected current scheduler, or nil if the
// calling goroutine is not running inside one.
func ThisScheduler() *Scheduler {
	id := currentIdentity()
	if id == nil {
		return nil
	}
	return id.redirSched
}

// ThisThreadpool returns the redirected current threadpool, or nil.
func ThisThreadpool() *Threadpool {
	id := currentIdentity()
	if id == nil {
		return nil
	}
	return id.redirPool
}

// InCoroutine reports whether the calling goroutine is a coroutine body.
// An await worker carries an identity too, while it bridges a blocking
// call, but is not itself a coroutine.
func InCoroutine() bool {
	id := currentIdentity()
	return id != nil && id.coro != nil
}

// InScheduler reports whether the calling coroutine is running under a
// scheduler (false for a coroutine resumed directly without Schedule).
func InScheduler() bool {
	return ThisScheduler() != nil
}

// InThreadpool reports whether the calling coroutine's redirected
// scheduler belongs to a threadpool.
func InThreadpool() bool {
	return ThisThreadpool() != nil
}

// IsAwait reports whether the calling goroutine is an await worker
// currently running a call handed to it by Await.
func IsAwait() bool {
	id := currentIdentity()
	return id != nil && id.awaitDepth > 0
}
