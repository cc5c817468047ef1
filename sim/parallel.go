package sim

import (
	"sync"

	"github.com/pthm-cable/tgenesis/components"
	"github.com/pthm-cable/tgenesis/systems"
)

// WorkgroupSize is the number of invocations per dispatched group.
const WorkgroupSize = 64

// workChunk is a contiguous range of groups for one worker.
type workChunk struct {
	firstGroup, lastGroup int // [first, last)
}

// dispatcher runs kernel groups on a persistent worker pool.
type dispatcher struct {
	numWorkers int
	threshold  int

	// Set by dispatch before any chunk is sent; read-only to workers.
	src, dst []components.Particle
	frame    *systems.Frame

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan int       // workers report reactions applied
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

func newDispatcher(numWorkers, threshold int) *dispatcher {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &dispatcher{numWorkers: numWorkers, threshold: threshold}
}

// groups returns ceil(n / WorkgroupSize).
func groups(n int) int {
	return (n + WorkgroupSize - 1) / WorkgroupSize
}

// startWorkers launches persistent worker goroutines.
func (d *dispatcher) startWorkers() {
	if d.running {
		return
	}

	d.workChan = make(chan workChunk, d.numWorkers)
	d.doneChan = make(chan int, d.numWorkers)
	d.stopChan = make(chan struct{})
	d.running = true

	for i := 0; i < d.numWorkers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (d *dispatcher) stopWorkers() {
	if !d.running {
		return
	}

	close(d.stopChan)
	d.wg.Wait()
	close(d.workChan)
	close(d.doneChan)
	d.running = false
}

// worker runs in a goroutine, processing chunks until stopped.
func (d *dispatcher) worker() {
	defer d.wg.Done()

	for {
		select {
		case <-d.stopChan:
			return
		case chunk, ok := <-d.workChan:
			if !ok {
				return
			}
			lo := chunk.firstGroup * WorkgroupSize
			hi := chunk.lastGroup * WorkgroupSize
			d.doneChan <- systems.InteractRange(lo, hi, d.src, d.dst, d.frame)
		}
	}
}

// dispatch runs ceil(N/64) groups over src into dst and blocks until every
// group has completed. It returns the number of reactions applied.
func (d *dispatcher) dispatch(src, dst []components.Particle, frame *systems.Frame) int {
	n := int(frame.Params.N)
	if n == 0 {
		return 0
	}
	total := groups(n)

	// Below the threshold goroutine handoff costs more than it saves.
	if n < d.threshold || d.numWorkers == 1 {
		return systems.InteractRange(0, total*WorkgroupSize, src, dst, frame)
	}

	if !d.running {
		d.startWorkers()
	}
	d.src, d.dst, d.frame = src, dst, frame

	chunkSize := (total + d.numWorkers - 1) / d.numWorkers
	chunksDispatched := 0
	for w := 0; w < d.numWorkers; w++ {
		first := w * chunkSize
		last := min(first+chunkSize, total)
		if first >= last {
			continue
		}
		d.workChan <- workChunk{firstGroup: first, lastGroup: last}
		chunksDispatched++
	}

	reactions := 0
	for i := 0; i < chunksDispatched; i++ {
		reactions += <-d.doneChan
	}

	d.src, d.dst, d.frame = nil, nil, nil
	return reactions
}
