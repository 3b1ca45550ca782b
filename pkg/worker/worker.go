package worker

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/farewatch/fare-gateway/pkg/logger"
)

type WorkerHandler = func(workerIndex int, job interface{})

// WorkerManager is a job pool backed by goroutines. Define the number of
// internal workers, then push jobs through Publish; they are distributed
// across the pool. Workers run until Exit is called. The job channel is not
// closed on exit because it may be shared with other producers.
type WorkerManager struct {
	bufferSize     int
	jobChannel     chan interface{}
	numberOfWorker int
	sigTerm        chan os.Signal
	do             WorkerHandler
	waiter         *sync.WaitGroup
}

func NewWorkerManager(bufferSize, numberOfWorkers int, jobChannel chan interface{}) *WorkerManager {
	if jobChannel == nil {
		jobChannel = make(chan interface{}, bufferSize)
	}
	// buffered so a signal per worker cannot be lost before workers start
	sigChan := make(chan os.Signal, numberOfWorkers)
	signal.Notify(sigChan, syscall.SIGTERM)

	return &WorkerManager{
		bufferSize:     bufferSize,
		numberOfWorker: numberOfWorkers,
		jobChannel:     jobChannel,
		sigTerm:        sigChan,
		waiter:         &sync.WaitGroup{},
	}
}

func (w *WorkerManager) GetUnreadCount() int64 {
	if w.jobChannel == nil {
		return 0
	}
	return int64(len(w.jobChannel))
}

func (w *WorkerManager) JobEvents() chan interface{} {
	return w.jobChannel
}

func (w *WorkerManager) Publish(job interface{}) {
	w.jobChannel <- job
}

func (w *WorkerManager) Start(handler WorkerHandler) {
	w.do = handler
	for i := 0; i < w.numberOfWorker; i++ {
		w.waiter.Add(1)
		go w.run(i)
	}
}

func (w *WorkerManager) run(index int) {
	defer w.waiter.Done()
	for {
		select {
		case <-w.sigTerm:
			logger.Info("[worker] received term signal, exiting", "worker", index)
			return
		case job, ok := <-w.jobChannel:
			if !ok {
				return
			}
			w.do(index, job)
		}
	}
}

// Exit signals every worker to stop after its current job and waits for
// them to drain.
func (w *WorkerManager) Exit() {
	for i := 0; i < w.numberOfWorker; i++ {
		w.sigTerm <- syscall.SIGTERM
	}
	w.waiter.Wait()
}
