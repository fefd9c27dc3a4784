// Package worker runs spreadsheet decoding off the interactive path.
//
// A Worker owns one goroutine that takes requests one at a time from a single-slot queue and
// answers each on its own buffered reply channel. Shutting the worker down discards work in
// flight: outstanding reply channels are closed without a value.
package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"sheetview/adapters/spreadsheet"
	"sheetview/domain/core"
	"sheetview/domain/sheet"
	apperrors "sheetview/internal/errors"
	"sheetview/internal/header"
	"sheetview/internal/tabular"
	"sheetview/ports"
)

// ErrClosed is returned by Submit after the worker stopped
var ErrClosed error = apperrors.WorkerClosed()

// Pipeline turns file bytes into a collection: read, detect the header, tabularize
type Pipeline struct {
	Reader   ports.MatrixReader
	Detector header.Options
}

// NewPipeline returns the default pipeline
func NewPipeline() *Pipeline {
	return &Pipeline{Reader: spreadsheet.NewReader(), Detector: header.DefaultOptions()}
}

// Process runs the pipeline synchronously. Diagnostics go to logf when it is not nil.
func (p *Pipeline) Process(data []byte, name string, logf func(string)) (*sheet.Collection, header.Result, error) {
	m, err := p.Reader.ReadMatrix(data, name)
	if err != nil {
		return nil, header.Result{}, err
	}

	opts := p.Detector
	if logf != nil {
		opts.Logf = func(format string, args ...interface{}) {
			logf(fmt.Sprintf(format, args...))
		}
	}
	res := header.NewDetector(opts).Detect(m)
	return tabular.Tabularize(m, res.Index), res, nil
}

// Options configures a Worker
type Options struct {
	// OnLog receives diagnostic messages. It is called from a background goroutine.
	OnLog func(LogMessage)
}

type job struct {
	ctx   context.Context
	req   Request
	reply chan Reply
}

// Worker decodes files on a background goroutine
type Worker struct {
	pipeline *Pipeline
	opts     Options

	requests chan job
	done     chan struct{}
	stopped  chan struct{}
	once     sync.Once
}

// Start launches the worker goroutine. It stops when ctx is cancelled or Close is called.
func Start(ctx context.Context, pipeline *Pipeline, opts Options) *Worker {
	if pipeline == nil {
		pipeline = NewPipeline()
	}
	w := &Worker{
		pipeline: pipeline,
		opts:     opts,
		requests: make(chan job, 1),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go w.loop(ctx)
	return w
}

// Submit queues a request and returns the channel its reply arrives on. The file bytes are
// copied, so the caller may reuse its buffer. Submit blocks while another request is queued.
func (w *Worker) Submit(ctx context.Context, req Request) (<-chan Reply, error) {
	select {
	case <-w.done:
		return nil, ErrClosed
	default:
	}

	req.FileData = append([]byte(nil), req.FileData...)
	if req.ID == "" {
		req.ID = core.NewRequestID().String()
	}
	j := job{ctx: ctx, req: req, reply: make(chan Reply, 1)}

	select {
	case w.requests <- j:
		return j.reply, nil
	case <-w.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the worker and waits for its goroutine to exit
func (w *Worker) Close() {
	w.once.Do(func() { close(w.done) })
	<-w.stopped
}

// Done is closed once the worker has stopped
func (w *Worker) Done() <-chan struct{} {
	return w.stopped
}

func (w *Worker) loop(ctx context.Context) {
	defer close(w.stopped)
	defer w.drain()

	log.Printf("[Worker] started")
	for {
		select {
		case <-ctx.Done():
			w.once.Do(func() { close(w.done) })
			log.Printf("[Worker] stopping: %v", ctx.Err())
			return
		case <-w.done:
			log.Printf("[Worker] closed")
			return
		case j := <-w.requests:
			w.run(ctx, j)
		}
	}
}

// run answers one job unless the worker or the caller gives up first
func (w *Worker) run(ctx context.Context, j job) {
	result := make(chan Reply, 1)
	go func() { result <- w.process(j.req) }()

	jobCtx := j.ctx
	if jobCtx == nil {
		jobCtx = context.Background()
	}

	select {
	case r := <-result:
		j.reply <- r
	case <-jobCtx.Done():
		log.Printf("[Worker] request %s abandoned by caller", j.req.ID)
	case <-ctx.Done():
	case <-w.done:
	}
	close(j.reply)
}

// drain closes the reply channels of requests still queued at shutdown
func (w *Worker) drain() {
	for {
		select {
		case j := <-w.requests:
			close(j.reply)
		default:
			return
		}
	}
}

func (w *Worker) process(req Request) (reply Reply) {
	start := time.Now()
	reply.ID = req.ID

	defer func() {
		if p := recover(); p != nil {
			log.Printf("[Worker] request %s panicked: %v", req.ID, p)
			reply = Reply{ID: req.ID, Success: false, Error: fmt.Sprintf("failed to process %s: %v", req.FileName, p)}
		}
	}()

	w.emit(req.ID, fmt.Sprintf("Processing %s (%d bytes)", req.FileName, len(req.FileData)))

	coll, res, err := w.pipeline.Process(req.FileData, req.FileName, func(msg string) {
		w.emit(req.ID, msg)
	})
	if err != nil {
		log.Printf("[Worker] request %s failed: %v", req.ID, err)
		return Reply{ID: req.ID, Success: false, Error: err.Error()}
	}

	log.Printf("[Worker] request %s done in %.2fms: header row %d, %d records",
		req.ID, float64(time.Since(start).Nanoseconds())/1e6, res.Index, coll.Len())

	return Reply{
		ID:         req.ID,
		Success:    true,
		Data:       coll.Records,
		Fields:     coll.Fields,
		HeaderRow:  res.Index,
		Confidence: res.Confidence,
	}
}

func (w *Worker) emit(id, msg string) {
	if w.opts.OnLog == nil {
		return
	}
	w.opts.OnLog(LogMessage{Type: MessageTypeLog, RequestID: id, Message: msg})
}
