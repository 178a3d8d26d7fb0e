// Package sse streams taxonomy revisions to clients as Server-Sent Events.
//
// Every indexed change of the source is a revision. Clients receive one
// taxonomy.<kind> frame per revision and a coalesced tree.updated frame carrying
// the ETag of the tree they would fetch. Frame ids are revision numbers, so a
// client reconnecting with a stale Last-Event-ID is sent the current revision.
package sse

import (
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"

	"github.com/starford/taxonomy-explorer/internal/checksum"
)

// KeepAlive is the interval of comment lines sent to idle clients so proxies keep the stream open.
var KeepAlive = 15 * time.Second

// Change is one reindex of the taxonomy source. Checksum is the digest of the
// indexed source after the change and is empty once the source is deleted.
type Change struct {
	Kind     string
	Path     string
	Checksum string
}

type sourcePayload struct {
	Path string `json:"path"`
	ETag string `json:"etag,omitempty"`
}

type treePayload struct {
	Revision uint64 `json:"revision"`
	ETag     string `json:"etag,omitempty"`
}

type joinReq struct {
	ch     chan []byte
	lastID uint64
	resume bool
}

// Broker fans taxonomy revisions out to SSE clients.
//
// One loop goroutine owns the client set and the revision state; public methods
// talk to it over channels.
type Broker struct {
	window time.Duration

	joinCh   chan joinReq
	leaveCh  chan chan []byte
	changeCh chan Change
	countCh  chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. treeThrottle is the minimum spacing of tree.updated
// frames; changes inside the window are folded into one trailing frame.
func NewBroker(treeThrottle time.Duration) *Broker {
	if treeThrottle <= 0 {
		treeThrottle = 2 * time.Second
	}
	b := &Broker{
		window:   treeThrottle,
		joinCh:   make(chan joinReq),
		leaveCh:  make(chan chan []byte),
		changeCh: make(chan Change, 256),
		countCh:  make(chan chan int),
		stopCh:   make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go b.run()
	return b
}

// revisions is the loop-owned state.
type revisions struct {
	clients map[chan []byte]struct{}

	seq uint64
	sum string

	// last tree.updated sent
	treeSent bool
	treeSum  string
	treeAt   time.Time
}

func (s *revisions) send(ch chan []byte, frame []byte) {
	select {
	case ch <- frame:
	default:
		// slow client misses the frame; the next tree.updated carries the state
	}
}

func (s *revisions) broadcast(frame []byte) {
	if frame == nil {
		return
	}
	for ch := range s.clients {
		s.send(ch, frame)
	}
}

func (s *revisions) treeFrame() []byte {
	return encode(s.seq, "tree.updated", treePayload{Revision: s.seq, ETag: etag(s.sum)})
}

// flushTree sends tree.updated unless the tree is byte-identical to the last one sent.
func (s *revisions) flushTree(now time.Time) {
	if s.treeSent && s.sum == s.treeSum {
		return
	}
	s.treeSent, s.treeSum, s.treeAt = true, s.sum, now
	s.broadcast(s.treeFrame())
}

func (b *Broker) run() {
	defer close(b.stopped)

	s := &revisions{clients: make(map[chan []byte]struct{})}
	var (
		timer *time.Timer
		flush <-chan time.Time
	)

	for {
		select {
		case <-b.stopCh:
			if timer != nil {
				timer.Stop()
			}
			for ch := range s.clients {
				close(ch)
			}
			return

		case req := <-b.joinCh:
			s.clients[req.ch] = struct{}{}
			if req.resume && req.lastID < s.seq {
				s.send(req.ch, s.treeFrame())
			}

		case ch := <-b.leaveCh:
			if _, ok := s.clients[ch]; ok {
				delete(s.clients, ch)
				close(ch)
			}

		case c := <-b.changeCh:
			switch c.Kind {
			case "created", "updated", "deleted":
			default:
				continue
			}
			s.seq++
			s.sum = c.Checksum
			s.broadcast(encode(s.seq, "taxonomy."+c.Kind, sourcePayload{Path: c.Path, ETag: etag(c.Checksum)}))

			if flush != nil {
				continue
			}
			if wait := b.window - time.Since(s.treeAt); s.treeSent && wait > 0 {
				timer = time.NewTimer(wait)
				flush = timer.C
				continue
			}
			s.flushTree(time.Now())

		case <-flush:
			timer, flush = nil, nil
			s.flushTree(time.Now())

		case resp := <-b.countCh:
			resp <- len(s.clients)
		}
	}
}

func etag(sum string) string {
	if sum == "" {
		return ""
	}
	return checksum.ETag(sum)
}

func encode(id uint64, event string, data any) []byte {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	return []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", id, event, payload))
}

// Close stops the loop and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client and returns its frame channel.
func (b *Broker) Subscribe() chan []byte {
	return b.join(0, false)
}

func (b *Broker) join(lastID uint64, resume bool) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.joinCh <- joinReq{ch: ch, lastID: lastID, resume: resume}:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.leaveCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countCh <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// PublishChange records a new revision. Kinds other than created, updated and
// deleted are ignored.
func (b *Broker) PublishChange(c Change) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- c:
	case <-b.stopped:
	}
}

// ServeHTTP streams revisions (GET /api/events). A Last-Event-ID older than the
// current revision is answered with the current tree.updated frame.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	lastID, err := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)
	resume := err == nil

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.join(lastID, resume)
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(KeepAlive)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case frame, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(frame)
			flusher.Flush()
		}
	}
}
