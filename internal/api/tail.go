// Hivelog - Hive-Partitioned NDJSON Logging with Embedded Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hivelog

package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/hivelog/internal/logging"
	"github.com/tomtom215/hivelog/internal/metrics"
)

const (
	tailWriteWait  = 10 * time.Second
	tailPingPeriod = 30 * time.Second
)

// Tailer watches the log tree with fsnotify and fans newly appended
// NDJSON lines out to websocket clients. Only complete lines are sent;
// a partially flushed line waits for its newline.
type Tailer struct {
	root         string
	clientBuffer int
	upgrader     websocket.Upgrader

	mu      sync.Mutex
	clients map[*tailClient]struct{}

	// offsets tracks how far each file has been consumed, so a write
	// event only reads the appended suffix.
	offsets map[string]int64
}

type tailClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// NewTailer creates a tailer over root. clientBuffer is the per-client
// line queue; a client that falls that far behind is disconnected
// rather than allowed to stall the fan-out.
func NewTailer(root string, clientBuffer int) *Tailer {
	if clientBuffer <= 0 {
		clientBuffer = 256
	}
	return &Tailer{
		root:         root,
		clientBuffer: clientBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		clients: make(map[*tailClient]struct{}),
		offsets: make(map[string]int64),
	}
}

// Serve implements suture.Service: it owns the fsnotify watcher for
// the lifetime of the context. Existing file content is skipped; only
// lines appended after startup are streamed.
func (t *Tailer) Serve(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := t.watchTree(watcher); err != nil {
		return err
	}
	logging.Info().Str("root", t.root).Msg("Live tail started")

	for {
		select {
		case <-ctx.Done():
			t.disconnectAll()
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			t.handleEvent(watcher, ev)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn().Err(err).Msg("Tail watcher error")
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (t *Tailer) String() string {
	return "live-tailer"
}

// watchTree registers the root and every existing partition directory,
// and records current file sizes so history is not replayed.
func (t *Tailer) watchTree(watcher *fsnotify.Watcher) error {
	if err := os.MkdirAll(t.root, 0o750); err != nil {
		return err
	}
	return filepath.WalkDir(t.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // partition may vanish mid-walk during a sweep
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		if strings.HasSuffix(path, ".ndjson") {
			if fi, err := d.Info(); err == nil {
				t.mu.Lock()
				t.offsets[path] = fi.Size()
				t.mu.Unlock()
			}
		}
		return nil
	})
}

// watchNewDir registers a directory created after startup, along with
// any children that raced ahead of the watch. Files found here are
// new, so they stream from the beginning.
func (t *Tailer) watchNewDir(watcher *fsnotify.Watcher, dir string) {
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if werr := watcher.Add(path); werr != nil {
				logging.Warn().Err(werr).Str("dir", path).Msg("Failed to watch new partition")
			}
			return nil
		}
		if strings.HasSuffix(path, ".ndjson") {
			t.mu.Lock()
			if _, seen := t.offsets[path]; !seen {
				t.offsets[path] = 0
			}
			t.mu.Unlock()
			t.drain(path)
		}
		return nil
	})
}

func (t *Tailer) handleEvent(watcher *fsnotify.Watcher, ev fsnotify.Event) {
	switch {
	case ev.Op.Has(fsnotify.Create):
		fi, err := os.Stat(ev.Name)
		if err != nil {
			return
		}
		if fi.IsDir() {
			// New date= or source= partition directory. Walk it: its
			// children may already exist by the time the watch attaches.
			t.watchNewDir(watcher, ev.Name)
			return
		}
		if strings.HasSuffix(ev.Name, ".ndjson") {
			t.mu.Lock()
			if _, seen := t.offsets[ev.Name]; !seen {
				t.offsets[ev.Name] = 0
			}
			t.mu.Unlock()
			t.drain(ev.Name)
		}

	case ev.Op.Has(fsnotify.Write):
		if strings.HasSuffix(ev.Name, ".ndjson") {
			t.drain(ev.Name)
		}

	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		t.mu.Lock()
		delete(t.offsets, ev.Name)
		t.mu.Unlock()
	}
}

// drain reads the appended suffix of path and broadcasts each complete
// line. The offset only advances past the last newline, so a torn
// write is picked up whole on the next event.
func (t *Tailer) drain(path string) {
	t.mu.Lock()
	off := t.offsets[path]
	t.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	if fi, err := f.Stat(); err != nil || fi.Size() < off {
		off = 0 // unexpected truncation, start over
	}
	if _, err := f.Seek(off, io.SeekStart); err != nil {
		return
	}
	data, err := io.ReadAll(f)
	if err != nil || len(data) == 0 {
		return
	}

	consumed := bytes.LastIndexByte(data, '\n') + 1
	for _, line := range bytes.Split(data[:consumed], []byte{'\n'}) {
		if len(line) > 0 {
			t.broadcast(line)
		}
	}

	t.mu.Lock()
	t.offsets[path] = off + int64(consumed)
	t.mu.Unlock()
}

// broadcast queues line on every client; clients with a full queue are
// dropped.
func (t *Tailer) broadcast(line []byte) {
	// Copy once; the clients all share the slice read-only.
	msg := make([]byte, len(line))
	copy(msg, line)

	t.mu.Lock()
	var slow []*tailClient
	for c := range t.clients {
		select {
		case c.send <- msg:
			metrics.TailLinesSent.Inc()
		default:
			slow = append(slow, c)
		}
	}
	t.mu.Unlock()

	for _, c := range slow {
		logging.Warn().Msg("Dropping slow live-tail client")
		t.remove(c)
	}
}

// HandleWS upgrades the request and streams lines until the client
// disconnects or falls behind.
func (t *Tailer) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}

	c := &tailClient{
		conn: conn,
		send: make(chan []byte, t.clientBuffer),
	}
	t.mu.Lock()
	t.clients[c] = struct{}{}
	t.mu.Unlock()
	metrics.TailClients.Inc()

	go t.readPump(c)
	t.writePump(c)
}

// readPump discards inbound frames; its job is noticing the close.
func (t *Tailer) readPump(c *tailClient) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			t.remove(c)
			return
		}
	}
}

func (t *Tailer) writePump(c *tailClient) {
	ping := time.NewTicker(tailPingPeriod)
	defer ping.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
					time.Now().Add(tailWriteWait))
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(tailWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				t.remove(c)
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(tailWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				t.remove(c)
				return
			}
		}
	}
}

// remove unregisters a client exactly once and closes its connection.
func (t *Tailer) remove(c *tailClient) {
	c.once.Do(func() {
		t.mu.Lock()
		delete(t.clients, c)
		t.mu.Unlock()
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
		metrics.TailClients.Dec()
	})
}

func (t *Tailer) disconnectAll() {
	t.mu.Lock()
	clients := make([]*tailClient, 0, len(t.clients))
	for c := range t.clients {
		clients = append(clients, c)
	}
	t.mu.Unlock()

	for _, c := range clients {
		t.remove(c)
	}
}
