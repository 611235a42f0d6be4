// Package oxidbtest runs an in-process oxidb-server stand-in for tests.
// It speaks the real wire protocol and keeps collections and buckets in memory.
package oxidbtest

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

type object struct {
	content     string
	contentType string
}

// Server is an in-memory oxidb-server.
type Server struct {
	ln net.Listener

	mu          sync.Mutex
	collections map[string][]map[string]any
	unique      map[string][]string
	buckets     map[string]map[string]object
	failures    map[string]string
	delays      map[string]time.Duration
	accepted    int
	nextID      float64

	wg sync.WaitGroup
}

// NewServer starts a server on a loopback port and stops it on test cleanup.
func NewServer(t testing.TB) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("oxidbtest: listen: %v", err)
	}
	s := &Server{
		ln:          ln,
		collections: make(map[string][]map[string]any),
		unique:      make(map[string][]string),
		buckets:     make(map[string]map[string]object),
		failures:    make(map[string]string),
		delays:      make(map[string]time.Duration),
	}
	s.wg.Add(1)
	go s.acceptLoop()
	t.Cleanup(s.Close)
	return s
}

// Addr returns the "host:port" the server listens on.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Close stops accepting connections and waits for the accept loop.
func (s *Server) Close() {
	s.ln.Close()
	s.wg.Wait()
}

// Fail makes every subsequent cmd return msg as a server error.
func (s *Server) Fail(cmd, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[cmd] = msg
}

// Delay holds every subsequent reply to cmd for d. Zero clears it.
func (s *Server) Delay(cmd string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d <= 0 {
		delete(s.delays, cmd)
		return
	}
	s.delays[cmd] = d
}

// Accepted returns how many connections the server has accepted.
func (s *Server) Accepted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

// Docs returns a snapshot of a collection.
func (s *Server) Docs(collection string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0, len(s.collections[collection]))
	for _, d := range s.collections[collection] {
		out = append(out, clone(d))
	}
	return out
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.accepted++
		s.mu.Unlock()
		go s.serve(conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	defer conn.Close()
	for {
		lenBuf := make([]byte, 4)
		if _, err := io.ReadFull(conn, lenBuf); err != nil {
			return
		}
		payload := make([]byte, binary.LittleEndian.Uint32(lenBuf))
		if _, err := io.ReadFull(conn, payload); err != nil {
			return
		}

		var resp map[string]any
		var req map[string]any
		if err := json.Unmarshal(payload, &req); err != nil {
			resp = map[string]any{"ok": false, "error": "invalid json"}
		} else if data, err := s.handle(req); err != nil {
			resp = map[string]any{"ok": false, "error": err.Error()}
		} else {
			resp = map[string]any{"ok": true, "data": data}
		}
		if d := s.delayFor(req); d > 0 {
			time.Sleep(d)
		}

		out, _ := json.Marshal(resp)
		frame := make([]byte, 4+len(out))
		binary.LittleEndian.PutUint32(frame, uint32(len(out)))
		copy(frame[4:], out)
		if _, err := conn.Write(frame); err != nil {
			return
		}
	}
}

func (s *Server) delayFor(req map[string]any) time.Duration {
	cmd, _ := req["cmd"].(string)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delays[cmd]
}

func (s *Server) handle(req map[string]any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd, _ := req["cmd"].(string)
	if msg, ok := s.failures[cmd]; ok {
		return nil, errors.New(msg)
	}
	coll, _ := req["collection"].(string)
	query, _ := req["query"].(map[string]any)

	switch cmd {
	case "ping":
		return "pong", nil
	case "create_index", "create_composite_index", "create_text_index":
		return nil, nil
	case "create_unique_index":
		field, _ := req["field"].(string)
		s.unique[coll] = append(s.unique[coll], field)
		return nil, nil
	case "insert":
		doc, _ := req["doc"].(map[string]any)
		if doc == nil {
			return nil, errors.New("missing doc")
		}
		if err := s.checkUnique(coll, doc); err != nil {
			return nil, err
		}
		s.nextID++
		doc["_id"] = s.nextID
		s.collections[coll] = append(s.collections[coll], doc)
		return map[string]any{"id": s.nextID}, nil
	case "find":
		return s.find(coll, query, req), nil
	case "find_one":
		for _, d := range s.collections[coll] {
			if matches(d, query) {
				return clone(d), nil
			}
		}
		return nil, nil
	case "update_one":
		update, _ := req["update"].(map[string]any)
		set, _ := update["$set"].(map[string]any)
		modified := 0
		for _, d := range s.collections[coll] {
			if !matches(d, query) {
				continue
			}
			for k, v := range set {
				d[k] = v
			}
			modified++
			break
		}
		return map[string]any{"modified": modified}, nil
	case "count":
		n := 0
		for _, d := range s.collections[coll] {
			if matches(d, query) {
				n++
			}
		}
		return map[string]any{"count": n}, nil
	case "create_bucket":
		bucket, _ := req["bucket"].(string)
		if _, ok := s.buckets[bucket]; !ok {
			s.buckets[bucket] = make(map[string]object)
		}
		return nil, nil
	case "put_object":
		bucket, _ := req["bucket"].(string)
		key, _ := req["key"].(string)
		b, ok := s.buckets[bucket]
		if !ok {
			return nil, fmt.Errorf("bucket %q not found", bucket)
		}
		data, _ := req["data"].(string)
		ct, _ := req["content_type"].(string)
		b[key] = object{content: data, contentType: ct}
		return map[string]any{"key": key}, nil
	case "get_object", "head_object":
		bucket, _ := req["bucket"].(string)
		key, _ := req["key"].(string)
		obj, ok := s.buckets[bucket][key]
		if !ok {
			return nil, fmt.Errorf("object %q not found", key)
		}
		meta := map[string]any{"content_type": obj.contentType}
		if cmd == "head_object" {
			return meta, nil
		}
		return map[string]any{"content": obj.content, "metadata": meta}, nil
	case "delete_object":
		bucket, _ := req["bucket"].(string)
		key, _ := req["key"].(string)
		delete(s.buckets[bucket], key)
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}

func (s *Server) checkUnique(coll string, doc map[string]any) error {
	for _, field := range s.unique[coll] {
		v, ok := doc[field]
		if !ok {
			continue
		}
		for _, d := range s.collections[coll] {
			if reflect.DeepEqual(d[field], v) {
				return fmt.Errorf("duplicate value for unique index on %s", field)
			}
		}
	}
	return nil
}

func (s *Server) find(coll string, query, req map[string]any) []any {
	docs := make([]map[string]any, 0)
	for _, d := range s.collections[coll] {
		if matches(d, query) {
			docs = append(docs, d)
		}
	}
	if sortSpec, ok := req["sort"].(map[string]any); ok {
		for field, dir := range sortSpec {
			desc := dir == float64(-1)
			sort.SliceStable(docs, func(i, j int) bool {
				c, _ := compare(docs[i][field], docs[j][field])
				if desc {
					return c > 0
				}
				return c < 0
			})
		}
	}
	if skip, ok := req["skip"].(float64); ok && int(skip) > 0 {
		if int(skip) >= len(docs) {
			docs = nil
		} else {
			docs = docs[int(skip):]
		}
	}
	if limit, ok := req["limit"].(float64); ok && int(limit) > 0 && int(limit) < len(docs) {
		docs = docs[:int(limit)]
	}
	out := make([]any, 0, len(docs))
	for _, d := range docs {
		out = append(out, clone(d))
	}
	return out
}

func matches(doc, query map[string]any) bool {
	for key, cond := range query {
		if key == "$and" {
			subs, _ := cond.([]any)
			for _, sub := range subs {
				m, _ := sub.(map[string]any)
				if !matches(doc, m) {
					return false
				}
			}
			continue
		}
		val, present := lookup(doc, key)
		ops, isMap := cond.(map[string]any)
		if !isMap || !isOperatorMap(ops) {
			if !present || !reflect.DeepEqual(val, cond) {
				return false
			}
			continue
		}
		for op, arg := range ops {
			if !applyOp(op, val, present, arg) {
				return false
			}
		}
	}
	return true
}

func applyOp(op string, val any, present bool, arg any) bool {
	switch op {
	case "$in":
		list, _ := arg.([]any)
		for _, item := range list {
			if reflect.DeepEqual(val, item) {
				return present
			}
		}
		return false
	case "$ne":
		return !present || !reflect.DeepEqual(val, arg)
	case "$gt", "$gte", "$lt", "$lte":
		if !present {
			return false
		}
		c, ok := compare(val, arg)
		if !ok {
			return false
		}
		switch op {
		case "$gt":
			return c > 0
		case "$gte":
			return c >= 0
		case "$lt":
			return c < 0
		default:
			return c <= 0
		}
	}
	return false
}

func isOperatorMap(m map[string]any) bool {
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return false
		}
	}
	return len(m) > 0
}

func lookup(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func compare(a, b any) (int, bool) {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	}
	return 0, false
}

func clone(d map[string]any) map[string]any {
	raw, _ := json.Marshal(d)
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return out
}
