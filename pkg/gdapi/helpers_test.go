package gdapi_test

import (
	"context"
	"net/url"
	"sync"

	"github.com/fivetwenty-io/gdapi/pkg/gdapi"
)

// recordedCall is one Request made against fakeClient.
type recordedCall struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// fakeClient satisfies gdapi.Client without any transport. Requests are
// recorded and answered with a Resource echoing the call.
type fakeClient struct {
	id    string
	throw bool

	mu    sync.Mutex
	calls []recordedCall
}

func newFakeClient(id string, throw bool) *fakeClient {
	return &fakeClient{id: id, throw: throw}
}

func (f *fakeClient) ID() string      { return f.id }
func (f *fakeClient) BaseURL() string { return "https://api.example.com/v1" }

func (f *fakeClient) Request(_ context.Context, method, path string, query url.Values, body any, _ string) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, recordedCall{Method: method, Path: path, Query: query, Body: body})

	return gdapi.NewResource(f.id, map[string]any{"method": method, "path": path}), nil
}

func (f *fakeClient) Type(string) (*gdapi.Type, error) { return nil, nil }
func (f *fakeClient) Types() map[string]*gdapi.Type    { return nil }
func (f *fakeClient) Classify(data any) any            { return data }
func (f *fakeClient) Meta() *gdapi.RequestMeta         { return nil }
func (f *fakeClient) Options() *gdapi.Options          { return gdapi.DefaultOptions() }
func (f *fakeClient) Close()                           {}

func (f *fakeClient) Signal(message string, status any, details any) (any, error) {
	if !f.throw {
		return details, nil
	}

	return nil, gdapi.NewAPIError(message, status, details)
}

func (f *fakeClient) lastCall() recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.calls) == 0 {
		return recordedCall{}
	}

	return f.calls[len(f.calls)-1]
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.calls)
}

type logEntry struct {
	Level   string
	Message string
	Fields  map[string]interface{}
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) record(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, logEntry{Level: level, Message: msg, Fields: fields})
}

func (l *recordingLogger) Debug(msg string, fields map[string]interface{}) {
	l.record("debug", msg, fields)
}

func (l *recordingLogger) Info(msg string, fields map[string]interface{}) {
	l.record("info", msg, fields)
}

func (l *recordingLogger) Warn(msg string, fields map[string]interface{}) {
	l.record("warn", msg, fields)
}

func (l *recordingLogger) Error(msg string, fields map[string]interface{}) {
	l.record("error", msg, fields)
}

func (l *recordingLogger) all() []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]logEntry(nil), l.entries...)
}
