package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/humexxx/tech9-parserdf/internal/client"
	"github.com/humexxx/tech9-parserdf/internal/llm"
	"github.com/humexxx/tech9-parserdf/internal/parsing"
	"github.com/humexxx/tech9-parserdf/internal/types"
)

var (
	_ Parser       = (*client.Client)(nil)
	_ Store        = (*client.Client)(nil)
	_ Renderer     = (*client.Client)(nil)
	_ LibraryStore = (*client.Client)(nil)
)

// fakeParser answers by file name. It runs the reply through the same
// extraction the server uses, so raw model text can be scripted.
type fakeParser struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	calls   []string

	active    atomic.Int32
	maxActive atomic.Int32
	gate      chan struct{}
	// blocked holds the parse of one file name until its channel is closed
	blocked map[string]chan struct{}
}

func newFakeParser() *fakeParser {
	return &fakeParser{replies: map[string]string{}, errs: map[string]error{}}
}

func (f *fakeParser) ParseResume(_ context.Context, _ llm.Provider, fileName string, _ []byte) (*types.StructuredResume, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		m := f.maxActive.Load()
		if n <= m || f.maxActive.CompareAndSwap(m, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, fileName)
	reply, err := f.replies[fileName], f.errs[fileName]
	gate, block := f.gate, f.blocked[fileName]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	if reply == "" {
		reply = "```json\n{\"name\": \"" + fileName + "\"}\n```"
	}
	return parsing.ExtractStructured(reply)
}

func (f *fakeParser) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// savedCall is one SaveResume invocation
type savedCall struct {
	Input types.ResumeInput
	ID    *uuid.UUID
}

// fakeStore records saves. With hold set, each save waits for a release.
type fakeStore struct {
	mu       sync.Mutex
	saves    []savedCall
	returned map[int]uuid.UUID
	err      error

	// freshIDs makes every save answer with a new id, so responses can be told apart
	freshIDs bool
	hold     bool
	release  []chan struct{}
}

func (f *fakeStore) SaveResume(_ context.Context, in types.ResumeInput, id *uuid.UUID) (*types.ResumeRecord, error) {
	f.mu.Lock()
	f.saves = append(f.saves, savedCall{Input: in, ID: id})
	idx := len(f.saves) - 1
	var wait chan struct{}
	if f.hold {
		wait = make(chan struct{})
		f.release = append(f.release, wait)
	}
	err := f.err
	f.mu.Unlock()

	if wait != nil {
		<-wait
	}
	if err != nil {
		return nil, err
	}

	rec := &types.ResumeRecord{Name: in.Name, ResumeData: in.ResumeData, Format: in.Format, HiddenSections: in.HiddenSections}
	if id != nil && !f.freshIDs {
		rec.ID = *id
	} else {
		rec.ID = uuid.New()
	}
	f.mu.Lock()
	if f.returned == nil {
		f.returned = map[int]uuid.UUID{}
	}
	f.returned[idx] = rec.ID
	f.mu.Unlock()
	return rec, nil
}

// returnedID is the id answered to the i-th save
func (f *fakeStore) returnedID(i int) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.returned[i]
}

func (f *fakeStore) Saves() []savedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]savedCall(nil), f.saves...)
}

// waitForSaves blocks until n saves have been dispatched
func (f *fakeStore) waitForSaves(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return len(f.Saves()) >= n }, waitFor, tick)
}

// releaseSave lets the i-th held save return
func (f *fakeStore) releaseSave(i int) {
	f.mu.Lock()
	ch := f.release[i]
	f.mu.Unlock()
	close(ch)
}

// fakeRenderer records what was requested
type fakeRenderer struct {
	mu       sync.Mutex
	requests []client.PDFRequest
	err      error
	// failOn fails only requests for this file name
	failOn string
}

func (f *fakeRenderer) DownloadPDF(_ context.Context, in client.PDFRequest) (*client.PDF, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, in)
	if f.err != nil {
		return nil, f.err
	}
	if f.failOn != "" && in.FileName == f.failOn {
		return nil, errors.New("render failed")
	}
	return &client.PDF{FileName: in.FileName + ".pdf", Data: []byte("%PDF")}, nil
}

func (f *fakeRenderer) Requests() []client.PDFRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]client.PDFRequest(nil), f.requests...)
}

var errStore = errors.New("store unavailable")
