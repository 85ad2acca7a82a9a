package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/humexxx/tech9-parserdf/internal/client"
	"github.com/humexxx/tech9-parserdf/internal/observability"
	"github.com/humexxx/tech9-parserdf/internal/parsing"
	"github.com/humexxx/tech9-parserdf/internal/sections"
	"github.com/humexxx/tech9-parserdf/internal/types"
)

// Status is the processing state of one file in preview
type Status string

// Entry statuses. An entry leaves StatusLoading exactly once.
const (
	StatusLoading   Status = "loading"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Entry is a snapshot of one file's processing state
type Entry struct {
	FileName         string
	OriginalFileName string
	Status           Status
	Format           types.Layout
	Data             *types.StructuredResume
	ErrorMessage     string
	HiddenSections   types.HiddenSections
	ResumeID         *uuid.UUID
}

// entry is the mutable state behind an Entry, guarded by Session.mu
type entry struct {
	Entry
	upload []byte

	// dispatched numbers each autosave; applied is the newest one whose
	// response has been accepted.
	dispatched uint64
	applied    uint64
	creating   bool
	dirty      bool
}

func (e *entry) snapshot() Entry {
	out := e.Entry
	out.Data = e.Data.Clone()
	out.HiddenSections = append(types.HiddenSections(nil), e.HiddenSections...)
	if e.ResumeID != nil {
		id := *e.ResumeID
		out.ResumeID = &id
	}
	return out
}

func (e *entry) input() types.ResumeInput {
	in := types.ResumeInput{
		Name:             e.FileName,
		OriginalDocument: dataURL(e.OriginalFileName, e.upload),
		Format:           e.Format,
		HiddenSections:   append(types.HiddenSections{}, e.HiddenSections...),
	}
	if e.Data != nil {
		in.ResumeData = *e.Data.Clone()
	}
	return in
}

// dataURL encodes the source upload the way it is stored with the record
func dataURL(name string, data []byte) string {
	mime := parsing.DetectMIMEType(name, "", data)
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// EventType identifies a session event
type EventType string

// Event types
const (
	EventStatus     EventType = "status"
	EventSaved      EventType = "saved"
	EventSaveFailed EventType = "save_failed"
)

// Event reports progress on one entry
type Event struct {
	Type  EventType
	Index int
	Entry Entry
	Err   error
}

// EventCallback receives session events. Calls are serialized and never made
// with the session lock held.
type EventCallback func(Event)

func (s *Session) emit(events ...Event) {
	if s.cfg.OnEvent == nil {
		return
	}
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	for _, ev := range events {
		s.cfg.OnEvent(ev)
	}
}

// Entries returns a snapshot of every entry in upload order
func (s *Session) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.snapshot()
	}
	return out
}

// Entry returns a snapshot of entry i
func (s *Session) Entry(i int) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.entryLocked(i)
	if err != nil {
		return Entry{}, err
	}
	return e.snapshot(), nil
}

func (s *Session) entryLocked(i int) (*entry, error) {
	if i < 0 || i >= len(s.entries) {
		return nil, &IndexError{Index: i, Len: len(s.entries)}
	}
	return s.entries[i], nil
}

// Preview creates a loading entry for every listed file not yet processed and
// parses them one at a time. Each entry completes or fails as soon as its own
// parse returns; a completed entry is saved right away.
func (s *Session) Preview(ctx context.Context) error {
	s.mu.Lock()
	if s.stage != StagePreview {
		stage := s.stage
		s.mu.Unlock()
		return &StageError{Op: "preview", Stage: stage, Expected: StagePreview}
	}

	gen := s.generation
	var queue []int
	var events []Event
	for _, f := range s.files {
		if s.processed[f.original] {
			continue
		}
		s.processed[f.original] = true
		e := &entry{
			Entry: Entry{
				FileName:         f.name,
				OriginalFileName: f.original,
				Status:           StatusLoading,
				Format:           s.layoutFor(f.name),
			},
			upload: f.data,
		}
		s.entries = append(s.entries, e)
		i := len(s.entries) - 1
		queue = append(queue, i)
		events = append(events, Event{Type: EventStatus, Index: i, Entry: e.snapshot()})
	}
	s.mu.Unlock()
	s.emit(events...)

	for _, i := range queue {
		if !s.process(ctx, gen, i) {
			return nil
		}
	}
	return nil
}

// process parses entry i. It returns false once the session has been reset.
func (s *Session) process(ctx context.Context, gen uint64, i int) bool {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return false
	}
	e := s.entries[i]
	name, data := e.FileName, e.upload
	s.mu.Unlock()

	log := observability.Logger().WithFields(logrus.Fields{"file": name, "index": i})
	resume, err := s.parser.ParseResume(ctx, s.cfg.Provider, name, data)

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		log.Debug("discarding parse result from a reset session")
		return false
	}
	if err != nil {
		e.Status = StatusError
		e.ErrorMessage = errorMessage(err)
		ev := Event{Type: EventStatus, Index: i, Entry: e.snapshot(), Err: err}
		s.mu.Unlock()
		log.WithError(err).Warn("resume parsing failed")
		s.emit(ev)
		return true
	}

	e.Status = StatusCompleted
	e.Data = resume
	e.HiddenSections = sections.DefaultHidden(resume)
	ev := Event{Type: EventStatus, Index: i, Entry: e.snapshot()}
	s.autosaveLocked(gen, i, e)
	s.mu.Unlock()

	log.WithField("hidden", ev.Entry.HiddenSections.Strings()).Info("resume parsed")
	s.emit(ev)
	return true
}

// errorMessage is the text shown for a failed entry
func errorMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Details != "" {
			return apiErr.Details
		}
		return apiErr.Message
	}
	return parsing.NormalizeError(err)
}

// autosaveLocked dispatches a save of e. The first save creates the record;
// edits made while it is in flight are saved once its id is known.
func (s *Session) autosaveLocked(gen uint64, i int, e *entry) {
	if e.ResumeID == nil && e.creating {
		e.dirty = true
		return
	}

	e.dispatched++
	seq := e.dispatched
	in := e.input()
	var id *uuid.UUID
	if e.ResumeID != nil {
		v := *e.ResumeID
		id = &v
	} else {
		e.creating = true
	}

	s.saves.Add(1)
	go func() {
		defer s.saves.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SaveTimeout)
		defer cancel()
		rec, err := s.store.SaveResume(ctx, in, id)

		s.mu.Lock()
		if s.generation != gen {
			s.mu.Unlock()
			return
		}
		if id == nil {
			e.creating = false
		}

		if err != nil {
			ev := Event{Type: EventSaveFailed, Index: i, Entry: e.snapshot(), Err: err}
			s.mu.Unlock()
			observability.Logger().WithField("file", in.Name).WithError(err).Warn("autosave failed")
			s.emit(ev)
			return
		}

		if seq < e.applied {
			s.mu.Unlock()
			return
		}
		e.applied = seq
		e.ResumeID = &rec.ID
		ev := Event{Type: EventSaved, Index: i, Entry: e.snapshot()}
		if e.dirty {
			e.dirty = false
			s.autosaveLocked(gen, i, e)
		}
		s.mu.Unlock()
		s.emit(ev)
	}()
}

// edit applies fn to a completed entry and autosaves it when it has been persisted
func (s *Session) edit(i int, fn func(e *entry) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.entryLocked(i)
	if err != nil {
		return err
	}
	if e.Status != StatusCompleted {
		return &NotReadyError{Files: []string{e.FileName}}
	}
	if !fn(e) {
		return nil
	}
	if e.ResumeID != nil || e.creating {
		s.autosaveLocked(s.generation, i, e)
	}
	return nil
}

// UpdateData replaces the structured data of entry i
func (s *Session) UpdateData(i int, data types.StructuredResume) error {
	return s.edit(i, func(e *entry) bool {
		e.Data = data.Clone()
		return true
	})
}

// HideSection excludes a section from the preview and PDF of entry i
func (s *Session) HideSection(i int, sec types.Section) error {
	if !sec.Hideable() {
		return fmt.Errorf("section %q cannot be hidden", sec)
	}
	return s.edit(i, func(e *entry) bool {
		if e.HiddenSections.Contains(sec) {
			return false
		}
		e.HiddenSections = e.HiddenSections.Hide(sec)
		return true
	})
}

// RestoreSection shows a previously hidden section of entry i again.
// Restoring a section that is not hidden changes nothing and saves nothing.
func (s *Session) RestoreSection(i int, sec types.Section) error {
	return s.edit(i, func(e *entry) bool {
		if !e.HiddenSections.Contains(sec) {
			return false
		}
		e.HiddenSections = e.HiddenSections.Restore(sec)
		return true
	})
}

// RenameEntry changes the display name of entry i, keeping its extension. Blank names are ignored.
func (s *Session) RenameEntry(i int, base string) error {
	return s.edit(i, func(e *entry) bool {
		name, ok := renamed(e.FileName, base)
		if !ok || name == e.FileName {
			return false
		}
		e.FileName = name
		return true
	})
}
