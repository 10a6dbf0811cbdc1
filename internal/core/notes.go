package core

import (
	"fmt"
	"strings"
)

// Note is a free-text operational note.
type Note struct {
	ID      string
	Content string
}

func (n Note) Validate() error {
	if strings.TrimSpace(n.ID) == "" {
		return fmt.Errorf("%w: note without id", ErrMalformedRecord)
	}
	if strings.TrimSpace(n.Content) == "" {
		return ErrEmptyContent
	}
	return nil
}

// NotesBoard holds notes in insertion order.
type NotesBoard struct {
	notes []Note
	newID IDFunc
}

// NewNotesBoard builds a board from stored notes. A nil newID uses NewID.
func NewNotesBoard(newID IDFunc, existing ...Note) (*NotesBoard, error) {
	if newID == nil {
		newID = NewID
	}
	b := &NotesBoard{newID: newID, notes: make([]Note, 0, len(existing))}
	seen := make(map[string]struct{}, len(existing))
	for _, n := range existing {
		if err := n.Validate(); err != nil {
			return nil, fmt.Errorf("load note %s: %w", n.ID, err)
		}
		if _, ok := seen[n.ID]; ok {
			return nil, fmt.Errorf("load note %s: %w", n.ID, ErrDuplicateID)
		}
		seen[n.ID] = struct{}{}
		b.notes = append(b.notes, Note{ID: n.ID, Content: strings.TrimSpace(n.Content)})
	}
	return b, nil
}

// Add stores a new note with trimmed content.
func (b *NotesBoard) Add(content string) (Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Note{}, ErrEmptyContent
	}
	n := Note{ID: b.newID(), Content: content}
	b.notes = append(b.notes, n)
	return n, nil
}

func (b *NotesBoard) Remove(id string) error {
	for i, n := range b.notes {
		if n.ID == id {
			b.notes = append(b.notes[:i], b.notes[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("remove note %s: %w", id, ErrNotFound)
}

// List returns a copy of the notes in insertion order.
func (b *NotesBoard) List() []Note {
	out := make([]Note, len(b.notes))
	copy(out, b.notes)
	return out
}
