package table

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNoTarget is returned by Confirm when no deletion was requested.
	ErrNoTarget = errors.New("no deletion requested")
	// ErrBusy is returned by Confirm while a deletion is in flight.
	ErrBusy = errors.New("deletion in progress")
)

// DeleteDialog gates a destructive delete behind explicit confirmation.
type DeleteDialog struct {
	mu     sync.Mutex
	target string
	open   bool
	busy   bool
	err    error
}

// Request opens the dialog for id. It never deletes anything.
func (d *DeleteDialog) Request(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.busy {
		return
	}
	d.target = id
	d.open = true
	d.err = nil
}

// Open reports whether the dialog is showing.
func (d *DeleteDialog) Open() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// Target returns the ID awaiting confirmation.
func (d *DeleteDialog) Target() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.target
}

// Busy reports whether the confirmed delete is in flight. The confirm
// control is disabled while busy.
func (d *DeleteDialog) Busy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busy
}

// Err returns the error of the last failed delete.
func (d *DeleteDialog) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Cancel closes the dialog without deleting. It has no effect while busy.
func (d *DeleteDialog) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.busy {
		return
	}
	d.open = false
	d.target = ""
	d.err = nil
}

// Confirm calls del for the requested ID. On success the dialog closes; on
// failure it stays open with Err set and may be confirmed again.
func (d *DeleteDialog) Confirm(ctx context.Context, del func(ctx context.Context, id string) error) error {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return ErrNoTarget
	}
	if d.busy {
		d.mu.Unlock()
		return ErrBusy
	}
	d.busy = true
	id := d.target
	d.mu.Unlock()

	err := del(ctx, id)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.busy = false
	if err != nil {
		d.err = err
		return err
	}
	d.open = false
	d.target = ""
	d.err = nil
	return nil
}

// DialogModel is the renderable state of a DeleteDialog.
type DialogModel struct {
	Open   bool
	Target string
	Busy   bool
	Error  string
}

// Model returns the dialog's renderable state.
func (d *DeleteDialog) Model() DialogModel {
	d.mu.Lock()
	defer d.mu.Unlock()
	m := DialogModel{Open: d.open, Target: d.target, Busy: d.busy}
	if d.err != nil {
		m.Error = d.err.Error()
	}
	return m
}
