package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/storyweave/pkg/ports"
	"github.com/jedib0t/go-pretty/v6/table"
)

// ListSessions writes a table of the stored sessions.
func ListSessions(ctx context.Context, w io.Writer, store ports.StateStore) error {
	ids, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("error listing sessions: %w", err)
	}
	if len(ids) == 0 {
		fmt.Fprintln(w, "No active sessions found.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Session", "Graph", "Node", "Status", "Steps"})
	for _, id := range ids {
		state, err := store.Load(ctx, id)
		if err != nil {
			// Expired or removed between List and Load.
			continue
		}
		t.AppendRow(table.Row{id, state.Graph, state.CurrentNodeID, state.Status, len(state.History)})
	}
	t.Render()
	return nil
}

// InspectSession writes the stored state of a session as indented JSON.
func InspectSession(ctx context.Context, w io.Writer, store ports.StateStore, sessionID string) error {
	state, err := store.Load(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("error loading session '%s': %w", sessionID, err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling state: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// RemoveSessions deletes each session, reporting every outcome to w.
// With all set, every stored session is removed and ids are ignored.
func RemoveSessions(ctx context.Context, w io.Writer, store ports.StateStore, ids []string, all bool) error {
	if all {
		listed, err := store.List(ctx)
		if err != nil {
			return fmt.Errorf("error listing sessions: %w", err)
		}
		ids = listed
	}

	var errs []error
	for _, id := range ids {
		if err := store.Delete(ctx, id); err != nil {
			fmt.Fprintf(w, "Error removing '%s': %v\n", id, err)
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(w, "Removed session '%s'\n", id)
	}
	return errors.Join(errs...)
}
