// Package commands implements the wraptls-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/wraptls/wraptls-go/pkg/log"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	SessionID string
	Direction *log.Direction
	Category  *log.Category
}

// RunView reads the log file and writes matching events to w in a
// human-readable format.
func RunView(path string, filter ViewFilter, w io.Writer) error {
	reader, err := log.NewFilteredReader(path, log.Filter{
		SessionID: filter.SessionID,
		Direction: filter.Direction,
		Category:  filter.Category,
	})
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(w, event)
	}

	return nil
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	id := shortenSessionID(event.SessionID)

	fmt.Fprintf(w, "%s [sess:%s] %-3s %s %s\n",
		ts, id, event.Direction.String(), event.Category.String(), eventTypeLabel(event))

	switch {
	case event.IO != nil:
		formatIODetails(w, event.IO)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

func eventTypeLabel(event log.Event) string {
	switch {
	case event.IO != nil:
		return "IO"
	case event.StateChange != nil:
		return "State"
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// shortenSessionID returns the first 8 characters of the session ID.
func shortenSessionID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatIODetails(w io.Writer, ev *log.IOEvent) {
	fmt.Fprintf(w, "  Requested: %d  Transferred: %d\n", ev.Requested, ev.Transferred)
	var notes []string
	if ev.WouldBlock {
		notes = append(notes, "would-block")
	}
	if ev.NeedsOpposite {
		notes = append(notes, "needs opposite direction")
	}
	if ev.EndOfStream {
		notes = append(notes, "end of stream")
	}
	if len(notes) > 0 {
		fmt.Fprintf(w, "  Outcome: %s\n", strings.Join(notes, ", "))
	}
}

func formatStateChangeDetails(w io.Writer, ev *log.StateChangeEvent) {
	fmt.Fprintf(w, "  %s -> %s\n", ev.OldState, ev.NewState)
	if ev.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", ev.Reason)
	}
}

func formatErrorDetails(w io.Writer, ev *log.ErrorEventData) {
	if ev.Code != 0 {
		fmt.Fprintf(w, "  Code: %#x\n", ev.Code)
	}
	fmt.Fprintf(w, "  Message: %s\n", ev.Message)
}

// ParseDirectionFlag parses a direction flag value.
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (expected in or out)", s)
	}
}

// ParseCategoryFlag parses a category flag value.
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "handshake":
		return log.CategoryHandshake, nil
	case "io":
		return log.CategoryIO, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (expected handshake, io, state, or error)", s)
	}
}
