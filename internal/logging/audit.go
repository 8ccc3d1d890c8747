package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/automenta/cog-sub003/internal/eventbus"
)

// AuditEntry is one JSON line of the audit trail. It is intentionally
// flat — every field that doesn't apply to a given Kind is left zero —
// so the file stays `jq`-able without per-kind schemas, adapted from the
// teacher's internal/logging/audit.go JSON-lines AuditEvent, minus the
// Mangle-fact generation (there is no Datalog kernel downstream here to
// feed).
type AuditEntry struct {
	Timestamp int64  `json:"ts"`
	Kind      string `json:"kind"`
	Note      string `json:"note,omitempty"`
	ID        string `json:"id,omitempty"`
	KIF       string `json:"kif,omitempty"`
	Level     string `json:"level,omitempty"`
	Message   string `json:"message,omitempty"`
}

// AuditLogger appends one JSON line per subscribed bus event to a file.
// Purely additive: nothing in the core reads it back, and a nil/closed
// AuditLogger is never constructed — callers who don't set an audit path
// simply skip creating one.
type AuditLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewAuditLogger opens (creating/appending) the file at path.
func NewAuditLogger(path string) (*AuditLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open audit log %s: %w", path, err)
	}
	return &AuditLogger{file: f}, nil
}

// Close flushes and closes the underlying file.
func (a *AuditLogger) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}

func (a *AuditLogger) write(e AuditEntry) {
	e.Timestamp = time.Now().UnixMilli()
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.file.Write(data)
	a.file.Write([]byte("\n"))
}

// Subscribe wires every core event kind the reasoner emits onto the
// audit trail: AssertionAdded/Retracted/Evicted, RuleAdded/Removed,
// NoteRemoved, SystemStatus.
func (a *AuditLogger) Subscribe(bus *eventbus.Bus) {
	eventbus.Subscribe(bus, func(e eventbus.AssertionAdded) {
		a.write(AuditEntry{Kind: "assertion_added", Note: e.Note, ID: e.Assertion.ID, KIF: e.Assertion.KIF.String()})
	})
	eventbus.Subscribe(bus, func(e eventbus.AssertionRetracted) {
		a.write(AuditEntry{Kind: "assertion_retracted", Note: e.Note, ID: e.Assertion.ID, KIF: e.Assertion.KIF.String()})
	})
	eventbus.Subscribe(bus, func(e eventbus.AssertionEvicted) {
		a.write(AuditEntry{Kind: "assertion_evicted", Note: e.Note, ID: e.Assertion.ID, KIF: e.Assertion.KIF.String()})
	})
	eventbus.Subscribe(bus, func(e eventbus.RuleAdded) {
		a.write(AuditEntry{Kind: "rule_added", ID: e.Rule.ID, KIF: e.Rule.Form.String()})
	})
	eventbus.Subscribe(bus, func(e eventbus.RuleRemoved) {
		a.write(AuditEntry{Kind: "rule_removed", ID: e.Rule.ID, KIF: e.Rule.Form.String()})
	})
	eventbus.Subscribe(bus, func(e eventbus.NoteRemoved) {
		a.write(AuditEntry{Kind: "note_removed", Note: e.Note})
	})
	eventbus.Subscribe(bus, func(e eventbus.SystemStatus) {
		a.write(AuditEntry{Kind: "system_status", Note: e.Note, Level: statusLevelString(e.Level), Message: e.Message})
	})
}

func statusLevelString(l eventbus.StatusLevel) string {
	switch l {
	case eventbus.StatusWarn:
		return "warn"
	case eventbus.StatusHalt:
		return "halt"
	default:
		return "info"
	}
}
