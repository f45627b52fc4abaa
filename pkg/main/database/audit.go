package database

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// AuditLog is one append-only record of a destructive or state-changing
// file operation.
type AuditLog struct {
	ID        string    `db:"id"         json:"id"`
	EntryID   int64     `db:"entry_id"   json:"entry_id"`
	AccountID int64     `db:"account_id" json:"account_id,omitempty"`
	Action    string    `db:"action"     json:"action"`
	Data      string    `db:"data"       json:"data"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Audit actions.
const (
	AuditRename      = "rename"
	AuditMove        = "move"
	AuditDeleteFiles = "delete_files"
	AuditReport      = "report"
	AuditCreateEntry = "create_entry"
)

// NewAudit builds an audit row with a fresh id and the payload serialized
// to JSON.
func NewAudit(entryID int64, action string, payload any) (*AuditLog, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshal audit payload")
	}
	return &AuditLog{
		ID:        uuid.NewString(),
		EntryID:   entryID,
		Action:    action,
		Data:      string(data),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// InsertAudit appends one audit row.
func InsertAudit(row *AuditLog) error {
	_, err := dbData.Exec(
		"insert into audit_log (id, entry_id, account_id, action, data, created_at) values (?, ?, ?, ?, ?, ?)",
		row.ID, row.EntryID, row.AccountID, row.Action, row.Data, row.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "insert audit")
	}
	return nil
}

// QueryAuditForEntry lists the audit rows of one entry, newest first.
func QueryAuditForEntry(entryID int64, limit int) ([]AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []AuditLog
	err := dbData.Select(&rows,
		"select id, entry_id, account_id, action, data, created_at from audit_log where entry_id = ? order by created_at desc limit ?",
		entryID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query audit")
	}
	return rows, nil
}
