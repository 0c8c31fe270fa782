// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mockapi

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/taibuivan/storeconsole/internal/platform/ctxutil"
	"github.com/taibuivan/storeconsole/internal/platform/respond"
	"github.com/taibuivan/storeconsole/internal/platform/validate"
)

// Audit event types.
const (
	EventLogin                = "LOGIN"
	EventLoginFailed          = "LOGIN_FAILED"
	EventTokenRefresh         = "TOKEN_REFRESH"
	EventPasswordResetRequest = "PASSWORD_RESET_REQUEST"
	EventPasswordReset        = "PASSWORD_RESET"
	EventCreate               = "CREATE"
	EventUpdate               = "UPDATE"
	EventDelete               = "DELETE"
)

var eventTypes = []string{
	EventLogin, EventLoginFailed, EventTokenRefresh, EventPasswordResetRequest,
	EventPasswordReset, EventCreate, EventUpdate, EventDelete,
}

// auditEntry is one row of the audit log.
type auditEntry struct {
	ID        int       `json:"id"`
	UserID    int       `json:"userId,omitempty"`
	EventType string    `json:"tipo_evento"`
	Table     string    `json:"tabla"`
	Record    string    `json:"registro"`
	RequestID string    `json:"requestId,omitempty"`
	At        time.Time `json:"fecha"`
}

type auditLog struct {
	now     func() time.Time
	mu      sync.RWMutex
	entries []auditEntry
}

func newAuditLog(now func() time.Time) *auditLog {
	return &auditLog{now: now}
}

func (log *auditLog) record(userID int, eventType, table, record string) {
	log.append(auditEntry{UserID: userID, EventType: eventType, Table: table, Record: record})
}

func (log *auditLog) append(entry auditEntry) {
	log.mu.Lock()
	defer log.mu.Unlock()

	entry.ID = len(log.entries) + 1
	entry.At = log.now().UTC()
	log.entries = append(log.entries, entry)
}

// auditQuery selects entries. From and To are inclusive calendar days.
type auditQuery struct {
	userID    int
	eventType string
	from, to  time.Time
}

func (log *auditLog) query(q auditQuery) []auditEntry {
	log.mu.RLock()
	defer log.mu.RUnlock()

	out := make([]auditEntry, 0)
	for _, entry := range log.entries {
		if q.userID != 0 && entry.UserID != q.userID {
			continue
		}
		if q.eventType != "" && entry.EventType != q.eventType {
			continue
		}
		if !q.from.IsZero() && entry.At.Before(q.from) {
			continue
		}
		if !q.to.IsZero() && !entry.At.Before(q.to.AddDate(0, 0, 1)) {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// recordChange logs a mutation made by the authenticated caller.
func (api *API) recordChange(request *http.Request, eventType, table, record string) {
	entry := auditEntry{EventType: eventType, Table: table, Record: record, RequestID: ctxutil.GetRequestID(request.Context())}
	if claims := ctxutil.GetAuthUser(request.Context()); claims != nil {
		entry.UserID, _ = strconv.Atoi(claims.Subject)
	}
	api.audit.append(entry)
}

// listAudit handles GET /auditoria?userId=&tipo_evento=&fechaDesde=&fechaHasta=.
func (api *API) listAudit(writer http.ResponseWriter, request *http.Request) {
	params := request.URL.Query()
	validator := &validate.Validator{}

	q := auditQuery{
		userID:    validator.ID("userId", params.Get("userId")),
		eventType: params.Get("tipo_evento"),
		from:      validator.Day("fechaDesde", params.Get("fechaDesde")),
		to:        validator.Day("fechaHasta", params.Get("fechaHasta")),
	}
	if q.eventType != "" {
		validator.OneOf("tipo_evento", q.eventType, eventTypes...)
	}
	validator.Custom("fechaHasta", !q.from.IsZero() && !q.to.IsZero() && q.to.Before(q.from), "Must not be before fechaDesde")

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, api.audit.query(q))
}

func (api *API) auditEventTypes(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, eventTypes)
}
