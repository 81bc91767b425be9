// Package sql provides the relational event store over SQLite and
// PostgreSQL. It consumes the textual query representation: compiled
// WHERE/ORDER fragments are spliced into dotsql-managed base statements
// and executed through sqlx with named parameters.
package sql

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/soliform/notifeed/internal/core/db"
	"github.com/soliform/notifeed/internal/expr"
	"github.com/soliform/notifeed/internal/query"
	"github.com/soliform/notifeed/internal/types"
)

// attributeName restricts attribute property names spliced into JSON
// accessors. Anything else is rejected before it reaches the statement.
var attributeName = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Store is the relational event store.
type Store struct {
	db      *sqlx.DB
	queries *db.Queries
}

// New creates a store over an open connection. Migrations must already
// have been applied.
func New(conn *sqlx.DB) (*Store, error) {
	if conn == nil {
		return nil, fmt.Errorf("conn cannot be nil")
	}
	queries, err := db.LoadQueries(conn)
	if err != nil {
		return nil, err
	}
	return &Store{db: conn, queries: queries}, nil
}

// eventRow is the database mapping of one event.
type eventRow struct {
	ID         string `db:"id"`
	EventType  string `db:"event_type"`
	Document   string `db:"document"`
	EventDate  int64  `db:"event_date"`
	GroupID    string `db:"group_id"`
	Wiki       string `db:"wiki"`
	UserID     string `db:"user_id"`
	Hidden     bool   `db:"hidden"`
	Attributes []byte `db:"attributes"`
}

// Search implements store.EventStore by compiling the filter with the
// textual backend and executing it with named parameters.
func (s *Store) Search(ctx context.Context, filter expr.Node, limit int) ([]types.Event, error) {
	compiled, err := query.CompileTextual(filter, s.mapField)
	if err != nil {
		return nil, err
	}

	base, err := s.queries.Raw("select-events")
	if err != nil {
		return nil, err
	}
	stmt := base + compiled.Statement()
	if limit > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", limit)
	}

	bound, args, err := sqlx.Named(stmt, bindable(compiled.Params))
	if err != nil {
		return nil, fmt.Errorf("binding query parameters: %w", err)
	}

	var rows []eventRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(bound), args...); err != nil {
		return nil, fmt.Errorf("executing event query: %w", err)
	}

	events := make([]types.Event, 0, len(rows))
	for _, row := range rows {
		e, err := row.event()
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

// Insert stores one event. Used by seeding and by functional tests; the
// feed engine itself never writes.
func (s *Store) Insert(ctx context.Context, e types.Event) error {
	var attributes []byte
	if len(e.Attributes) > 0 {
		var err error
		attributes, err = json.Marshal(e.Attributes)
		if err != nil {
			return fmt.Errorf("marshaling event attributes: %w", err)
		}
	}
	_, err := s.queries.ExecContext(ctx, "insert-event",
		string(e.ID), e.Type, e.Document, e.Date.UnixMilli(),
		e.GroupID, e.Wiki, e.User, e.Hidden, attributes)
	if err != nil {
		return fmt.Errorf("inserting event %s: %w", e.ID, err)
	}
	return nil
}

// MarkRead records the user's read status for an event, feeding the
// read-events exclusion subquery.
func (s *Store) MarkRead(ctx context.Context, user string, id types.EventID, read bool) error {
	if _, err := s.queries.ExecContext(ctx, "delete-status", user, string(id)); err != nil {
		return fmt.Errorf("clearing read status: %w", err)
	}
	if _, err := s.queries.ExecContext(ctx, "insert-status", user, string(id), read); err != nil {
		return fmt.Errorf("recording read status: %w", err)
	}
	return nil
}

// mapField translates event property names to column expressions. Unknown
// names address the JSON attribute column.
func (s *Store) mapField(property string) (string, error) {
	switch property {
	case "id":
		return "event.id", nil
	case "type":
		return "event.event_type", nil
	case "document":
		return "event.document", nil
	case "date":
		return "event.event_date", nil
	case "groupId":
		return "event.group_id", nil
	case "wiki":
		return "event.wiki", nil
	case "user":
		return "event.user_id", nil
	case "hidden":
		return "event.hidden", nil
	}

	if !attributeName.MatchString(property) {
		return "", fmt.Errorf("%w: %q", types.ErrUnknownProperty, property)
	}
	// Coalesced so an absent attribute reads as the empty string instead
	// of NULL, which no comparison would match.
	if s.db.DriverName() == "postgres" {
		return "coalesce(event.attributes ->> '" + property + "', '')", nil
	}
	return "coalesce(json_extract(event.attributes, '$." + property + "'), '')", nil
}

// bindable converts compiled parameter values into driver-friendly types.
// Dates are stored as Unix milliseconds, so time parameters bind as the
// same integer representation.
func bindable(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for name, value := range params {
		switch v := value.(type) {
		case time.Time:
			out[name] = v.UnixMilli()
		case query.EntityRef:
			out[name] = string(v)
		default:
			out[name] = value
		}
	}
	return out
}

func (r eventRow) event() (types.Event, error) {
	var attributes map[string]any
	if len(r.Attributes) > 0 {
		if err := json.Unmarshal(r.Attributes, &attributes); err != nil {
			return types.Event{}, fmt.Errorf("unmarshaling attributes of event %s: %w", r.ID, err)
		}
	}
	return types.Event{
		ID:         types.EventID(r.ID),
		Type:       r.EventType,
		Document:   r.Document,
		Date:       time.UnixMilli(r.EventDate).UTC(),
		GroupID:    r.GroupID,
		Wiki:       r.Wiki,
		User:       r.UserID,
		Hidden:     r.Hidden,
		Attributes: attributes,
	}, nil
}
