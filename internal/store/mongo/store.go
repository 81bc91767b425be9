// Package mongo provides the event store backed by MongoDB. It consumes
// the structured query representation and translates its conditions to
// bson filters.
package mongo

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/soliform/notifeed/internal/expr"
	"github.com/soliform/notifeed/internal/query"
	"github.com/soliform/notifeed/internal/types"
)

// Store is the MongoDB event store.
type Store struct {
	collection *mongo.Collection
}

// New creates a store over an event collection.
func New(client *mongo.Client, database, collection string) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("client cannot be nil")
	}
	return &Store{collection: client.Database(database).Collection(collection)}, nil
}

// eventDoc is the bson mapping of one event.
type eventDoc struct {
	ID         string         `bson:"_id"`
	Type       string         `bson:"type"`
	Document   string         `bson:"document"`
	Date       time.Time      `bson:"date"`
	GroupID    string         `bson:"group_id"`
	Wiki       string         `bson:"wiki"`
	User       string         `bson:"user"`
	Hidden     bool           `bson:"hidden"`
	Attributes map[string]any `bson:"attributes,omitempty"`
}

// Search implements store.EventStore by compiling the filter with the
// structured backend and translating it to a bson filter.
func (s *Store) Search(ctx context.Context, filter expr.Node, limit int) ([]types.Event, error) {
	q, err := query.CompileStructured(filter)
	if err != nil {
		return nil, err
	}

	bsonFilter, err := makeFilter(q.Conditions)
	if err != nil {
		return nil, err
	}

	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	if len(q.Sorts) > 0 {
		sortDoc := bson.D{}
		for _, clause := range q.Sorts {
			direction := 1
			if clause.Descending {
				direction = -1
			}
			sortDoc = append(sortDoc, bson.E{Key: mapField(clause.Property), Value: direction})
		}
		opts.SetSort(sortDoc)
	}

	cursor, err := s.collection.Find(ctx, bsonFilter, opts)
	if err != nil {
		return nil, fmt.Errorf("executing event query: %w", err)
	}
	defer cursor.Close(ctx)

	var events []types.Event
	for cursor.Next(ctx) {
		var doc eventDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding event: %w", err)
		}
		events = append(events, doc.event())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("reading event cursor: %w", err)
	}
	return events, nil
}

// Insert stores one event. Used by seeding and functional tests.
func (s *Store) Insert(ctx context.Context, e types.Event) error {
	doc := eventDoc{
		ID:         string(e.ID),
		Type:       e.Type,
		Document:   e.Document,
		Date:       e.Date.UTC(),
		GroupID:    e.GroupID,
		Wiki:       e.Wiki,
		User:       e.User,
		Hidden:     e.Hidden,
		Attributes: e.Attributes,
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("inserting event %s: %w", e.ID, err)
	}
	return nil
}

// makeFilter translates the implicit top-level AND of a condition list.
func makeFilter(conditions []query.Condition) (bson.M, error) {
	clauses, err := makeClauses(conditions)
	if err != nil {
		return nil, err
	}
	switch len(clauses) {
	case 0:
		return bson.M{}, nil
	case 1:
		return clauses[0], nil
	default:
		return bson.M{"$and": clauses}, nil
	}
}

func makeClauses(conditions []query.Condition) ([]bson.M, error) {
	clauses := make([]bson.M, 0, len(conditions))
	for _, cond := range conditions {
		clause, err := makeClause(cond)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
	}
	return clauses, nil
}

func makeClause(cond query.Condition) (bson.M, error) {
	switch c := cond.(type) {
	case query.CompareCondition:
		return makeCompare(c)

	case query.GroupCondition:
		clauses, err := makeClauses(c.Conditions)
		if err != nil {
			return nil, err
		}
		if len(clauses) == 0 {
			return bson.M{}, nil
		}
		if c.Or {
			return bson.M{"$or": clauses}, nil
		}
		return bson.M{"$and": clauses}, nil

	case query.InCondition:
		values := make([]any, 0, len(c.Values))
		for _, v := range c.Values {
			value, err := literal(v)
			if err != nil {
				return nil, err
			}
			values = append(values, value)
		}
		op := "$in"
		if c.Negated {
			op = "$nin"
		}
		return bson.M{mapField(c.Property): bson.M{op: values}}, nil

	case query.SubqueryCondition:
		return nil, fmt.Errorf("%w: subquery conditions need a relational backend", types.ErrWrongQueryKind)

	default:
		return nil, fmt.Errorf("%w: unhandled condition %T", types.ErrCompile, cond)
	}
}

func makeCompare(c query.CompareCondition) (bson.M, error) {
	field := mapField(c.Property)

	if c.Op == query.OpStartsWith {
		prefix, ok := c.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: prefix match requires a string literal", types.ErrCompile)
		}
		// QuoteMeta keeps regex metacharacters literal, so the prefix
		// matches exactly.
		return bson.M{field: primitive.Regex{Pattern: "^" + regexp.QuoteMeta(prefix)}}, nil
	}

	value, err := literal(c.Value)
	if err != nil {
		return nil, err
	}

	// An absent field reads as the empty string; null matches missing
	// fields, so the empty-string comparisons include it.
	if s, ok := value.(string); ok && s == "" {
		switch c.Op {
		case query.OpEquals:
			return bson.M{field: bson.M{"$in": []any{"", nil}}}, nil
		case query.OpNotEquals:
			return bson.M{field: bson.M{"$nin": []any{"", nil}}}, nil
		}
	}

	var op string
	switch c.Op {
	case query.OpEquals:
		op = "$eq"
	case query.OpNotEquals:
		op = "$ne"
	case query.OpGreaterOrEquals:
		op = "$gte"
	case query.OpLessOrEquals:
		op = "$lte"
	case query.OpGreater:
		op = "$gt"
	case query.OpLess:
		op = "$lt"
	default:
		return nil, fmt.Errorf("%w: unhandled comparison operator %d", types.ErrCompile, c.Op)
	}
	return bson.M{field: bson.M{op: value}}, nil
}

// literal lowers a condition value. Property references need $expr
// evaluation, which the feed engine never generates; reject them.
func literal(v any) (any, error) {
	switch value := v.(type) {
	case query.PropertyRef:
		return nil, fmt.Errorf("%w: field-to-field comparison is not supported by the mongo backend", types.ErrCompile)
	case query.EntityRef:
		return string(value), nil
	case time.Time:
		return value.UTC(), nil
	default:
		return v, nil
	}
}

func mapField(property string) string {
	switch property {
	case "id":
		return "_id"
	case "type":
		return "type"
	case "document":
		return "document"
	case "date":
		return "date"
	case "groupId":
		return "group_id"
	case "wiki":
		return "wiki"
	case "user":
		return "user"
	case "hidden":
		return "hidden"
	default:
		return "attributes." + property
	}
}

func (d eventDoc) event() types.Event {
	return types.Event{
		ID:         types.EventID(d.ID),
		Type:       d.Type,
		Document:   d.Document,
		Date:       d.Date.UTC(),
		GroupID:    d.GroupID,
		Wiki:       d.Wiki,
		User:       d.User,
		Hidden:     d.Hidden,
		Attributes: d.Attributes,
	}
}
