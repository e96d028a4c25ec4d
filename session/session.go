// Package session implements the YAML wire/session layer (spec.md §6,
// SPEC_FULL.md §4.10): a Table of open connections, addressed by session
// id, driven by YAML request/response documents with a "type"
// discriminator, standing in for the "YAML-over-session" external
// collaborator spec.md describes rather than specifies.
package session

import (
	"context"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/shredb/shredb"
	"github.com/shredb/shredb/condition"
	"github.com/shredb/shredb/config"
	"github.com/shredb/shredb/ddberr"
	"github.com/shredb/shredb/field"
)

// Table maps session ids to open connections.
type Table struct {
	mu       sync.Mutex
	sessions map[uint64]*shreddb.Connection
	nextID   uint64
}

// NewTable builds an empty session table.
func NewTable() *Table {
	return &Table{sessions: map[uint64]*shreddb.Connection{}}
}

// Connect opens a new connection and registers it under a fresh session id.
func (t *Table) Connect(opts *config.Options) (uint64, error) {
	conn, err := shreddb.Open(opts)
	if err != nil {
		return 0, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	id := t.nextID
	t.sessions[id] = conn
	return id, nil
}

// Disconnect closes and forgets the connection for session.
func (t *Table) Disconnect(session uint64) error {
	t.mu.Lock()
	conn, ok := t.sessions[session]
	delete(t.sessions, session)
	t.mu.Unlock()
	if !ok {
		return ddberr.NewFacade("unknown session %d", session)
	}
	return conn.Close()
}

func (t *Table) get(session uint64) (*shreddb.Connection, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	conn, ok := t.sessions[session]
	if !ok {
		return nil, ddberr.NewFacade("unknown session %d", session)
	}
	return conn, nil
}

// envelope is the common shape every request document starts with.
type envelope struct {
	Type    string `yaml:"type"`
	Session uint64 `yaml:"session"`
}

// connectRequest opens a fresh connection; its response is {"session": N}.
type connectRequest struct {
	Dialect         string `yaml:"dialect"`
	DSN             string `yaml:"dsn"`
	RemoveConflicts bool   `yaml:"remove_conflicts"`
}

type idPathRequest struct {
	ID   string `yaml:"id"`
	Path []any  `yaml:"path"`
}

type modifyRequest struct {
	ID              string `yaml:"id"`
	Path            []any  `yaml:"path"`
	Value           any    `yaml:"value"`
	RemoveConflicts *bool  `yaml:"remove_conflicts"`
}

type insertRequest struct {
	ID              string `yaml:"id"`
	Path            []any  `yaml:"path"`
	Values          []any  `yaml:"values"`
	RemoveConflicts *bool  `yaml:"remove_conflicts"`
}

type readRequest struct {
	ID    string  `yaml:"id"`
	Path  []any   `yaml:"path"`
	Masks [][]any `yaml:"masks"`
}

type deleteRequest struct {
	ID    string  `yaml:"id"`
	Paths [][]any `yaml:"paths"`
}

type searchRequest struct {
	Condition []any `yaml:"condition"`
}

type createRequest struct {
	Value any `yaml:"value"`
}

// Dispatch parses one YAML request document, runs it against the
// addressed connection (or against the table itself, for connect/
// disconnect), and returns a YAML-encoded response document.
func (t *Table) Dispatch(ctx context.Context, request []byte) ([]byte, error) {
	var env envelope
	if err := yaml.Unmarshal(request, &env); err != nil {
		return nil, ddberr.NewFormat("malformed request: %v", err)
	}

	switch env.Type {
	case "connect":
		var req connectRequest
		if err := yaml.Unmarshal(request, &req); err != nil {
			return nil, ddberr.NewFormat("malformed connect request: %v", err)
		}
		opts := config.DefaultOptions(config.Dialect(req.Dialect), req.DSN).
			WithRemoveConflictsDefault(req.RemoveConflicts)
		session, err := t.Connect(opts)
		if err != nil {
			return nil, err
		}
		return encode(map[string]any{"session": session})

	case "disconnect":
		if err := t.Disconnect(env.Session); err != nil {
			return nil, err
		}
		return encode(nil)

	case "create":
		conn, err := t.get(env.Session)
		if err != nil {
			return nil, err
		}
		var req createRequest
		if err := yaml.Unmarshal(request, &req); err != nil {
			return nil, ddberr.NewFormat("malformed create request: %v", err)
		}
		id, err := conn.Create(ctx, req.Value)
		if err != nil {
			return nil, err
		}
		return encode(map[string]any{"id": id})

	case "modify":
		conn, err := t.get(env.Session)
		if err != nil {
			return nil, err
		}
		var req modifyRequest
		if err := yaml.Unmarshal(request, &req); err != nil {
			return nil, ddberr.NewFormat("malformed modify request: %v", err)
		}
		path, err := pathFromYAML(req.Path)
		if err != nil {
			return nil, err
		}
		if err := conn.Modify(ctx, req.ID, path, req.Value, req.RemoveConflicts); err != nil {
			return nil, err
		}
		return encode(nil)

	case "insert":
		conn, err := t.get(env.Session)
		if err != nil {
			return nil, err
		}
		var req insertRequest
		if err := yaml.Unmarshal(request, &req); err != nil {
			return nil, ddberr.NewFormat("malformed insert request: %v", err)
		}
		path, err := pathFromYAML(req.Path)
		if err != nil {
			return nil, err
		}
		if err := conn.InsertMany(ctx, req.ID, path, req.Values, req.RemoveConflicts); err != nil {
			return nil, err
		}
		return encode(nil)

	case "read":
		conn, err := t.get(env.Session)
		if err != nil {
			return nil, err
		}
		var req readRequest
		if err := yaml.Unmarshal(request, &req); err != nil {
			return nil, ddberr.NewFormat("malformed read request: %v", err)
		}
		path, err := pathFromYAML(req.Path)
		if err != nil {
			return nil, err
		}
		masks, err := pathsFromYAML(req.Masks)
		if err != nil {
			return nil, err
		}
		doc, err := conn.Read(ctx, req.ID, path, masks)
		if err != nil {
			return nil, err
		}
		return encode(map[string]any{"value": doc})

	case "delete":
		conn, err := t.get(env.Session)
		if err != nil {
			return nil, err
		}
		var req deleteRequest
		if err := yaml.Unmarshal(request, &req); err != nil {
			return nil, ddberr.NewFormat("malformed delete request: %v", err)
		}
		var paths []field.Path
		if req.Paths != nil {
			paths, err = pathsFromYAML(req.Paths)
			if err != nil {
				return nil, err
			}
		}
		if err := conn.DeleteMany(ctx, req.ID, paths); err != nil {
			return nil, err
		}
		return encode(nil)

	case "search":
		conn, err := t.get(env.Session)
		if err != nil {
			return nil, err
		}
		var req searchRequest
		if err := yaml.Unmarshal(request, &req); err != nil {
			return nil, ddberr.NewFormat("malformed search request: %v", err)
		}
		cond, err := conditionFromYAML(req.Condition)
		if err != nil {
			return nil, err
		}
		ids, err := conn.Search(ctx, cond)
		if err != nil {
			return nil, err
		}
		return encode(map[string]any{"ids": ids})

	case "object_exists":
		conn, err := t.get(env.Session)
		if err != nil {
			return nil, err
		}
		var req idPathRequest
		if err := yaml.Unmarshal(request, &req); err != nil {
			return nil, ddberr.NewFormat("malformed object_exists request: %v", err)
		}
		exists, err := conn.ObjectExists(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		return encode(map[string]any{"exists": exists})

	case "dump":
		conn, err := t.get(env.Session)
		if err != nil {
			return nil, err
		}
		entries, err := conn.Dump(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, len(entries))
		for i, e := range entries {
			out[i] = map[string]any{"id": e.ID, "value": e.Doc}
		}
		return encode(map[string]any{"entries": out})

	case "repair":
		conn, err := t.get(env.Session)
		if err != nil {
			return nil, err
		}
		if err := conn.Repair(ctx); err != nil {
			return nil, err
		}
		return encode(nil)

	case "":
		return nil, ddberr.NewFormat("request type is missing")
	default:
		return nil, ddberr.NewFormat("unknown request type: %s", env.Type)
	}
}

func encode(v any) ([]byte, error) {
	out, err := yaml.Marshal(v)
	if err != nil {
		return nil, ddberr.NewFormat("encoding response: %v", err)
	}
	return out, nil
}

// pathFromYAML converts a YAML-decoded path ([]any of strings, ints, or
// nil/"*" wildcard markers) into a field.Path.
func pathFromYAML(elems []any) (field.Path, error) {
	path := make(field.Path, 0, len(elems))
	for _, e := range elems {
		switch v := e.(type) {
		case string:
			if v == "*" {
				path = append(path, field.Wildcard())
				continue
			}
			path = append(path, field.Key(v))
		case int:
			path = append(path, field.Index(v))
		case nil:
			path = append(path, field.Wildcard())
		default:
			return nil, ddberr.NewFormat("path element %v has unsupported type %T", v, v)
		}
	}
	return path, nil
}

func pathsFromYAML(groups [][]any) ([]field.Path, error) {
	out := make([]field.Path, len(groups))
	for i, g := range groups {
		p, err := pathFromYAML(g)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// ConditionFromYAML builds a condition tree from a YAML-decoded search
// condition array, exported so other front ends (the command-line client)
// can reuse the same nested-array grammar without duplicating it.
func ConditionFromYAML(arg []any) (*condition.Condition, error) {
	return conditionFromYAML(arg)
}

// conditionFromYAML builds a condition tree from the nested-array syntax
// [operand1, operator, operand2] (or ["NOT", operand1, operator, operand2]
// to invert), where an operand is itself a condition array (interior node)
// or a 3-element [path, comparator, literal] leaf.
func conditionFromYAML(arg []any) (*condition.Condition, error) {
	if len(arg) == 0 {
		return nil, nil
	}
	invert := false
	shift := 0
	if s, ok := arg[0].(string); ok && s == "NOT" {
		invert = true
		shift = 1
	}
	if len(arg) != 3+shift {
		return nil, ddberr.NewFormat("search condition must have 3 (or 4 with NOT) elements")
	}

	operand1 := arg[shift]
	opRaw, ok := arg[1+shift].(string)
	if !ok {
		return nil, ddberr.NewFormat("search condition operator must be a string")
	}
	operand2 := arg[2+shift]

	cond, err := buildOperand(operand1, opRaw, operand2)
	if err != nil {
		return nil, err
	}
	if invert {
		cond = condition.Not(cond)
	}
	return cond, nil
}

func buildOperand(operand1 any, opRaw string, operand2 any) (*condition.Condition, error) {
	if op, ok := interiorOperator(opRaw); ok {
		left, err := asCondition(operand1)
		if err != nil {
			return nil, err
		}
		right, err := asCondition(operand2)
		if err != nil {
			return nil, err
		}
		return condition.NewInterior(left, op, right)
	}

	cmp, ok := leafComparator(opRaw)
	if !ok {
		return nil, ddberr.NewFormat("unknown search operator %q", opRaw)
	}
	pathElems, ok := operand1.([]any)
	if !ok {
		return nil, ddberr.NewFormat("search leaf field must be a path array")
	}
	path, err := pathFromYAML(pathElems)
	if err != nil {
		return nil, err
	}
	literal, err := field.FromGo(operand2)
	if err != nil {
		return nil, ddberr.NewFormat("search literal: %v", err)
	}
	return condition.NewLeaf(field.NewPath(path), cmp, literal)
}

func asCondition(operand any) (*condition.Condition, error) {
	arr, ok := operand.([]any)
	if !ok {
		return nil, ddberr.NewFormat("search condition operand must be an array")
	}
	return conditionFromYAML(arr)
}

func interiorOperator(s string) (condition.Operator, bool) {
	switch s {
	case "AND":
		return condition.And, true
	case "OR":
		return condition.Or, true
	default:
		return 0, false
	}
}

func leafComparator(s string) (condition.Comparator, bool) {
	switch s {
	case "==":
		return condition.Eq, true
	case "=~":
		return condition.Regexp, true
	case "<":
		return condition.Lt, true
	case ">":
		return condition.Gt, true
	case "<=":
		return condition.Lte, true
	case ">=":
		return condition.Gte, true
	default:
		return 0, false
	}
}
