// Package structure implements the Structure Layer (spec.md §4.2): the
// lowest-level translation between Field records and the physical
// specification table plus per-field value tables. Nothing in this package
// understands a document as a whole; that is the Logic Layer's job.
package structure

import (
	"context"
	"fmt"

	"github.com/shredb/shredb/condition"
	"github.com/shredb/shredb/ddberr"
	"github.com/shredb/shredb/engine"
	"github.com/shredb/shredb/engine/sqlbase"
	"github.com/shredb/shredb/field"
)

// IDTable is the name of the specification table: one row per
// (object id, untyped path, type) triple actually stored, carrying the
// refcount of rows that back it in the corresponding per-field table.
const IDTable = "id_table"

// Structure is the Structure Layer, bound to a single engine.Engine.
type Structure struct {
	eng engine.Engine
}

// New builds a Structure Layer over eng.
func New(eng engine.Engine) *Structure {
	return &Structure{eng: eng}
}

// ColumnConstraint overrides the column condition DeleteValues would
// otherwise derive from the field itself, used when the caller needs to
// constrain by a different field's index columns.
type ColumnConstraint struct {
	SQL  string
	Args []any
}

// CreateSupportTables creates the specification table if it does not
// already exist.
func (s *Structure) CreateSupportTables(ctx context.Context) error {
	exists, err := s.eng.TableExists(ctx, IDTable)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.createIDTable(ctx)
}

func (s *Structure) createIDTable(ctx context.Context) error {
	if b, ok := s.eng.(interface {
		CreateTable(ctx context.Context, name string, idType string, columns []sqlbase.Column) error
	}); ok {
		return b.CreateTable(ctx, IDTable, s.eng.IDType(), []sqlbase.Column{
			{Name: "field", Type: s.eng.ColumnType("")},
			{Name: "type", Type: s.eng.ColumnType("")},
			{Name: "refcount", Type: s.eng.ColumnType(int64(0))},
		})
	}
	// Fallback for an engine.Engine that doesn't expose sqlbase.Base's
	// CreateTable helper: build the DDL directly through Execute, quoting
	// column names with NameString since Execute's "{}" substitution only
	// covers table identifiers.
	query := fmt.Sprintf(
		"CREATE TABLE {} (id %s, %s %s, %s %s, %s %s)",
		s.eng.IDType(),
		s.eng.NameString("field"), s.eng.ColumnType(""),
		s.eng.NameString("type"), s.eng.ColumnType(""),
		s.eng.NameString("refcount"), s.eng.ColumnType(int64(0)),
	)
	_, err := s.eng.Execute(ctx, query, []string{IDTable}, nil)
	return err
}

// DeleteSpecification removes every trace of id: every per-field table row
// it contributes to (dropping tables that become empty) and its rows in
// the specification table.
func (s *Structure) DeleteSpecification(ctx context.Context, id string) error {
	rows, err := s.eng.Execute(ctx, "SELECT field, type FROM {} WHERE id=?", []string{IDTable}, []any{id})
	if err != nil {
		return err
	}
	defer rows.Close()

	var entries [][2]string
	for rows.Next() {
		var nameNoType, typ string
		if err := rows.Scan(&nameNoType, &typ); err != nil {
			return err
		}
		entries = append(entries, [2]string{nameNoType, typ})
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, e := range entries {
		tag, err := field.ParseType(e[1])
		if err != nil {
			return ddberr.NewStructure("delete specification: %v", err)
		}
		path, err := field.DecodeNameStrNoType(e[0])
		if err != nil {
			return ddberr.NewStructure("delete specification: %v", err)
		}
		tableName := field.NameStr(path, tag)
		exists, err := s.eng.TableExists(ctx, tableName)
		if err != nil {
			return err
		}
		if exists {
			if _, err := s.eng.Execute(ctx, "DELETE FROM {} WHERE id=?", []string{tableName}, []any{id}); err != nil {
				return err
			}
			empty, err := s.eng.TableIsEmpty(ctx, tableName)
			if err != nil {
				return err
			}
			if empty {
				if err := s.eng.DeleteTable(ctx, tableName); err != nil {
					return err
				}
			}
		}
	}

	_, err = s.eng.Execute(ctx, "DELETE FROM {} WHERE id=?", []string{IDTable}, []any{id})
	return err
}

// RepairSupportTables rebuilds the specification table from scratch by
// scanning every per-field table currently on disk and recomputing
// refcounts, per spec.md's repair operation. It is the disaster-recovery
// path: a specification table can always be regenerated from the per-field
// tables, which remain the source of truth for what was actually written.
func (s *Structure) RepairSupportTables(ctx context.Context) error {
	exists, err := s.eng.TableExists(ctx, IDTable)
	if err != nil {
		return err
	}
	if exists {
		if err := s.eng.DeleteTable(ctx, IDTable); err != nil {
			return err
		}
	}
	if err := s.createIDTable(ctx); err != nil {
		return err
	}

	tables, err := s.eng.TablesList(ctx)
	if err != nil {
		return err
	}

	type key struct {
		id, nameNoType, typ string
	}
	counts := map[key]int64{}

	for _, t := range tables {
		if t == IDTable || !field.IsFieldTableName(t) {
			continue
		}
		path, typ, err := field.DecodeNameStr(t)
		if err != nil {
			continue
		}
		nameNoType := field.NameStrNoType(path)

		rows, err := s.eng.Execute(ctx, "SELECT id FROM {}", []string{t}, nil)
		if err != nil {
			return err
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			counts[key{id, nameNoType, typ.String()}]++
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()
	}

	for k, count := range counts {
		_, err := s.eng.Execute(ctx,
			"INSERT INTO {} (id, field, type, refcount) VALUES (?, ?, ?, ?)",
			[]string{IDTable}, []any{k.id, k.nameNoType, k.typ, count})
		if err != nil {
			return err
		}
	}
	return nil
}

// IncreaseRefcount records that one more row in f's per-field table backs
// id's (path, type), inserting a new specification row at refcount 1 the
// first time this (id, path, type) combination is seen.
func (s *Structure) IncreaseRefcount(ctx context.Context, id string, f field.Field) error {
	t, ok := f.EffectiveType()
	if !ok {
		return ddberr.NewStructure("increaseRefcount: field %s has no type", f.Path)
	}
	types, err := s.GetValueTypes(ctx, id, f.Path)
	if err != nil {
		return err
	}
	for _, existing := range types {
		if existing == t {
			_, err := s.eng.Execute(ctx,
				"UPDATE {} SET refcount=refcount+1 WHERE id=? AND field=? AND type=?",
				[]string{IDTable}, []any{id, f.NameStrNoType(), t.String()})
			return err
		}
	}
	_, err = s.eng.Execute(ctx,
		"INSERT INTO {} (id, field, type, refcount) VALUES (?, ?, ?, 1)",
		[]string{IDTable}, []any{id, f.NameStrNoType(), t.String()})
	return err
}

// DecreaseRefcount records that num rows left f's per-field table for id,
// deleting the specification row entirely once its refcount reaches zero.
func (s *Structure) DecreaseRefcount(ctx context.Context, id string, f field.Field, num int64) error {
	t, ok := f.EffectiveType()
	if !ok {
		return ddberr.NewStructure("decreaseRefcount: field %s has no type", f.Path)
	}
	rows, err := s.eng.Execute(ctx,
		"SELECT refcount FROM {} WHERE id=? AND field=? AND type=?",
		[]string{IDTable}, []any{id, f.NameStrNoType(), t.String()})
	if err != nil {
		return err
	}
	defer rows.Close()
	if !rows.Next() {
		return ddberr.NewStructure("decreaseRefcount: no specification row for %s (%s) on %s", f.Path, t, id)
	}
	var cur int64
	if err := rows.Scan(&cur); err != nil {
		return err
	}
	rows.Close()

	if cur <= num {
		_, err := s.eng.Execute(ctx,
			"DELETE FROM {} WHERE id=? AND field=? AND type=?",
			[]string{IDTable}, []any{id, f.NameStrNoType(), t.String()})
		return err
	}
	_, err = s.eng.Execute(ctx,
		"UPDATE {} SET refcount=refcount-? WHERE id=? AND field=? AND type=?",
		[]string{IDTable}, []any{num, id, f.NameStrNoType(), t.String()})
	return err
}

// GetValueTypes returns every type currently stored for id at path,
// regardless of any concrete index values a caller's field happened to
// carry (the specification table keys on the wildcarded, untyped path).
func (s *Structure) GetValueTypes(ctx context.Context, id string, path field.Path) ([]field.Type, error) {
	rows, err := s.eng.Execute(ctx,
		"SELECT type FROM {} WHERE id=? AND field=?",
		[]string{IDTable}, []any{id, field.NameStrNoType(path)})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []field.Type
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		t, err := field.ParseType(s)
		if err != nil {
			return nil, ddberr.NewStructure("getValueTypes: %v", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetFieldsList returns every field stored for id whose path is a proper
// descendant of prefix (or every field stored for id, if prefix is nil),
// each as a bare (no value, no type) Field. When prefix is non-nil and
// includeSelf is true, prefix itself is appended as a final bare entry
// (matching getFieldsList's default exclude_self=False): callers that need
// to delete or enumerate types for a whole subtree, including its root,
// want this; callers enumerating only genuine children pass
// includeSelf=false.
//
// Matching is done in Go against the decoded specification-table rows
// rather than via a dialect regexp against field, since the netstring path
// encoding isn't a simple delimiter-joined string a SQL LIKE/regexp could
// usefully match a prefix of.
func (s *Structure) GetFieldsList(ctx context.Context, id string, prefix *field.Path, includeSelf bool) ([]field.Field, error) {
	rows, err := s.eng.Execute(ctx, "SELECT DISTINCT field, type FROM {} WHERE id=?", []string{IDTable}, []any{id})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []field.Field
	for rows.Next() {
		var nameNoType, typ string
		if err := rows.Scan(&nameNoType, &typ); err != nil {
			return nil, err
		}
		decoded, err := field.DecodeNameStrNoType(nameNoType)
		if err != nil {
			return nil, ddberr.NewStructure("getFieldsList: %v", err)
		}
		t, err := field.ParseType(typ)
		if err != nil {
			return nil, ddberr.NewStructure("getFieldsList: %v", err)
		}

		if prefix == nil {
			out = append(out, field.NewPath(decoded).WithType(t))
			continue
		}
		// Compare untyped name strings, which fold concrete indices and
		// wildcards alike, so a concrete-index prefix matches wildcarded rows.
		if len(decoded) <= len(*prefix) || field.NameStrNoType(decoded[:len(*prefix)]) != field.NameStrNoType(*prefix) {
			continue
		}
		// Graft prefix's own (possibly concrete) leading elements back
		// onto the decoded, wildcarded path.
		grafted := prefix.Concat(decoded[len(*prefix):])
		out = append(out, field.NewPath(grafted).WithType(t))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if prefix != nil && includeSelf {
		out = append(out, field.NewPath(*prefix))
	}
	return out, nil
}

// GetRawFieldsInfo returns every (path, type) pair stored for id, each as
// a bare typed Field with its path fully wildcarded at every integer
// position (the specification table's own granularity).
func (s *Structure) GetRawFieldsInfo(ctx context.Context, id string) ([]field.Field, error) {
	return s.GetFieldsInfo(ctx, id, nil)
}

// GetFieldsInfo returns the specification-table rows for id, one Field per
// (path, type) row. If masks is non-nil, only rows whose wildcarded path
// has the same untyped name string as one of the masks (so every index
// position, concrete or wildcard, matches any stored index) are returned,
// and the returned
// Field's path is replaced by the matching mask's own path (so a caller's
// concrete index positions are preserved in the result, while unconstrained
// positions remain wildcards).
func (s *Structure) GetFieldsInfo(ctx context.Context, id string, masks []field.Field) ([]field.Field, error) {
	rows, err := s.eng.Execute(ctx, "SELECT field, type FROM {} WHERE id=?", []string{IDTable}, []any{id})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []field.Field
	for rows.Next() {
		var nameNoType, typ string
		if err := rows.Scan(&nameNoType, &typ); err != nil {
			return nil, err
		}
		decoded, err := field.DecodeNameStrNoType(nameNoType)
		if err != nil {
			return nil, ddberr.NewStructure("getFieldsInfo: %v", err)
		}
		t, err := field.ParseType(typ)
		if err != nil {
			return nil, ddberr.NewStructure("getFieldsInfo: %v", err)
		}

		if masks == nil {
			out = append(out, field.NewPath(decoded).WithType(t))
			continue
		}
		for _, m := range masks {
			if nameNoType == m.NameStrNoType() {
				out = append(out, field.NewPath(m.Path).WithType(t))
				break
			}
		}
	}
	return out, rows.Err()
}

// ObjectExists reports whether id has any specification-table row at all.
func (s *Structure) ObjectExists(ctx context.Context, id string) (bool, error) {
	rows, err := s.eng.Execute(ctx, "SELECT COUNT(*) FROM {} WHERE id=?", []string{IDTable}, []any{id})
	if err != nil {
		return false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return false, nil
	}
	var count int64
	if err := rows.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// ObjectHasField reports whether id has a value stored at f's path (at its
// concrete indices), in any type. Descendants of the path are not checked;
// for the empty path it reports whether the object exists at all.
func (s *Structure) ObjectHasField(ctx context.Context, id string, f field.Field) (bool, error) {
	if len(f.Path) == 0 {
		return s.ObjectExists(ctx, id)
	}
	types, err := s.GetValueTypes(ctx, id, f.Path)
	if err != nil {
		return false, err
	}
	for _, t := range types {
		typed := f.WithType(t)
		tableName := typed.NameStr()
		exists, err := s.eng.TableExists(ctx, tableName)
		if err != nil {
			return false, err
		}
		if !exists {
			continue
		}
		cond, args := typed.ColumnCondition()
		rows, err := s.eng.Execute(ctx, "SELECT COUNT(*) FROM {} WHERE id=?"+cond, []string{tableName}, append([]any{id}, args...))
		if err != nil {
			return false, err
		}
		var count int64
		if rows.Next() {
			if err := rows.Scan(&count); err != nil {
				rows.Close()
				return false, err
			}
		}
		rows.Close()
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}

// AssureFieldTable creates f's per-field table if it doesn't already
// exist. f must carry a type (and, to size the value column usefully, a
// value, though a zero-value sample suffices).
func (s *Structure) AssureFieldTable(ctx context.Context, f field.Field) error {
	t, ok := f.EffectiveType()
	if !ok {
		return ddberr.NewStructure("assureFieldTable: field %s has no type", f.Path)
	}
	tableName := field.NameStr(f.Path, t)
	exists, err := s.eng.TableExists(ctx, tableName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	colNames := f.ColumnNames()
	if b, ok := s.eng.(interface {
		CreateTable(ctx context.Context, name string, idType string, columns []sqlbase.Column) error
	}); ok {
		cols := make([]sqlbase.Column, 0, 1+len(colNames))
		cols = append(cols, sqlbase.Column{Name: "value", Type: s.eng.ColumnType(sampleForType(t))})
		for _, c := range colNames {
			cols = append(cols, sqlbase.Column{Name: c, Type: s.eng.ColumnType(int64(0))})
		}
		return b.CreateTable(ctx, tableName, s.eng.IDType(), cols)
	}

	var cols string
	cols += fmt.Sprintf(", %s %s", s.eng.NameString("value"), s.eng.ColumnType(sampleForType(t)))
	for _, c := range colNames {
		cols += fmt.Sprintf(", %s %s", s.eng.NameString(c), s.eng.ColumnType(int64(0)))
	}
	query := fmt.Sprintf("CREATE TABLE {} (id %s%s)", s.eng.IDType(), cols)
	_, err = s.eng.Execute(ctx, query, []string{tableName}, nil)
	return err
}

func sampleForType(t field.Type) any {
	switch t {
	case field.TypeStr:
		return ""
	case field.TypeInt:
		return int64(0)
	case field.TypeFloat:
		return float64(0)
	case field.TypeBytes:
		return []byte{}
	default:
		return nil
	}
}

// AddValueRecord writes a new row in f's per-field table. f must carry a
// fully-determined path and a value.
func (s *Structure) AddValueRecord(ctx context.Context, id string, f field.Field) error {
	if !f.HasValue {
		return ddberr.NewStructure("addValueRecord: field %s has no value", f.Path)
	}
	colVals, err := f.ColumnValues()
	if err != nil {
		return ddberr.NewStructure("addValueRecord: %v", err)
	}
	colNames := f.ColumnNames()

	placeholders := "?, ?"
	args := []any{id, f.Value.Raw()}
	cols := "id, value"
	for i, c := range colNames {
		cols += ", " + c
		placeholders += ", ?"
		args = append(args, colVals[i])
	}
	query := fmt.Sprintf("INSERT INTO {} (%s) VALUES (%s)", cols, placeholders)
	_, err = s.eng.Execute(ctx, query, []string{f.NameStr()}, args)
	return err
}

// GetFieldValue reads every row of f's per-field table matching f's
// concrete index positions, returning one concrete Field per row with its
// wildcard positions resolved from the row's own index columns.
func (s *Structure) GetFieldValue(ctx context.Context, id string, f field.Field) ([]field.Field, error) {
	t, ok := f.EffectiveType()
	if !ok {
		return nil, ddberr.NewStructure("getFieldValue: field %s has no type", f.Path)
	}
	tableName := field.NameStr(f.Path, t)
	exists, err := s.eng.TableExists(ctx, tableName)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	colNames := f.ColumnNames()
	selectCols := "value"
	for _, c := range colNames {
		selectCols += ", " + c
	}
	cond, args := f.ColumnCondition()
	query := fmt.Sprintf("SELECT %s FROM {} WHERE id=?%s", selectCols, cond)
	rows, err := s.eng.Execute(ctx, query, []string{tableName}, append([]any{id}, args...))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []field.Field
	for rows.Next() {
		dest := make([]any, 1+len(colNames))
		var raw any
		dest[0] = &raw
		colVals := make([]int64, len(colNames))
		for i := range colNames {
			dest[1+i] = &colVals[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		val, err := valueFromRaw(t, raw)
		if err != nil {
			return nil, err
		}
		path := f.DeterminedName(colVals)
		out = append(out, field.NewValue(path, val))
	}
	return out, rows.Err()
}

func valueFromRaw(t field.Type, raw any) (field.Value, error) {
	switch t {
	case field.TypeStr:
		switch x := raw.(type) {
		case string:
			return field.Str(x), nil
		case []byte:
			return field.Str(string(x)), nil
		}
	case field.TypeInt:
		switch x := raw.(type) {
		case int64:
			return field.Int(x), nil
		case int:
			return field.Int(int64(x)), nil
		}
	case field.TypeFloat:
		if x, ok := raw.(float64); ok {
			return field.Float(x), nil
		}
	case field.TypeBytes:
		if x, ok := raw.([]byte); ok {
			return field.Bytes(x), nil
		}
	default:
		return field.Value{Type: t}, nil
	}
	return field.Value{}, ddberr.NewStructure("getFieldValue: unexpected driver value %T for type %s", raw, t)
}

// DeleteValues deletes every row of f's per-field table(s) matching either
// f's own column condition (if override is nil) or override, decreasing
// the corresponding refcounts and dropping tables left empty. f need not
// carry a type: every type currently stored for f.Path is considered.
func (s *Structure) DeleteValues(ctx context.Context, id string, f field.Field, override *ColumnConstraint) error {
	types, err := s.GetValueTypes(ctx, id, f.Path)
	if err != nil {
		return err
	}
	for _, t := range types {
		typed := f.WithType(t)
		tableName := typed.NameStr()
		exists, err := s.eng.TableExists(ctx, tableName)
		if err != nil {
			return err
		}
		if !exists {
			continue
		}

		cond, args := typed.ColumnCondition()
		if override != nil {
			cond, args = override.SQL, override.Args
		}

		rows, err := s.eng.Execute(ctx, "SELECT COUNT(*) FROM {} WHERE id=?"+cond, []string{tableName}, append([]any{id}, args...))
		if err != nil {
			return err
		}
		var count int64
		if rows.Next() {
			if err := rows.Scan(&count); err != nil {
				rows.Close()
				return err
			}
		}
		rows.Close()
		if count == 0 {
			continue
		}

		if err := s.DecreaseRefcount(ctx, id, typed, count); err != nil {
			return err
		}
		if _, err := s.eng.Execute(ctx, "DELETE FROM {} WHERE id=?"+cond, []string{tableName}, append([]any{id}, args...)); err != nil {
			return err
		}
		empty, err := s.eng.TableIsEmpty(ctx, tableName)
		if err != nil {
			return err
		}
		if empty {
			if err := s.eng.DeleteTable(ctx, tableName); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetMaxListIndex returns the largest concrete index currently stored at
// mask's final (wildcard) position, across every type f may hold there, or
// nil if the list is empty (no such index stored at all).
func (s *Structure) GetMaxListIndex(ctx context.Context, id string, mask field.Field) (*int64, error) {
	colName, _, ok := mask.LastIndexColumn()
	if !ok {
		return nil, ddberr.NewStructure("getMaxListIndex: field %s has no index position", mask.Path)
	}

	fields, err := s.GetFieldsInfo(ctx, id, []field.Field{mask})
	if err != nil {
		return nil, err
	}

	var max int64
	found := false
	for _, fld := range fields {
		tableName := fld.NameStr()
		exists, err := s.eng.TableExists(ctx, tableName)
		if err != nil {
			return nil, err
		}
		if !exists {
			continue
		}
		cond, args := fld.ColumnCondition()
		query := fmt.Sprintf("SELECT MAX(%s) FROM {} WHERE id=?%s", colName, cond)
		rows, err := s.eng.Execute(ctx, query, []string{tableName}, append([]any{id}, args...))
		if err != nil {
			return nil, err
		}
		var val *int64
		if rows.Next() {
			if err := rows.Scan(&val); err != nil {
				rows.Close()
				return nil, err
			}
		}
		rows.Close()
		if val != nil && (!found || *val > max) {
			max = *val
			found = true
		}
	}
	if !found {
		return nil, nil
	}
	return &max, nil
}

// RenumberList shifts by shift the index stored at target's final index
// position, for every field and type currently stored as a descendant of
// target (including target's own per-element values, if target's list
// holds scalars directly), constrained to rows whose value at that
// position is >= the start bound carried by target.
func (s *Structure) RenumberList(ctx context.Context, id string, target field.Path, shift int64) error {
	colName, startVal, ok := fieldLastIndexColumn(target)
	if !ok {
		return ddberr.NewStructure("renumberList: path %s has no index position", target)
	}
	wildcarded := target.Clone()
	wildcarded[lastIndexPosition(target)] = field.Wildcard()
	prefixCond, prefixArgs := field.NewPath(wildcarded).ColumnCondition()

	descendants, err := s.GetFieldsList(ctx, id, &target, true)
	if err != nil {
		return err
	}

	for _, desc := range descendants {
		var types []field.Type
		if desc.HasType {
			types = []field.Type{desc.Type}
		} else {
			ts, err := s.GetValueTypes(ctx, id, desc.Path)
			if err != nil {
				return err
			}
			types = ts
		}
		for _, t := range types {
			typed := desc.WithType(t)
			tableName := typed.NameStr()
			exists, err := s.eng.TableExists(ctx, tableName)
			if err != nil {
				return err
			}
			if !exists {
				continue
			}
			query := fmt.Sprintf("UPDATE {} SET %s=%s+? WHERE id=?%s AND %s>=?", colName, colName, prefixCond, colName)
			args := append([]any{shift, id}, prefixArgs...)
			args = append(args, startVal)
			if _, err := s.eng.Execute(ctx, query, []string{tableName}, args); err != nil {
				return err
			}
		}
	}
	return nil
}

func lastIndexPosition(p field.Path) int {
	last := -1
	for i, e := range p {
		if e.Kind != field.KindString {
			last = i
		}
	}
	return last
}

func fieldLastIndexColumn(p field.Path) (name string, value int64, ok bool) {
	pos := -1
	count := 0
	for i, e := range p {
		if e.Kind != field.KindString {
			pos = i
			count++
		}
	}
	if pos < 0 {
		return "", 0, false
	}
	if p[pos].Kind != field.KindInt {
		return fmt.Sprintf("c%d", count-1), 0, false
	}
	return fmt.Sprintf("c%d", count-1), int64(p[pos].Int), true
}

// SQLQuery is the result of compiling a condition tree into a single SQL
// set-algebra expression: a query template using "{}" for the tables
// listed, in order, and "?" for the values listed, in order. IsNull
// reports that the condition is provably unsatisfiable (e.g. a leaf that
// requires a per-field table that doesn't exist), short-circuiting the
// caller to an empty result without ever issuing the query.
type SQLQuery struct {
	Query  string
	Tables []string
	Values []any
	IsNull bool
}

// BuildSqlQuery compiles cond (already NOT-propagated via
// condition.PropagateInversion) into an SQLQuery selecting the set of
// object ids satisfying it, using INTERSECT/UNION for AND/OR and an
// EXCEPT-against-id_table rewrite for inverted leaves ("field absent or
// doesn't match" includes objects that never had the field at all). A nil
// cond compiles to "every object id that exists". existingTables is the
// set of per-field table names (field.NameStr values) known to exist;
// leaves addressing a table outside this set are resolved without ever
// touching the database (the empty set for a positive leaf, "every id" for
// an inverted one).
func (s *Structure) BuildSqlQuery(cond *condition.Condition, existingTables map[string]bool) (SQLQuery, error) {
	if cond == nil {
		return SQLQuery{Query: "SELECT DISTINCT id FROM {}", Tables: []string{IDTable}}, nil
	}

	if !cond.Leaf {
		left, err := s.BuildSqlQuery(cond.Left, existingTables)
		if err != nil {
			return SQLQuery{}, err
		}
		right, err := s.BuildSqlQuery(cond.Right, existingTables)
		if err != nil {
			return SQLQuery{}, err
		}
		if left.IsNull && right.IsNull {
			return SQLQuery{IsNull: true}, nil
		}
		if left.IsNull {
			if cond.Operator == condition.And {
				return SQLQuery{IsNull: true}, nil
			}
			return right, nil
		}
		if right.IsNull {
			if cond.Operator == condition.And {
				return SQLQuery{IsNull: true}, nil
			}
			return left, nil
		}
		setOp := "UNION"
		if cond.Operator == condition.And {
			setOp = "INTERSECT"
		}
		query := fmt.Sprintf("SELECT * FROM (%s) AS t1 %s SELECT * FROM (%s) AS t2", left.Query, setOp, right.Query)
		return SQLQuery{
			Query:  query,
			Tables: append(append([]string{}, left.Tables...), right.Tables...),
			Values: append(append([]any{}, left.Values...), right.Values...),
		}, nil
	}

	t, ok := cond.Field.EffectiveType()
	if !ok {
		return SQLQuery{}, ddberr.NewStructure("buildSqlQuery: leaf field %s has no type", cond.Field.Path)
	}
	tableName := field.NameStr(cond.Field.Path, t)
	if !existingTables[tableName] {
		if cond.Invert {
			return SQLQuery{Query: "SELECT DISTINCT id FROM {}", Tables: []string{IDTable}}, nil
		}
		return SQLQuery{IsNull: true}, nil
	}

	cmp, err := comparatorSQL(cond.Comparator, s.eng.RegexpOp())
	if err != nil {
		return SQLQuery{}, err
	}
	not := ""
	if cond.Invert {
		not = "NOT "
	}
	colCond, colArgs := cond.Field.ColumnCondition()
	query := fmt.Sprintf("SELECT DISTINCT id FROM {} WHERE %svalue %s ?%s", not, cmp, colCond)
	tables := []string{tableName}
	values := append([]any{cond.Literal.Raw()}, colArgs...)

	if cond.Invert {
		query += " UNION SELECT id FROM ((SELECT DISTINCT id FROM {}) EXCEPT (SELECT DISTINCT id FROM {})) AS t"
		tables = append(tables, IDTable, tableName)
	}
	return SQLQuery{Query: query, Tables: tables, Values: values}, nil
}

func comparatorSQL(c condition.Comparator, regexpOp string) (string, error) {
	switch c {
	case condition.Eq:
		return "=", nil
	case condition.Regexp:
		return regexpOp, nil
	case condition.Lt:
		return "<", nil
	case condition.Gt:
		return ">", nil
	case condition.Lte:
		return "<=", nil
	case condition.Gte:
		return ">=", nil
	default:
		return "", ddberr.NewStructure("buildSqlQuery: unknown comparator %s", c)
	}
}
