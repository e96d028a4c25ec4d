package sqlbase

import (
	"fmt"
	"testing"

	qt "github.com/frankban/quicktest"
)

func testDialect() Dialect {
	return Dialect{
		Quote:       func(name string) string { return `"` + name + `"` },
		Placeholder: func(i int) string { return fmt.Sprintf("$%d", i) },
	}
}

func TestRenderSubstitutesTablesAndPlaceholders(t *testing.T) {
	c := qt.New(t)

	b := &Base{dialect: testDialect()}
	got, err := b.render(`SELECT id FROM {} WHERE value = ? AND c0 = ?`, []string{"3:foo|str"})
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, `SELECT id FROM "3:foo|str" WHERE value = $1 AND c0 = $2`)
}

func TestRenderMultipleTables(t *testing.T) {
	c := qt.New(t)

	b := &Base{dialect: testDialect()}
	got, err := b.render(`SELECT id FROM {} INTERSECT SELECT id FROM {}`, []string{"a", "b"})
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, `SELECT id FROM "a" INTERSECT SELECT id FROM "b"`)
}

func TestRenderErrorsOnMissingTable(t *testing.T) {
	c := qt.New(t)

	b := &Base{dialect: testDialect()}
	_, err := b.render(`SELECT id FROM {} INTERSECT SELECT id FROM {}`, []string{"a"})
	c.Assert(err, qt.ErrorMatches, ".*more tables.*")
}

func TestRebindOne(t *testing.T) {
	c := qt.New(t)

	b := &Base{dialect: testDialect()}
	c.Assert(b.rebindOne("SELECT 1 WHERE name = ?"), qt.Equals, "SELECT 1 WHERE name = $1")
}
