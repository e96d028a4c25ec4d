package ddberr_test

import (
	"errors"
	"io"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/shredb/shredb/ddberr"
)

func TestErrorMessages(t *testing.T) {
	c := qt.New(t)

	c.Assert(ddberr.NewFormat("bad %s", "path").Error(), qt.Equals, "format: bad path")
	c.Assert(ddberr.NewStructure("refcount mismatch for %q", "a").Error(), qt.Equals, `structure: refcount mismatch for "a"`)
	c.Assert(ddberr.NewLogic("conflict at %q", "a").Error(), qt.Equals, `logic: conflict at "a"`)
	c.Assert(ddberr.NewFacade("unknown id %q", "x").Error(), qt.Equals, `facade: unknown id "x"`)
}

func TestWrapEngineNilIsNil(t *testing.T) {
	c := qt.New(t)
	c.Assert(ddberr.WrapEngine(nil), qt.IsNil)
}

func TestWrapEngineUnwraps(t *testing.T) {
	c := qt.New(t)

	err := ddberr.WrapEngine(io.ErrUnexpectedEOF)
	c.Assert(err, qt.ErrorMatches, "engine: .*unexpected EOF.*")
	c.Assert(errors.Is(err, io.ErrUnexpectedEOF), qt.IsTrue)

	var ee *ddberr.EngineError
	c.Assert(errors.As(err, &ee), qt.IsTrue)
	c.Assert(ee.Cause, qt.Equals, io.ErrUnexpectedEOF)
}

func TestErrorsAsDiscriminates(t *testing.T) {
	c := qt.New(t)

	var err error = ddberr.NewStructure("boom")

	var se *ddberr.StructureError
	c.Assert(errors.As(err, &se), qt.IsTrue)

	var fe *ddberr.FormatError
	c.Assert(errors.As(err, &fe), qt.IsFalse)
}
