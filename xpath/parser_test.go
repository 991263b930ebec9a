package xpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileAbsolutePathShape(t *testing.T) {
	c, err := Compile("/root/a")
	require.NoError(t, err)
	path, ok := c.root.(*Path)
	require.True(t, ok, "expected *Path, got %T", c.root)
	assert.True(t, path.Absolute)
	require.Len(t, path.Steps, 2)
	assert.Equal(t, "root", path.Steps[0].Test.Name.Local)
	assert.Equal(t, "a", path.Steps[1].Test.Name.Local)
}

func TestCompileBareSlashIsAbsoluteWithNoSteps(t *testing.T) {
	c, err := Compile("/")
	require.NoError(t, err)
	path, ok := c.root.(*Path)
	require.True(t, ok)
	assert.True(t, path.Absolute)
	assert.Empty(t, path.Steps)
}

func TestCompileDescendantAbbrev(t *testing.T) {
	c, err := Compile("//a")
	require.NoError(t, err)
	path, ok := c.root.(*Path)
	require.True(t, ok)
	require.Len(t, path.Steps, 1)
	assert.Equal(t, PathDescendant, path.Steps[0].Spec)
}

func TestCompileAttributeAxis(t *testing.T) {
	c, err := Compile("/a/@id")
	require.NoError(t, err)
	path := c.root.(*Path)
	require.Len(t, path.Steps, 2)
	assert.True(t, path.Steps[1].Attribute)
	assert.Equal(t, "id", path.Steps[1].Test.Name.Local)
}

func TestCompileWildcardNameTest(t *testing.T) {
	c, err := Compile("/a/*")
	require.NoError(t, err)
	path := c.root.(*Path)
	assert.True(t, path.Steps[1].Test.Name.LocalStar)
}

func TestCompilePredicateAttached(t *testing.T) {
	c, err := Compile("/a[1]")
	require.NoError(t, err)
	path := c.root.(*Path)
	require.Len(t, path.Steps[0].Predicates, 1)
	num, ok := path.Steps[0].Predicates[0].X.(*Num)
	require.True(t, ok)
	assert.Equal(t, float64(1), num.Value)
}

func TestCompileBindingPowerPrecedence(t *testing.T) {
	// "or" binds loosest, so this parses as (1=1) or (2=3 and 4=4)
	c, err := Compile("1=1 or 2=3 and 4=4")
	require.NoError(t, err)
	top, ok := c.root.(*BinaryOp)
	require.True(t, ok)
	assert.Equal(t, tOrKeyword, top.Op)
	right, ok := top.R.(*BinaryOp)
	require.True(t, ok)
	assert.Equal(t, tAndKeyword, right.Op)
}

func TestCompileUnionIsLooserThanPath(t *testing.T) {
	c, err := Compile("/a | /b")
	require.NoError(t, err)
	top, ok := c.root.(*BinaryOp)
	require.True(t, ok)
	assert.Equal(t, tPipe, top.Op)
	_, lok := top.L.(*Path)
	_, rok := top.R.(*Path)
	assert.True(t, lok)
	assert.True(t, rok)
}

func TestCompileUnresolvedFunctionNameErrors(t *testing.T) {
	c, err := Compile("substring-missing(1)")
	assert.Error(t, err)
	_ = c
}

func TestCompileKindTestNode(t *testing.T) {
	c, err := Compile("/a/node()")
	require.NoError(t, err)
	path := c.root.(*Path)
	assert.Equal(t, TestNode, path.Steps[1].Test.Kind)
}

func TestCompileKindTestProcessingInstructionWithLiteral(t *testing.T) {
	c, err := Compile(`/a/processing-instruction('xml-stylesheet')`)
	require.NoError(t, err)
	path := c.root.(*Path)
	require.True(t, path.Steps[1].Test.HasPILiteral)
	assert.Equal(t, "xml-stylesheet", path.Steps[1].Test.PILiteral)
}

func TestCompileSelfAndParentAbbrev(t *testing.T) {
	c, err := Compile("/a/./..")
	require.NoError(t, err)
	path := c.root.(*Path)
	require.Len(t, path.Steps, 3)
	assert.Equal(t, AbbrevSelf, path.Steps[1].Abbrev)
	assert.Equal(t, AbbrevParent, path.Steps[2].Abbrev)
}

func TestCompilePrefixedNameTest(t *testing.T) {
	c, err := Compile("/a/ns:b")
	require.NoError(t, err)
	path := c.root.(*Path)
	assert.Equal(t, "ns", path.Steps[1].Test.Name.Prefix)
	assert.Equal(t, "b", path.Steps[1].Test.Name.Local)
}
