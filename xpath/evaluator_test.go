package xpath_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antflow/xmlcore"
	"github.com/antflow/xmlcore/xpath"
)

func mustParse(t *testing.T, s string) *xmlcore.Node {
	t.Helper()
	doc, err := xmlcore.ParseString(s)
	require.NoError(t, err)
	return doc
}

func selectNames(t *testing.T, doc *xmlcore.Node, expr string) []string {
	t.Helper()
	nodes, err := xpath.Select(doc, expr)
	require.NoError(t, err)
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.QName
	}
	return names
}

func TestSelectChildAxis(t *testing.T) {
	doc := mustParse(t, `<root><a>1</a><b>2</b><a>3</a></root>`)
	names := selectNames(t, doc, "/root/a")
	assert.Equal(t, []string{"a", "a"}, names)
}

func TestSelectDescendantAxis(t *testing.T) {
	doc := mustParse(t, `<root><a><b><c/></b></a><c/></root>`)
	names := selectNames(t, doc, "//c")
	assert.Len(t, names, 2)
}

func TestSelectAttributeAxis(t *testing.T) {
	doc := mustParse(t, `<root><a id="1"/><a id="2"/></root>`)
	nodes, err := xpath.Select(doc, "/root/a/@id")
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "1", nodes[0].Data)
	assert.Equal(t, "2", nodes[1].Data)
}

func TestSelectPositionalPredicate(t *testing.T) {
	doc := mustParse(t, `<root><a>1</a><a>2</a><a>3</a></root>`)
	nodes, err := xpath.Select(doc, "/root/a[2]")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "2", nodes[0].InnerText())
}

func TestSelectLastFunction(t *testing.T) {
	doc := mustParse(t, `<root><a>1</a><a>2</a><a>3</a></root>`)
	nodes, err := xpath.Select(doc, "/root/a[last()]")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "3", nodes[0].InnerText())
}

func TestSelectAttributeValuePredicate(t *testing.T) {
	doc := mustParse(t, `<root><a id="x"/><a id="y"/></root>`)
	nodes, err := xpath.Select(doc, `/root/a[@id='y']`)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	v, _ := nodes[0].SelectAttr("id")
	assert.Equal(t, "y", v)
}

func TestSelectUnion(t *testing.T) {
	doc := mustParse(t, `<root><a/><b/><c/></root>`)
	names := selectNames(t, doc, "/root/a | /root/c")
	assert.Equal(t, []string{"a", "c"}, names)
}

func TestSelectWildcard(t *testing.T) {
	doc := mustParse(t, `<root><a/><b/></root>`)
	names := selectNames(t, doc, "/root/*")
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestSelectSelfAndParentAbbrev(t *testing.T) {
	doc := mustParse(t, `<root><a><b/></a></root>`)
	nodes, err := xpath.Select(doc, "/root/a/b/..")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "a", nodes[0].QName)
}

func TestEvalBooleanExpression(t *testing.T) {
	doc := mustParse(t, `<root><a>1</a></root>`)
	c, err := xpath.Compile("count(/root/a) = 1")
	require.NoError(t, err)
	v, err := c.Eval(doc)
	require.NoError(t, err)
	assert.True(t, v.Boolean())
}

func TestEvalArithmetic(t *testing.T) {
	doc := mustParse(t, `<root/>`)
	c, err := xpath.Compile("1 + 2 * 3")
	require.NoError(t, err)
	v, err := c.Eval(doc)
	require.NoError(t, err)
	assert.Equal(t, float64(7), v.Number())
}

func TestEvalUnaryMinusNegates(t *testing.T) {
	doc := mustParse(t, `<root/>`)
	c, err := xpath.Compile("-5")
	require.NoError(t, err)
	v, err := c.Eval(doc)
	require.NoError(t, err)
	assert.Equal(t, float64(-5), v.Number())
}

func TestEvalUnaryPlusIsIdentity(t *testing.T) {
	doc := mustParse(t, `<root/>`)
	c, err := xpath.Compile("+5")
	require.NoError(t, err)
	v, err := c.Eval(doc)
	require.NoError(t, err)
	assert.Equal(t, float64(5), v.Number())
}

func TestEvalStringFunctions(t *testing.T) {
	doc := mustParse(t, `<root>hello</root>`)
	c, err := xpath.Compile(`starts-with(string(/root), 'he')`)
	require.NoError(t, err)
	v, err := c.Eval(doc)
	require.NoError(t, err)
	assert.True(t, v.Boolean())
}

func TestEvalConcat(t *testing.T) {
	doc := mustParse(t, `<root/>`)
	c, err := xpath.Compile(`concat('a', 'b', 'c')`)
	require.NoError(t, err)
	v, err := c.Eval(doc)
	require.NoError(t, err)
	assert.Equal(t, "abc", v.String())
}

func TestEvalNotAndBooleanCoercion(t *testing.T) {
	doc := mustParse(t, `<root><a/></root>`)
	c, err := xpath.Compile("not(/root/missing)")
	require.NoError(t, err)
	v, err := c.Eval(doc)
	require.NoError(t, err)
	assert.True(t, v.Boolean())
}

func TestEvalNodeSetComparisonWithString(t *testing.T) {
	doc := mustParse(t, `<root><a>foo</a><a>bar</a></root>`)
	c, err := xpath.Compile(`/root/a = 'bar'`)
	require.NoError(t, err)
	v, err := c.Eval(doc)
	require.NoError(t, err)
	assert.True(t, v.Boolean())
}

func TestEvalNumberComparisonNaN(t *testing.T) {
	doc := mustParse(t, `<root/>`)
	c, err := xpath.Compile(`number('abc') = number('abc')`)
	require.NoError(t, err)
	v, err := c.Eval(doc)
	require.NoError(t, err)
	assert.False(t, v.Boolean(), "NaN must never equal NaN")
}

func TestEvalLangFunctionMatchesInheritedXMLLangAttribute(t *testing.T) {
	doc := mustParse(t, `<root xml:lang="en-US"><a/></root>`)
	nodes, err := xpath.Select(doc, "/root/a")
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	c, err := xpath.Compile(`lang('en')`)
	require.NoError(t, err)
	v, err := c.Eval(nodes[0])
	require.NoError(t, err)
	assert.True(t, v.Boolean(), "lang('en') should match an inherited xml:lang=\"en-US\"")
}

func TestEvalLangFunctionNoMatch(t *testing.T) {
	doc := mustParse(t, `<root xml:lang="fr"><a/></root>`)
	nodes, err := xpath.Select(doc, "/root/a")
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	c, err := xpath.Compile(`lang('en')`)
	require.NoError(t, err)
	v, err := c.Eval(nodes[0])
	require.NoError(t, err)
	assert.False(t, v.Boolean())
}

func TestEvalOrAndShortCircuitSemantics(t *testing.T) {
	doc := mustParse(t, `<root><a/></root>`)
	c, err := xpath.Compile("1 = 1 or 1 = 2")
	require.NoError(t, err)
	v, err := c.Eval(doc)
	require.NoError(t, err)
	assert.True(t, v.Boolean())

	c2, err := xpath.Compile("1 = 2 and 1 = 1")
	require.NoError(t, err)
	v2, err := c2.Eval(doc)
	require.NoError(t, err)
	assert.False(t, v2.Boolean())
}

func TestCompileSyntaxError(t *testing.T) {
	_, err := xpath.Compile("/root/[")
	assert.Error(t, err)
}

func TestCompileUnknownFunctionErrors(t *testing.T) {
	_, err := xpath.Compile("no-such-function(1)")
	assert.Error(t, err)
}

func TestCompileWrongArityErrors(t *testing.T) {
	_, err := xpath.Compile("true(1)")
	assert.Error(t, err)
}

func TestSelectDocumentOrderDedup(t *testing.T) {
	doc := mustParse(t, `<root><a><b/></a></root>`)
	nodes, err := xpath.Select(doc, "//a | //a/b/..")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "a", nodes[0].QName)
}
