package toon

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/headerdoc/internal/coverage"
	"github.com/phobologic/headerdoc/internal/extract"
	"github.com/phobologic/headerdoc/internal/lookup"
	"github.com/phobologic/headerdoc/internal/model"
)

func TestEncodeValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", `""`},
		{"simple", "hello", "hello"},
		{"leading space", " hello", `" hello"`},
		{"trailing space", "hello ", `"hello "`},
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"carriage return", "a\rb", `"a\rb"`},
		{"true keyword", "true", `"true"`},
		{"True keyword", "True", `"True"`},
		{"false keyword", "false", `"false"`},
		{"null keyword", "null", `"null"`},
		{"integer", "42", "42"},
		{"negative integer", "-1", "-1"},
		{"float", "3.14", "3.14"},
		{"zero", "0", "0"},
		{"leading zero invalid", "01", "01"},
		{"comma", "a,b", `"a,b"`},
		{"colon", "a:b", `"a:b"`},
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
		{"bracket", "a[b", `"a[b"`},
		{"brace", "a{b", `"a{b"`},
		{"dash prefix", "-foo", `"-foo"`},
		{"path", "include/lib.h", "include/lib.h"},
		{"qualified name", "ns::Widget", `"ns::Widget"`},
		{"signature with comma", "(const QString&, int) const", `"(const QString&, int) const"`},
		{"arglist", "(int) const", "(int) const"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, encodeValue(tt.in))
		})
	}
}

func report(t *testing.T) *model.Report {
	t.Helper()
	good := extract.File(context.Background(), "a.h", []byte(`/// A shape.
class Shape {
public:
    /// Area.
    double area() const;
    void scale(int);
    void scale(double);
};
#define PI 3
`), extract.Options{CommentGap: -1})
	require.NoError(t, good.Err)
	bad := extract.File(context.Background(), "b.h", []byte("class B {\n"), extract.Options{})
	require.Error(t, bad.Err)

	return &model.Report{
		Name: "demo",
		Files: []model.FileReport{
			{Path: "a.h", Rank: 0.75, Table: good.Table, Diagnostics: good.Diagnostics},
			{Path: "b.h", Rank: 0.25, Diagnostics: bad.Diagnostics},
		},
		Inherits: []model.Inheritance{{Derived: "Circle", Base: "Shape", Access: model.AccessPublic}},
	}
}

func TestFormatTabularTypedCells(t *testing.T) {
	t.Parallel()

	got := formatTabular("rows", []string{"name", "flag", "count"}, [][]any{
		{"false", false, 3},
		{"x", true, -1},
	})
	assert.Equal(t, "rows[2]{name,flag,count}:\n  \"false\",false,3\n  x,true,-1", got)
}

func TestEncode(t *testing.T) {
	t.Parallel()

	got := Encode(report(t))
	assert.Equal(t, []string{
		"repo: demo",
		"files[2]{path,rank,status}:",
		"  a.h,0.7500,ok",
		"  b.h,0.2500,error",
		"symbols[5]{file,name,kind,line,signature,doc}:",
		"  a.h,Shape,class,2,class,A shape.",
		`  a.h,"Shape::area",function,5,double () const,Area.`,
		`  a.h,"Shape::scale",function,6,void (int),""`,
		`  a.h,"Shape::scale",function,7,void (double),""`,
		`  a.h,PI,macro,9,PI,""`,
		"overloads[1]{file,name,count,signatures}:",
		`  a.h,"Shape::scale",2,(int) | (double)`,
		"inherits[1]{derived,base,access,virtual}:",
		"  Circle,Shape,public,false",
		"diagnostics[1]{file,line,col,severity,code,message}:",
		"  b.h,1,9,error,parse,unterminated class B",
	}, strings.Split(got, "\n"))
}

func TestEncodeGroupsAndAnnotations(t *testing.T) {
	t.Parallel()

	res := extract.File(context.Background(), "w.h", []byte(`/// \defgroup UI User interface
/// @{
class MYLIB_EXPORT Widget {
    Q_OBJECT
};
/// @}
`), extract.Options{CommentGap: -1})
	require.NoError(t, res.Err)

	got := Encode(&model.Report{Name: "w", Files: []model.FileReport{{Path: "w.h", Table: res.Table}}})
	assert.Contains(t, got, "groups[1]{file,name,title,members}:\n  w.h,UI,User interface,Widget")
	assert.Contains(t, got, "annotations[1]{class,macros}:\n  Widget,MYLIB_EXPORT Q_OBJECT")
	assert.NotContains(t, got, "diagnostics[")
}

func TestEncodeEmpty(t *testing.T) {
	t.Parallel()

	got := Encode(&model.Report{Name: "empty"})
	assert.Contains(t, got, "files[0]{path,rank,status}:")
	assert.Contains(t, got, "symbols[0]{file,name,kind,line,signature,doc}:")
	assert.Contains(t, got, "inherits[0]{derived,base,access,virtual}:")
	assert.NotContains(t, got, "groups[")
}

func TestEncodeCoverage(t *testing.T) {
	t.Parallel()

	got := EncodeCoverage([]coverage.FileCoverage{
		{Path: "a.h", Documented: 1, Total: 4, Undocumented: []string{"f(int)", "ns::g()", "X"}},
		{Path: "b.h", Documented: 2, Total: 2},
	})
	assert.Equal(t, []string{
		"documented: 3",
		"total: 6",
		"ratio: 0.5000",
		"coverage[2]{file,documented,total,ratio}:",
		"  a.h,1,4,0.2500",
		"  b.h,2,2,1.0000",
		"undocumented[3]{file,symbol}:",
		"  a.h,f(int)",
		`  a.h,"ns::g()"`,
		"  a.h,X",
	}, strings.Split(got, "\n"))
}

func TestEncodeEntries(t *testing.T) {
	t.Parallel()

	res := extract.File(context.Background(), "lib.h", []byte("/// Adds.\nint add(int a, int b);\n"), extract.Options{CommentGap: -1})
	require.NoError(t, res.Err)
	m := lookup.New(res.Table)
	e, err := m.Find("add")
	require.NoError(t, err)

	assert.Equal(t, "matches[1]{name,kind,file,line,bases,derived,doc}:\n  \"add(int, int)\",function,lib.h,2,\"\",\"\",Adds.", EncodeEntries([]lookup.Entry{*e}, nil))
}

type hierarchy map[string][2][]string

func (h hierarchy) Bases(class string) []string   { return h[class][0] }
func (h hierarchy) Derived(class string) []string { return h[class][1] }

func TestEncodeEntriesListsClassHierarchy(t *testing.T) {
	t.Parallel()

	res := extract.File(context.Background(), "s.h", []byte("namespace geo {\n/// A circle.\nclass Circle : public Shape, public Named {};\n}\n"), extract.Options{CommentGap: -1})
	require.NoError(t, res.Err)
	e, err := lookup.New(res.Table).Find("Circle")
	require.NoError(t, err)

	h := hierarchy{"geo::Circle": {{"geo::Named", "geo::Shape"}, {"geo::Ring"}}}
	assert.Equal(t, "matches[1]{name,kind,file,line,bases,derived,doc}:\n  \"geo::Circle\",class,s.h,3,\"geo::Named geo::Shape\",\"geo::Ring\",A circle.",
		EncodeEntries([]lookup.Entry{*e}, h))
}
