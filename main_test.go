package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/phobologic/headerdoc/internal/config"
	"github.com/phobologic/headerdoc/internal/lookup"
)

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func createSampleRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, dir, "include/shape.h", `#pragma once

/// \defgroup Shapes Shape types
/// @{


/// Base of all shapes.
class Shape {
public:
    virtual ~Shape();
    /// Area of the shape.
    virtual double area() const = 0;
};

/// @}
`)
	writeTestFile(t, dir, "include/circle.h", `#pragma once
#include "shape.h"

/// A circle.
class Circle : public Shape {
public:
    explicit Circle(double r);
    double area() const override;
    double radius() const;
};
`)
	writeTestFile(t, dir, "include/util.h", `/// Clamp.
int clamp(int v, int lo, int hi);
double clamp(double v, double lo, double hi);
#define UTIL_VERSION 3
`)
	writeTestFile(t, dir, "src/util.cpp", "int clamp(int v, int lo, int hi) { return v; }\n")
	return dir
}

func runOK(t *testing.T, args ...string) string {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, &stdout, &stderr)
	require.NoError(t, err, "stderr: %s", stderr.String())
	return stdout.String()
}

func TestRunBasic(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	out := runOK(t, dir)
	assert.Contains(t, out, "repo: "+filepath.Base(dir))
	assert.Contains(t, out, "files[3]{path,rank,status}:")

	shape := strings.Index(out, "  include/shape.h,")
	circle := strings.Index(out, "  include/circle.h,")
	util := strings.Index(out, "  include/util.h,")
	require.True(t, shape >= 0 && circle >= 0 && util >= 0, out)
	assert.Less(t, shape, circle, "the base class header ranks first")
	assert.Less(t, circle, util)

	assert.Contains(t, out, "inherits[1]{derived,base,access,virtual}:\n  Circle,Shape,public,false")
	assert.Contains(t, out, "dependencies[1]{source,target,classes}:\n  include/circle.h,include/shape.h,Circle")
	assert.Contains(t, out, "groups[1]{file,name,title,members}:\n  include/shape.h,Shapes,Shape types,Shape")
	assert.Contains(t, out, `  include/util.h,clamp,2,"(int, int, int) | (double, double, double)"`)
	assert.Contains(t, out, `  include/shape.h,"Shape::area",function,12,double () const,Area of the shape.`)
	assert.NotContains(t, out, "util.cpp")
	assert.NotContains(t, out, "diagnostics[")
}

func TestRunVersion(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "headerdoc dev\n", runOK(t, "--version"))
}

func TestRunNoHeaders(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "main.cpp", "int main() {}\n")

	var stdout, stderr bytes.Buffer
	err := run([]string{dir}, &stdout, &stderr)
	assert.True(t, errors.Is(err, errNoHeaders))
}

func TestRunNotADirectory(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{filepath.Join(dir, "include", "util.h")}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestRunMaxFiles(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	out := runOK(t, "-n", "1", dir)
	assert.Contains(t, out, "files[1]{path,rank,status}:\n  include/shape.h,")
	assert.Contains(t, out, "inherits[0]")
	assert.NotContains(t, out, "clamp")
}

func TestRunFileFilter(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	out := runOK(t, dir, "--file", "circle")
	assert.Contains(t, out, "files[1]{path,rank,status}:\n  include/circle.h,")
	assert.Contains(t, out, "  Circle,Shape,public,false")
}

func TestRunSymbolFilter(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	out := runOK(t, dir, "-s", "radius")
	assert.Contains(t, out, `"Circle::radius",function,9`)
	assert.NotContains(t, out, "clamp")
	assert.NotContains(t, out, "Shape::area")
}

func TestRunFormats(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var doc struct {
		Repo  string `json:"repo" yaml:"repo"`
		Files []struct {
			Path string `json:"path" yaml:"path"`
		} `json:"files" yaml:"files"`
	}
	require.NoError(t, json.Unmarshal([]byte(runOK(t, "--format", "json", dir)), &doc))
	assert.Equal(t, filepath.Base(dir), doc.Repo)
	require.Len(t, doc.Files, 3)
	assert.Equal(t, "include/shape.h", doc.Files[0].Path)

	doc.Files = nil
	require.NoError(t, yaml.Unmarshal([]byte(runOK(t, "--format", "yaml", dir)), &doc))
	assert.Len(t, doc.Files, 3)
}

func TestRunInvalidFormat(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"--format", "xml", dir}, &stdout, &stderr)
	assert.True(t, errors.Is(err, config.ErrInvalidFormat), "got %v", err)
}

func TestRunConfigFile(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	writeTestFile(t, dir, config.FileName, "format: json\nexclude:\n  - util.h\n")

	out := runOK(t, dir)
	assert.True(t, strings.HasPrefix(out, "{"), out)
	assert.NotContains(t, out, "util.h")

	// Flags win over the file.
	out = runOK(t, "--format", "toon", dir)
	assert.True(t, strings.HasPrefix(out, "repo: "), out)
}

func TestRunReportsBrokenHeaders(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	writeTestFile(t, dir, "include/broken.h", "class Broken {\n  void f();\n")

	out := runOK(t, dir)
	assert.Contains(t, out, "files[4]")
	assert.Contains(t, out, "include/broken.h,")
	assert.Contains(t, out, ",error\n")
	assert.Contains(t, out, "diagnostics[1]{file,line,col,severity,code,message}:\n  include/broken.h,1,14,error,parse,unterminated class Broken")
	assert.Contains(t, out, "Circle,Shape,public,false", "other files are unaffected")
}

func TestRunCrossCheck(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	out := runOK(t, "--crosscheck", dir)
	assert.NotContains(t, out, ",crosscheck,")
}

func TestLookup(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	out := runOK(t, "lookup", "radius", dir)
	assert.Equal(t, "matches[1]{name,kind,file,line,bases,derived,doc}:\n  \"Circle::radius() const\",function,include/circle.h,9,\"\",\"\",\"\"\n", out)

	out = runOK(t, "lookup", "Shape", dir)
	assert.Contains(t, out, "\n  Shape,class,include/shape.h,")
	assert.Contains(t, out, `,"",Circle,`)

	out = runOK(t, "lookup", "Circle", dir)
	assert.Contains(t, out, "\n  Circle,class,include/circle.h,")
	assert.Contains(t, out, `,Shape,"",`)

	out = runOK(t, "lookup", "clamp(double, double, double)", dir)
	assert.Contains(t, out, "clamp(double, double, double)\",function,include/util.h,3")

	out = runOK(t, "lookup", "--all", "clamp", dir)
	assert.Contains(t, out, "clamp(int, int, int)")
	assert.Contains(t, out, "clamp(double, double, double)")
}

func TestLookupNotFound(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"lookup", "nothing_here", dir}, &stdout, &stderr)
	assert.True(t, errors.Is(err, lookup.ErrNotFound), "got %v", err)

	err = run([]string{"lookup", "--all", "nothing_here", dir}, &stdout, &stderr)
	assert.True(t, errors.Is(err, lookup.ErrNotFound), "got %v", err)
}

func TestCoverage(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	out := runOK(t, "coverage", dir)
	assert.Contains(t, out, "coverage[3]{file,documented,total,ratio}:")
	assert.Contains(t, out, `  include/circle.h,"Circle::radius() const"`)
	assert.Contains(t, out, "  include/util.h,UTIL_VERSION")
	assert.NotContains(t, out, "Shape::area")

	out = runOK(t, "coverage", "-n", "1", dir)
	assert.Contains(t, out, "coverage[1]{file,documented,total,ratio}:")
}

func TestSchemaCommand(t *testing.T) {
	t.Parallel()

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(runOK(t, "schema")), &schema))
	assert.Equal(t, "headerdoc report", schema["title"])
}

func TestRunIncludeAndProgress(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	writeTestFile(t, dir, "tests/fixture.h", "int fixture;\n")
	writeTestFile(t, dir, config.FileName, "include:\n  - include/**\n")

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"--progress", dir}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "files[3]")
	assert.NotContains(t, stdout.String(), "fixture")
	assert.Contains(t, stderr.String(), "Parsing headers")
}
