package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/do2json/pkgs/ast"
	"github.com/aledsdavies/do2json/pkgs/diag"
	"github.com/aledsdavies/do2json/pkgs/errors"
	"github.com/aledsdavies/do2json/pkgs/execution"
	"github.com/aledsdavies/do2json/pkgs/treefmt"
)

const myObjectDump = `0x00000001 MyObject
    0010 Name1 : val1 (String)
        0011 Name2 : val2 (Int32)
    0012 Name3 : val3 (Boolean)`

const staticDump = `0x00000001 MyObject
    0020 s_Instance : 0000000000000000 (MyObject) static
    0028 s_Count : 3 (Int32) static`

const (
	instanceCmd = "!do2 -c 0 -e 20 -f -vi 0x1"
	staticCmd   = "!do2 -c 0 -e 20 -f -vi -static 0x1"
)

var treeOpts = cmp.AllowUnexported(ast.Children{})

func myObjectTree() *ast.Node {
	return ast.Root("MyObject",
		ast.Prop(4, "0010", "Name1", "val1", "(String)",
			ast.Prop(8, "0011", "Name2", "val2", "(Int32)"),
		),
		ast.Prop(4, "0012", "Name3", "val3", "(Boolean)"),
	)
}

// memWriter records writes and can be told to fail
type memWriter struct {
	mu    sync.Mutex
	files map[string][]byte
	fail  map[string]error
}

func newMemWriter() *memWriter {
	return &memWriter{files: map[string][]byte{}, fail: map[string]error{}}
}

func (w *memWriter) Write(path string, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.fail[path]; err != nil {
		return err
	}
	w.files[path] = append([]byte(nil), data...)
	return nil
}

func newTestEngine(t *testing.T, runner execution.Runner, opts Options) (*Engine, *bytes.Buffer) {
	t.Helper()
	var sink bytes.Buffer
	log := diag.NewLogger("engine", &sink)
	log.SetLevel(diag.LogLevelWarn)
	opts.Log = log
	if opts.Depth == 0 {
		opts.Depth = execution.DefaultDepth
	}
	return New(runner, opts), &sink
}

func TestEngine_Parse(t *testing.T) {
	runner := execution.NewStaticRunner().Add(instanceCmd, myObjectDump)
	writer := newMemWriter()
	eng, _ := newTestEngine(t, runner, Options{Writer: writer})

	result, err := eng.Parse(context.Background(), "0x1", "out.json", false)
	require.NoError(t, err)
	require.False(t, result.Empty())

	assert.Equal(t, instanceCmd, result.Command)
	assert.Equal(t, "out.json", result.Path)
	if diff := cmp.Diff(myObjectTree(), result.Tree, treeOpts); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}

	want, err := treefmt.Marshal(myObjectTree(), false)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(writer.files["out.json"]))
	assert.Equal(t, treefmt.DigestBytes(want), result.Digest)
}

func TestEngine_ParseEmitsWithoutPath(t *testing.T) {
	runner := execution.NewStaticRunner().Add(instanceCmd, myObjectDump)
	eng, sink := newTestEngine(t, runner, Options{Writer: newMemWriter()})

	result, err := eng.Parse(context.Background(), "0x1", "", true)
	require.NoError(t, err)
	assert.Empty(t, result.Path)

	want, err := treefmt.Marshal(myObjectTree(), true)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(strings.Fields(string(want)), ""), strings.Join(strings.Fields(sink.String()), ""))
}

func TestEngine_ParseNoInput(t *testing.T) {
	runner := execution.NewStaticRunner()
	writer := newMemWriter()
	eng, sink := newTestEngine(t, runner, Options{Writer: writer})

	result, err := eng.Parse(context.Background(), "0x1", "out.json", false)
	require.NoError(t, err)
	assert.True(t, result.Empty())
	assert.Empty(t, writer.files)
	assert.Empty(t, sink.String())
}

func TestEngine_ParseNoRoot(t *testing.T) {
	runner := execution.NewStaticRunner().Add(instanceCmd, "Invalid object address\n")
	eng, _ := newTestEngine(t, runner, Options{Writer: newMemWriter()})

	result, err := eng.Parse(context.Background(), "0x1", "out.json", false)
	require.NoError(t, err)
	assert.True(t, result.Empty())
}

func TestEngine_ParseRunnerError(t *testing.T) {
	boom := errors.NewCommandExecutionError(instanceCmd, fmt.Errorf("debugger crashed"))
	runner := execution.NewStaticRunner().Fail(instanceCmd, boom)
	eng, _ := newTestEngine(t, runner, Options{Writer: newMemWriter()})

	_, err := eng.Parse(context.Background(), "0x1", "out.json", false)
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrCommandExecution))
}

func TestEngine_ParseWithoutRunner(t *testing.T) {
	eng, _ := newTestEngine(t, nil, Options{})
	_, err := eng.Parse(context.Background(), "0x1", "", false)
	assert.True(t, errors.IsErrorType(err, errors.ErrConfig))
}

func TestEngine_WriteFailureFallsBackToSink(t *testing.T) {
	runner := execution.NewStaticRunner().Add(instanceCmd, myObjectDump)
	writer := newMemWriter()
	writer.fail["out.json"] = fmt.Errorf("disk full")
	eng, sink := newTestEngine(t, runner, Options{Writer: writer})

	_, err := eng.Parse(context.Background(), "0x1", "out.json", false)
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrOutputWrite))

	out := sink.String()
	assert.Contains(t, out, "[ERROR] (engine) writing out.json failed")
	assert.Contains(t, strings.ReplaceAll(out, "\n", ""), `"name":"MyObject"`)
}

func TestEngine_ParseBoth(t *testing.T) {
	runner := execution.NewStaticRunner().
		Add(instanceCmd, myObjectDump).
		Add(staticCmd, staticDump)
	writer := newMemWriter()
	eng, _ := newTestEngine(t, runner, Options{Writer: writer})

	results, err := eng.ParseBoth(context.Background(), "0x1", `C:\Temp\Out.JSON`, true)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, []string{instanceCmd, staticCmd}, runner.Calls())
	assert.Equal(t, execution.InstancePass, results[0].Pass)
	assert.Equal(t, execution.StaticPass, results[1].Pass)
	assert.Equal(t, `C:\Temp\Out.JSON`, results[0].Path)
	assert.Equal(t, `c:\temp\out-static.json`, results[1].Path)

	assert.Equal(t, []string{"Name1", "Name3"}, results[0].Tree.Children.Names())
	assert.Equal(t, []string{"s_Instance", "s_Count"}, results[1].Tree.Children.Names())

	count, _ := results[1].Tree.Children.Get("s_Count")
	assert.Equal(t, " static", count.Attributes)
	assert.Len(t, writer.files, 2)
}

func TestEngine_ParseBothStaticFailureKeepsFirst(t *testing.T) {
	runner := execution.NewStaticRunner().
		Add(instanceCmd, myObjectDump).
		Fail(staticCmd, errors.NewCommandExecutionError(staticCmd, fmt.Errorf("boom")))
	writer := newMemWriter()
	eng, _ := newTestEngine(t, runner, Options{Writer: writer})

	results, err := eng.ParseBoth(context.Background(), "0x1", "out.json", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "static pass")
	require.Len(t, results, 1)
	assert.Equal(t, "out.json", results[0].Path)
	assert.Contains(t, writer.files, "out.json")
	assert.NotContains(t, writer.files, "out-static.json")
}

func TestEngine_ParseBothInstanceFailureStillRunsStatic(t *testing.T) {
	runner := execution.NewStaticRunner().
		Fail(instanceCmd, errors.NewCommandExecutionError(instanceCmd, fmt.Errorf("boom"))).
		Add(staticCmd, staticDump)
	writer := newMemWriter()
	eng, _ := newTestEngine(t, runner, Options{Writer: writer})

	results, err := eng.ParseBoth(context.Background(), "0x1", "out.json", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instance pass")
	assert.NotContains(t, err.Error(), "static pass")
	assert.True(t, errors.IsErrorType(err, errors.ErrCommandExecution))

	assert.Equal(t, []string{instanceCmd, staticCmd}, runner.Calls())
	require.Len(t, results, 1)
	assert.Equal(t, execution.StaticPass, results[0].Pass)
	assert.Equal(t, "out-static.json", results[0].Path)
	assert.Contains(t, writer.files, "out-static.json")
	assert.NotContains(t, writer.files, "out.json")
}

func TestEngine_ParseBothJoinsFailures(t *testing.T) {
	runner := execution.NewStaticRunner().
		Fail(instanceCmd, errors.NewCommandExecutionError(instanceCmd, fmt.Errorf("boom"))).
		Fail(staticCmd, errors.Wrap(errors.ErrTimeout, "debugger did not finish", nil))
	eng, _ := newTestEngine(t, runner, Options{Writer: newMemWriter()})

	results, err := eng.ParseBoth(context.Background(), "0x1", "out.json", false)
	assert.Empty(t, results)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instance pass")
	assert.Contains(t, err.Error(), "static pass")
	assert.True(t, errors.IsErrorType(err, errors.ErrCommandExecution))
}

func TestEngine_ParseBothIndependentState(t *testing.T) {
	// The static pass sees a dump with a different indentation unit.
	runner := execution.NewStaticRunner().
		Add(instanceCmd, myObjectDump).
		Add(staticCmd, "0x1 MyObject\n  0000 A : 1 (Int32) static\n    0004 B : 2 (Int32)")
	eng, _ := newTestEngine(t, runner, Options{Writer: newMemWriter()})

	results, err := eng.ParseBoth(context.Background(), "0x1", "out.json", false)
	require.NoError(t, err)
	assert.Equal(t, 4, results[0].Stats.LevelUnit)
	assert.Equal(t, 2, results[1].Stats.LevelUnit)
	assert.Equal(t, 2, results[1].Tree.Depth())
}

func TestEngine_ParseText(t *testing.T) {
	eng, sink := newTestEngine(t, nil, Options{})

	tree, err := eng.ParseText(myObjectDump, false)
	require.NoError(t, err)
	if diff := cmp.Diff(myObjectTree(), tree, treeOpts); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, sink.String(), `"name":"MyObject"`)

	again, err := eng.ParseText(myObjectDump, false)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(tree, again, treeOpts))

	empty, err := eng.ParseText("", false)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestEngine_Select(t *testing.T) {
	eng, _ := newTestEngine(t, nil, Options{Select: "Name1"})

	tree, err := eng.ParseText(myObjectDump, false)
	require.NoError(t, err)
	assert.Equal(t, "Name1", tree.Name)
	assert.Equal(t, []string{"Name2"}, tree.Children.Names())

	bad, _ := newTestEngine(t, nil, Options{Select: "Name1.Nope"})
	_, err = bad.ParseText(myObjectDump, false)
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrSelectPath))
}

func TestEngine_ValidateAndCBOR(t *testing.T) {
	runner := execution.NewStaticRunner().Add(instanceCmd, myObjectDump)
	writer := newMemWriter()

	eng, _ := newTestEngine(t, runner, Options{Writer: writer, Validate: true})
	_, err := eng.Parse(context.Background(), "0x1", "out.json", true)
	require.NoError(t, err)

	cborEng, _ := newTestEngine(t, runner, Options{Writer: writer, Format: treefmt.FormatCBOR, Validate: true})
	result, err := cborEng.Parse(context.Background(), "0x1", "out.cbor", false)
	require.NoError(t, err)

	decoded, err := treefmt.UnmarshalCBOR(writer.files["out.cbor"])
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(result.Tree, decoded, treeOpts))
}

func TestEngine_ParseFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "dump.txt")
	require.NoError(t, os.WriteFile(input, []byte(strings.ReplaceAll(myObjectDump, "\n", "\r\n")), 0o644))
	output := filepath.Join(dir, "nested", "out.json")

	eng, _ := newTestEngine(t, nil, Options{})
	result, err := eng.ParseFile(context.Background(), input, output, false)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, result.Output, data)
	assert.Empty(t, cmp.Diff(myObjectTree(), result.Tree, treeOpts))
}

func TestEngine_ParseFileStdin(t *testing.T) {
	eng, sink := newTestEngine(t, nil, Options{Stdin: strings.NewReader(myObjectDump)})

	result, err := eng.ParseFile(context.Background(), "-", "", false)
	require.NoError(t, err)
	assert.Equal(t, "MyObject", result.Tree.Name)
	assert.Contains(t, sink.String(), `"name":"MyObject"`)
}

func TestEngine_ParseFileMissing(t *testing.T) {
	eng, _ := newTestEngine(t, nil, Options{})
	_, err := eng.ParseFile(context.Background(), filepath.Join(t.TempDir(), "missing.txt"), "", false)
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrInputRead))
}

func TestStaticPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`C:\Temp\Out.JSON`, `c:\temp\out-static.json`},
		{"out.json", "out-static.json"},
		{"/tmp/dumps.d/Result", "/tmp/dumps.d/result-static"},
		{"out", "out-static"},
		{"a.b.json", "a.b-static.json"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, StaticPath(tt.in))
		})
	}
}

func TestOSFileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "out.json")
	w := OSFileWriter{}

	require.NoError(t, w.Write(path, []byte("first")))
	require.NoError(t, w.Write(path, []byte("2nd")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2nd", string(data))
}

func TestEngine_Watch(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "dump.txt")
	require.NoError(t, os.WriteFile(input, []byte(myObjectDump), 0o644))

	eng, _ := newTestEngine(t, nil, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results := make(chan *ParseResult, 64)
	done := make(chan error, 1)
	go func() {
		done <- eng.Watch(ctx, input, "", false, func(r *ParseResult, err error) {
			if err != nil || r.Empty() {
				return
			}
			select {
			case results <- r:
			default:
			}
		})
	}()

	first := <-results
	assert.Equal(t, "MyObject", first.Tree.Name)

	require.NoError(t, os.WriteFile(input, []byte("0x2 Other\n  0000 A : 1 (Int32)"), 0o644))
	var next *ParseResult
	for next == nil || next.Tree.Name != "Other" {
		select {
		case next = <-results:
		case <-ctx.Done():
			t.Fatal("no re-parse after the file changed")
		}
	}

	cancel()
	assert.NoError(t, <-done)
}
