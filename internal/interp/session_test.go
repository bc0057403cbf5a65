package interp

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecLine(t *testing.T) {
	s, out := newTestSession(t)
	ctx := context.Background()

	done, err := s.ExecLine(ctx, "create tensor a values=[1, 2]")
	require.NoError(t, err)
	assert.False(t, done)

	// A bad line is reported and discarded.
	done, err = s.ExecLine(ctx, "create tensor b values=")
	assert.Equal(t, "ParseError", Kind(err))
	assert.False(t, done)
	assert.Equal(t, []string{"a"}, s.Evaluator().Env().Names())

	_, err = s.ExecLine(ctx, "print a @ 2")
	assert.Equal(t, "LexError", Kind(err))

	_, err = s.ExecLine(ctx, "print sum(a)")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out.String())

	out.Reset()
	done, err = s.ExecLine(ctx, "  help ")
	require.NoError(t, err)
	assert.False(t, done)
	assert.Contains(t, out.String(), "Commands:")
	assert.Contains(t, out.String(), "normalize")
	assert.Contains(t, out.String(), "backward")

	done, err = s.ExecLine(ctx, "exit")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestRunScriptSessionCommands(t *testing.T) {
	s, out := newTestSession(t)
	err := s.RunScript(context.Background(), `create tensor a values=1
help
print a
exit
create tensor b values=2
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, s.Evaluator().Env().Names())

	text := out.String()
	help := strings.Index(text, "Commands:")
	printed := strings.Index(text, "1\n")
	require.GreaterOrEqual(t, help, 0)
	assert.Less(t, help, printed, "help runs before the following command")
}

func TestRunScriptStopsAtFirstError(t *testing.T) {
	s, _ := newTestSession(t)
	err := s.RunScript(context.Background(), `create tensor a values=1
print missing
create tensor b values=2
`)
	require.Error(t, err)
	assert.Equal(t, `NameError: name "missing" is not defined (line 2, col 7)`, err.Error())
	assert.Equal(t, []string{"a"}, s.Evaluator().Env().Names())
}

func TestRunScriptParseErrorRunsNothing(t *testing.T) {
	s, _ := newTestSession(t)
	err := s.RunScript(context.Background(), "create tensor a values=1\nsplit a ratio=\n")
	assert.Equal(t, "ParseError", Kind(err))
	assert.Zero(t, s.Evaluator().Env().Len())
}

func TestIncomplete(t *testing.T) {
	assert.True(t, Incomplete("create model m {"))
	assert.True(t, Incomplete("create model m {\n layer dense units=2"))
	assert.True(t, Incomplete("print [1, 2,"))
	assert.False(t, Incomplete("create model m { layer relu }"))
	assert.False(t, Incomplete("print 1"))
	assert.False(t, Incomplete(`print "open`))
}

func TestFormat(t *testing.T) {
	got, err := Format("split   data ratio=0.8\nprint (1+2)*3")
	require.NoError(t, err)
	assert.Equal(t, "split data ratio=0.8\nprint (1 + 2) * 3\n", got)

	_, err = Format("split")
	assert.Error(t, err)
}

