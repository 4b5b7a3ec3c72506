package errs

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindsClassifyWithErrorsIs(t *testing.T) {
	assert.True(t, errors.Is(NewFormatError("bad directive"), ErrFormatCompile))
	assert.True(t, errors.Is(NewSyntaxError("select !", 7, "unexpected character"), ErrQuerySyntax))
	assert.True(t, errors.Is(NewNoTokenError("select", "query ended"), ErrNoToken))
	assert.True(t, errors.Is(NewSemanticError("foo", "unknown field"), ErrSemantic))
	assert.True(t, errors.Is(NewIOError(io.ErrUnexpectedEOF), ErrIO))
	assert.True(t, errors.Is(NewWorkerError(io.ErrClosedPipe), ErrWorker))
	assert.True(t, errors.Is(NewUserCancelError(errors.New("ctx")), ErrUserCancel))
}

func TestIOErrorKeepsCause(t *testing.T) {
	err := NewIOError(io.ErrUnexpectedEOF)
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}

func TestSyntaxErrorRendersCaretAtPosition(t *testing.T) {
	err := NewSyntaxError("select !", 7, "unexpected character")
	lines := strings.Split(err.Error(), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, "select !", lines[1])
	assert.Equal(t, "       ^", lines[2])
}
