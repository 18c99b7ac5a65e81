package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/urfave/cli/v2"
)

func TestExitCodeForInvalidArgs(t *testing.T) {
	err := invalidArgs("bad root %q", "/nope")
	assert.Equal(t, 2, exitCodeFor(err))
}

func TestExitCodeForExitCoder(t *testing.T) {
	err := cli.Exit("findings at or above fail-on", 1)
	assert.Equal(t, 1, exitCodeFor(err))
}

func TestExitCodeForGenericError(t *testing.T) {
	assert.Equal(t, 1, exitCodeFor(errors.New("boom")))
}

func TestInvalidArgsErrorUnwraps(t *testing.T) {
	inner := errors.New("root cause")
	err := invalidArgs("wrapping: %w", inner)
	assert.True(t, errors.Is(err, inner))
}
