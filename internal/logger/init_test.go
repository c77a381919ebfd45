package logger

import (
	"bytes"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDebugfRespectsVerbose(t *testing.T) {
	var buf bytes.Buffer
	defer InitLoggerTo(os.Stderr, false)

	InitLoggerTo(&buf, false)
	Debugf("hidden %d", 1)
	assert.Empty(t, buf.String())

	InitLoggerTo(&buf, true)
	Debugf("shown %d", 2)
	log.Printf("plain")

	out := buf.String()
	assert.Contains(t, out, "[pcapdissect] ")
	assert.Contains(t, out, "DEBUG shown 2")
	assert.Contains(t, out, "plain")
}
