package logsvc

import (
	"bytes"
	"fmt"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/kusoma/core"
)

func newTestLogger(debug bool) (*RollbarLogger, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	conf := &core.Config{Env: "TEST", TestMode: true, Debug: debug, RollbarToken: "token"}
	return NewRollbarLogger(log.New(buf, "", 0), conf), buf
}

func TestRollbarLogger_print(t *testing.T) {
	logger, buf := newTestLogger(false)

	logger.Error("finding user", fmt.Errorf("boom"), core.Person{ID: "42", Name: "Amani", Email: "amani@test.cd"})
	assert.Equal(t, "[ERROR] finding user\n  boom\n  person: 42 <amani@test.cd>\n", buf.String())

	buf.Reset()
	logger.Info("anonymous", core.Person{}, map[string]interface{}{"k": 1})
	assert.Equal(t, "[INFO] anonymous\n  map[k:1]\n", buf.String())
}

func TestRollbarLogger_Debug(t *testing.T) {
	quiet, buf := newTestLogger(false)
	quiet.Debug("request")
	assert.Empty(t, buf.String())

	verbose, buf := newTestLogger(true)
	verbose.Debug("request")
	assert.Equal(t, "[DEBUG] request\n", buf.String())
}

func TestRollbarLogger_prepare(t *testing.T) {
	logger, _ := newTestLogger(false)
	err := errors.New("boom")

	args := logger.prepare("msg", []interface{}{err, core.Person{ID: "1"}, core.Person{ID: "2"}})
	assert.Equal(t, []interface{}{"msg", err}, args)
}
