package quorumtest

import (
	"bufio"
	"os"
	"reflect"
	"regexp"
	"strconv"
	"testing"

	"github.com/gogo/protobuf/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	messageRe = regexp.MustCompile(`^\s*message\s+(\w+)\s*\{`)
	blockRe   = regexp.MustCompile(`^\s*enum\s+\w+\s*\{`)
	fieldRe   = regexp.MustCompile(`^\s*(?:repeated\s+)?\w+\s+(\w+)\s*=\s*(\d+)\s*;`)
	closeRe   = regexp.MustCompile(`^\s*\}`)
)

// AssertProtoSchema checks that the field names and numbers of each message
// declared in the .proto file at path match the protobuf tags of the Go type
// with the same name.
func AssertProtoSchema(t testing.TB, path string, msgs ...proto.Message) {
	t.Helper()
	schema := readProtoSchema(t, path)
	for _, m := range msgs {
		typ := reflect.TypeOf(m).Elem()
		want, ok := schema[typ.Name()]
		if !assert.True(t, ok, "message %s not declared in %s", typ.Name(), path) {
			continue
		}
		got := make(map[string]int)
		for _, p := range proto.GetProperties(typ).Prop {
			if p.OrigName == "" {
				continue
			}
			got[p.OrigName] = p.Tag
		}
		assert.Equal(t, want, got, "message %s", typ.Name())
	}
}

func readProtoSchema(t testing.TB, path string) map[string]map[string]int {
	t.Helper()
	fd, err := os.Open(path)
	require.NoError(t, err)
	defer fd.Close()

	schema := make(map[string]map[string]int)
	var current map[string]int
	s := bufio.NewScanner(fd)
	for s.Scan() {
		line := s.Text()
		switch {
		case messageRe.MatchString(line):
			current = make(map[string]int)
			schema[messageRe.FindStringSubmatch(line)[1]] = current
		case blockRe.MatchString(line), closeRe.MatchString(line):
			current = nil
		case current != nil && fieldRe.MatchString(line):
			m := fieldRe.FindStringSubmatch(line)
			n, err := strconv.Atoi(m[2])
			require.NoError(t, err)
			current[m[1]] = n
		}
	}
	require.NoError(t, s.Err())
	return schema
}
