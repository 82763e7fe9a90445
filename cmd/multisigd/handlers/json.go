package handlers

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/iov-one/quorum/errors"
	"github.com/tendermint/tendermint/libs/log"
)

// maxBodySize limits request payloads.
const maxBodySize = 1 << 20

// JSONResp write content as JSON encoded response.
func JSONResp(w http.ResponseWriter, code int, content interface{}) {
	b, err := json.MarshalIndent(content, "", "\t")
	if err != nil {
		code = http.StatusInternalServerError
		b = []byte(`{"errors":["Internal Server Error"]}`)
	}
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(code)
	_, _ = w.Write(b)
}

// JSONErr write single error as JSON encoded response.
func JSONErr(w http.ResponseWriter, code int, errText string) {
	JSONErrs(w, code, []string{errText})
}

// JSONErrs write multiple errors as JSON encoded response.
func JSONErrs(w http.ResponseWriter, code int, errs []string) {
	resp := struct {
		Errors []string `json:"errors"`
	}{
		Errors: errs,
	}
	JSONResp(w, code, resp)
}

// writeErr responds with the status and message errors.HTTPInfo assigns to
// err. Server side failures are logged.
func writeErr(w http.ResponseWriter, logger log.Logger, debug bool, err error) {
	code, msg := errors.HTTPInfo(err, debug)
	if !errors.IsClientError(err) {
		logger.Error("Request failed", "status", code, "err", err)
	}
	JSONErr(w, code, msg)
}

// decodeJSON reads the request body into dest.
func decodeJSON(r *http.Request, dest interface{}) error {
	if r.Body == nil {
		return errors.Wrap(errors.ErrEmpty, "request body")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(dest); err != nil {
		return errors.Wrapf(errors.ErrInput, "cannot decode JSON body: %s", err)
	}
	return nil
}

// decodeHex decodes a hex string with an optional 0x prefix.
func decodeHex(name, s string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "%s is not hex encoded", name)
	}
	return raw, nil
}

func encodeHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}
