package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"

	"github.com/baharkarakas/taskboard/internal/api/httpx"
	"github.com/baharkarakas/taskboard/internal/validate"
)

const maxBodyBytes = 1 << 20

// decode reads a JSON object into dst one member at a time, so a value of the
// wrong type is reported per field while the remaining members still land in
// dst. It writes the 400 itself and reports false when the body is unusable;
// otherwise it returns the type violations, if any.
func decode(w http.ResponseWriter, r *http.Request, dst any) (validate.Errs, bool) {
	var members map[string]json.RawMessage
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&members)
	switch {
	case errors.Is(err, io.EOF):
		httpx.BadRequest(w, "body", "request body is required")
		return nil, false
	case err != nil || members == nil:
		httpx.BadRequest(w, "body", "malformed JSON body")
		return nil, false
	}

	keys := make([]string, 0, len(members))
	for k := range members {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs validate.Errs
	for _, k := range keys {
		one, err := json.Marshal(map[string]json.RawMessage{k: members[k]})
		if err != nil {
			httpx.BadRequest(w, "body", "malformed JSON body")
			return nil, false
		}
		if err := json.Unmarshal(one, dst); err != nil {
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &typeErr) {
				httpx.BadRequest(w, "body", "malformed JSON body")
				return nil, false
			}
			errs.AddMsg(k, k+" has the wrong type")
		}
	}
	return errs, true
}

// rejectTyped writes a 400 listing the type violations plus every other field
// violation from check, skipping fields already reported as mistyped. It
// reports false when there were no type violations.
func rejectTyped(w http.ResponseWriter, r *http.Request, typed validate.Errs, check func() error) bool {
	if len(typed) == 0 {
		return false
	}
	all := append(validate.Errs(nil), typed...)
	if check != nil {
		if rest, ok := validate.As(check()); ok {
			for _, ef := range rest {
				if !validate.Has(typed, ef.Field) {
					all = append(all, ef)
				}
			}
		}
	}
	httpx.Error(w, r, all)
	return true
}
