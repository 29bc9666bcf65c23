package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/ledgerprep/internal/core"
	"github.com/JonMunkholm/ledgerprep/internal/ingest"
)

// Request payloads. Field names in validation messages follow the json tag.

type createSessionRequest struct {
	Name string `json:"name" validate:"max=200"`
}

type loadRequest struct {
	Name    string     `json:"name" validate:"max=200"`
	Columns []string   `json:"columns"`
	Rows    []core.Row `json:"rows" validate:"required"`

	// keyOrder is the row keys in body order, used when Columns is empty.
	keyOrder []string
}

func (l *loadRequest) UnmarshalJSON(data []byte) error {
	type plain loadRequest
	var aux struct {
		plain
		Rows json.RawMessage `json:"rows"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*l = loadRequest(aux.plain)
	if len(aux.Rows) == 0 {
		return nil
	}
	if err := json.Unmarshal(aux.Rows, &l.Rows); err != nil {
		return err
	}
	if len(l.Columns) == 0 && l.Rows != nil {
		order, err := ingest.KeyOrder(aux.Rows)
		if err != nil {
			return err
		}
		l.keyOrder = order
	}
	return nil
}

// columns returns the explicit column list, else the row keys in the order
// the body listed them.
func (l *loadRequest) columns() []string {
	if len(l.Columns) > 0 {
		return l.Columns
	}
	if len(l.keyOrder) > 0 {
		return l.keyOrder
	}
	return core.InferColumns(l.Rows)
}

type editCellRequest struct {
	Row    *int       `json:"row" validate:"required,gte=0"`
	Column string     `json:"col" validate:"required"`
	Value  core.Value `json:"value"`
}

type moveRequest struct {
	From *int `json:"from" validate:"required,gte=0"`
	To   *int `json:"to" validate:"required,gte=0"`
}

type moveStepRequest struct {
	To *int `json:"to" validate:"required,gte=0"`
}

type enableStepRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type stepRequest struct {
	Op     core.Op           `json:"op" validate:"required"`
	Column string            `json:"col"`
	Params map[string]string `json:"params"`
	// Enabled defaults to true when absent.
	Enabled *bool `json:"enabled"`
}

func (s stepRequest) step() core.Step {
	st := core.NewStep(s.Op, s.Column, s.Params)
	if s.Enabled != nil {
		st.Enabled = *s.Enabled
	}
	return st
}

type saveRecipeRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type reconcileRequest struct {
	GLSession string          `json:"gl_session" validate:"required"`
	TBSession string          `json:"tb_session" validate:"required"`
	GLAccount string          `json:"gl_account" validate:"required"`
	GLAmount  string          `json:"gl_amount" validate:"required"`
	GLEntity  string          `json:"gl_entity"`
	TBAccount string          `json:"tb_account" validate:"required"`
	TBAmount  string          `json:"tb_amount" validate:"required"`
	TBEntity  string          `json:"tb_entity"`
	Tolerance decimal.Decimal `json:"tolerance"`
}

func (req reconcileRequest) options() core.ReconcileOptions {
	return core.ReconcileOptions{
		GLAccount: req.GLAccount,
		GLAmount:  req.GLAmount,
		GLEntity:  req.GLEntity,
		TBAccount: req.TBAccount,
		TBAmount:  req.TBAmount,
		TBEntity:  req.TBEntity,
		Tolerance: req.Tolerance,
	}
}

// newValidator returns a validator reporting json field names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into v and validates it. On failure it writes a
// 400 and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
	if err := render.DecodeJSON(r.Body, v); err != nil {
		var syn *json.SyntaxError
		var typ *json.UnmarshalTypeError
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			respondBadRequest(w, r, fmt.Sprintf("request body exceeds %d bytes", tooBig.Limit))
		case errors.Is(err, io.EOF):
			respondBadRequest(w, r, "request body is empty")
		case errors.As(err, &syn):
			respondBadRequest(w, r, fmt.Sprintf("malformed JSON at offset %d", syn.Offset))
		case errors.As(err, &typ):
			respondBadRequest(w, r, fmt.Sprintf("field %s has the wrong type", typ.Field))
		default:
			respondBadRequest(w, r, "malformed JSON: "+err.Error())
		}
		return false
	}
	if reflect.Indirect(reflect.ValueOf(v)).Kind() == reflect.Struct {
		if err := s.validate.Struct(v); err != nil {
			respondBadRequest(w, r, validationMessage(err))
			return false
		}
	}
	return true
}

// indexParam parses a non-negative integer URL parameter.
func indexParam(r *http.Request, name string) (int, error) {
	i, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || i < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return i, nil
}

// intQuery parses an integer query parameter with a default value.
func intQuery(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// boolQuery reports whether a query flag is set to a true value.
func boolQuery(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}
