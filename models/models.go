// Package models contains the data structures emitted by the notebook tools.
package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// Function is one entry of example_functions.json.
type Function struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Docstring   string     `json:"docstring"`
	Code        string     `json:"code"`
	TestCases   []TestCase `json:"test_cases"`
	FileID      string     `json:"fileId"`
	Link        string     `json:"link"`
	Folder      string     `json:"folder"`

	// Parameters are the declared positional parameter names of the
	// function. They key every TestCase.Arguments but are not emitted.
	Parameters []string `json:"-"`
	// SourcePath is the notebook the function was extracted from.
	SourcePath string `json:"-"`
}

type TestCase struct {
	ID             string          `json:"id"`
	Description    string          `json:"description"`
	Arguments      Arguments       `json:"arguments"`
	ExpectedOutput json.RawMessage `json:"expected_output,omitempty"`
	Demo           bool            `json:"demo"`
}

// Argument is a single named argument value, already encoded as JSON.
type Argument struct {
	Name  string
	Value json.RawMessage
}

// Arguments keeps argument order as declared by the function signature.
type Arguments []Argument

var ErrNotObject = errors.New("arguments must be a JSON object")

func (a Arguments) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, arg := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(arg.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if len(arg.Value) == 0 {
			buf.WriteString("null")
			continue
		}
		buf.Write(arg.Value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (a *Arguments) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid arguments JSON")
	}
	parsed := gjson.ParseBytes(data)
	if parsed.Type == gjson.Null {
		*a = nil
		return nil
	}
	if !parsed.IsObject() {
		return ErrNotObject
	}
	out := Arguments{}
	parsed.ForEach(func(key, value gjson.Result) bool {
		out = append(out, Argument{Name: key.String(), Value: json.RawMessage(value.Raw)})
		return true
	})
	*a = out
	return nil
}

// Names returns the argument names in order.
func (a Arguments) Names() []string {
	names := make([]string, 0, len(a))
	for _, arg := range a {
		names = append(names, arg.Name)
	}
	return names
}

// Get returns the raw JSON value of the named argument.
func (a Arguments) Get(name string) (json.RawMessage, bool) {
	for _, arg := range a {
		if arg.Name == name {
			return arg.Value, true
		}
	}
	return nil, false
}

// Decode unmarshals the named argument into v.
func (a Arguments) Decode(name string, v any) error {
	raw, ok := a.Get(name)
	if !ok {
		return fmt.Errorf("argument %q not present", name)
	}
	return json.Unmarshal(raw, v)
}

// DemoFile is one file of a demo bundle embedded in the MDX page.
type DemoFile struct {
	Name       string `json:"name"`
	Content    string `json:"content"`
	Entrypoint bool   `json:"entrypoint,omitempty"`
}

type DemoBundle struct {
	Section  string
	Function string
	Files    []DemoFile
}

// ImportSummary categorises the top-level imports of a notebook's first code cell.
type ImportSummary struct {
	BuiltIn  []string `json:"built_in" yaml:"built_in"`
	External []string `json:"external" yaml:"external"`
	Unknown  []string `json:"unknown" yaml:"unknown"`
}
