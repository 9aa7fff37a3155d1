package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/openctemio/scanctl/internal/app/workflow"
)

// Output format constants.
const (
	outputJSON = "json"
	outputYAML = "yaml"
	outputText = "text"
)

// failure is the printed form of a failed stage.
type failure struct {
	Changed bool   `json:"changed" yaml:"changed"`
	Failed  bool   `json:"failed" yaml:"failed"`
	Msg     string `json:"msg" yaml:"msg"`
	Kind    string `json:"kind" yaml:"kind"`
}

func newFailure(err error) failure {
	return failure{
		Changed: false,
		Failed:  true,
		Msg:     err.Error(),
		Kind:    workflow.ErrorKind(err),
	}
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printYAML(w io.Writer, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal YAML: %w", err)
	}
	_, err = fmt.Fprint(w, string(data))
	return err
}

// printResult writes a stage result in the selected format.
func printResult(w io.Writer, format string, res *workflow.Result) error {
	switch format {
	case outputYAML:
		return printYAML(w, res)
	case outputText:
		fmt.Fprintf(w, "changed: %t\n", res.Changed)
		fmt.Fprintf(w, "output:  %s\n", res.Output)
		printDetails(w, res.Details)
		return nil
	default:
		return printJSON(w, res)
	}
}

// printFailure writes a failed stage result in the selected format.
func printFailure(w io.Writer, format string, err error) error {
	f := newFailure(err)
	switch format {
	case outputYAML:
		return printYAML(w, f)
	case outputText:
		fmt.Fprintf(w, "failed:  %s\n", f.Kind)
		fmt.Fprintf(w, "msg:     %s\n", f.Msg)
		return nil
	default:
		return printJSON(w, f)
	}
}

func printDetails(w io.Writer, details map[string]any) {
	if len(details) == 0 {
		return
	}
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := newTable(w, "DETAIL", "VALUE")
	for _, k := range keys {
		t.AddRow(k, detailString(details[k]))
	}
	t.Flush()
}

func detailString(v any) string {
	switch x := v.(type) {
	case []string:
		if len(x) == 0 {
			return "-"
		}
		return strings.Join(x, ",")
	case string:
		if x == "" {
			return "-"
		}
		return x
	default:
		return fmt.Sprint(x)
	}
}

type tableWriter struct {
	w       *tabwriter.Writer
	headers []string
}

func newTable(out io.Writer, headers ...string) *tableWriter {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	t := &tableWriter{w: w, headers: headers}
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	return t
}

func (t *tableWriter) AddRow(values ...string) {
	fmt.Fprintln(t.w, strings.Join(values, "\t"))
}

func (t *tableWriter) Flush() {
	t.w.Flush()
}
