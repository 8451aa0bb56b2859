// Package probe defines the host probes: declarative inventory queries
// that emit a PowerShell script and project its JSON output into
// records. A probe never knows whether its script ran locally or over
// a remote channel; the runner it is handed decides that.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/invlite/invlite/internal/channel"
	"github.com/invlite/invlite/internal/inventory"
)

// Field is one (output name, extraction rule) pair of a projection
// table. Convert, when set, normalizes the raw value (CIM datetimes,
// size units); a missing or null source value is carried as nil.
type Field struct {
	Name    string
	Source  string
	Convert func(any) any
}

// Definition is one declarative host probe: the entity it collects,
// the CIM query producing raw facts, and the projection applied to
// them. All collectors share this shape; only the tables differ.
type Definition struct {
	entity    string
	class     string
	filter    string
	script    string // custom script, overrides the CIM query
	rawScript string // custom raw-mode script
	fields    []Field
	post      func(inventory.RecordSet) inventory.RecordSet
}

// Entity returns the entity tag used for export file naming.
func (d *Definition) Entity() string {
	return d.entity
}

// Script builds the PowerShell command for this probe. Raw mode
// selects every property instead of the projection sources.
func (d *Definition) Script(raw bool) string {
	if d.script != "" {
		if raw && d.rawScript != "" {
			return d.rawScript
		}
		return d.script
	}

	var b strings.Builder
	b.WriteString("Get-CimInstance -ClassName ")
	b.WriteString(d.class)
	if d.filter != "" {
		fmt.Fprintf(&b, " -Filter \"%s\"", d.filter)
	}
	if raw {
		b.WriteString(" | Select-Object *")
	} else {
		sources := make([]string, len(d.fields))
		for i, f := range d.fields {
			sources[i] = f.Source
		}
		b.WriteString(" | Select-Object ")
		b.WriteString(strings.Join(sources, ", "))
	}
	// Depth 10 keeps nested raw objects intact
	b.WriteString(" | ConvertTo-Json -Compress -Depth 10")
	return b.String()
}

// Parse converts probe output into records. In raw mode every returned
// property is carried through unprocessed (keys sorted for a stable
// order); otherwise the projection table is applied.
func (d *Definition) Parse(output string, raw bool) (inventory.RecordSet, error) {
	objects, err := decodeObjects(output)
	if err != nil {
		return nil, err
	}

	records := make(inventory.RecordSet, 0, len(objects))
	for _, obj := range objects {
		if raw {
			records = append(records, rawRecord(obj))
			continue
		}
		rec := inventory.NewRecord()
		for _, f := range d.fields {
			v, ok := obj[f.Source]
			if !ok || v == nil {
				rec.Set(f.Name, nil)
				continue
			}
			if f.Convert != nil {
				rec.Set(f.Name, f.Convert(v))
				continue
			}
			rec.Set(f.Name, v)
		}
		records = append(records, rec)
	}

	if d.post != nil && !raw {
		records = d.post(records)
	}
	return records, nil
}

// decodeObjects parses the JSON a probe script emits. ConvertTo-Json
// writes an array for multiple instances but a bare object for a
// single one, so try the array shape first and fall back.
func decodeObjects(output string) ([]map[string]any, error) {
	output = strings.TrimSpace(output)
	if output == "" {
		return nil, nil
	}

	var objects []map[string]any
	if err := json.Unmarshal([]byte(output), &objects); err != nil {
		var single map[string]any
		if err := json.Unmarshal([]byte(output), &single); err != nil {
			return nil, fmt.Errorf("%w: failed to parse probe output: %v", inventory.ErrProbe, err)
		}
		objects = []map[string]any{single}
	}
	return objects, nil
}

func rawRecord(obj map[string]any) *inventory.Record {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rec := inventory.NewRecord()
	for _, k := range keys {
		rec.Set(k, obj[k])
	}
	return rec
}

// RunnerFactory resolves the runner for one target. Implemented by
// channel.Factory; stubbed in tests.
type RunnerFactory interface {
	RunnerFor(target string) (channel.Runner, error)
}

// Bound is a probe definition bound to a runner factory. It satisfies
// the fan-out collector's probe contract.
type Bound struct {
	def     *Definition
	raw     bool
	runners RunnerFactory
}

// Bind attaches a definition to a runner factory. Raw mode bypasses
// the projection and returns unprocessed platform facts.
func Bind(def *Definition, raw bool, runners RunnerFactory) *Bound {
	return &Bound{def: def, raw: raw, runners: runners}
}

// Entity returns the entity tag of the underlying definition.
func (b *Bound) Entity() string {
	return b.def.Entity()
}

// Collect runs the probe against one target through whichever runner
// the factory selects for it.
func (b *Bound) Collect(ctx context.Context, target string) (inventory.RecordSet, error) {
	runner, err := b.runners.RunnerFor(target)
	if err != nil {
		return nil, err
	}

	output, err := runner.Run(ctx, b.def.Script(b.raw))
	if err != nil {
		return nil, err
	}

	return b.def.Parse(output, b.raw)
}
