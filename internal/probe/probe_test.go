package probe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/invlite/invlite/internal/channel"
	"github.com/invlite/invlite/internal/inventory"
)

// fakeRunner plays back canned script output.
type fakeRunner struct {
	target string
	output string
	err    error
	ran    []string
}

func (f *fakeRunner) Run(ctx context.Context, script string) (string, error) {
	f.ran = append(f.ran, script)
	if f.err != nil {
		return "", f.err
	}
	return f.output, nil
}

func (f *fakeRunner) Target() string {
	return f.target
}

// fakeFactory hands out one runner per target.
type fakeFactory struct {
	runners map[string]*fakeRunner
	err     error
}

func (f *fakeFactory) RunnerFor(target string) (channel.Runner, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.runners[target], nil
}

func mustLookup(t *testing.T, kind Kind) *Definition {
	t.Helper()
	def, ok := Lookup(kind)
	if !ok {
		t.Fatalf("no definition for kind %q", kind)
	}
	return def
}

func TestDefinition_Script(t *testing.T) {
	def := mustLookup(t, KindBIOS)

	script := def.Script(false)
	for _, want := range []string{
		"Get-CimInstance -ClassName Win32_BIOS",
		"Select-Object Manufacturer, SMBIOSBIOSVersion, Version, SerialNumber, ReleaseDate",
		"ConvertTo-Json -Compress -Depth 10",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q: %s", want, script)
		}
	}

	raw := def.Script(true)
	if !strings.Contains(raw, "Select-Object *") {
		t.Errorf("raw script should select everything: %s", raw)
	}
}

func TestDefinition_ParseArrayAndSingleObject(t *testing.T) {
	def := mustLookup(t, KindCPU)

	tests := []struct {
		name    string
		output  string
		records int
	}{
		{
			"array",
			`[{"Name":"Xeon","Manufacturer":"Intel","MaxClockSpeed":3000,"NumberOfCores":8,"NumberOfLogicalProcessors":16,"SocketDesignation":"CPU0","ProcessorId":"ABC"},` +
				`{"Name":"Xeon","Manufacturer":"Intel","MaxClockSpeed":3000,"NumberOfCores":8,"NumberOfLogicalProcessors":16,"SocketDesignation":"CPU1","ProcessorId":"DEF"}]`,
			2,
		},
		{
			"single object",
			`{"Name":"Ryzen","Manufacturer":"AMD","MaxClockSpeed":4000,"NumberOfCores":6,"NumberOfLogicalProcessors":12,"SocketDesignation":"AM4","ProcessorId":"XYZ"}`,
			1,
		},
		{"empty output", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := def.Parse(tt.output, false)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if len(records) != tt.records {
				t.Fatalf("got %d records, want %d", len(records), tt.records)
			}
			for _, rec := range records {
				fields := rec.Fields()
				if fields[0] != "Name" {
					t.Errorf("first field = %q, want Name", fields[0])
				}
				if rec.Len() != 7 {
					t.Errorf("got %d fields, want full projection of 7", rec.Len())
				}
			}
		})
	}
}

func TestDefinition_ParseMissingFieldCarriedAsNil(t *testing.T) {
	def := mustLookup(t, KindMotherboard)

	records, err := def.Parse(`{"Manufacturer":"ASUS","Product":"PRIME"}`, false)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	rec := records[0]
	if v, present := rec.Get("SerialNumber"); !present || v != nil {
		t.Errorf("missing source should carry nil field: present=%v value=%v", present, v)
	}
	if rec.Len() != 4 {
		t.Errorf("got %d fields, want 4", rec.Len())
	}
}

func TestDefinition_ParseMalformedOutput(t *testing.T) {
	def := mustLookup(t, KindOS)

	_, err := def.Parse("ERROR: access denied", false)
	if !errors.Is(err, inventory.ErrProbe) {
		t.Errorf("error = %v, want ErrProbe", err)
	}
}

func TestDefinition_RawModeKeepsEverything(t *testing.T) {
	def := mustLookup(t, KindBIOS)

	output := `{"Manufacturer":"AMI","ObscureVendorField":42,"Nested":{"Key":"v"}}`
	records, err := def.Parse(output, true)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	rec := records[0]
	if v := rec.Value("ObscureVendorField"); v != 42.0 {
		t.Errorf("raw field dropped: %v", v)
	}
	if _, ok := rec.Value("Nested").(map[string]any); !ok {
		t.Errorf("nested raw object lost: %v", rec.Value("Nested"))
	}
}

func TestCimTime(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{
			"cim datetime",
			"20240131093000.000000+000",
			time.Date(2024, 1, 31, 9, 30, 0, 0, time.UTC),
		},
		{
			"json date wrapper",
			"/Date(1706693400000)/",
			time.UnixMilli(1706693400000).UTC(),
		},
		{
			"registry date",
			"20240131",
			time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		},
		{"garbage", "not a date", nil},
		{"wrong type", 42.0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cimTime(tt.in)
			if tt.want == nil {
				if got != nil {
					t.Errorf("cimTime(%v) = %v, want nil", tt.in, got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("cimTime(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestBytesToGB(t *testing.T) {
	const gib = 1024 * 1024 * 1024

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"exact", float64(512 * gib), 512.0},
		// 1.006 GiB rounds up to 1.01, it must not truncate to 1.00
		{"rounds half up", 1.006 * gib, 1.01},
		{"zero", 0.0, nil},
		{"negative", -1.0, nil},
		{"wrong type", "500GB", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bytesToGB(tt.in); got != tt.want {
				t.Errorf("bytesToGB(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSoftwareDedupeAndSort(t *testing.T) {
	def := mustLookup(t, KindSoftware)

	output := `[{"DisplayName":"zsh tools","DisplayVersion":"1.0","Publisher":"Z","InstallDate":null},` +
		`{"DisplayName":"Acme Agent","DisplayVersion":"2.0","Publisher":"Acme","InstallDate":"20240110"},` +
		`{"DisplayName":"acme agent","DisplayVersion":"2.0","Publisher":"Acme","InstallDate":"20240110"}]`

	records, err := def.Parse(output, false)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records after dedupe, want 2", len(records))
	}
	if name := records[0].Value("Name"); name != "Acme Agent" {
		t.Errorf("first record = %v, want sorted Acme Agent", name)
	}
	if name := records[1].Value("Name"); name != "zsh tools" {
		t.Errorf("second record = %v, want zsh tools", name)
	}
}

func TestBound_Collect(t *testing.T) {
	def := mustLookup(t, KindMotherboard)
	runner := &fakeRunner{
		target: "host-a",
		output: `{"Manufacturer":"ASUS","Product":"PRIME","SerialNumber":"S1","Version":"1.0"}`,
	}
	factory := &fakeFactory{runners: map[string]*fakeRunner{"host-a": runner}}

	bound := Bind(def, false, factory)
	if bound.Entity() != "Motherboard" {
		t.Errorf("Entity() = %q", bound.Entity())
	}

	records, err := bound.Collect(context.Background(), "host-a")
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if len(runner.ran) != 1 || !strings.Contains(runner.ran[0], "Win32_BaseBoard") {
		t.Errorf("unexpected scripts run: %v", runner.ran)
	}
}

func TestBound_CollectChannelError(t *testing.T) {
	def := mustLookup(t, KindDisk)
	factory := &fakeFactory{err: fmt.Errorf("%w: unreachable", inventory.ErrChannel)}

	_, err := Bind(def, false, factory).Collect(context.Background(), "host-b")
	if !errors.Is(err, inventory.ErrChannel) {
		t.Errorf("error = %v, want ErrChannel", err)
	}
}
