package probe

import (
	"sort"
	"strings"

	"github.com/invlite/invlite/internal/inventory"
)

// Kind identifies one collector.
type Kind string

const (
	KindMotherboard Kind = "motherboard"
	KindDisk        Kind = "disk"
	KindOS          Kind = "os"
	KindCPU         Kind = "cpu"
	KindBIOS        Kind = "bios"
	KindGPU         Kind = "gpu"
	KindSoftware    Kind = "software"
)

// Kinds returns all collector kinds in presentation order.
func Kinds() []Kind {
	return []Kind{
		KindMotherboard,
		KindDisk,
		KindOS,
		KindCPU,
		KindBIOS,
		KindGPU,
		KindSoftware,
	}
}

// Lookup returns the probe definition for a kind.
func Lookup(kind Kind) (*Definition, bool) {
	def, ok := catalog[kind]
	return def, ok
}

const softwareScript = `Get-ItemProperty 'HKLM:\Software\Microsoft\Windows\CurrentVersion\Uninstall\*', 'HKLM:\Software\Wow6432Node\Microsoft\Windows\CurrentVersion\Uninstall\*' -ErrorAction SilentlyContinue | Where-Object { $_.DisplayName } | Select-Object DisplayName, DisplayVersion, Publisher, InstallDate | ConvertTo-Json -Compress -Depth 10`

const softwareRawScript = `Get-ItemProperty 'HKLM:\Software\Microsoft\Windows\CurrentVersion\Uninstall\*', 'HKLM:\Software\Wow6432Node\Microsoft\Windows\CurrentVersion\Uninstall\*' -ErrorAction SilentlyContinue | Where-Object { $_.DisplayName } | ConvertTo-Json -Compress -Depth 10`

// catalog holds the per-collector field-mapping tables. One Definition
// per collector kind; the rest of the pipeline treats them uniformly.
var catalog = map[Kind]*Definition{
	KindMotherboard: {
		entity: "Motherboard",
		class:  "Win32_BaseBoard",
		fields: []Field{
			{Name: "Manufacturer", Source: "Manufacturer"},
			{Name: "Product", Source: "Product"},
			{Name: "SerialNumber", Source: "SerialNumber"},
			{Name: "Version", Source: "Version"},
		},
	},
	KindDisk: {
		entity: "Disk",
		class:  "Win32_DiskDrive",
		fields: []Field{
			{Name: "Model", Source: "Model"},
			{Name: "SerialNumber", Source: "SerialNumber"},
			{Name: "InterfaceType", Source: "InterfaceType"},
			{Name: "MediaType", Source: "MediaType"},
			{Name: "SizeGB", Source: "Size", Convert: bytesToGB},
			{Name: "Partitions", Source: "Partitions"},
		},
	},
	KindOS: {
		entity: "OS",
		class:  "Win32_OperatingSystem",
		fields: []Field{
			{Name: "Caption", Source: "Caption"},
			{Name: "Version", Source: "Version"},
			{Name: "BuildNumber", Source: "BuildNumber"},
			{Name: "Architecture", Source: "OSArchitecture"},
			{Name: "InstallDate", Source: "InstallDate", Convert: cimTime},
			{Name: "LastBootUpTime", Source: "LastBootUpTime", Convert: cimTime},
			{Name: "RegisteredUser", Source: "RegisteredUser"},
			{Name: "SerialNumber", Source: "SerialNumber"},
		},
	},
	KindCPU: {
		entity: "CPU",
		class:  "Win32_Processor",
		fields: []Field{
			{Name: "Name", Source: "Name"},
			{Name: "Manufacturer", Source: "Manufacturer"},
			{Name: "MaxClockSpeedMHz", Source: "MaxClockSpeed"},
			{Name: "Cores", Source: "NumberOfCores"},
			{Name: "LogicalProcessors", Source: "NumberOfLogicalProcessors"},
			{Name: "Socket", Source: "SocketDesignation"},
			{Name: "ProcessorId", Source: "ProcessorId"},
		},
	},
	KindBIOS: {
		entity: "BIOS",
		class:  "Win32_BIOS",
		fields: []Field{
			{Name: "Manufacturer", Source: "Manufacturer"},
			{Name: "SMBIOSVersion", Source: "SMBIOSBIOSVersion"},
			{Name: "Version", Source: "Version"},
			{Name: "SerialNumber", Source: "SerialNumber"},
			{Name: "ReleaseDate", Source: "ReleaseDate", Convert: cimTime},
		},
	},
	KindGPU: {
		entity: "GPU",
		class:  "Win32_VideoController",
		fields: []Field{
			{Name: "Name", Source: "Name"},
			{Name: "VideoProcessor", Source: "VideoProcessor"},
			{Name: "AdapterRAMGB", Source: "AdapterRAM", Convert: bytesToGB},
			{Name: "DriverVersion", Source: "DriverVersion"},
			{Name: "DriverDate", Source: "DriverDate", Convert: cimTime},
			{Name: "HorizontalResolution", Source: "CurrentHorizontalResolution"},
			{Name: "VerticalResolution", Source: "CurrentVerticalResolution"},
		},
	},
	KindSoftware: {
		entity:    "Software",
		script:    softwareScript,
		rawScript: softwareRawScript,
		fields: []Field{
			{Name: "Name", Source: "DisplayName"},
			{Name: "Version", Source: "DisplayVersion"},
			{Name: "Vendor", Source: "Publisher"},
			{Name: "InstallDate", Source: "InstallDate", Convert: cimTime},
		},
		post: dedupeSoftware,
	},
}

// dedupeSoftware drops duplicate entries by name (the 32-bit and
// 64-bit registry views overlap) and sorts case-insensitively. This
// runs inside the probe; the fan-out core never deduplicates.
func dedupeSoftware(records inventory.RecordSet) inventory.RecordSet {
	seen := make(map[string]bool, len(records))
	out := make(inventory.RecordSet, 0, len(records))
	for _, rec := range records {
		name, _ := rec.Value("Name").(string)
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, _ := out[i].Value("Name").(string)
		b, _ := out[j].Value("Name").(string)
		return strings.ToLower(a) < strings.ToLower(b)
	})
	return out
}
