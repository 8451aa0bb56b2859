// Package snmp provides an inventory probe for network devices that
// expose SNMP instead of a shell. It satisfies the same fan-out probe
// contract as the script-based host probes.
package snmp

import (
	"context"
	"fmt"
	"strings"

	"github.com/gosnmp/gosnmp"

	"github.com/invlite/invlite/internal/config"
	"github.com/invlite/invlite/internal/inventory"
)

// MIB-II system group OIDs, queried in this order.
var systemOIDs = []struct {
	name string
	oid  string
}{
	{"Description", "1.3.6.1.2.1.1.1.0"},
	{"ObjectID", "1.3.6.1.2.1.1.2.0"},
	{"UptimeTicks", "1.3.6.1.2.1.1.3.0"},
	{"Contact", "1.3.6.1.2.1.1.4.0"},
	{"Name", "1.3.6.1.2.1.1.5.0"},
	{"Location", "1.3.6.1.2.1.1.6.0"},
}

// Probe collects the MIB-II system group from a device over SNMP v2c.
type Probe struct {
	cfg config.SNMPConfig
}

// NewProbe creates an SNMP device probe.
func NewProbe(cfg config.SNMPConfig) *Probe {
	return &Probe{cfg: cfg}
}

// Entity returns the entity tag used for export file naming.
func (p *Probe) Entity() string {
	return "Device"
}

// Collect performs a GetRequest for the system group OIDs and returns
// a single record. SNMP targets have no local-execution variant, so
// every dispatch goes over the wire.
func (p *Probe) Collect(ctx context.Context, target string) (inventory.RecordSet, error) {
	g := &gosnmp.GoSNMP{
		Context:   ctx,
		Target:    target,
		Port:      uint16(p.cfg.Port),
		Version:   gosnmp.Version2c,
		Community: p.cfg.Community,
		Timeout:   p.cfg.GetTimeout(),
	}

	if err := g.Connect(); err != nil {
		return nil, fmt.Errorf("%w: SNMP connection failed: %v", inventory.ErrChannel, err)
	}
	defer g.Conn.Close()

	oids := make([]string, len(systemOIDs))
	for i, o := range systemOIDs {
		oids[i] = o.oid
	}

	result, err := g.Get(oids)
	if err != nil {
		return nil, fmt.Errorf("%w: SNMP Get request failed: %v", inventory.ErrChannel, err)
	}

	byOID := make(map[string]any, len(result.Variables))
	for _, v := range result.Variables {
		if v.Type == gosnmp.NoSuchObject || v.Type == gosnmp.NoSuchInstance || v.Value == nil {
			continue
		}
		byOID[strings.TrimPrefix(v.Name, ".")] = decodeValue(v)
	}

	rec := inventory.NewRecord()
	for _, o := range systemOIDs {
		v, ok := byOID[o.oid]
		if !ok {
			rec.Set(o.name, nil)
			continue
		}
		rec.Set(o.name, v)
	}
	return inventory.RecordSet{rec}, nil
}

func decodeValue(v gosnmp.SnmpPDU) any {
	switch v.Type {
	case gosnmp.OctetString:
		if b, ok := v.Value.([]byte); ok {
			return string(b)
		}
		return fmt.Sprintf("%v", v.Value)
	case gosnmp.TimeTicks, gosnmp.Counter32, gosnmp.Gauge32, gosnmp.Integer:
		return gosnmp.ToBigInt(v.Value).Int64()
	default:
		return fmt.Sprintf("%v", v.Value)
	}
}
