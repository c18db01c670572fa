/*-
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package source

import (
	"context"
	"errors"
	"testing"

	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNMPClient struct {
	connectErr error
	getErr     error
	vars       map[string]gosnmp.SnmpPDU
	requested  [][]string
	closed     int
}

func (f *fakeSNMPClient) Connect() error { return f.connectErr }

func (f *fakeSNMPClient) Get(oids []string) (*gosnmp.SnmpPacket, error) {
	f.requested = append(f.requested, oids)

	if f.getErr != nil {
		return nil, f.getErr
	}

	packet := &gosnmp.SnmpPacket{}

	for _, oid := range oids {
		if pdu, ok := f.vars[oid]; ok {
			packet.Variables = append(packet.Variables, pdu)
		}
	}

	return packet, nil
}

func (f *fakeSNMPClient) Close() error {
	f.closed++
	return nil
}

func TestSNMPSource_Fetch(t *testing.T) {
	client := &fakeSNMPClient{vars: map[string]gosnmp.SnmpPDU{
		".1.3.6.1.4.1.2021.11.9.0": {Name: ".1.3.6.1.4.1.2021.11.9.0", Type: gosnmp.Integer, Value: 37},
		".1.3.6.1.2.1.2.2.1.10.1":  {Name: ".1.3.6.1.2.1.2.2.1.10.1", Type: gosnmp.Counter32, Value: uint(123456)},
		".1.3.6.1.4.1.9.9.1":       {Name: ".1.3.6.1.4.1.9.9.1", Type: gosnmp.NoSuchObject},
	}}

	src := newSNMPSource("router", &SNMPConfig{
		Host: "192.0.2.1",
		OIDs: map[string]string{
			"cpu":     "1.3.6.1.4.1.2021.11.9.0",
			"if_in":   ".1.3.6.1.2.1.2.2.1.10.1",
			"missing": ".1.3.6.1.4.1.9.9.1",
			"ignored": ".1.3.6.1.4.1.9.9.2",
		},
	}, client)

	readings, err := src.Fetch(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 37, readings["cpu"], 1e-9)
	assert.InDelta(t, 123456, readings["if_in"], 1e-9)
	assert.NotContains(t, readings, "missing")
	assert.Len(t, readings, 2)
	require.Len(t, client.requested, 1)
	assert.Len(t, client.requested[0], 4)
}

func TestSNMPSource_Errors(t *testing.T) {
	errTimeout := errors.New("request timeout")

	t.Run("connect", func(t *testing.T) {
		src := newSNMPSource("r", &SNMPConfig{Host: "h", OIDs: map[string]string{"a": "1.1"}},
			&fakeSNMPClient{connectErr: errTimeout})

		_, err := src.Fetch(context.Background())

		var snmpErr *SNMPError
		require.ErrorAs(t, err, &snmpErr)
		assert.Equal(t, "connect", snmpErr.Op)
		require.ErrorIs(t, err, errTimeout)
	})

	t.Run("get resets connection", func(t *testing.T) {
		client := &fakeSNMPClient{getErr: errTimeout}
		src := newSNMPSource("r", &SNMPConfig{Host: "h", OIDs: map[string]string{"a": "1.1"}}, client)

		_, err := src.Fetch(context.Background())
		require.ErrorIs(t, err, errTimeout)
		assert.Equal(t, 1, client.closed)
		assert.False(t, src.connected)
	})

	t.Run("nothing numeric", func(t *testing.T) {
		client := &fakeSNMPClient{vars: map[string]gosnmp.SnmpPDU{
			".1.1": {Name: ".1.1", Type: gosnmp.NoSuchInstance},
		}}
		src := newSNMPSource("r", &SNMPConfig{Host: "h", OIDs: map[string]string{"a": "1.1"}}, client)

		_, err := src.Fetch(context.Background())
		require.ErrorIs(t, err, errNoReadings)
	})
}

func TestPDUToFloat(t *testing.T) {
	tests := []struct {
		name    string
		pdu     gosnmp.SnmpPDU
		want    float64
		wantErr error
	}{
		{"integer", gosnmp.SnmpPDU{Type: gosnmp.Integer, Value: -5}, -5, nil},
		{"gauge32", gosnmp.SnmpPDU{Type: gosnmp.Gauge32, Value: uint(80)}, 80, nil},
		{"counter64", gosnmp.SnmpPDU{Type: gosnmp.Counter64, Value: uint64(1 << 40)}, 1 << 40, nil},
		{"timeticks", gosnmp.SnmpPDU{Type: gosnmp.TimeTicks, Value: uint32(360000)}, 360000, nil},
		{"opaque float", gosnmp.SnmpPDU{Type: gosnmp.OpaqueFloat, Value: float32(1.5)}, 1.5, nil},
		{"opaque double", gosnmp.SnmpPDU{Type: gosnmp.OpaqueDouble, Value: 2.25}, 2.25, nil},
		{"numeric string", gosnmp.SnmpPDU{Type: gosnmp.OctetString, Value: []byte(" 12.5 ")}, 12.5, nil},
		{"no such object", gosnmp.SnmpPDU{Type: gosnmp.NoSuchObject}, 0, errNoSuchObject},
		{"ip address", gosnmp.SnmpPDU{Type: gosnmp.IPAddress, Value: "10.0.0.1"}, 0, errUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pduToFloat(tt.pdu)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestNormalizeOID(t *testing.T) {
	assert.Equal(t, ".1.3.6", normalizeOID("1.3.6"))
	assert.Equal(t, ".1.3.6", normalizeOID(".1.3.6"))
	assert.Equal(t, ".1.3.6", normalizeOID(" 1.3.6 "))
}
