/*
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

package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustStatus(t *testing.T, body string) Status {
	t.Helper()

	var s Status
	require.NoError(t, json.Unmarshal([]byte(body), &s))

	return s
}

func TestAddresses(t *testing.T) {
	tests := []struct {
		name        string
		remote      string
		hub         bool
		address     string
		dial        string
		metadataURL string
	}{
		{
			name:        "ipv4 node keeps path",
			remote:      "tcp://10.0.0.2:55132/status?x=1",
			address:     "10.0.0.2",
			dial:        "10.0.0.2",
			metadataURL: "http://10.0.0.2/status?x=1",
		},
		{
			name:        "hub uses status.json",
			remote:      "http://10.0.0.1:8080/anything",
			hub:         true,
			address:     "10.0.0.1",
			dial:        "10.0.0.1",
			metadataURL: "http://10.0.0.1/status.json",
		},
		{
			name:        "link local with zone",
			remote:      "tcp://[fe80::1%eth0]:55132/x",
			address:     "[fe80::1%eth0]",
			dial:        "fe80::1%eth0",
			metadataURL: "http://[fe80::1%25eth0]/x",
		},
		{
			name:        "escaped zone",
			remote:      "tcp://[fe80::2%25eth1]:55132",
			address:     "[fe80::2%eth1]",
			dial:        "fe80::2%eth1",
			metadataURL: "http://[fe80::2%25eth1]",
		},
		{
			name:        "global ipv6 is bracketed",
			remote:      "tcp://[2001:db8::5]:55132/",
			address:     "[2001:db8::5]",
			dial:        "2001:db8::5",
			metadataURL: "http://[2001:db8::5]/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := newRemote(Record{KeySerial: "S1", KeyRemote: tt.remote}, tt.hub)
			require.NoError(t, err)
			assert.Equal(t, tt.address, r.Address())
			assert.Equal(t, tt.dial, r.DialAddress())
			assert.Equal(t, tt.metadataURL, r.MetadataURL())
		})
	}
}

func TestNewRemoteWithoutURL(t *testing.T) {
	_, err := NewIris(Record{KeySerial: "RF1"})
	require.ErrorIs(t, err, ErrNoRemoteURL)
}

func TestVariants(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		make func(Record) (Device, error)
		want Variant
	}{
		{"iris rrh fpga", Record{KeyFPGA: "iris030_rrh_v1"}, irisDevice, VariantIrisRRH},
		{"iris ue fpga", Record{KeyFPGA: "iris030_ue"}, irisDevice, VariantIrisUE},
		{"iris standard", Record{KeyFPGA: "iris030"}, irisDevice, VariantIris},
		{"hub rev b", Record{KeyRevision: "04B"}, hubDevice, VariantHubB},
		{"hub rev a", Record{KeyRevision: "04A"}, hubDevice, VariantHubA},
		{"hub no revision", Record{}, hubDevice, VariantHubA},
		{"cpe rrh", Record{KeyFPGA: "cpe_rrh"}, cpeDevice, VariantCPERRH},
		{"cpe", Record{KeyFPGA: "cpe"}, cpeDevice, VariantCPE},
		{"vger", Record{KeyFPGA: "whatever"}, vgerDevice, VariantVGER},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.rec.Clone()
			rec[KeySerial] = "S1"
			rec[KeyRemote] = "tcp://10.0.0.9:1"

			d, err := tt.make(rec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Variant())
			assert.Equal(t, tt.want.Kind(), d.Kind())
		})
	}
}

func irisDevice(r Record) (Device, error) { return NewIris(r) }
func hubDevice(r Record) (Device, error)  { return NewHub(r) }
func cpeDevice(r Record) (Device, error)  { return NewCPE(r) }
func vgerDevice(r Record) (Device, error) { return NewVGER(r) }

func TestParseVariant(t *testing.T) {
	v, ok := ParseVariant(" IRIS030_UE ")
	require.True(t, ok)
	assert.Equal(t, VariantIrisUE, v)

	_, ok = ParseVariant("iris040")
	assert.False(t, ok)
	assert.Len(t, AllVariants(), 8)
}

func TestMACHelpers(t *testing.T) {
	v, err := HubMACMatch("00:11:22:ab:cd:ef")
	require.NoError(t, err)
	assert.Equal(t, uint64(0xefcdab), v)

	_, err = HubMACMatch("ab:cd")
	require.ErrorIs(t, err, ErrInvalidMAC)

	mac, err := ParseMAC("0xefcdab")
	require.NoError(t, err)
	assert.Equal(t, uint64(0xefcdab), mac)

	_, err = ParseMAC("zz")
	require.ErrorIs(t, err, ErrInvalidMAC)

	assert.Equal(t, uint64(0xabcdef), UAAID(0x1122efcdab))
}

func TestStatusInt(t *testing.T) {
	s := mustStatus(t, `{"global":{"n":3,"s":"4","bad":"x","obj":{}}}`)

	n, err := s.Int("global", "n")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = s.Int("global", "s")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = s.Int("global", "bad")
	require.ErrorIs(t, err, ErrStatusKeyType)

	_, err = s.Int("global", "obj")
	require.ErrorIs(t, err, ErrStatusKeyType)

	_, err = s.Int("global", "missing")
	require.ErrorIs(t, err, ErrStatusKeyMissing)

	_, err = s.Int("global", "n", "deeper")
	require.ErrorIs(t, err, ErrStatusKeyMissing)
}

func TestIrisApplyStatus(t *testing.T) {
	iris, err := NewIris(Record{KeySerial: "RF01", KeyRemote: "tcp://10.0.0.2:1", KeyFPGA: "iris030"})
	require.NoError(t, err)

	err = iris.ApplyStatus(mustStatus(t, `{
		"extra": {"gateway_addr": "0xefcdab"},
		"global": {"message_index": "1", "chain_index": 2},
		"sfp": {"config": {"rrh": {"serial": "RH01", "chain": ["RF01", "RF02"]}}}
	}`))
	require.NoError(t, err)

	assert.True(t, iris.Fetched())
	assert.Equal(t, uint64(0xefcdab), iris.LastMAC)
	assert.Equal(t, uint64(0xabcdef), iris.UAAID)
	assert.Equal(t, 0, iris.RRHIndex)
	assert.Equal(t, 2, iris.ChainIndex)
	assert.True(t, iris.RRHHead)
	assert.Equal(t, VariantIrisRRH, iris.Variant())
	require.NotNil(t, iris.Config)
	assert.Equal(t, &ChainConfig{Serial: "RH01", Members: []string{"RF01", "RF02"}}, iris.Config)
}

func TestIrisApplyStatusFailureLeavesFieldsUnset(t *testing.T) {
	iris, err := NewIris(Record{KeySerial: "RF01", KeyRemote: "tcp://10.0.0.2:1", KeyFPGA: "iris030"})
	require.NoError(t, err)

	err = iris.ApplyStatus(mustStatus(t, `{"extra":{"gateway_addr":"0x01"},"global":{"message_index":1}}`))
	require.ErrorIs(t, err, ErrStatusKeyMissing)

	assert.False(t, iris.Fetched())
	assert.False(t, iris.HasMAC)
	assert.Equal(t, NoIndex, iris.RRHIndex)
	assert.Equal(t, NoIndex, iris.ChainIndex)
	assert.Equal(t, VariantIris, iris.Variant())
	assert.NotNil(t, iris.Status())
}

func TestIrisNoneSFP(t *testing.T) {
	iris, err := NewIris(Record{KeySerial: "RF01", KeyRemote: "tcp://10.0.0.2:1"})
	require.NoError(t, err)

	require.NoError(t, iris.ApplyStatus(mustStatus(t,
		`{"extra":{"gateway_addr":"ff"},"global":{"message_index":0,"chain_index":0},"sfp":"None"}`)))
	assert.False(t, iris.RRHHead)
	assert.Nil(t, iris.Config)
	assert.Equal(t, NoIndex, iris.RRHIndex)
	assert.Equal(t, VariantIris, iris.Variant())
}

func TestHubApplyStatus(t *testing.T) {
	hub, err := NewHub(Record{KeySerial: "FH01", KeyRemote: "tcp://10.0.0.1:1", KeyRevision: "B"})
	require.NoError(t, err)

	require.NoError(t, hub.ApplyStatus(mustStatus(t,
		`{"jtagblob":{"network":{"eth1":"00:11:22:dd:ee:ff","eth0":"00:11:22:ab:cd:ef"}}}`)))

	assert.Equal(t, []uint64{0xefcdab, 0xffeedd}, hub.MACMatches)
	assert.True(t, hub.MatchesMAC(0xffeedd))
	assert.False(t, hub.MatchesMAC(0x1))

	err = hub.ApplyStatus(mustStatus(t, `{"jtagblob":{"network":{"eth0":7}}}`))
	require.ErrorIs(t, err, ErrStatusKeyType)
	assert.False(t, hub.Fetched())
	assert.Equal(t, []uint64{0xefcdab, 0xffeedd}, hub.MACMatches)
}

func TestGatewayApplyStatus(t *testing.T) {
	cpe, err := NewCPE(Record{KeySerial: "CP01", KeyRemote: "tcp://10.0.0.3:1", KeyFPGA: "cpe"})
	require.NoError(t, err)

	require.NoError(t, cpe.ApplyStatus(mustStatus(t, `{"extra":{"gateway_addr":"0x0a0b0c"}}`)))
	assert.True(t, cpe.Fetched())
	assert.Equal(t, uint64(0x0c0b0a), cpe.UAAID)
	assert.False(t, cpe.RRHHead)
	assert.Equal(t, KindCPE, cpe.Kind())
}

func TestChainMembers(t *testing.T) {
	a, _ := NewIris(Record{KeySerial: "A", KeyRemote: "tcp://10.0.0.4:1"})
	b, _ := NewIris(Record{KeySerial: "B", KeyRemote: "tcp://10.0.0.5:1"})

	degraded := &Chain{Index: 1, Nodes: []*Iris{a, b}, ByIndex: map[int]*Iris{3: b, 1: a}}
	assert.Equal(t, []*Iris{a, b}, degraded.Members())
	assert.Equal(t, b, degraded.Tail())
	assert.True(t, degraded.Contains("A"))
	assert.False(t, degraded.Errored())

	degraded.Errors = append(degraded.Errors, ErrNoChainHead)
	require.ErrorIs(t, degraded.Err(), ErrNoChainHead)
	assert.Equal(t, "", degraded.Address())
}

func TestTopologyDevicesOrder(t *testing.T) {
	hub, _ := NewHub(Record{KeySerial: "FH01", KeyRemote: "tcp://10.0.0.1:1"})
	n0, _ := NewIris(Record{KeySerial: "RF00", KeyRemote: "tcp://10.0.0.2:1"})
	n1, _ := NewIris(Record{KeySerial: "RF01", KeyRemote: "tcp://10.0.0.3:1"})
	solo, _ := NewIris(Record{KeySerial: "RF99", KeyRemote: "tcp://10.0.0.9:1"})
	cpe, _ := NewCPE(Record{KeySerial: "CP01", KeyRemote: "tcp://10.0.0.7:1"})
	vger, _ := NewVGER(Record{KeySerial: "VG01", KeyRemote: "tcp://10.0.0.8:1"})

	hub.SetChain(&Chain{Index: 4, HubSerial: "FH01", Nodes: []*Iris{n1}})
	hub.SetChain(&Chain{Index: 0, HubSerial: "FH01", Nodes: []*Iris{n0}})

	topo := &Topology{
		Hubs:       []*Hub{hub},
		Irises:     []*Iris{n0, n1, solo},
		Standalone: []*Iris{solo},
		CPEs:       []*Gateway{cpe},
		VGERs:      []*Gateway{vger},
	}

	var serials []string
	for _, d := range topo.Devices() {
		serials = append(serials, d.Serial())
	}

	assert.Equal(t, []string{"FH01", "RF00", "RF01", "RF99", "CP01", "VG01"}, serials)

	d, ok := topo.Device("VG01")
	require.True(t, ok)
	assert.Equal(t, KindVGER, d.Kind())

	_, ok = topo.Device("nope")
	assert.False(t, ok)
}
