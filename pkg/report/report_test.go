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

package report

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/carverauto/faros/pkg/models"
	"github.com/carverauto/faros/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

//nolint:gochecknoglobals // fixed test clock
var reportTime = time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

func fixedClock() time.Time { return reportTime }

func newHub(t *testing.T, serial, host string) *models.Hub {
	t.Helper()

	h, err := models.NewHub(models.Record{
		models.KeySerial:     serial,
		models.KeyRemoteType: "faros",
		models.KeyRemote:     "tcp://" + host + ":55132",
	})
	require.NoError(t, err)

	return h
}

func newIris(t *testing.T, serial, host string) *models.Iris {
	t.Helper()

	i, err := models.NewIris(models.Record{
		models.KeySerial:     serial,
		models.KeyRemoteType: "iris030",
		models.KeyRemote:     "tcp://" + host + ":55132",
	})
	require.NoError(t, err)

	return i
}

// echoConn answers every command with "out: <cmd>".
func echoConn(ctrl *gomock.Controller) *session.MockConn {
	conn := session.NewMockConn(ctrl)

	conn.EXPECT().Run(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmd string) (session.Result, error) {
			return session.Result{Stdout: "out: " + cmd}, nil
		}).
		Times(len(hubSections) + consoleChains*consoleDevices)
	conn.EXPECT().Close().Return(nil)

	return conn
}

func archiveEntries(t *testing.T, archive string) map[string]string {
	t.Helper()

	f, err := os.Open(archive)
	require.NoError(t, err)

	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	tr := tar.NewReader(gz)
	out := map[string]string{}

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		require.NoError(t, err)

		body, err := io.ReadAll(tr)
		require.NoError(t, err)

		out[hdr.Name] = string(body)
	}

	return out
}

func TestGenerateWholeTopology(t *testing.T) {
	ctrl := gomock.NewController(t)
	dialer := session.NewMockDialer(ctrl)
	dialer.EXPECT().Dial(gomock.Any(), "10.0.0.1").Return(echoConn(ctrl), nil)

	hub := newHub(t, "FH4A000001", "10.0.0.1")
	iris := newIris(t, "RF3E000001", "10.0.0.2")
	_ = iris.ApplyStatus(models.Status{"name": "radio"})

	topo := &models.Topology{
		Time:       reportTime,
		Hubs:       []*models.Hub{hub},
		Irises:     []*models.Iris{iris},
		Standalone: []*models.Iris{iris},
	}

	r := NewReporter(session.NewManager(dialer, nil), nil, WithClock(fixedClock))

	res, err := r.Generate(context.Background(), topo, nil, Options{Dir: t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, "sklk_report-2025_03_04T05_06_07", filepath.Base(res.Dir))
	assert.Equal(t, res.Dir+".tar.gz", res.Archive)
	assert.Equal(t, []string{"FH4A000001", "RF3E000001"}, res.Devices)
	assert.Empty(t, res.Failures)

	hubReport, err := os.ReadFile(filepath.Join(res.Dir, "FH4A000001.txt"))
	require.NoError(t, err)

	text := string(hubReport)
	assert.True(t, strings.HasPrefix(text, strings.Repeat("=", 72)+"\n==== JSON status\n"))
	assert.Contains(t, text, "==== HUB power status\n"+strings.Repeat("=", 72)+"\nout: sudo hub_cpld -P\n")
	assert.Contains(t, text, "==== Radio Unit Console output\n")
	assert.Contains(t, text, "    ==== Chain 7 Device 8\n")
	assert.Contains(t, text, "    out: sudo journalctl --no-pager -n 100 -u sklk-cattty@devices-virtual-tty-ch6_tty8\n")

	irisReport, err := os.ReadFile(filepath.Join(res.Dir, "RF3E000001.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(irisReport), "==== JSON status\n")
	assert.Contains(t, string(irisReport), `    "name": "radio"`)

	tree, err := os.ReadFile(filepath.Join(res.Dir, treeFile))
	require.NoError(t, err)
	assert.Contains(t, string(tree), "==== Device Tree\n")
	assert.Contains(t, string(tree), "FH4A000001")

	entries := archiveEntries(t, res.Archive)
	assert.Contains(t, entries, "sklk_report-2025_03_04T05_06_07/")
	assert.Equal(t, text, entries["sklk_report-2025_03_04T05_06_07/FH4A000001.txt"])
	assert.Contains(t, entries, "sklk_report-2025_03_04T05_06_07/RF3E000001.txt")
	assert.Contains(t, entries, "sklk_report-2025_03_04T05_06_07/device_tree.txt")
}

func TestGenerateDeviceFailureDoesNotAbort(t *testing.T) {
	ctrl := gomock.NewController(t)
	dialer := session.NewMockDialer(ctrl)
	dialer.EXPECT().Dial(gomock.Any(), "10.0.0.1").Return(nil, errors.New("connection refused"))

	hub := newHub(t, "FH4A000001", "10.0.0.1")
	iris := newIris(t, "RF3E000001", "10.0.0.2")

	topo := &models.Topology{Time: reportTime, Hubs: []*models.Hub{hub}, Standalone: []*models.Iris{iris}}

	r := NewReporter(session.NewManager(dialer, nil), nil, WithClock(fixedClock))

	res, err := r.Generate(context.Background(), topo, nil, Options{Dir: t.TempDir(), Concurrency: 1})
	require.NoError(t, err)

	require.Len(t, res.Failures, 1)
	assert.Equal(t, "FH4A000001", res.Failures[0].Serial)
	require.ErrorIs(t, res.Failures[0].Err, session.ErrDial)

	assert.FileExists(t, filepath.Join(res.Dir, "RF3E000001.txt"))
	assert.FileExists(t, filepath.Join(res.Dir, "FH4A000001.txt"))
	assert.FileExists(t, res.Archive)
}

func TestGenerateCommandFailureStopsDevice(t *testing.T) {
	ctrl := gomock.NewController(t)
	dialer := session.NewMockDialer(ctrl)
	conn := session.NewMockConn(ctrl)

	dialer.EXPECT().Dial(gomock.Any(), "10.0.0.1").Return(conn, nil)
	gomock.InOrder(
		conn.EXPECT().Run(gomock.Any(), "sudo hub_cpld -P").Return(session.Result{ExitCode: 1, Stdout: "cpld busy"}, nil),
		conn.EXPECT().Run(gomock.Any(), "sudo hub_cpld -l").Return(session.Result{}, io.ErrUnexpectedEOF),
	)
	conn.EXPECT().Close().Return(nil)

	topo := &models.Topology{Time: reportTime, Hubs: []*models.Hub{newHub(t, "FH4A000001", "10.0.0.1")}}

	r := NewReporter(session.NewManager(dialer, nil), nil, WithClock(fixedClock))

	res, err := r.Generate(context.Background(), topo, nil, Options{Dir: t.TempDir()})
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	require.ErrorIs(t, res.Failures[0].Err, io.ErrUnexpectedEOF)

	body, err := os.ReadFile(filepath.Join(res.Dir, "FH4A000001.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(body), "cpld busy\n")
	assert.Contains(t, string(body), "Error running command: ")
	assert.NotContains(t, string(body), "HUB fpga info")
}

func TestGenerateRejectsExistingDir(t *testing.T) {
	parent := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(parent, "sklk_report-2025_03_04T05_06_07"), 0o755))

	r := NewReporter(nil, nil, WithClock(fixedClock))

	_, err := r.Generate(context.Background(), &models.Topology{}, nil, Options{Dir: parent})
	require.ErrorIs(t, err, ErrReportExists)

	_, err = r.Generate(context.Background(), nil, nil, Options{Dir: parent})
	require.ErrorIs(t, err, ErrNoTopology)
}

func TestSelection(t *testing.T) {
	hub := newHub(t, "FH4A000001", "10.0.0.1")
	attached := newIris(t, "RF3E000002", "10.0.0.3")
	attached.HubSerial = hub.Serial()
	hub.SetChain(&models.Chain{Index: 0, HubSerial: hub.Serial(), Nodes: []*models.Iris{attached}})

	standalone := newIris(t, "RF3E000001", "10.0.0.2")

	topo := &models.Topology{Hubs: []*models.Hub{hub}, Standalone: []*models.Iris{standalone}}
	r := NewReporter(nil, nil)

	serials := func(devices []models.Device) []string {
		out := make([]string, 0, len(devices))
		for _, d := range devices {
			out = append(out, d.Serial())
		}

		return out
	}

	tests := []struct {
		name      string
		devices   []models.Device
		recursive bool
		want      []string
	}{
		{"all", nil, false, []string{"FH4A000001", "RF3E000002", "RF3E000001"}},
		{"only hub", []models.Device{hub}, false, []string{"FH4A000001"}},
		{"hub recursive", []models.Device{hub}, true, []string{"FH4A000001", "RF3E000002"}},
		{"iris recursive pulls hub", []models.Device{attached}, true, []string{"RF3E000002", "FH4A000001"}},
		{"duplicates dropped", []models.Device{standalone, standalone}, true, []string{"RF3E000001"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serials(r.selection(topo, tt.devices, tt.recursive)))
		})
	}
}

func TestWriteHeader(t *testing.T) {
	var b bytes.Buffer

	writeHeader(&b, "Chain 1 Device 1", 4)

	lines := strings.Split(strings.TrimSuffix(b.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "    "+strings.Repeat("=", 68), lines[0])
	assert.Equal(t, "    ==== Chain 1 Device 1", lines[1])
	assert.Equal(t, lines[0], lines[2])
}
