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

package updater

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/carverauto/faros/pkg/artifacts"
	"github.com/carverauto/faros/pkg/events"
	"github.com/carverauto/faros/pkg/models"
	"github.com/carverauto/faros/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var errUnreachable = errors.New("no route to host")

// commandLog records every remote command across devices, in order.
type commandLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *commandLog) add(host, cmd string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, host+": "+cmd)
}

func (l *commandLog) forHost(host string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []string

	for _, e := range l.entries {
		if cmd, ok := strings.CutPrefix(e, host+": "); ok {
			out = append(out, cmd)
		}
	}

	return out
}

// fakeConn is an in-memory device: uploads land in files and sha256sum
// hashes whatever was stored.
type fakeConn struct {
	host   string
	log    *commandLog
	mounts string
	// corrupt flips the first byte of every upload.
	corrupt bool
	// fail maps a command prefix to the error it returns.
	fail map[string]error

	mu     sync.Mutex
	files  map[string][]byte
	closed bool
}

func (c *fakeConn) Run(_ context.Context, cmd string) (session.Result, error) {
	c.log.add(c.host, cmd)

	for prefix, err := range c.fail {
		if strings.HasPrefix(cmd, prefix) {
			return session.Result{}, err
		}
	}

	switch {
	case strings.HasPrefix(cmd, "sha256sum "):
		name := strings.Trim(strings.TrimPrefix(cmd, "sha256sum "), "'")

		c.mu.Lock()
		content, ok := c.files[name]
		c.mu.Unlock()

		if !ok {
			return session.Result{ExitCode: 1, Stderr: "No such file or directory"}, nil
		}

		sum := sha256.Sum256(content)

		return session.Result{Stdout: hex.EncodeToString(sum[:]) + "  " + name + "\n"}, nil
	case cmd == procMounts:
		return session.Result{Stdout: c.mounts}, nil
	default:
		return session.Result{}, nil
	}
}

func (c *fakeConn) Upload(_ context.Context, remoteDir, name string, size int64, content io.Reader) error {
	b, err := io.ReadAll(io.LimitReader(content, size))
	if err != nil {
		return err
	}

	if c.corrupt && len(b) > 0 {
		b[0] ^= 0xff
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.files[path.Join(remoteDir, name)] = b

	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	return nil
}

type fakeDialer struct {
	conns map[string]*fakeConn
}

func (d *fakeDialer) Dial(_ context.Context, host string) (session.Conn, error) {
	c, ok := d.conns[host]
	if !ok {
		return nil, errUnreachable
	}

	return c, nil
}

// fleet builds a dialer with one healthy connection per host.
func fleet(log *commandLog, hosts ...string) *fakeDialer {
	d := &fakeDialer{conns: make(map[string]*fakeConn, len(hosts))}

	for _, h := range hosts {
		d.conns[h] = &fakeConn{host: h, log: log, mounts: "proc /proc proc rw 0 0\n", files: map[string][]byte{}}
	}

	return d
}

type sourceFunc func(models.Device) ([]*artifacts.Artifact, error)

func (f sourceFunc) ArtifactsFor(d models.Device) ([]*artifacts.Artifact, error) { return f(d) }

// irisImages writes a BOOT.BIN and image.ub and returns them as artifacts.
func irisImages(t *testing.T) []*artifacts.Artifact {
	t.Helper()

	dir := t.TempDir()

	var out []*artifacts.Artifact

	for kind, name := range map[artifacts.Kind]string{
		artifacts.KindBootBin: "BOOT.BIN",
		artifacts.KindImageUB: "image.ub",
	} {
		content := []byte("firmware " + name)
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, content, 0o600))

		sum := sha256.Sum256(content)
		out = append(out, &artifacts.Artifact{
			Kind:    kind,
			Path:    p,
			Variant: models.VariantIris,
			SHA256:  hex.EncodeToString(sum[:]),
		})
	}

	if out[0].Kind != artifacts.KindBootBin {
		out[0], out[1] = out[1], out[0]
	}

	return out
}

func staticSource(arts []*artifacts.Artifact) ArtifactSource {
	return sourceFunc(func(models.Device) ([]*artifacts.Artifact, error) { return arts, nil })
}

func irisAt(t *testing.T, serial, host string) *models.Iris {
	t.Helper()

	d, err := models.NewIris(models.Record{
		models.KeySerial:     serial,
		models.KeyRemoteType: "iris030",
		models.KeyRemote:     "tcp://" + host + ":55132",
	})
	require.NoError(t, err)

	return d
}

func hubAt(t *testing.T, serial, host string) *models.Hub {
	t.Helper()

	d, err := models.NewHub(models.Record{
		models.KeySerial:     serial,
		models.KeyRemoteType: "faros",
		models.KeyRemote:     "tcp://" + host + ":55132",
	})
	require.NoError(t, err)

	return d
}

func newTestUpdater(dialer session.Dialer, source ArtifactSource, opts ...Option) *Updater {
	cfg := DefaultConfig()

	return NewUpdater(cfg, session.NewManager(dialer, nil, cfg.SessionOptions()...), source, nil, opts...)
}

func expectedCommands(dir string, arts []*artifacts.Artifact) []string {
	cmds := []string{"mkdir -p " + session.ShellQuote(dir)}

	for _, a := range arts {
		cmds = append(cmds, "sha256sum "+session.ShellQuote(path.Join(dir, a.LocalName())))
	}

	cmds = append(cmds, procMounts, mountBootRW)

	for _, a := range arts {
		cmds = append(cmds, fmt.Sprintf("sudo -n cp %s %s",
			session.ShellQuote(path.Join(dir, a.LocalName())),
			session.ShellQuote(path.Join(bootMount, a.RemoteName()))))
	}

	return append(cmds, syncFS, umountBoot, rebootCommand)
}

func TestUpdateRunsEveryPhase(t *testing.T) {
	log := &commandLog{}
	dialer := fleet(log, "10.0.0.2", "10.0.0.3")
	arts := irisImages(t)

	u := newTestUpdater(dialer, staticSource(arts))

	report, err := u.Update(context.Background(), []models.Device{
		irisAt(t, "RF3E000001", "10.0.0.2"),
		irisAt(t, "RF3E000002", "10.0.0.3"),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.True(t, strings.HasPrefix(report.StagingDir, "/tmp/updater_"))
	assert.Equal(t, []string{"RF3E000001", "RF3E000002"}, report.Succeeded())

	for _, o := range report.Outcomes {
		assert.Equal(t, StateDone, o.State)
		require.NoError(t, o.Err)
	}

	for _, host := range []string{"10.0.0.2", "10.0.0.3"} {
		assert.Equal(t, expectedCommands(report.StagingDir, arts), log.forHost(host), host)

		conn := dialer.conns[host]
		assert.True(t, conn.closed)
		assert.Len(t, conn.files, 2)
		assert.Contains(t, conn.files, path.Join(report.StagingDir, "BOOT.BIN"))
		assert.Contains(t, conn.files, path.Join(report.StagingDir, "image.ub"))
	}
}

func TestUpdateVerifiesNamesWithSpaces(t *testing.T) {
	log := &commandLog{}
	dialer := fleet(log, "10.0.0.2")

	content := []byte("firmware image")
	p := filepath.Join(t.TempDir(), "my image.ub")
	require.NoError(t, os.WriteFile(p, content, 0o600))

	sum := sha256.Sum256(content)
	art := &artifacts.Artifact{
		Kind:    artifacts.KindImageUB,
		Path:    p,
		Variant: models.VariantIris,
		SHA256:  hex.EncodeToString(sum[:]),
	}

	cfg := DefaultConfig()
	cfg.StagingRoot = "/srv/fw staging"

	u := NewUpdater(cfg, session.NewManager(dialer, nil, cfg.SessionOptions()...), staticSource([]*artifacts.Artifact{art}), nil)

	report, err := u.Update(context.Background(), []models.Device{irisAt(t, "RF3E000001", "10.0.0.2")})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(report.StagingDir, "/srv/fw staging/updater_"))
	assert.Equal(t, []string{"RF3E000001"}, report.Succeeded())
	assert.Contains(t, dialer.conns["10.0.0.2"].files, path.Join(report.StagingDir, "my image.ub"))
}

func TestUpdateChecksumMismatchIsolatesDevice(t *testing.T) {
	log := &commandLog{}
	dialer := fleet(log, "10.0.0.2", "10.0.0.3", "10.0.0.4")
	dialer.conns["10.0.0.3"].corrupt = true

	u := newTestUpdater(dialer, staticSource(irisImages(t)))

	report, err := u.Update(context.Background(), []models.Device{
		irisAt(t, "RF3E000001", "10.0.0.2"),
		irisAt(t, "RF3E000002", "10.0.0.3"),
		irisAt(t, "RF3E000003", "10.0.0.4"),
	})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrChecksumMismatch)

	var ue *UpdateError
	require.ErrorAs(t, err, &ue)
	require.Len(t, ue.Failures, 1)
	assert.Equal(t, "RF3E000002", ue.Failures[0].Serial)
	assert.Equal(t, StateVerify, ue.Failures[0].Phase)
	assert.Equal(t, []string{"RF3E000002"}, ue.Serials())

	assert.Equal(t, StateDone, report.Outcomes[0].State)
	assert.Equal(t, StateFailed, report.Outcomes[1].State)
	assert.Equal(t, StateDone, report.Outcomes[2].State)
	assert.Equal(t, []string{"RF3E000001", "RF3E000003"}, report.Succeeded())

	for _, cmd := range log.forHost("10.0.0.3") {
		assert.NotEqual(t, procMounts, cmd)
		assert.NotEqual(t, mountBootRW, cmd)
		assert.NotEqual(t, rebootCommand, cmd)
	}

	assert.Contains(t, log.forHost("10.0.0.2"), rebootCommand)
	assert.Contains(t, log.forHost("10.0.0.4"), rebootCommand)
}

func TestUpdateDialFailure(t *testing.T) {
	log := &commandLog{}
	dialer := fleet(log, "10.0.0.2")

	u := newTestUpdater(dialer, staticSource(irisImages(t)))

	report, err := u.Update(context.Background(), []models.Device{
		irisAt(t, "RF3E000001", "10.0.0.2"),
		irisAt(t, "RF3E000009", "10.0.0.9"),
	})

	var ue *UpdateError
	require.ErrorAs(t, err, &ue)
	require.Len(t, ue.Failures, 1)
	assert.Equal(t, "RF3E000009", ue.Failures[0].Serial)
	assert.Equal(t, StateStage, ue.Failures[0].Phase)
	require.ErrorIs(t, err, session.ErrDial)
	require.ErrorIs(t, err, errUnreachable)

	assert.Equal(t, StateDone, report.Outcomes[0].State)
}

func TestUpdateRemountsMountedBoot(t *testing.T) {
	log := &commandLog{}
	dialer := fleet(log, "10.0.0.2")
	dialer.conns["10.0.0.2"].mounts = "proc /proc proc rw 0 0\n/dev/mmcblk0p1 /boot vfat ro 0 0\n"

	u := newTestUpdater(dialer, staticSource(irisImages(t)))

	_, err := u.Update(context.Background(), []models.Device{irisAt(t, "RF3E000001", "10.0.0.2")})
	require.NoError(t, err)

	cmds := log.forHost("10.0.0.2")

	i := indexOf(cmds, procMounts)
	require.GreaterOrEqual(t, i, 0)
	require.Greater(t, len(cmds), i+2)
	assert.Equal(t, umountBoot, cmds[i+1])
	assert.Equal(t, mountBootRW, cmds[i+2])
}

func TestUpdateToleratesDroppedRebootChannel(t *testing.T) {
	log := &commandLog{}
	dialer := fleet(log, "10.0.0.2")
	dialer.conns["10.0.0.2"].fail = map[string]error{rebootCommand: session.ErrNoExitStatus}

	u := newTestUpdater(dialer, staticSource(irisImages(t)))

	report, err := u.Update(context.Background(), []models.Device{irisAt(t, "RF3E000001", "10.0.0.2")})
	require.NoError(t, err)
	assert.Equal(t, StateDone, report.Outcomes[0].State)
}

func TestUpdateReplaceFailure(t *testing.T) {
	log := &commandLog{}
	dialer := fleet(log, "10.0.0.2")
	dialer.conns["10.0.0.2"].fail = map[string]error{"sudo -n cp ": errors.New("read-only file system")}

	u := newTestUpdater(dialer, staticSource(irisImages(t)))

	_, err := u.Update(context.Background(), []models.Device{irisAt(t, "RF3E000001", "10.0.0.2")})

	var ue *UpdateError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, StateReplace, ue.Failures[0].Phase)
	assert.NotContains(t, log.forHost("10.0.0.2"), rebootCommand)
}

func TestUpdatePlanFailsBeforeDialing(t *testing.T) {
	ctrl := gomock.NewController(t)
	dialer := session.NewMockDialer(ctrl)

	source := sourceFunc(func(d models.Device) ([]*artifacts.Artifact, error) {
		if d.Serial() == "RF3E000002" {
			return nil, artifacts.ErrNoArtifactsForDevice
		}

		return nil, nil
	})

	u := newTestUpdater(dialer, source)

	report, err := u.Update(context.Background(), []models.Device{
		irisAt(t, "RF3E000001", "10.0.0.2"),
		irisAt(t, "RF3E000002", "10.0.0.3"),
	})
	require.ErrorIs(t, err, artifacts.ErrNoArtifactsForDevice)
	assert.Nil(t, report)
}

func TestUpdateNoTargets(t *testing.T) {
	u := newTestUpdater(&fakeDialer{}, staticSource(nil))

	_, err := u.Update(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoTargets)

	u = newTestUpdater(&fakeDialer{}, nil)

	_, err = u.Plan([]models.Device{irisAt(t, "RF3E000001", "10.0.0.2")})
	require.ErrorIs(t, err, ErrNoArtifacts)
}

func TestUpdatePublishesEvents(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := events.NewMockPublisher(ctrl)

	log := &commandLog{}
	dialer := fleet(log, "10.0.0.2")
	dialer.conns["10.0.0.2"].corrupt = true

	var (
		device    events.DeviceUpdate
		completed events.UpdateCompleted
	)

	pub.EXPECT().Publish(gomock.Any(), events.TypeUpdateDevice, "RF3E000001", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, data any) error {
			device = data.(events.DeviceUpdate)
			return nil
		})
	pub.EXPECT().Publish(gomock.Any(), events.TypeUpdateCompleted, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, data any) error {
			completed = data.(events.UpdateCompleted)
			return errors.New("stream unavailable")
		})

	u := newTestUpdater(dialer, staticSource(irisImages(t)), WithPublisher(pub))

	report, err := u.Update(context.Background(), []models.Device{irisAt(t, "RF3E000001", "10.0.0.2")})
	require.Error(t, err)

	assert.Equal(t, report.RunID, device.RunID)
	assert.Equal(t, StateFailed, device.State)
	assert.Equal(t, StateVerify, device.Phase)
	assert.Equal(t, string(models.VariantIris), device.Variant)
	assert.Contains(t, device.Error, ErrChecksumMismatch.Error())

	assert.Equal(t, report.RunID, completed.RunID)
	assert.Equal(t, []string{"RF3E000001"}, completed.Failed)
	assert.Empty(t, completed.Succeeded)
}

func TestRebootOrdersByPowerDependency(t *testing.T) {
	log := &commandLog{}
	dialer := fleet(log, "10.0.0.1", "10.0.0.2")

	u := newTestUpdater(dialer, nil)

	err := u.Reboot(context.Background(), []models.Device{
		hubAt(t, "FH4A000001", "10.0.0.1"),
		irisAt(t, "RF3E000001", "10.0.0.2"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"10.0.0.2: " + rebootCommand,
		"10.0.0.1: " + rebootCommand,
	}, log.entries)
	assert.True(t, dialer.conns["10.0.0.1"].closed)
	assert.True(t, dialer.conns["10.0.0.2"].closed)
}

func TestRebootReportsUnreachableDevices(t *testing.T) {
	log := &commandLog{}
	dialer := fleet(log, "10.0.0.2")

	u := newTestUpdater(dialer, nil)

	err := u.Reboot(context.Background(), []models.Device{
		irisAt(t, "RF3E000001", "10.0.0.2"),
		irisAt(t, "RF3E000009", "10.0.0.9"),
	})

	var ue *UpdateError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, []string{"RF3E000009"}, ue.Serials())
	assert.Equal(t, StateReboot, ue.Failures[0].Phase)
	assert.Equal(t, []string{rebootCommand}, log.forHost("10.0.0.2"))

	require.ErrorIs(t, u.Reboot(context.Background(), nil), ErrNoTargets)
}

func TestPipelineFSM(t *testing.T) {
	var seen []string

	f := newPipelineFSM(func(_ context.Context, from, to string) {
		seen = append(seen, from+">"+to)
	})

	ctx := context.Background()

	for range pipelineOrder[1:] {
		require.NoError(t, f.Event(ctx, EventAdvance))
	}

	assert.Equal(t, StateDone, f.Current())
	assert.Len(t, seen, len(pipelineOrder)-1)
	assert.Equal(t, StatePending+">"+StateStage, seen[0])
	require.Error(t, f.Event(ctx, EventAdvance))
	require.Error(t, f.Event(ctx, EventFail))

	tests := []struct {
		name     string
		advances int
		want     string
	}{
		{"fail while pending", 0, StatePending},
		{"fail during transfer", 2, StateTransfer},
		{"fail during reboot", 7, StateReboot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFSM(func(context.Context, string, string) {})

			for i := 0; i < tt.advances; i++ {
				require.NoError(t, f.Event(ctx, EventAdvance))
			}

			assert.Equal(t, tt.want, f.Current())
			require.NoError(t, f.Event(ctx, EventFail))
			assert.Equal(t, StateFailed, f.Current())
		})
	}
}

func TestBootMounted(t *testing.T) {
	tests := []struct {
		name   string
		mounts string
		want   bool
	}{
		{"absent", "proc /proc proc rw 0 0\n", false},
		{"mounted", "/dev/mmcblk0p1 /boot vfat ro 0 0\n", true},
		{"prefix only", "/dev/sda1 /boot/efi vfat rw 0 0\n", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bootMounted(tt.mounts))
		})
	}
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}

	return -1
}

// steppingClock returns a Now that only moves when advance is called.
type steppingClock struct {
	now time.Time
}

func (c *steppingClock) advance(d time.Duration) { c.now = c.now.Add(d) }

// mockClock returns a clock whose ticker has ticks buffered and whose
// deadline timer fires only when the test sends on the returned channel.
func mockClock(ctrl *gomock.Controller, c *steppingClock, ticks int) (*MockClock, chan time.Time, chan time.Time) {
	clock := NewMockClock(ctrl)
	ticker := NewMockTicker(ctrl)
	timer := NewMockTicker(ctrl)
	deadline := make(chan time.Time, 1)

	ch := make(chan time.Time, ticks)
	for i := 0; i < ticks; i++ {
		ch <- c.now
	}

	clock.EXPECT().Now().DoAndReturn(func() time.Time { return c.now }).AnyTimes()
	clock.EXPECT().Ticker(15 * time.Second).Return(ticker).AnyTimes()
	ticker.EXPECT().Chan().Return((<-chan time.Time)(ch)).AnyTimes()
	ticker.EXPECT().Stop().AnyTimes()
	clock.EXPECT().Timer(gomock.Any()).Return(timer).AnyTimes()
	timer.EXPECT().Chan().Return((<-chan time.Time)(deadline)).AnyTimes()
	timer.EXPECT().Stop().AnyTimes()

	return clock, ch, deadline
}

type serialFunc func(ctx context.Context) (map[string]struct{}, error)

func (f serialFunc) Serials(ctx context.Context) (map[string]struct{}, error) { return f(ctx) }

func serialSet(serials ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(serials))
	for _, s := range serials {
		out[s] = struct{}{}
	}

	return out
}

func TestPollerFindsDevices(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := &steppingClock{now: time.Unix(1_700_000_000, 0)}
	clock, _, _ := mockClock(ctrl, c, 3)

	results := []struct {
		seen map[string]struct{}
		err  error
	}{
		{nil, errors.New("SoapySDRUtil: exit status 1")},
		{serialSet("RF3E000001"), nil},
		{serialSet("RF3E000001", "RF3E000002", "FH4A000001"), nil},
	}

	calls := 0
	source := serialFunc(func(context.Context) (map[string]struct{}, error) {
		r := results[calls]
		calls++
		c.advance(15 * time.Second)

		return r.seen, r.err
	})

	pub := events.NewMockPublisher(ctrl)

	var result events.ReachabilityResult

	pub.EXPECT().Publish(gomock.Any(), events.TypeReachabilityResult, "run-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, data any) error {
			result = data.(events.ReachabilityResult)
			return nil
		})

	p := NewPoller(source, 15*time.Second, 5*time.Minute, nil, WithClock(clock), WithPublisher(pub))

	found, err := p.Wait(context.Background(), "run-1", []string{"RF3E000001", "RF3E000002"})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 3, calls)

	assert.True(t, result.Found)
	assert.Empty(t, result.Missing)
	assert.Equal(t, 45*time.Second, result.Waited)
}

func TestPollerTimesOut(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := &steppingClock{now: time.Unix(1_700_000_000, 0)}
	clock, _, _ := mockClock(ctrl, c, 5)

	calls := 0
	source := serialFunc(func(context.Context) (map[string]struct{}, error) {
		calls++
		c.advance(15 * time.Second)

		return serialSet("RF3E000001"), nil
	})

	pub := events.NewMockPublisher(ctrl)

	var result events.ReachabilityResult

	pub.EXPECT().Publish(gomock.Any(), events.TypeReachabilityResult, "run-2", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, data any) error {
			result = data.(events.ReachabilityResult)
			return nil
		})

	p := NewPoller(source, 15*time.Second, 30*time.Second, nil, WithClock(clock), WithPublisher(pub))

	found, err := p.Wait(context.Background(), "run-2", []string{"RF3E000002", "RF3E000001", "RF3E000003"})
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 3, calls)

	assert.False(t, result.Found)
	assert.Equal(t, []string{"RF3E000002", "RF3E000003"}, result.Missing)
	assert.Equal(t, 45*time.Second, result.Waited)
}

func TestPollerDeadlineInterruptsInterval(t *testing.T) {
	tests := []struct {
		name      string
		lastSeen  map[string]struct{}
		wantFound bool
	}{
		{name: "still missing", lastSeen: serialSet(), wantFound: false},
		{name: "back on last poll", lastSeen: serialSet("RF3E000001"), wantFound: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			c := &steppingClock{now: time.Unix(1_700_000_000, 0)}
			clock, _, deadline := mockClock(ctrl, c, 0)

			calls := 0
			source := serialFunc(func(context.Context) (map[string]struct{}, error) {
				calls++
				c.advance(5 * time.Second)

				if calls == 1 {
					// the timeout passes before the next tick is due
					deadline <- c.now

					return serialSet(), nil
				}

				return tt.lastSeen, nil
			})

			p := NewPoller(source, 15*time.Second, 20*time.Second, nil, WithClock(clock))

			found, err := p.Wait(context.Background(), "run-5", []string{"RF3E000001"})
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, 2, calls)
		})
	}
}

func TestPollerCancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := &steppingClock{now: time.Unix(1_700_000_000, 0)}
	clock, _, _ := mockClock(ctrl, c, 0)

	source := serialFunc(func(context.Context) (map[string]struct{}, error) {
		return serialSet(), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPoller(source, 15*time.Second, time.Hour, nil, WithClock(clock))

	found, err := p.Wait(ctx, "run-3", []string{"RF3E000001"})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, found)

	found, err = p.WaitAfterReboot(ctx, "run-3", []string{"RF3E000001"})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, found)
}

func TestPollerWaitAfterRebootSkipsFirstTick(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := &steppingClock{now: time.Unix(1_700_000_000, 0)}
	clock, ch, _ := mockClock(ctrl, c, 1)

	calls := 0
	source := serialFunc(func(context.Context) (map[string]struct{}, error) {
		calls++

		return serialSet("RF3E000001"), nil
	})

	p := NewPoller(source, 15*time.Second, time.Minute, nil, WithClock(clock))

	found, err := p.WaitAfterReboot(context.Background(), "run-4", []string{"RF3E000001"})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, calls)
	assert.Empty(t, ch)
}
