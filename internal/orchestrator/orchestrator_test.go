package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/codenerd-labs/auditor/internal/config"
	"github.com/codenerd-labs/auditor/internal/model"
	"github.com/codenerd-labs/auditor/internal/progress"
	"github.com/codenerd-labs/auditor/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}

func newTestProject(t *testing.T, st *store.Store) *store.Project {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# widget\nInstallation\nUsage\nLicense\n"), 0o644))
	p, err := st.CreateProject("widget", root, model.ScopeSmall, model.TypeInternal)
	require.NoError(t, err)
	return p
}

func TestStartScanCompletesAndPublishesDone(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "auditor.db"))
	require.NoError(t, err)
	defer st.Close()

	bc := progress.New()
	orch := New(st, bc, 2, nil, config.KafkaConfig{})
	project := newTestProject(t, st)

	scan, err := orch.StartScan(context.Background(), project.ID, "doc", model.ScopeSmall)
	require.NoError(t, err)
	require.Equal(t, store.ScanRunning, scan.Status)

	recv, ok := bc.Subscribe(scan.ID)
	require.True(t, ok)
	defer recv.Close()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-recv.Events():
			if ev == progress.DoneSentinel {
				goto done
			}
		case <-deadline:
			t.Fatal("timed out waiting for scan completion")
		}
	}
done:

	finished, err := st.GetScan(scan.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ScanCompleted, finished.Status)
	require.NotNil(t, finished.ReportJSON)
}

func TestStartScanRejectsUnknownEngine(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "auditor.db"))
	require.NoError(t, err)
	defer st.Close()

	orch := New(st, progress.New(), 1, nil, config.KafkaConfig{})
	project := newTestProject(t, st)

	_, err = orch.StartScan(context.Background(), project.ID, "bogus", model.ScopeSmall)
	require.Error(t, err)
	var oerr *OrchestratorError
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, ErrUnknownEngine, oerr.Kind)
}

func TestStartScanRejectsUnknownProject(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "auditor.db"))
	require.NoError(t, err)
	defer st.Close()

	orch := New(st, progress.New(), 1, nil, config.KafkaConfig{})
	_, err = orch.StartScan(context.Background(), "missing-project", "doc", model.ScopeSmall)
	require.Error(t, err)
	var oerr *OrchestratorError
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, ErrUnknownProject, oerr.Kind)
}

func TestStartScanAdmissionFailsWhenContextExpiresWhileSlotBusy(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "auditor.db"))
	require.NoError(t, err)
	defer st.Close()

	bc := progress.New()
	orch := New(st, bc, 1, nil, config.KafkaConfig{})
	project := newTestProject(t, st)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// Exhaust the single slot manually to simulate an in-flight scan.
	require.NoError(t, orch.sem.Acquire(context.Background(), 1))
	defer orch.sem.Release(1)

	_, err = orch.StartScan(ctx, project.ID, "doc", model.ScopeSmall)
	require.Error(t, err)
	var oerr *OrchestratorError
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, ErrAdmission, oerr.Kind)
}
