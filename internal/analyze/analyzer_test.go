package analyze

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracelens/tracelens/internal/discovery"
)

const traceHeader = "Dispatch_Id,Kernel_Id,Kernel_Name,Start_Timestamp,End_Timestamp,Workgroup_Size_X,Workgroup_Size_Y,Workgroup_Size_Z,Grid_Size_X,Grid_Size_Y,Grid_Size_Z\n"

type memRecorder struct {
	records []OutputRecord
}

func (m *memRecorder) RecordOutput(_ context.Context, rec OutputRecord) error {
	m.records = append(m.records, rec)
	return nil
}

func writeFile(t *testing.T, fsys afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, fsys.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, afero.WriteFile(fsys, path, []byte(content), 0644))
}

func TestRun_EndToEnd(t *testing.T) {
	fsys := afero.NewMemMapFs()

	writeFile(t, fsys, "root/p2048_ub512_b512/bel-phx4/16880_kernel_trace.csv",
		traceHeader+
			"1,10,rms_norm_f32,0,1000,64,1,1,256,1,1\n"+
			"2,11,matmul,1000,2000,64,1,1,512,1,1\n")
	writeFile(t, fsys, "root/p4096_ub4096_b4096/bel-phx7/900_kernel_trace.csv",
		traceHeader+
			"1,10,rms_norm_f32,0,2000,64,1,1,128,1,1\n")
	// No marker anywhere in this one; it is skipped, not failed.
	writeFile(t, fsys, "root/p4096_ub4096_b4096/bel-phx7/901_kernel_trace.csv",
		traceHeader+
			"1,10,matmul,0,2000,64,1,1,128,1,1\n")
	// Not a variant directory; ignored entirely.
	writeFile(t, fsys, "root/scratch/bel-phx4/1_kernel_trace.csv", traceHeader)

	rec := &memRecorder{}
	a := New(fsys, 136, "Kernel_Name", "rms_norm_f32", WithRecorder(rec))

	summary, err := a.Run(context.Background(), "root")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Variants)
	assert.Equal(t, 2, summary.Groups)
	assert.Equal(t, 2, summary.OutputFiles)
	assert.Equal(t, 2, summary.FilesProcessed)
	assert.Equal(t, 1, summary.FilesSkipped)
	assert.Equal(t, 3, summary.RowsWritten)

	exists, err := afero.Exists(fsys, "root/p2048_ub512_b512/bel-phx4/p2048_ub512_b512.csv")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = afero.Exists(fsys, "root/p4096_ub4096_b4096/bel-phx7/p4096_ub4096_b4096.csv")
	require.NoError(t, err)
	assert.True(t, exists)

	require.Len(t, rec.records, 2)
	assert.Equal(t, "p2048_ub512_b512", rec.records[0].Variant.Name)
	assert.Equal(t, 2, rec.records[0].RowsWritten)
	assert.Equal(t, "p4096_ub4096_b4096", rec.records[1].Variant.Name)
	assert.Equal(t, 1, rec.records[1].SkippedFiles)
}

func TestRun_EmptyVariantProducesNoOutput(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("root/p2048_ub512_b512", 0755))

	a := New(fsys, 136, "Kernel_Name", "rms_norm_f32")
	summary, err := a.Run(context.Background(), "root")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Variants)
	assert.Zero(t, summary.Groups)
	assert.Zero(t, summary.OutputFiles)
}

func TestRun_RootMissing(t *testing.T) {
	fsys := afero.NewMemMapFs()

	a := New(fsys, 136, "Kernel_Name", "rms_norm_f32")
	_, err := a.Run(context.Background(), "missing-root")

	var accessErr *discovery.AccessError
	require.ErrorAs(t, err, &accessErr)
}

func TestRun_BadFileDoesNotAbortGroup(t *testing.T) {
	fsys := afero.NewMemMapFs()

	writeFile(t, fsys, "root/p2048_ub512_b512/host/1_kernel_trace.csv",
		"Dispatch_Id\n1\n") // missing Kernel_Name column
	writeFile(t, fsys, "root/p2048_ub512_b512/host/2_kernel_trace.csv",
		traceHeader+
			"1,10,rms_norm_f32,0,1000,64,1,1,256,1,1\n")

	a := New(fsys, 136, "Kernel_Name", "rms_norm_f32")
	summary, err := a.Run(context.Background(), "root")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.OutputFiles)
	assert.Equal(t, 1, summary.FilesProcessed)
	assert.Equal(t, 1, summary.RowsWritten)
}

func TestRun_RecorderFailureDoesNotAbort(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "root/p2048_ub512_b512/host/1_kernel_trace.csv",
		traceHeader+
			"1,10,rms_norm_f32,0,1000,64,1,1,256,1,1\n")

	a := New(fsys, 136, "Kernel_Name", "rms_norm_f32", WithRecorder(failingRecorder{}))
	summary, err := a.Run(context.Background(), "root")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.OutputFiles)
}

type failingRecorder struct{}

func (failingRecorder) RecordOutput(context.Context, OutputRecord) error {
	return assert.AnError
}
