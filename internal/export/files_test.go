package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jchantrell/twmap/internal/datafile"
	"github.com/jchantrell/twmap/internal/format"
	"github.com/jchantrell/twmap/internal/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileName(t *testing.T) {
	assert.Equal(t, "data_0000.bin", FileName(0))
	assert.Equal(t, "data_0042.bin", FileName(42))
	assert.Equal(t, "data_12345.bin", FileName(12345))
}

func TestExportData(t *testing.T) {
	for _, version := range []format.Version{format.Version3, format.Version4} {
		t.Run(version.String(), func(t *testing.T) {
			payloads := [][]byte{[]byte("image"), {}, []byte("sound data")}
			b := testutil.NewBuilder(version)
			for _, p := range payloads {
				b.AddData(p)
			}
			r, err := datafile.New(testutil.NewMemFile(b.Bytes()))
			require.NoError(t, err)
			defer r.Close()

			fsys := afero.NewMemMapFs()
			var calls []int
			results, err := NewExporterFs(fsys, "out/dm1").ExportData(r, func(current, total int, description string) {
				assert.Equal(t, 3, total)
				calls = append(calls, current)
			})
			require.NoError(t, err)
			require.Len(t, results, 3)
			assert.Equal(t, []int{1, 2, 3}, calls)

			for i, p := range payloads {
				assert.Equal(t, i, results[i].Index)
				assert.Equal(t, len(p), results[i].Size)

				got, err := afero.ReadFile(fsys, filepath.Join("out/dm1", FileName(i)))
				require.NoError(t, err)
				assert.Equal(t, len(p), len(got))
				assert.Equal(t, string(p), string(got))
			}
		})
	}
}

func TestExportData_NoData(t *testing.T) {
	r, err := datafile.New(testutil.NewMemFile(testutil.NewBuilder(format.Version3).AddItem(1, 0).Bytes()))
	require.NoError(t, err)

	fsys := afero.NewMemMapFs()
	results, err := NewExporterFs(fsys, "out").ExportData(r, nil)
	require.NoError(t, err)
	assert.Empty(t, results)

	exists, err := afero.DirExists(fsys, "out")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestExportData_ReadError(t *testing.T) {
	image := testutil.Minimal(format.Version3)
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "m.map", image, 0o644))

	r, err := datafile.OpenFs(fsys, "m.map")
	require.NoError(t, err)
	defer r.Close()

	wf, err := fsys.OpenFile("m.map", os.O_RDWR, 0o644)
	require.NoError(t, err)
	require.NoError(t, wf.Truncate(int64(len(image)-1)))
	require.NoError(t, wf.Close())

	results, err := NewExporterFs(fsys, "out").ExportData(r, nil)
	require.Error(t, err)
	assert.Empty(t, results)
	assert.True(t, datafile.IsStorage(err))
	assert.ErrorIs(t, err, format.ErrShortRead)
}

func TestExportData_WriteError(t *testing.T) {
	r, err := datafile.New(testutil.NewMemFile(testutil.Minimal(format.Version3)))
	require.NoError(t, err)

	fsys := afero.NewReadOnlyFs(afero.NewMemMapFs())
	_, err = NewExporterFs(fsys, "out").ExportData(r, nil)
	assert.Error(t, err)
}
